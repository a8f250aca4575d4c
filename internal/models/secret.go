package models

import "time"

// Secret is an encrypted payload materialized as a Kubernetes Secret in its
// owning Group's namespace on a Cluster. Data holds the scryptenc-encoded
// ciphertext; plaintext is never persisted.
type Secret struct {
	Valid       bool      `json:"-" db:"-"`
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwningGroup string    `json:"owning_group" db:"owning_group"`
	Cluster     string    `json:"cluster" db:"cluster"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Data        []byte    `json:"-" db:"data"`
}

func (s Secret) IsValid() bool { return s.Valid }

type SecretSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwningGroup string    `json:"owning_group"`
	Cluster     string    `json:"cluster"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s Secret) Summary() SecretSummary {
	return SecretSummary{ID: s.ID, Name: s.Name, OwningGroup: s.OwningGroup, Cluster: s.Cluster, CreatedAt: s.CreatedAt}
}
