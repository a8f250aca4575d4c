package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
)

func secretToItem(sec models.Secret) kvstore.Item {
	return kvstore.Item{
		Table: tableSecrets,
		Key:   sec.ID,
		Attrs: map[string]string{
			"name":        sec.Name,
			"owningGroup": sec.OwningGroup,
			"cluster":     sec.Cluster,
			"createdAt":   sec.CreatedAt.Format(time.RFC3339),
			"data":        base64.StdEncoding.EncodeToString(sec.Data),
		},
	}
}

func secretFromItem(item kvstore.Item) models.Secret {
	createdAt, _ := time.Parse(time.RFC3339, item.Attrs["createdAt"])
	data, _ := base64.StdEncoding.DecodeString(item.Attrs["data"])
	return models.Secret{
		Valid:       true,
		ID:          item.Key,
		Name:        item.Attrs["name"],
		OwningGroup: item.Attrs["owningGroup"],
		Cluster:     item.Attrs["cluster"],
		CreatedAt:   createdAt,
		Data:        data,
	}
}

// AddSecret stores a new secret record. Data must already be encrypted
// (internal/secretcodec); the store never sees plaintext.
func (s *Store) AddSecret(ctx context.Context, sec models.Secret) (models.Secret, error) {
	sec.ID = s.ids.NewSecretID()
	if sec.CreatedAt.IsZero() {
		sec.CreatedAt = time.Now().UTC()
	}
	if err := s.backend.Put(ctx, secretToItem(sec)); err != nil {
		return models.Secret{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.secretsByID.Set(sec.ID, sec)
	return sec, nil
}

// GetSecret returns the secret record (including encrypted Data) for id, or
// Valid=false if unknown.
func (s *Store) GetSecret(ctx context.Context, id string) (models.Secret, error) {
	if sec, ok := s.secretsByID.Get(id); ok {
		return sec, nil
	}
	item, err := s.backend.Get(ctx, tableSecrets, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.Secret{}, nil
	}
	if err != nil {
		return models.Secret{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	sec := secretFromItem(item)
	s.secretsByID.Set(id, sec)
	return sec, nil
}

// RemoveSecret deletes a secret record, preserving the invariant "stored
// implies installed": callers remove the Kubernetes object first and only
// then call this (see internal/executor's secret-create rollback path).
func (s *Store) RemoveSecret(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, tableSecrets, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.secretsByID.Invalidate(id)
	return nil
}

// ListSecrets returns every secret's summary view (never including Data),
// read fresh from the database.
func (s *Store) ListSecrets(ctx context.Context) ([]models.SecretSummary, error) {
	items, err := s.backend.Scan(ctx, tableSecrets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	summaries := make([]models.SecretSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, secretFromItem(item).Summary())
	}
	return summaries, nil
}

// ListSecretsByGroup filters ListSecrets to those owned by groupID, used by
// the group cascade-delete algorithm.
func (s *Store) ListSecretsByGroup(ctx context.Context, groupID string) ([]models.SecretSummary, error) {
	all, err := s.ListSecrets(ctx)
	if err != nil {
		return nil, err
	}
	var owned []models.SecretSummary
	for _, sec := range all {
		if sec.OwningGroup == groupID {
			owned = append(owned, sec)
		}
	}
	return owned, nil
}
