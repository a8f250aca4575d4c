// Package ids generates entity identifiers and opaque access tokens.
//
// Every identifier is a short type prefix followed by a random UUID, matching
// the reference deployment's id scheme (User_<uuid>, Group_<uuid>, ...).
// Tokens carry no prefix and no structure: they are pure random entropy, so
// that possession is the only thing that can ever be checked.
package ids

import "github.com/google/uuid"

const (
	UserPrefix     = "User_"
	GroupPrefix    = "Group_"
	ClusterPrefix  = "Cluster_"
	InstancePrefix = "Instance_"
	SecretPrefix   = "Secret_"
)

// Generator issues new entity identifiers and access tokens. It has no
// mutable state of its own (uuid.New is already safe for concurrent use),
// but is kept as a type rather than package-level functions so callers hold
// it as an explicit dependency instead of relying on hidden global state.
type Generator struct{}

func NewGenerator() Generator { return Generator{} }

func (Generator) NewUserID() string     { return UserPrefix + uuid.NewString() }
func (Generator) NewGroupID() string    { return GroupPrefix + uuid.NewString() }
func (Generator) NewClusterID() string  { return ClusterPrefix + uuid.NewString() }
func (Generator) NewInstanceID() string { return InstancePrefix + uuid.NewString() }
func (Generator) NewSecretID() string   { return SecretPrefix + uuid.NewString() }

// NewToken returns a fresh opaque bearer token. Tokens are unique by
// construction (UUIDv4 collision probability is negligible) and carry no
// decodable structure.
func (Generator) NewToken() string { return uuid.NewString() }
