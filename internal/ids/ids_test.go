package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixes(t *testing.T) {
	g := NewGenerator()

	assert.True(t, strings.HasPrefix(g.NewUserID(), UserPrefix))
	assert.True(t, strings.HasPrefix(g.NewGroupID(), GroupPrefix))
	assert.True(t, strings.HasPrefix(g.NewClusterID(), ClusterPrefix))
	assert.True(t, strings.HasPrefix(g.NewInstanceID(), InstancePrefix))
	assert.True(t, strings.HasPrefix(g.NewSecretID(), SecretPrefix))
}

func TestTokensAreUnique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := g.NewToken()
		assert.False(t, seen[tok], "token collision")
		assert.False(t, strings.HasPrefix(tok, "User_"))
		seen[tok] = true
	}
}
