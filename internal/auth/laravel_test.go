package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateLaravelHashUsesLaravelPrefix(t *testing.T) {
	hash, err := GenerateLaravelHash("conductor123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$2y$"), "got prefix %s", hash[:4])
}

func TestVerifyLaravelHashRoundTrip(t *testing.T) {
	hash, err := GenerateLaravelHash("conductor123")
	require.NoError(t, err)

	assert.True(t, VerifyLaravelHash("conductor123", hash))
	assert.False(t, VerifyLaravelHash("otraclave", hash))
}

func TestVerifyLaravelHashAcceptsGoPrefix(t *testing.T) {
	// Hashes written by Go tooling carry $2a$ and must verify too
	raw, err := bcrypt.GenerateFromPassword([]byte("conductor123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	assert.True(t, VerifyLaravelHash("conductor123", string(raw)))
}

func TestVerifyLaravelHashRejectsGarbage(t *testing.T) {
	assert.False(t, VerifyLaravelHash("conductor123", "no-es-un-hash"))
	assert.False(t, VerifyLaravelHash("conductor123", ""))
}
