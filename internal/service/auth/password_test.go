package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	t.Parallel()

	hasher := NewBcryptHasher(bcrypt.MinCost)
	verifier := NewBcryptVerifier()

	hashed, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery", hashed)

	assert.NoError(t, verifier.Compare(hashed, "correct horse battery"))
	assert.Error(t, verifier.Compare(hashed, "wrong password"))
}

func TestNewBcryptHasherFallsBackToDefaultCost(t *testing.T) {
	t.Parallel()

	hasher := NewBcryptHasher(-1)
	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
}
