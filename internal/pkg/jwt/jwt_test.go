package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("admin-secret")
	token, err := GenerateToken("ops", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "ops", claims.Subject)
	require.Equal(t, adminScope, claims.Scope)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("ops", []byte("a"), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("b"))
	require.Error(t, err)
}

func TestNonPositiveTTLHasNoExpiry(t *testing.T) {
	secret := []byte("admin-secret")
	token, err := GenerateToken("ops", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, secret)
	require.NoError(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken("ops", nil, time.Hour)
	require.Error(t, err)
}
