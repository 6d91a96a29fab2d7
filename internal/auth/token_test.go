package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager("test-secret", 15*time.Minute, 7*24*time.Hour, 24*time.Hour)
}

func TestCreateAndDecodeToken(t *testing.T) {
	tm := newTestTokenManager()

	for _, typ := range []TokenType{TokenTypeAccess, TokenTypeRefresh, TokenTypeEmail} {
		t.Run(string(typ), func(t *testing.T) {
			token, err := tm.CreateToken("user-123", typ)
			require.NoError(t, err)
			assert.NotEmpty(t, token.Value)
			assert.NotEmpty(t, token.JTI)

			// Expiry derives from the configured duration for the type
			wantExpiry := time.Now().Add(tm.Duration(typ))
			assert.WithinDuration(t, wantExpiry, token.ExpiresAt, 2*time.Second)

			claims := tm.DecodeToken(token.Value)
			require.NotNil(t, claims)
			assert.Equal(t, "user-123", claims.Subject)
			assert.Equal(t, typ, claims.TokenType)
			assert.Equal(t, token.JTI, claims.ID)
		})
	}
}

func TestDecodeTokenRejectsMutation(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.CreateToken("user-123", TokenTypeAccess)
	require.NoError(t, err)

	// Flipping any byte must fold into the same nil outcome
	for _, pos := range []int{0, len(token.Value) / 2, len(token.Value) - 1} {
		mutated := []byte(token.Value)
		if mutated[pos] == 'A' {
			mutated[pos] = 'B'
		} else {
			mutated[pos] = 'A'
		}
		assert.Nil(t, tm.DecodeToken(string(mutated)), "mutation at %d should invalidate the token", pos)
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	tm := newTestTokenManager()

	assert.Nil(t, tm.DecodeToken(""))
	assert.Nil(t, tm.DecodeToken("not-a-token"))
	assert.Nil(t, tm.DecodeToken("aa.bb.cc"))
}

func TestDecodeTokenRejectsWrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("other-secret", 15*time.Minute, 7*24*time.Hour, 24*time.Hour)

	token, err := other.CreateToken("user-123", TokenTypeAccess)
	require.NoError(t, err)

	assert.Nil(t, tm.DecodeToken(token.Value))
}

func TestDecodeTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -1*time.Minute, -1*time.Minute, -1*time.Minute)

	token, err := tm.CreateToken("user-123", TokenTypeAccess)
	require.NoError(t, err)

	assert.Nil(t, tm.DecodeToken(token.Value))
}
