package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes the three credentials the service mints
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeEmail   TokenType = "email"
)

// Claims represents the claims in a signed token. The subject is the user
// ID and the registered ID is the jti used for revocation and
// pending-signup keys.
type Claims struct {
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Token is a freshly minted credential together with the metadata callers
// need without decoding it.
type Token struct {
	Value     string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager creates and validates signed tokens
type TokenManager struct {
	secretKey []byte
	durations map[TokenType]time.Duration
}

// NewTokenManager creates a new TokenManager with the configured lifetime
// for each token type.
func NewTokenManager(secretKey string, access, refresh, email time.Duration) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		durations: map[TokenType]time.Duration{
			TokenTypeAccess:  access,
			TokenTypeRefresh: refresh,
			TokenTypeEmail:   email,
		},
	}
}

// Duration returns the configured lifetime for a token type
func (tm *TokenManager) Duration(typ TokenType) time.Duration {
	return tm.durations[typ]
}

// CreateToken mints a signed token for a subject. The expiry is derived
// from the configured duration for the type.
func (tm *TokenManager) CreateToken(subject string, typ TokenType) (*Token, error) {
	now := time.Now()
	expiresAt := now.Add(tm.durations[typ])
	jti := uuid.NewString()

	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secretKey)
	if err != nil {
		return nil, err
	}

	return &Token{Value: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// DecodeToken verifies a raw token and returns its claims, or nil when the
// token fails verification for any reason. Bad signature, malformed input
// and expiry all collapse into the same nil result so callers cannot leak
// which check failed.
func (tm *TokenManager) DecodeToken(raw string) *Claims {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return tm.secretKey, nil
	})
	if err != nil {
		return nil
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil
	}

	return claims
}
