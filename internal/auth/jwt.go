package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims mirrors the access tokens issued by the identity provider.
// The account identifier travels in the standard "sub" claim.
type AccessClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *AccessClaims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTManager verifies HS256 access tokens signed with the project secret.
// Tokens are never issued here.
type JWTManager struct {
	secret   []byte
	audience string
}

func NewJWTManager(secret, audience string) *JWTManager {
	return &JWTManager{
		secret:   []byte(secret),
		audience: audience,
	}
}

func (m *JWTManager) ValidateAccessToken(tokenStr string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing access token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if _, err := claims.AccountID(); err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	return claims, nil
}
