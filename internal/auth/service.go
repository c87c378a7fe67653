package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type Service struct {
	jwt *JWTManager
}

func NewService(jwt *JWTManager) *Service {
	return &Service{jwt: jwt}
}

// Authenticate resolves the caller of r from its Authorization header.
// It returns ErrMissingToken when no bearer credential is present and
// ErrInvalidToken when the credential does not verify.
func (s *Service) Authenticate(r *http.Request) (*AccessClaims, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, ErrMissingToken
	}

	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
