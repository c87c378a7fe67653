package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/edugen-platform/edugen/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := svc.Authenticate(r)
			if err != nil {
				if errors.Is(err, ErrMissingToken) {
					api.HandleError(w, api.ErrUnauthorized)
					return
				}
				api.HandleError(w, api.ErrInvalidToken)
				return
			}

			ctx := SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetUserClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}

// AccountIDFromContext returns the authenticated account, or false when the
// request did not pass through Middleware.
func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims := GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := claims.AccountID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
