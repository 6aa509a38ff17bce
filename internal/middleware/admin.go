package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MikhailRaia/urlshort/internal/auth"
	"github.com/rs/zerolog/log"
)

type contextKey string

// ClaimsKey is the context key holding the validated admin claims.
const ClaimsKey contextKey = "claims"

// AdminAuth guards management routes with a Bearer JWT carrying the admin role.
type AdminAuth struct {
	jwtService *auth.JWTService
}

// NewAdminAuth creates an AdminAuth with the provided JWT service.
func NewAdminAuth(jwtService *auth.JWTService) *AdminAuth {
	return &AdminAuth{
		jwtService: jwtService,
	}
}

// RequireAdmin rejects requests without a valid admin token.
func (a *AdminAuth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := a.jwtService.RequireRole(token, auth.RoleAdmin)
		if err != nil {
			if errors.Is(err, auth.ErrForbidden) {
				log.Warn().Msg("Token without admin role")
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			log.Debug().Err(err).Msg("Rejected admin token")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext extracts admin claims set by RequireAdmin.
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
