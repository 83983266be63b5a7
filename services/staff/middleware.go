package staff

import (
	"context"
	"net/http"
	"strings"

	"posd/pkg/web"
)

type claimsKey struct{}

// Auth returns middleware enforcing a valid bearer token and injecting its
// claims into the request context.
func Auth(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				web.RespondError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}

			claims, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				web.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// FromContext returns the claims stored by Auth, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// RequireRole returns middleware allowing only the listed roles through.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				web.RespondError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				web.RespondError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateKey keys the per-user rate limiter: authenticated requests limit by
// user, everything else by remote address.
func RateKey(r *http.Request) (string, error) {
	if claims, ok := FromContext(r.Context()); ok {
		return claims.UserID, nil
	}
	return r.RemoteAddr, nil
}
