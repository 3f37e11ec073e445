package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
)

// contextKey is unexported so no other package can read or shadow our values.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the HttpOnly cookie the GitHub callback sets.
const CookieName = "token"

// RequireAuth rejects the request with 401 INVALID_TOKEN unless it carries a
// valid token, and stores the Identity in the context otherwise.
//
// The bearer header is checked first (API clients), then the cookie
// (browsers coming back from GitHub).
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", apperror.CodeInvalidToken, "valid authentication required")
				return
			}

			id, err := tokens.Validate(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", apperror.CodeInvalidToken, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

// RequireRole must run after RequireAuth. It answers 403 FORBIDDEN when the
// verified role does not match.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := RoleFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", apperror.CodeInvalidToken, "valid authentication required")
				return
			}
			if got != role {
				writeAuthError(w, http.StatusForbidden, "forbidden", apperror.CodeForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores id in ctx. Handler tests use it to skip token parsing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// UserIDFromContext returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id.UserID, ok && id.UserID != ""
}

func RoleFromContext(ctx context.Context) (model.Role, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id.Role, ok && id.Role != ""
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// writeAuthError produces the same body shape as the handler package.
func writeAuthError(w http.ResponseWriter, status int, kind, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   kind,
		"code":    code,
		"message": msg,
	})
}
