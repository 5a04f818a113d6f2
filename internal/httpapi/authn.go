package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/obs"
)

// publicPaths are reachable without a bearer token.
var publicPaths = map[string]bool{
	"/":               true,
	"/api/health":     true,
	"/api/ready":      true,
	"/api/info":       true,
	"/api/auth/login": true,
	"/metrics":        true,
}

// withAuth verifies the bearer token, re-resolves the user from the store and
// attaches both to the context. Claims are never trusted for role or
// department; the stored record wins.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			unauthorized(w, r, "missing_token", "authentication required")
			return
		}
		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			unauthorized(w, r, "invalid_token", "invalid or expired token")
			return
		}
		user, err := a.users.Find(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				unauthorized(w, r, "unknown_subject", "invalid or expired token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if !user.Active {
			unauthorized(w, r, "inactive_user", "account is deactivated")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason, msg string) {
	obs.AuthFailure(reason)
	w.Header().Set("WWW-Authenticate", `Bearer realm="sevadarpan"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", auth.ErrUnauthenticated
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", auth.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", auth.ErrUnauthenticated
	}
	return token, nil
}

// RequireRole guards a handler so only the listed roles pass.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "missing_principal", "authentication required")
				return
			}
			if !allowed[user.Role] {
				obs.AuthFailure("forbidden")
				writeError(w, r, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireUser fetches the authenticated user or writes a 401.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "missing_principal", "authentication required")
		return nil, false
	}
	return user, true
}

// ensureRole writes a 403 unless the user holds one of the roles.
func ensureRole(w http.ResponseWriter, r *http.Request, user *auth.User, roles ...auth.Role) bool {
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	obs.AuthFailure("forbidden")
	writeError(w, r, http.StatusForbidden, "access denied")
	return false
}

// require2FA gates sensitive operations for users with two-factor enabled. A
// missing code is a 400 telling the client to prompt; a wrong code is a 401.
func require2FA(w http.ResponseWriter, r *http.Request, user *auth.User) bool {
	if !user.TwoFactorEnabled {
		return true
	}
	code := strings.TrimSpace(r.Header.Get("X-2FA-Token"))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":        "two-factor code required",
			"requires_2fa": true,
			"request_id":   RequestIDFromContext(r.Context()),
		})
		return false
	}
	if !auth.VerifyTwoFactorCode(user.TwoFactorSecret, code) {
		obs.AuthFailure("bad_2fa")
		writeError(w, r, http.StatusUnauthorized, "invalid two-factor code")
		return false
	}
	return true
}
