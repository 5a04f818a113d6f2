package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/obs"
)

const tokenTTL = 24 * time.Hour

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin authenticates credentials and issues a session token. Attempts
// are throttled per client address; rejected attempts do not consume the
// window further. Failures always return the same message so the endpoint
// does not reveal which accounts exist.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	key := "login:" + clientIP(r)
	if ok, retry := a.limiter.Allow(key); !ok {
		obs.RateLimited()
		w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retry)))
		writeError(w, r, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	note := audit.NoteFromContext(r.Context())

	user, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			a.loginFailed(w, r, note, email, "unknown account")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !user.Active {
		a.loginFailed(w, r, note, email, "deactivated account")
		return
	}
	if auth.VerifyPassword(user.PasswordHash, req.Password) != nil {
		a.loginFailed(w, r, note, email, "wrong password")
		return
	}
	if user.TwoFactorEnabled && !require2FA(w, r, user) {
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role, user.Department, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	note.SetActor(user.ID, user.Name)
	note.Set("auth.login", "user", user.ID, "successful login", "auth")

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (a *API) loginFailed(w http.ResponseWriter, r *http.Request, note *audit.Note, email, why string) {
	obs.AuthFailure("bad_credentials")
	note.Set("auth.login_failed", "user", "", fmt.Sprintf("%s: %s", why, email), "auth")
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "Invalid credentials",
	})
}

func retrySeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// handleLogout exists for clients to signal end of session; tokens are
// stateless so there is nothing to revoke server-side.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	audit.NoteFromContext(r.Context()).Set("auth.logout", "user", user.ID, "", "auth")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleMe returns the authenticated user's profile.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handle2FASetup provisions a TOTP secret for the caller. The secret stays
// inactive until a valid code confirms the authenticator was enrolled.
func (a *API) handle2FASetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	secret, url, err := auth.GenerateTwoFactorSecret(user.Email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if err := a.users.SetTwoFactor(r.Context(), user.ID, false, secret); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.NoteFromContext(r.Context()).Set("auth.2fa_setup", "user", user.ID, "", "auth")
	writeJSON(w, http.StatusOK, map[string]any{
		"secret":      secret,
		"otpauth_url": url,
	})
}

type twoFactorActivateRequest struct {
	Code string `json:"code"`
}

// handle2FAActivate verifies the first code from the enrolled authenticator
// and switches enforcement on.
func (a *API) handle2FAActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req twoFactorActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if user.TwoFactorSecret == "" {
		writeError(w, r, http.StatusBadRequest, "two-factor setup has not been started")
		return
	}
	if !auth.VerifyTwoFactorCode(user.TwoFactorSecret, strings.TrimSpace(req.Code)) {
		obs.AuthFailure("bad_2fa")
		writeError(w, r, http.StatusUnauthorized, "invalid two-factor code")
		return
	}
	if err := a.users.SetTwoFactor(r.Context(), user.ID, true, user.TwoFactorSecret); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.NoteFromContext(r.Context()).Set("auth.2fa_enabled", "user", user.ID, "", "auth")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
