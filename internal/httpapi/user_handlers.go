package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sevadarpan.org/internal/audit"
	"sevadarpan.org/internal/auth"
	"sevadarpan.org/internal/obs"
)

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listUsers narrows the listing to what the caller may see: administrators
// get everyone, division heads their own department, employees only
// themselves.
func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var (
		users []*auth.User
		err   error
	)
	switch requester.Role {
	case auth.RoleAdministrator:
		users, err = a.users.List(r.Context())
	case auth.RoleDivisionHead:
		users, err = a.users.ListByDepartment(r.Context(), requester.Department)
	default:
		users = []*auth.User{requester}
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if !ensureRole(w, r, requester, auth.RoleAdministrator) {
		return
	}
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		writeError(w, r, http.StatusBadRequest, "name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	user := &auth.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Department:   strings.TrimSpace(req.Department),
		Active:       true,
	}
	if err := a.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.NoteFromContext(r.Context()).Set("user.create", "user", user.ID, user.Email, "user")
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		a.userResource(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "password":
		a.changePassword(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (a *API) userResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deactivateUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryUser, id); err != nil {
		handleScopeError(w, r, err)
		return
	}
	user, err := a.users.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type updateUserRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	Active     *bool   `json:"active"`
}

// updateUser lets a user rename themselves within their scope; role,
// department and active flips stay with administrators.
func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if err := a.scope.Authorize(r.Context(), requester, auth.CategoryUser, id); err != nil {
		handleScopeError(w, r, err)
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	privileged := req.Role != nil || req.Department != nil || req.Active != nil
	if privileged && requester.Role != auth.RoleAdministrator {
		obs.AuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	user, err := a.users.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, r, http.StatusBadRequest, "name must not be empty")
			return
		}
		user.Name = name
	}
	if req.Department != nil {
		user.Department = strings.TrimSpace(*req.Department)
	}
	if req.Role != nil {
		role, ok := auth.ParseRole(*req.Role)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		user.Role = role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := a.users.Update(r.Context(), user); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.NoteFromContext(r.Context()).Set("user.update", "user", user.ID, "", "user")
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// deactivateUser disables the account instead of deleting it so audit history
// keeps a referent.
func (a *API) deactivateUser(w http.ResponseWriter, r *http.Request, id string) {
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if !ensureRole(w, r, requester, auth.RoleAdministrator) {
		return
	}
	if id == requester.ID {
		writeError(w, r, http.StatusBadRequest, "cannot deactivate own account")
		return
	}
	if err := a.users.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.NoteFromContext(r.Context()).Set("user.deactivate", "user", id, "", "user")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// changePassword is rate limited per target account and, for self-service
// changes, demands the current password. Two-factor users must also present a
// fresh code.
func (a *API) changePassword(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPost, http.MethodPut)
		return
	}
	requester, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	// Credentials are narrower than the general user scope: only the account
	// holder or an administrator may change a password. Division heads manage
	// work within their department, not its credentials.
	if requester.ID != id && requester.Role != auth.RoleAdministrator {
		obs.AuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, "access denied")
		return
	}
	if ok, retry := a.limiter.Allow("password:" + id); !ok {
		obs.RateLimited()
		w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retry)))
		writeError(w, r, http.StatusTooManyRequests, "too many password attempts")
		return
	}
	if !require2FA(w, r, requester) {
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	target, err := a.users.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if requester.ID == target.ID {
		if auth.VerifyPassword(target.PasswordHash, req.CurrentPassword) != nil {
			obs.AuthFailure("bad_credentials")
			writeError(w, r, http.StatusUnauthorized, "current password is incorrect")
			return
		}
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if err := a.users.SetPassword(r.Context(), target.ID, hash); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	audit.NoteFromContext(r.Context()).Set("user.password_change", "user", target.ID,
		fmt.Sprintf("changed by %s", requester.ID), "user")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
