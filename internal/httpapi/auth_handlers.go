package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionUser is the account summary returned on login.
type sessionUser struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

func newSessionUser(u *auth.User) sessionUser {
	return sessionUser{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Permissions: u.Permissions,
		CreatedAt:   u.CreatedAt,
	}
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	sess, err := a.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrRateLimited):
		obs.LoginAttempt("limited")
		_ = audit.LogEvent(r.Context(), "auth.login.rate_limited", logrus.Fields{
			"username":  req.Username,
			"remote_ip": audit.ClientIP(r),
		})
		respondError(w, r, err)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		obs.LoginAttempt("invalid")
		respondError(w, r, err)
		return
	default:
		respondError(w, r, err)
		return
	}

	obs.LoginAttempt("ok")
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   a.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	a.recorder.RecordAuth(r, sess.User, audit.ActionLogin)
	respond(w, http.StatusOK, map[string]any{
		"token": sess.Token,
		"user":  newSessionUser(sess.User),
	})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	respond(w, http.StatusOK, map[string]any{"user": principal.User})
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		a.recorder.RecordAuth(r, principal.User, audit.ActionLogout)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.opts.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	respond(w, http.StatusOK, map[string]any{"message": "logged out"})
}
