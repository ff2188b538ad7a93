package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"vpfs.org/internal/auth"
	"vpfs.org/internal/guard"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
	authCookie = "authToken"
)

// authenticate resolves the session token from the authToken cookie or the
// bearer header and attaches the principal to the request context.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token := sessionToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

// requirePermission admits callers holding any of perms.
func requirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			if err := auth.Require(principal, perms...); err != nil {
				writeForbidden(w, r, perms)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// guardFields rejects a full update whose payload touches a field group the
// caller may not write. It runs before the audit snapshot so denied requests
// leave no trace beyond the 403.
func guardFields(table *guard.Table) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			writers := table.Writers()
			if !principal.HasAny(writers...) {
				writeForbidden(w, r, writers)
				return
			}
			body, err := peekBody(r)
			if err != nil {
				writeBodyError(w, r, err)
				return
			}
			if d := table.CheckBody(principal.Permissions, body); !d.Allowed {
				writeForbidden(w, r, d.RequiredPermissions())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// onlyGroup narrows the payload of a group PATCH to that group's fields.
func onlyGroup(g guard.Group) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(g.Fields))
	for _, f := range g.Fields {
		allowed[f] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := peekBody(r)
			if err != nil {
				writeBodyError(w, r, err)
				return
			}
			kept := make(map[string]any, len(g.Fields))
			for k, v := range body {
				if _, ok := allowed[k]; ok {
					kept[k] = v
				}
			}
			raw, err := json.Marshal(kept)
			if err != nil {
				respondError(w, r, err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			next.ServeHTTP(w, r)
		})
	}
}

// peekBody decodes the JSON object body and restores it for later readers.
func peekBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return nil, errBadBody
	}
	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, errBadBody
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return nil, errBadBody
	}
	return body, nil
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(authCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	token, _ := extractBearerToken(r.Header.Get(authHeader))
	return token
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}
