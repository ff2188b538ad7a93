package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/fleet"
	"vpfs.org/internal/obs"
	"vpfs.org/internal/store"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes the success envelope {success: true, ...fields}.
func respond(w http.ResponseWriter, code int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	writeJSON(w, code, body)
}

func errorBody(r *http.Request, msg string) map[string]any {
	body := map[string]any{"success": false, "message": msg}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	return body
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorBody(r, msg))
}

// writeForbidden lists the permissions the caller lacked.
func writeForbidden(w http.ResponseWriter, r *http.Request, required []string) {
	body := errorBody(r, "insufficient permissions")
	if required == nil {
		required = []string{}
	}
	body["requiredPermissions"] = required
	writeJSON(w, http.StatusForbidden, body)
}

// respondError maps err to its status and envelope. Unclassified errors are
// logged and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *auth.RateLimitError
	switch {
	case errors.As(err, &rl):
		body := errorBody(r, "too many login attempts, try again later")
		body["resetAt"] = rl.ResetAt.UTC().Format(time.RFC3339)
		if secs := int(time.Until(rl.ResetAt).Seconds()) + 1; secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeJSON(w, http.StatusTooManyRequests, body)
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, http.StatusUnauthorized, "token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, r, nil)
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, fleet.ErrValidation),
		errors.Is(err, audit.ErrInvalidQuery),
		errors.Is(err, store.ErrConflict):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		obs.Logger().WithFields(logrus.Fields{
			"request_id": audit.RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"error":      err.Error(),
		}).Error("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON object body.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errBadBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errBadBody
	}
	return nil
}

var (
	errBadBody      = errors.New("request body must be a JSON object")
	errBodyTooLarge = errors.New("request body too large")
)

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, r, http.StatusBadRequest, err.Error())
}
