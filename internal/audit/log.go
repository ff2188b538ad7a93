package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"vpfs.org/internal/auth"
	"vpfs.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an operational event line enriched with request and user
// context. These lines go to the process log, not to the audit_logs table.
func LogEvent(ctx context.Context, event string, fields logrus.Fields) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := obs.Logger().WithFields(logrus.Fields{
		"type":  "audit",
		"event": event,
	})
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		entry = entry.WithField("user_id", p.User.ID)
	}
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Info(event)
	return nil
}
