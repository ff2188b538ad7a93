package audit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vpfs.org/internal/auth"
	"vpfs.org/internal/obs"
)

const defaultWriteTimeout = 5 * time.Second

// Writer appends audit entries.
type Writer interface {
	Insert(ctx context.Context, e *Entry) error
}

// Recorder persists entries off the request path. Failures are logged and
// counted but never reported to the caller.
type Recorder struct {
	w       Writer
	timeout time.Duration
	now     func() time.Time
	log     *logrus.Logger
	wg      sync.WaitGroup
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithWriteTimeout bounds each background write.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRecorderClock overrides the created_at source.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(w Writer, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		w:       w,
		timeout: defaultWriteTimeout,
		now:     time.Now,
		log:     obs.Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stamps e and writes it in the background.
func (r *Recorder) Record(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.w.Insert(ctx, &e); err != nil {
			obs.AuditWrite("failed")
			r.log.WithFields(logrus.Fields{
				"action":   e.Action,
				"resource": e.Resource,
				"error":    err.Error(),
			}).Warn("audit write failed")
			return
		}
		obs.AuditWrite("written")
	}()
}

// RecordAuth writes a LOGIN or LOGOUT entry for user.
func (r *Recorder) RecordAuth(req *http.Request, user *auth.User, action Action) {
	if user == nil {
		return
	}
	r.Record(Entry{
		UserID:    user.ID,
		Username:  user.Username,
		Action:    action,
		Resource:  ResourceAuth,
		IPAddress: strPtr(ClientIP(req)),
	})
}

// Wait blocks until every pending write has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
