package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"vpfs.org/internal/auth"
	"vpfs.org/internal/obs"
)

// Loader fetches the current state of a record for the before-snapshot and
// returns it with its display name.
type Loader func(ctx context.Context, id int64) (map[string]any, string, error)

// Route describes how one endpoint is audited.
type Route struct {
	Action   Action
	Resource Resource
	// Load is required for UPDATE and DELETE.
	Load Loader
	// SearchParam names the URL parameter holding a search term. Setting it
	// turns a VIEW into a search event.
	SearchParam string
	// EnvelopeKey and NameField locate the created record in a CREATE response.
	EnvelopeKey string
	NameField   string
}

// Interceptor wraps handlers so that their outcome is recorded.
type Interceptor struct {
	rec *Recorder
}

func NewInterceptor(rec *Recorder) *Interceptor {
	return &Interceptor{rec: rec}
}

// Recorder returns the recorder the interceptor writes through.
func (i *Interceptor) Recorder() *Recorder { return i.rec }

// Wrap returns middleware auditing rt. The request must already carry an
// authenticated principal; anonymous requests pass through unrecorded.
func (i *Interceptor) Wrap(rt Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			var body map[string]any
			if rt.Action == ActionCreate || rt.Action == ActionUpdate {
				body = readBody(r)
			}

			id, hasID := pathID(r)
			var (
				snapshot map[string]any
				name     string
			)
			if (rt.Action == ActionUpdate || rt.Action == ActionDelete) && hasID && rt.Load != nil {
				if snap, n, err := rt.Load(r.Context(), id); err == nil {
					snapshot, name = snap, n
				}
			}

			var note *writeNote
			if rt.Action == ActionUpdate {
				note = &writeNote{}
				r = r.WithContext(context.WithValue(r.Context(), writeNoteKey{}, note))
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK, keep: rt.Action == ActionCreate}
			next.ServeHTTP(cw, r)

			if !(cw.status >= 200 && cw.status < 300) && cw.status != http.StatusNotFound {
				obs.AuditWrite("suppressed")
				return
			}

			e := Entry{
				UserID:    principal.User.ID,
				Username:  principal.User.Username,
				Action:    rt.Action,
				Resource:  rt.Resource,
				IPAddress: strPtr(ClientIP(r)),
			}
			switch {
			case rt.SearchParam != "":
				term := chi.URLParam(r, rt.SearchParam)
				e.ResourceName = strPtr(term)
				if cw.status == http.StatusNotFound {
					e.Details = SearchResult{SearchQuery: term, NotFound: true}
				} else {
					e.Details = SearchResult{SearchQuery: term, Found: true}
				}
			case rt.Action == ActionCreate:
				if id, name, ok := created(cw.buf.Bytes(), rt.EnvelopeKey, rt.NameField); ok {
					e.ResourceID = int64Ptr(id)
					e.ResourceName = strPtr(name)
				}
				e.Details = CreatedData{Data: redact(body)}
			default:
				if hasID {
					e.ResourceID = int64Ptr(id)
				}
				e.ResourceName = strPtr(name)
				if snapshot != nil {
					switch rt.Action {
					case ActionUpdate:
						if cs := Diff(snapshot, note.merge(body)); len(cs.Changes) > 0 {
							e.Details = cs
						}
					case ActionDelete:
						e.Details = DeletedSnapshot{DeletedData: snapshot}
					}
				}
			}
			i.rec.Record(e)
		})
	}
}

type writeNoteKey struct{}

type writeNote struct {
	mu      sync.Mutex
	written map[string]any
}

// NoteWrite hands the UPDATE interceptor the column values the handler is
// about to persist. Columns the handler derived from the request, such as
// dependents it clears, then appear in the change-set next to the submitted
// ones. It is a no-op outside an audited UPDATE.
func NoteWrite(ctx context.Context, written map[string]any) {
	note, ok := ctx.Value(writeNoteKey{}).(*writeNote)
	if !ok || note == nil {
		return
	}
	snap, err := Snapshot(written)
	if err != nil {
		return
	}
	note.mu.Lock()
	note.written = snap
	note.mu.Unlock()
}

// merge adds the noted columns missing from body. Submitted values win.
func (n *writeNote) merge(body map[string]any) map[string]any {
	if n == nil {
		return body
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.written) == 0 {
		return body
	}
	out := make(map[string]any, len(body)+len(n.written))
	for k, v := range n.written {
		out[k] = v
	}
	for k, v := range body {
		out[k] = v
	}
	return out
}

func pathID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// readBody decodes the JSON body and restores it for the next handler.
func readBody(r *http.Request) map[string]any {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body
}

// created extracts the id and display name from {success, <key>: {...}}.
func created(raw []byte, key, nameField string) (int64, string, bool) {
	if key == "" {
		return 0, "", false
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, "", false
	}
	var success bool
	if err := json.Unmarshal(env["success"], &success); err != nil || !success {
		return 0, "", false
	}
	var rec map[string]any
	if err := json.Unmarshal(env[key], &rec); err != nil || rec == nil {
		return 0, "", false
	}
	id, ok := rec["id"].(float64)
	if !ok {
		return 0, "", false
	}
	name, _ := rec[nameField].(string)
	return int64(id), name, true
}

type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	keep        bool
	buf         bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.keep {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}
