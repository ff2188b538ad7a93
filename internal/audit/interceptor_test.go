package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpfs.org/internal/auth"
)

type memWriter struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (m *memWriter) Insert(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memWriter) all() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

var testUser = &auth.User{ID: 9, Username: "ops", Permissions: []string{auth.PermViewAll}}

func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), auth.NewPrincipal(testUser))))
	})
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type fixture struct {
	mem *memWriter
	rec *Recorder
	rt  chi.Router
}

func newFixture() *fixture {
	mem := &memWriter{}
	rec := NewRecorder(mem)
	ic := NewInterceptor(rec)
	load := func(_ context.Context, id int64) (map[string]any, string, error) {
		if id != 5 {
			return nil, "", errors.New("not found")
		}
		return map[string]any{"id": float64(5), "registration": "XA-ABC", "debt_status": "paid", "model": "C172"}, "XA-ABC", nil
	}

	r := chi.NewRouter()
	r.Use(withPrincipal)
	r.With(ic.Wrap(Route{Action: ActionCreate, Resource: ResourceAircraft, EnvelopeKey: "aircraft", NameField: "registration"})).
		Post("/aircraft", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				reply(http.StatusBadRequest, `{"success":false}`)(w, r)
				return
			}
			if body["registration"] == "XA-DUP" {
				reply(http.StatusBadRequest, `{"success":false,"message":"duplicate"}`)(w, r)
				return
			}
			reply(http.StatusCreated, `{"success":true,"aircraft":{"id":12,"registration":"`+body["registration"].(string)+`"}}`)(w, r)
		})
	r.With(ic.Wrap(Route{Action: ActionUpdate, Resource: ResourceAircraft, Load: load})).
		Put("/aircraft/{id}", func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) == 0 {
				reply(http.StatusBadRequest, `{"success":false,"message":"body lost"}`)(w, r)
				return
			}
			if chi.URLParam(r, "id") != "5" {
				reply(http.StatusNotFound, `{"success":false}`)(w, r)
				return
			}
			reply(http.StatusOK, `{"success":true}`)(w, r)
		})
	r.With(ic.Wrap(Route{Action: ActionDelete, Resource: ResourceAircraft, Load: load})).
		Delete("/aircraft/{id}", reply(http.StatusOK, `{"success":true}`))
	r.With(ic.Wrap(Route{Action: ActionView, Resource: ResourceAircraft, SearchParam: "registration"})).
		Get("/aircraft/search/{registration}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "registration") == "XA-ABC" {
				reply(http.StatusOK, `{"success":true}`)(w, r)
				return
			}
			reply(http.StatusNotFound, `{"success":false}`)(w, r)
		})
	r.With(ic.Wrap(Route{Action: ActionView, Resource: ResourceAircraft})).
		Get("/aircraft/{id}", reply(http.StatusOK, `{"success":true}`))
	r.With(ic.Wrap(Route{Action: ActionUpdate, Resource: ResourceAircraft, Load: load})).
		Put("/denied/{id}", reply(http.StatusForbidden, `{"success":false}`))

	return &fixture{mem: mem, rec: rec, rt: r}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "192.0.2.7:4000"
	w := httptest.NewRecorder()
	f.rt.ServeHTTP(w, req)
	f.rec.Wait()
	return w
}

func TestInterceptorCreate(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/aircraft", `{"registration":"XA-NEW","model":"C172","password":"x"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":12`)

	entries := f.mem.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, ActionCreate, e.Action)
	assert.Equal(t, int64(9), e.UserID)
	assert.Equal(t, "ops", e.Username)
	assert.Equal(t, int64(12), *e.ResourceID)
	assert.Equal(t, "XA-NEW", *e.ResourceName)
	assert.Equal(t, "192.0.2.7", *e.IPAddress)
	assert.Equal(t, CreatedData{Data: map[string]any{"registration": "XA-NEW", "model": "C172"}}, e.Details)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestInterceptorFailedCreateIsNotLogged(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPost, "/aircraft", `{"registration":"XA-DUP"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.mem.all())
}

func TestInterceptorUpdateRecordsChangeSet(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPut, "/aircraft/5", `{"debt_status":"paid","model":"C182","unknown":"x"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	entries := f.mem.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, ActionUpdate, e.Action)
	assert.Equal(t, int64(5), *e.ResourceID)
	assert.Equal(t, "XA-ABC", *e.ResourceName)
	assert.Equal(t, ChangeSet{Changes: map[string]Change{"model": {Before: "C172", After: "C182"}}}, e.Details)
}

func TestInterceptorUpdateWithoutChangesHasNoDetails(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPut, "/aircraft/5", `{"debt_status":"paid"}`)
	entries := f.mem.all()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Details)
}

func TestInterceptorUpdateMissingRecordLogsNotFound(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPut, "/aircraft/77", `{"model":"C182"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	entries := f.mem.all()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(77), *entries[0].ResourceID)
	assert.Nil(t, entries[0].ResourceName)
	assert.Nil(t, entries[0].Details)
}

func TestInterceptorDeleteKeepsSnapshot(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodDelete, "/aircraft/5", "")
	entries := f.mem.all()
	require.Len(t, entries, 1)
	snap, ok := entries[0].Details.(DeletedSnapshot)
	require.True(t, ok)
	assert.Equal(t, "XA-ABC", snap.DeletedData["registration"])
	assert.Equal(t, "C172", snap.DeletedData["model"])
}

func TestInterceptorSearch(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodGet, "/aircraft/search/XA-ABC", "")
	w := f.do(t, http.MethodGet, "/aircraft/search/XA-ZZZ", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	entries := f.mem.all()
	require.Len(t, entries, 2)
	assert.Equal(t, SearchResult{SearchQuery: "XA-ABC", Found: true}, entries[0].Details)
	assert.Equal(t, SearchResult{SearchQuery: "XA-ZZZ", NotFound: true}, entries[1].Details)
	assert.Equal(t, "XA-ZZZ", *entries[1].ResourceName)
	assert.Nil(t, entries[1].ResourceID)
}

func TestInterceptorViewByID(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodGet, "/aircraft/5", "")
	entries := f.mem.all()
	require.Len(t, entries, 1)
	assert.Equal(t, ActionView, entries[0].Action)
	assert.Equal(t, int64(5), *entries[0].ResourceID)
	assert.Nil(t, entries[0].Details)
}

func TestInterceptorSuppressesDenied(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodPut, "/denied/5", `{"model":"C182"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.mem.all())
}

func TestInterceptorWithoutPrincipalPassesThrough(t *testing.T) {
	mem := &memWriter{}
	rec := NewRecorder(mem)
	h := NewInterceptor(rec).Wrap(Route{Action: ActionView, Resource: ResourcePilot})(reply(http.StatusOK, `{}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pilots/1", nil))
	rec.Wait()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mem.all())
}
