package auditclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
)

type fakeAPI struct {
	t      *testing.T
	logins atomic.Int32
	last   atomic.Value // url.Values of the last audit-logs request
	logs   []audit.Entry
	fail   bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"boom"}`))
		return
	}
	switch r.URL.Path {
	case "/api/auth/login":
		f.logins.Add(1)
		var body map[string]string
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"token":"tok-1","user":{"id":1,"username":"admin"}}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok-1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"authentication required"}`))
		return
	}
	switch r.URL.Path {
	case "/api/audit-logs":
		f.last.Store(r.URL.Query())
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"logs":    f.logs,
			"total":   len(f.logs),
			"limit":   limit,
			"offset":  0,
		})
	case "/api/audit-logs/stats":
		_, _ = w.Write([]byte(`{"success":true,"stats":{"total":7,"byAction":[{"action":"VIEW","count":7}],"byResource":[]}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) lastQuery() url.Values {
	v, _ := f.last.Load().(url.Values)
	return v
}

func sampleEntries(n int) []audit.Entry {
	out := make([]audit.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, audit.Entry{
			ID:        int64(i + 1),
			Username:  "admin",
			Action:    audit.ActionView,
			Resource:  audit.ResourceAircraft,
			Details:   audit.SearchResult{SearchQuery: "XA-ABC", Found: true},
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		})
	}
	return out
}

func newFake(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{t: t}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestLoginKeepsToken(t *testing.T) {
	_, srv := newFake(t)
	c := New(srv.URL)

	tok, err := c.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, "tok-1", c.Token())

	st, err := c.FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, st.Total)
}

func TestLoginLimitedLocally(t *testing.T) {
	f, srv := newFake(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(srv.URL, WithClock(func() time.Time { return now }))

	for i := 0; i < loginMax; i++ {
		_, err := c.Login(context.Background(), "admin", "nope")
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	_, err := c.Login(context.Background(), "Admin", "admin123")
	require.ErrorIs(t, err, auth.ErrRateLimited)
	var rl *auth.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.True(t, rl.ResetAt.Equal(now.Add(loginWindow)))
	assert.EqualValues(t, loginMax, f.logins.Load())

	now = now.Add(loginWindow + time.Second)
	_, err = c.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
}

func TestFetchLogsPages(t *testing.T) {
	f, srv := newFake(t)
	f.logs = sampleEntries(20)
	c := New(srv.URL, WithToken("tok-1"))

	res, err := c.FetchLogs(context.Background(), audit.Query{Action: audit.ActionView, Limit: 20}, 3, audit.RefineOptions{})
	require.NoError(t, err)
	q := f.lastQuery()
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "40", q.Get("offset"))
	assert.Equal(t, "VIEW", q.Get("action"))
	assert.Len(t, res.Logs, 20)
	assert.Equal(t, 3, res.Page)
	assert.True(t, res.HasMore)

	sr, ok := res.Logs[0].Details.(audit.SearchResult)
	require.True(t, ok)
	assert.Equal(t, "XA-ABC", sr.SearchQuery)
}

func TestFetchLogsRefined(t *testing.T) {
	f, srv := newFake(t)
	f.logs = sampleEntries(3)
	f.logs[1].Username = "mario"
	c := New(srv.URL, WithToken("tok-1"))

	res, err := c.FetchLogs(context.Background(), audit.Query{}, 4, audit.RefineOptions{Search: "MARIO", Location: time.UTC})
	require.NoError(t, err)
	q := f.lastQuery()
	assert.Equal(t, "500", q.Get("limit"))
	assert.Empty(t, q.Get("offset"))
	require.Len(t, res.Logs, 1)
	assert.EqualValues(t, 2, res.Logs[0].ID)
	assert.Equal(t, 1, res.Page)
	assert.False(t, res.HasMore)
}

func TestDegradesOnFailure(t *testing.T) {
	f, srv := newFake(t)
	f.fail = true
	c := New(srv.URL, WithToken("tok-1"))

	res := c.Logs(context.Background(), audit.Query{}, 1, audit.RefineOptions{})
	assert.Empty(t, res.Logs)
	assert.False(t, res.HasMore)
	assert.Equal(t, audit.Stats{}, c.Stats(context.Background()))

	_, err := c.FetchStats(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	_, srv := newFake(t)
	_, err := New(srv.URL).FetchLogs(context.Background(), audit.Query{}, 1, audit.RefineOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginHistorySeedsLimiter(t *testing.T) {
	f, srv := newFake(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	earlier := make([]time.Time, 0, loginMax)
	for i := 0; i < loginMax; i++ {
		earlier = append(earlier, now.Add(-time.Duration(i+1)*time.Second))
	}
	c := New(srv.URL,
		WithClock(func() time.Time { return now }),
		WithLoginHistory(map[string][]time.Time{"ADMIN": earlier}))

	_, err := c.Login(context.Background(), "admin", "admin123")
	require.ErrorIs(t, err, auth.ErrRateLimited)
	assert.Zero(t, f.logins.Load())
	assert.Len(t, c.LoginHistory("admin"), loginMax)

	now = now.Add(loginWindow)
	_, err = c.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Empty(t, c.LoginHistory("admin"))
}
