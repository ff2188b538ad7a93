package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpfs.org/internal/auth"
	"vpfs.org/internal/guard"
)

func withPrincipal(r *http.Request, perms ...string) *http.Request {
	u := &auth.User{ID: 7, Username: "ops", Permissions: perms}
	return r.WithContext(auth.ContextWithPrincipal(r.Context(), auth.NewPrincipal(u)))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"standard":   {header: "Bearer abc.def", token: "abc.def", ok: true},
		"lowercase":  {header: "bearer abc", token: "abc", ok: true},
		"padded":     {header: "  Bearer   abc  ", token: "abc", ok: true},
		"empty":      {header: "", ok: false},
		"no token":   {header: "Bearer ", ok: false},
		"basic auth": {header: "Basic dXNlcjpwYXNz", ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := extractBearerToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestSessionTokenPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: authCookie, Value: "from-cookie"})
	req.Header.Set(authHeader, "Bearer from-header")
	assert.Equal(t, "from-cookie", sessionToken(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(authHeader, "Bearer from-header")
	assert.Equal(t, "from-header", sessionToken(req))
}

func TestRequirePermission(t *testing.T) {
	handler := requirePermission(auth.PermManageUsers)(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), auth.PermViewAll))
	require.Equal(t, http.StatusForbidden, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []any{auth.PermManageUsers}, body["requiredPermissions"])

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), auth.PermManageUsers))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGuardFieldsRestoresBody(t *testing.T) {
	var seen string
	handler := guardFields(guard.Pilot)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = string(raw)
		w.WriteHeader(http.StatusOK)
	}))

	payload := `{"medical_cert":"M-2","ifr_rating":"yes"}`
	req := withPrincipal(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(payload)), auth.PermManagePilotMedical)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, payload, seen)

	req = withPrincipal(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"license_number":"L-9"}`)), auth.PermManagePilotMedical)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []any{auth.PermManagePilotLicense}, body["requiredPermissions"])

	req = withPrincipal(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`not json`)), auth.PermManagePilotMedical)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOnlyGroupDropsForeignFields(t *testing.T) {
	g, ok := guard.Aircraft.Group("radio")
	require.True(t, ok)

	var got map[string]any
	handler := onlyGroup(g)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"radio_station_cert":"R-1","model":"X","debt_status":"pending"}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, map[string]any{"radio_station_cert": "R-1"}, got)
}
