package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/fleet"
	"vpfs.org/internal/httpapi"
	"vpfs.org/internal/store"
	"vpfs.org/internal/store/storetest"
)

func startAPI(t *testing.T) (string, *audit.Recorder) {
	t.Helper()
	db := storetest.Open(t)
	tokens, err := auth.NewTokens("test-secret")
	require.NoError(t, err)
	svc := auth.NewService(auth.NewSQLUsers(db), tokens)
	_, err = svc.EnsureAdmin(context.Background(), "admin123")
	require.NoError(t, err)

	logs := audit.NewSQLStore(db)
	recorder := audit.NewRecorder(logs)
	api := httpapi.New(httpapi.Deps{
		DB:       db,
		Auth:     svc,
		Aircraft: store.NewRecords(db, fleet.Aircraft),
		Pilots:   store.NewRecords(db, fleet.Pilot),
		Audit:    audit.NewEngine(logs),
		Recorder: recorder,
	}, httpapi.Options{Version: "test", RateLimitRPS: 1000, RateLimitBurst: 1000, MaxBodyBytes: 1 << 20})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(recorder.Wait)
	return srv.URL, recorder
}

func useTempProfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vpfs", "auditctl.toml")
	prev := profilePath
	profilePath = func() (string, error) { return path, nil }
	t.Cleanup(func() { profilePath = prev })
	return path
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoginLogsAndStats(t *testing.T) {
	url, recorder := startAPI(t)
	path := useTempProfile(t)

	prevRead := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("admin123"), nil }
	t.Cleanup(func() { readPassword = prevRead })

	out, err := run(t, "login", "--server", url, "--user", "admin")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in to "+url+" as admin")

	var saved profile
	_, err = toml.DecodeFile(path, &saved)
	require.NoError(t, err)
	assert.Equal(t, url, saved.Server)
	assert.Equal(t, "admin", saved.Username)
	assert.NotEmpty(t, saved.Token)
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	recorder.Wait()

	out, err = run(t, "logs")
	require.NoError(t, err, out)
	assert.Contains(t, out, "LOGIN")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "Page 1.")

	out, err = run(t, "logs", "--search", "no-such-thing")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No entries.")

	_, err = run(t, "logs", "--action", "explode")
	assert.ErrorContains(t, err, `unknown action "explode"`)

	_, err = run(t, "logs", "--from", "01/02/2026")
	assert.ErrorContains(t, err, "--from must be YYYY-MM-DD")

	out, err = run(t, "stats")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Total entries: 1")
	assert.Contains(t, out, "LOGIN")
}

func TestCommandsRequireLogin(t *testing.T) {
	useTempProfile(t)
	_, err := run(t, "stats")
	assert.ErrorContains(t, err, "not logged in")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	url, _ := startAPI(t)
	path := useTempProfile(t)

	prevRead := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("wrong-pass"), nil }
	t.Cleanup(func() { readPassword = prevRead })

	_, err := run(t, "login", "--server", url, "--user", "admin")
	assert.ErrorContains(t, err, "login:")

	var saved profile
	_, err = toml.DecodeFile(path, &saved)
	require.NoError(t, err)
	assert.Empty(t, saved.Token)
	assert.Empty(t, saved.Username, "a failed login keeps the stored user")
	assert.Len(t, saved.LoginAttempts["admin"], 1)
}

func TestLoginLimitHoldsAcrossRuns(t *testing.T) {
	url, _ := startAPI(t)
	path := useTempProfile(t)

	password := "wrong-pass"
	prevRead := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPassword = prevRead })

	for i := 0; i < 5; i++ {
		_, err := run(t, "login", "--server", url, "--user", "admin")
		require.Error(t, err)
		require.NotErrorIs(t, err, auth.ErrRateLimited, "attempt %d", i+1)
	}

	password = "admin123"
	_, err := run(t, "login", "--server", url, "--user", "Admin")
	require.ErrorIs(t, err, auth.ErrRateLimited)

	var saved profile
	_, err = toml.DecodeFile(path, &saved)
	require.NoError(t, err)
	assert.Empty(t, saved.Token)
	assert.Len(t, saved.LoginAttempts["admin"], 5)
}
