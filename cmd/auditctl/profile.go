package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const defaultServer = "http://localhost:8080"

// profile is the per-operator state kept between invocations.
type profile struct {
	Server   string `toml:"server"`
	Username string `toml:"username"`
	Token    string `toml:"token,omitempty"`
	Timezone string `toml:"timezone,omitempty"` // IANA name; empty means the host zone

	// LoginAttempts keeps recent login attempts per username so the local
	// limit holds across invocations.
	LoginAttempts map[string][]time.Time `toml:"login_attempts,omitempty"`
}

// profilePath is replaced in tests.
var profilePath = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vpfs", "auditctl.toml"), nil
}

func loadProfile() (*profile, string, error) {
	path, err := profilePath()
	if err != nil {
		return nil, "", fmt.Errorf("locating profile: %w", err)
	}
	p := &profile{Server: defaultServer}
	if _, err := toml.DecodeFile(path, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("reading profile %s: %w", path, err)
	}
	if p.Server == "" {
		p.Server = defaultServer
	}
	return p, path, nil
}

func (p *profile) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return nil
}

func (p *profile) setAttempts(username string, attempts []time.Time) {
	key := strings.ToLower(strings.TrimSpace(username))
	if len(attempts) == 0 {
		delete(p.LoginAttempts, key)
		return
	}
	if p.LoginAttempts == nil {
		p.LoginAttempts = make(map[string][]time.Time)
	}
	p.LoginAttempts[key] = attempts
}

func (p *profile) location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("profile timezone: %w", err)
	}
	return loc, nil
}
