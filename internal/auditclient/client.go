// Package auditclient reads the audit log over the HTTP API and applies the
// client-side refinements on top of the server filters.
package auditclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/obs"
)

const (
	loginMax    = 5
	loginWindow = 60 * time.Second
)

// ErrUnauthorized is returned when the API rejects the session token.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client talks to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	limits  *auth.RateLimiter
	history map[string][]time.Time
	now     func() time.Time
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithClock overrides the time source of the local login limiter.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithLoginHistory seeds the local login limiter with attempts kept by an
// earlier process, keyed by username.
func WithLoginHistory(h map[string][]time.Time) Option {
	return func(c *Client) { c.history = h }
}

// New returns a Client for baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limits:  auth.NewRateLimiter(loginWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	for name, attempts := range c.history {
		c.limits.Restore(loginKey(name), attempts, c.now())
	}
	c.history = nil
	return c
}

// Token returns the current session token.
func (c *Client) Token() string { return c.token }

// Login exchanges credentials for a session token and keeps it on the client.
// Attempts are limited locally before any request is sent.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	key := loginKey(username)
	if d := c.limits.Attempt(key, loginMax, c.now()); !d.Allowed {
		return "", &auth.RateLimitError{ResetAt: d.ResetAt}
	}
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return "", err
	}
	c.limits.Clear(key)
	c.token = out.Token
	return out.Token, nil
}

// LoginHistory returns the login attempts for username that still count
// against the local limit.
func (c *Client) LoginHistory(username string) []time.Time {
	return c.limits.History(loginKey(username), c.now())
}

func loginKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Result is one refined page of the audit log.
type Result struct {
	Logs    []audit.Entry
	Total   int
	Page    int
	HasMore bool
}

// FetchLogs loads the page described by q, page and ref. While a refinement
// is active only the first widened page is fetched and HasMore is false.
func (c *Client) FetchLogs(ctx context.Context, q audit.Query, page int, ref audit.RefineOptions) (Result, error) {
	plan := audit.PlanFetch(q, page, ref)
	var out audit.Page
	if err := c.do(ctx, http.MethodGet, "/api/audit-logs?"+plan.Values().Encode(), nil, &out); err != nil {
		return Result{}, err
	}
	res := Result{Logs: out.Logs, Total: out.Total, Page: page}
	if res.Page < 1 {
		res.Page = 1
	}
	if ref.Active() {
		res.Logs = audit.Refine(out.Logs, ref)
		res.Page = 1
		return res, nil
	}
	res.HasMore = audit.HasMore(len(out.Logs), plan.Limit)
	return res, nil
}

// Logs is FetchLogs that degrades to an empty result on failure.
func (c *Client) Logs(ctx context.Context, q audit.Query, page int, ref audit.RefineOptions) Result {
	res, err := c.FetchLogs(ctx, q, page, ref)
	if err != nil {
		obs.Logger().WithError(err).Warn("audit logs unavailable")
		return Result{Page: 1}
	}
	return res
}

// FetchStats loads the audit log aggregates.
func (c *Client) FetchStats(ctx context.Context) (audit.Stats, error) {
	var out struct {
		Stats audit.Stats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/audit-logs/stats", nil, &out); err != nil {
		return audit.Stats{}, err
	}
	return out.Stats, nil
}

// Stats is FetchStats that degrades to zero counts on failure.
func (c *Client) Stats(ctx context.Context) audit.Stats {
	st, err := c.FetchStats(ctx)
	if err != nil {
		obs.Logger().WithError(err).Warn("audit stats unavailable")
		return audit.Stats{}
	}
	return st
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		obs.Logger().WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Debug("api request failed")
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
