package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"vpfs.org/internal/store"
)

const (
	defaultLoginMax    = 5
	defaultLoginWindow = 60 * time.Second
)

// Service authenticates operators and manages their accounts.
type Service struct {
	users  UserStore
	tokens *Tokens
	limits *RateLimiter
	now    func() time.Time

	loginMax    int
	loginWindow time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLoginLimit overrides the per-username login attempt budget.
func WithLoginLimit(max int, window time.Duration) ServiceOption {
	return func(s *Service) {
		if max > 0 {
			s.loginMax = max
		}
		if window > 0 {
			s.loginWindow = window
		}
	}
}

// WithRateLimiter shares an existing limiter. Its window replaces the one
// set by WithLoginLimit.
func WithRateLimiter(l *RateLimiter) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.limits = l
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(users UserStore, tokens *Tokens, opts ...ServiceOption) *Service {
	svc := &Service{
		users:       users,
		tokens:      tokens,
		now:         time.Now,
		loginMax:    defaultLoginMax,
		loginWindow: defaultLoginWindow,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.limits == nil {
		svc.limits = NewRateLimiter(svc.loginWindow)
	}
	return svc
}

// Tokens exposes the token issuer.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

func loginKey(username string) string {
	return "login:" + strings.ToLower(strings.TrimSpace(username))
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidInput
	}
	key := loginKey(username)
	if d := s.limits.Attempt(key, s.loginMax, s.now()); !d.Allowed {
		return Session{}, &RateLimitError{ResetAt: d.ResetAt}
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	s.limits.Clear(key)
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Authenticate resolves the principal behind a session token. Tokens of
// deleted users are rejected as invalid.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if strings.TrimSpace(token) == "" {
		return Principal{}, ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.users.Find(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	return NewPrincipal(user), nil
}

// Require ensures the principal holds at least one of perms.
func Require(p Principal, perms ...string) error {
	if p.User == nil {
		return ErrUnauthenticated
	}
	if !p.HasAny(perms...) {
		return ErrForbidden
	}
	return nil
}

// ParseUserID parses a path id.
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, store.ErrNotFound
	}
	return id, nil
}

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
