package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	AdminUsername    = "admin"
	AdminDisplayName = "Administrador"

	minUsername = 3
	maxUsername = 50
)

func validUsername(v string) error {
	if n := utf8.RuneCountInString(v); n < minUsername || n > maxUsername {
		return fmt.Errorf("%w: username must be between %d and %d characters", ErrInvalidInput, minUsername, maxUsername)
	}
	return nil
}

// ListUsers returns every account, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.users.Find(ctx, id)
}

// CreateUser validates in and stores a new account. Permissions default to
// the viewer preset.
func (s *Service) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	if in.Username == nil || in.Password == nil || in.Name == nil {
		return nil, fmt.Errorf("%w: username, password and name are required", ErrInvalidInput)
	}
	username := strings.TrimSpace(*in.Username)
	name := strings.TrimSpace(*in.Name)
	if err := validUsername(username); err != nil {
		return nil, err
	}
	if err := validPassword(*in.Password); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	perms := ViewerPermissions()
	if in.Permissions != nil {
		var err error
		if perms, err = ValidatePermissionSet(in.Permissions); err != nil {
			return nil, err
		}
	}
	hash, err := HashPassword(*in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{Username: username, PasswordHash: hash, Name: name, Permissions: perms}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser applies the provided fields of in to the account with id. A new
// password is rehashed.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UserInput) (*User, error) {
	u, err := s.users.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validUsername(username); err != nil {
			return nil, err
		}
		u.Username = username
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		u.Name = name
	}
	if in.Password != nil && *in.Password != "" {
		if err := validPassword(*in.Password); err != nil {
			return nil, err
		}
		if u.PasswordHash, err = HashPassword(*in.Password); err != nil {
			return nil, err
		}
	}
	if in.Permissions != nil {
		if u.Permissions, err = ValidatePermissionSet(in.Permissions); err != nil {
			return nil, err
		}
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes the account with id. The last holder of
// PermManageUsers cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

// EnsureAdmin creates the default administrator when no account named
// AdminUsername exists. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	if _, err := s.users.FindByUsername(ctx, AdminUsername); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, err
	}
	username, name := AdminUsername, AdminDisplayName
	_, err := s.CreateUser(ctx, UserInput{
		Username:    &username,
		Password:    &password,
		Name:        &name,
		Permissions: AdminPermissions(),
	})
	if errors.Is(err, ErrUsernameTaken) {
		return false, nil
	}
	return err == nil, err
}
