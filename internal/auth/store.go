package auth

import "context"

// UserStore persists operator accounts.
type UserStore interface {
	List(ctx context.Context) ([]*User, error)
	Find(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	// Delete removes the user unless it is the last holder of PermManageUsers,
	// in which case it returns ErrLastManager.
	Delete(ctx context.Context, id int64) error
}
