package auth

import "time"

// User is an operator account. PasswordHash never leaves the process.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PermissionSet returns the user's permissions as a set.
func (u *User) PermissionSet() PermissionSet {
	return NewPermissionSet(u.Permissions...)
}

// UserInput carries create or partial update fields. Nil means "not provided".
// Permissions is left undecoded so ValidatePermissionSet can reject non-lists.
type UserInput struct {
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	Name        *string `json:"name"`
	Permissions any     `json:"permissions"`
}
