package auth

// Principal is the authenticated caller of a request.
type Principal struct {
	User        *User
	Permissions PermissionSet
}

// NewPrincipal resolves the permission set of user.
func NewPrincipal(user *User) Principal {
	return Principal{User: user, Permissions: user.PermissionSet()}
}

// HasPermission reports whether the principal holds key.
func (p Principal) HasPermission(key string) bool {
	return p.Permissions.Has(key)
}

// HasAny reports whether the principal holds at least one of keys.
func (p Principal) HasAny(keys ...string) bool {
	return p.Permissions.HasAny(keys...)
}
