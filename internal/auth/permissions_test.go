package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionCatalog(t *testing.T) {
	all := AllPermissions()
	require.Len(t, all, 16)
	for _, p := range all {
		assert.True(t, IsValidPermission(p), p)
	}
	assert.False(t, IsValidPermission("fly_aircraft"))
	assert.Equal(t, all, AdminPermissions())
	assert.Equal(t, []string{PermViewAll}, ViewerPermissions())

	keys := make([]string, 0, len(PermissionGroups))
	for _, g := range PermissionGroups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"aircraft", "pilots", "system"}, keys)
}

func TestValidatePermissionSet(t *testing.T) {
	got, err := ValidatePermissionSet([]any{PermViewAll, PermManageDebt, PermViewAll})
	require.NoError(t, err)
	assert.Equal(t, []string{PermViewAll, PermManageDebt}, got)

	got, err = ValidatePermissionSet([]string{PermManageUsers})
	require.NoError(t, err)
	assert.Equal(t, []string{PermManageUsers}, got)

	got, err = ValidatePermissionSet([]any{})
	require.NoError(t, err)
	assert.Empty(t, got)

	for name, v := range map[string]any{
		"not-a-list": "view_all",
		"nil":        nil,
		"non-string": []any{PermViewAll, 7},
		"unknown":    []any{"root"},
		"object":     map[string]any{"view_all": true},
	} {
		_, err := ValidatePermissionSet(v)
		assert.True(t, errors.Is(err, ErrInvalidPermissions), name)
		assert.True(t, errors.Is(err, ErrInvalidInput), name)
	}
}

func TestPermissionSet(t *testing.T) {
	set := NewPermissionSet(PermManageRadio, PermViewAll)
	assert.True(t, set.Has(PermViewAll))
	assert.False(t, set.Has(PermManageDebt))
	assert.True(t, set.HasAny(PermManageDebt, PermManageRadio))
	assert.False(t, set.HasAny())
	assert.Equal(t, []string{PermManageRadio, PermViewAll}, set.Slice())
}
