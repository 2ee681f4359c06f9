package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/domain"
)

func TestUserService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chef, err := env.user.CreateUser(ctx, env.admin, domain.User{Username: "chef", Password: "secret123", Role: domain.RoleChef})
	require.NoError(t, err)
	assert.True(t, chef.Active)
	assert.NotEqual(t, "secret123", chef.Password)

	_, err = env.user.CreateUser(ctx, env.admin, domain.User{Username: "chef", Password: "secret123", Role: domain.RoleChef})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = env.user.CreateUser(ctx, env.admin, domain.User{Username: "x", Password: "secret123", Role: "ROOT"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	logged, err := env.auth.Login(ctx, "chef", "secret123")
	require.NoError(t, err)
	assert.Equal(t, chef.ID, logged.ID)

	_, err = env.auth.Login(ctx, "chef", "wrong")
	assert.ErrorIs(t, err, ErrWrongCredentials)

	_, err = env.auth.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrWrongCredentials)

	inactive := false
	updated, err := env.user.UpdateUser(ctx, env.admin, chef.ID, domain.UserPatch{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = env.auth.Login(ctx, "chef", "secret123")
	assert.ErrorIs(t, err, ErrWrongCredentials)
}

func TestUserService_AdminCannotLockThemselfOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	viewer := domain.RoleViewer
	_, err := env.user.UpdateUser(ctx, env.admin, env.admin.ID, domain.UserPatch{Role: &viewer})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	inactive := false
	_, err = env.user.UpdateUser(ctx, env.admin, env.admin.ID, domain.UserPatch{Active: &inactive})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	password := "newpass123"
	_, err = env.user.UpdateUser(ctx, env.admin, env.admin.ID, domain.UserPatch{Password: &password})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, "admin", password)
	assert.NoError(t, err)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.user.EnsureAdmin(ctx, "root", "rootpass1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.user.EnsureAdmin(ctx, "root", "other")
	require.NoError(t, err)
	assert.False(t, created)

	user, err := env.auth.Login(ctx, "root", "rootpass1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	created, err = env.user.EnsureAdmin(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)
}
