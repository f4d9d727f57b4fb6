package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/handygo/internal/apperr"
	"github.com/Windi-Fikriyansyah/handygo/internal/models"
)

func ptr(s string) *string { return &s }

func TestListAndGetUsers(t *testing.T) {
	a := newAccounts(t)
	ctx := context.Background()
	require.NoError(t, a.EnsureAdmin(ctx, "admin@example.com", "admin-pass"))
	admin, err := a.Login(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)

	c1, err := a.Signup(ctx, SignupInput{Name: "C1", Email: "c1@example.com", Password: "secret1", Role: "client"})
	require.NoError(t, err)
	c2, err := a.Signup(ctx, SignupInput{Name: "C2", Email: "c2@example.com", Password: "secret1", Role: "client"})
	require.NoError(t, err)

	users, err := a.ListUsers(ctx, admin.User.Actor())
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = a.ListUsers(ctx, c1.User.Actor())
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	got, err := a.GetUser(ctx, c1.User.Actor(), c1.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "c1@example.com", got.Email)

	_, err = a.GetUser(ctx, admin.User.Actor(), c2.User.ID)
	require.NoError(t, err)

	_, err = a.GetUser(ctx, c1.User.Actor(), c2.User.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	a := newAccounts(t)
	ctx := context.Background()
	c1, err := a.Signup(ctx, SignupInput{Name: "C1", Email: "c1@example.com", Password: "secret1", Role: "client"})
	require.NoError(t, err)
	c2, err := a.Signup(ctx, SignupInput{Name: "C2", Email: "c2@example.com", Password: "secret1", Role: "client"})
	require.NoError(t, err)

	u, err := a.UpdateProfile(ctx, c1.User.Actor(), c1.User.ID, ProfileInput{
		Name: ptr(" Carla "), Email: ptr("Carla@Example.com"), Password: ptr("n3w-pass"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carla", u.Name)
	assert.Equal(t, "carla@example.com", u.Email)
	assert.Equal(t, models.RoleClient, u.Role)

	_, err = a.Login(ctx, "carla@example.com", "n3w-pass")
	require.NoError(t, err)
	_, err = a.Login(ctx, "carla@example.com", "secret1")
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))

	_, err = a.UpdateProfile(ctx, c1.User.Actor(), c1.User.ID, ProfileInput{Email: ptr("c2@example.com")})
	assert.True(t, apperr.HasCode(err, apperr.CodeEmailTaken))

	_, err = a.UpdateProfile(ctx, c2.User.Actor(), c1.User.ID, ProfileInput{Name: ptr("Hijack")})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, err = a.UpdateProfile(ctx, c1.User.Actor(), c1.User.ID, ProfileInput{Name: ptr(" "), Email: ptr("nope"), Password: ptr("123")})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "name")
	assert.Contains(t, e.Fields, "email")
	assert.Contains(t, e.Fields, "password")
}
