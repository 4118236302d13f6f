package services

import (
	"context"
	"testing"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func register(t *testing.T, f *fixture, email string) *AuthResult {
	t.Helper()
	res, err := f.auth.Register(context.Background(), RegisterInput{
		Username: "Abebe",
		Email:    email,
		Phone:    "+251911000000",
		Password: "secret1",
	})
	require.NoError(t, err)
	return res
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := register(t, f, "Abebe@Example.com")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "abebe@example.com", res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)

	login, err := f.auth.Login(ctx, "abebe@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	claims, err := f.auth.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID())
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestRegisterIgnoresRequestedRole(t *testing.T) {
	f := newFixture()
	res, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     "Sneaky",
		Email:    "sneaky@example.com",
		Password: "secret1",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.Equal(t, "Sneaky", res.User.Username)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"bad email", RegisterInput{Username: "a", Email: "nope", Password: "secret1"}, "email must be a valid email address"},
		{"short password", RegisterInput{Username: "a", Email: "a@example.com", Password: "123"}, "password must be at least 6"},
		{"missing name", RegisterInput{Email: "a@example.com", Password: "secret1"}, "username is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.msg, verr.Msg)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture()
	register(t, f, "dup@example.com")
	_, err := f.auth.Register(context.Background(), RegisterInput{Username: "b", Email: "DUP@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register(t, f, "user@example.com")

	_, err := f.auth.Login(ctx, "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res := register(t, f, "user@example.com")

	claims, err := f.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, f.auth.Logout(ctx, claims))

	_, err = f.auth.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, f.auth.Logout(ctx, nil))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewTokenManager("another-secret-0123456789", time.Hour)
	token, _, err := other.Issue(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenExpiry(t *testing.T) {
	tm := NewTokenManager("test-secret-0123456789", time.Hour)
	issued := time.Now()
	tm.now = func() time.Time { return issued }

	token, claims, err := tm.Issue(&models.User{ID: "u1", Role: models.RoleUser})
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	_, err = tm.Parse(token)
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, "", ""))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "admin@example.com", "admin-pass"))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "admin@example.com", "admin-pass"))

	users, err := f.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	res, err := f.auth.Login(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin())
}

func TestUserAdministration(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := f.users.Create(ctx, RegisterInput{Username: "clerk", Email: "clerk@example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = f.users.UpdateRole(ctx, u.ID, "superuser")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	updated, err := f.users.UpdateRole(ctx, u.ID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, updated.Role)

	require.NoError(t, f.users.Delete(ctx, u.ID))
	assert.ErrorIs(t, f.users.Delete(ctx, u.ID), store.ErrNotFound)
}

func TestAuthenticateUsesStoredAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin, err := f.users.Create(ctx, RegisterInput{Username: "ops", Email: "ops@example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	login, err := f.auth.Login(ctx, "ops@example.com", "secret1")
	require.NoError(t, err)

	claims, err := f.auth.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = f.users.UpdateRole(ctx, admin.ID, models.RoleUser)
	require.NoError(t, err)
	claims, err = f.auth.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)

	require.NoError(t, f.users.Delete(ctx, admin.ID))
	_, err = f.auth.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginComparesHashForUnknownEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	register(t, f, "user@example.com")

	var compared [][]byte
	f.auth.compareHash = func(hash, password []byte) error {
		compared = append(compared, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err := f.auth.Login(ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, compared, 2)
	assert.NotEmpty(t, compared[0])
	cost, err := bcrypt.Cost(compared[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
