package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func validRegistration(name string) RegisterInput {
	return RegisterInput{
		Username: name, Email: name + "@Example.com", Password: "Secret123!",
		FirstName: "Maria", LastName: "Silva",
	}
}

func TestRegisterValidation(t *testing.T) {
	// validation happens before any query, so no database is needed
	users := NewUserService(nil, testSecret, time.Hour)

	tests := []struct {
		name    string
		mutate  func(*RegisterInput)
		message string
	}{
		{"short username", func(in *RegisterInput) { in.Username = "ab" }, "Username must be at least 3 characters long"},
		{"username symbols", func(in *RegisterInput) { in.Username = "ana.maria" }, "Username can only contain letters, numbers, and underscores"},
		{"bad email", func(in *RegisterInput) { in.Email = "ana@" }, "Invalid email format. Please enter a valid email address"},
		{"short password", func(in *RegisterInput) { in.Password = "Ab1!" }, "Password must be at least 8 characters long"},
		{"password without upper", func(in *RegisterInput) { in.Password = "secret123!" }, "Password must contain at least one uppercase letter"},
		{"password without special", func(in *RegisterInput) { in.Password = "Secret1234" }, "Password must contain at least one special character"},
		{"name with digits", func(in *RegisterInput) { in.FirstName = "M4ria" }, "Name cannot contain numbers"},
		{"script in name", func(in *RegisterInput) { in.LastName = "<script>x" }, "Name: XSS detected: Script tag found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegistration("maria")
			tt.mutate(&in)
			_, err := users.Register(context.Background(), in)
			assertValidationMessage(t, err, tt.message)
		})
	}

	t.Run("every failing field is kept", func(t *testing.T) {
		_, err := users.Register(context.Background(), RegisterInput{Username: "x", Email: "nope", Password: "short"})
		var fields utils.FieldValidationErrors
		require.True(t, errors.As(err, &fields))
		require.Len(t, fields, 3)
		assert.Equal(t, "username", fields[0].Field)
		assert.Equal(t, "email", fields[1].Field)
		assert.Equal(t, "password", fields[2].Field)
	})
}

func TestRegisterAndLogin(t *testing.T) {
	db := openTestDB(t)
	users := NewUserService(db, testSecret, time.Hour)
	ctx := context.Background()

	user, err := users.Register(ctx, validRegistration("maria"))
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "Secret123!", user.Password)

	_, err = users.Register(ctx, validRegistration("maria"))
	appErr := utils.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
	assert.Equal(t, "Username or email already registered", appErr.Message)

	t.Run("token carries the identity", func(t *testing.T) {
		logged, token, err := users.Login(ctx, "  MARIA@example.com ", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, user.ID, logged.ID)

		identity, err := utils.ParseToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
		assert.Equal(t, "maria@example.com", identity.Email)
		assert.Equal(t, models.RoleUser, identity.Role)

		_, err = utils.ParseToken(token, "other-secret")
		assert.Error(t, err)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		for _, creds := range [][2]string{{"maria@example.com", "Wrong123!"}, {"nobody@example.com", "Secret123!"}} {
			_, _, err := users.Login(ctx, creds[0], creds[1])
			appErr := utils.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, 401, appErr.Code)
			assert.Equal(t, "Invalid email or password", appErr.Message)
		}
	})

	t.Run("blocked account", func(t *testing.T) {
		require.NoError(t, db.Model(user).Update("is_blocked", true).Error)
		t.Cleanup(func() { db.Model(user).Update("is_blocked", false) })

		_, _, err := users.Login(ctx, "maria@example.com", "Secret123!")
		appErr := utils.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, 403, appErr.Code)
		assert.Equal(t, "Your account has been blocked", appErr.Message)

		_, err = users.FindActiveUser(ctx, user.ID)
		assert.True(t, utils.IsKind(err, utils.KindForbidden))
	})
}

func TestUpsertGoogleUser(t *testing.T) {
	db := openTestDB(t)
	users := NewUserService(db, testSecret, time.Hour)
	ctx := context.Background()

	existing, err := users.Register(ctx, validRegistration("nuno"))
	require.NoError(t, err)

	linked, err := users.UpsertGoogleUser(ctx, GoogleProfile{ID: "g-1", Email: "NUNO@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	require.NotNil(t, linked.GoogleID)
	assert.Equal(t, "g-1", *linked.GoogleID)

	again, err := users.UpsertGoogleUser(ctx, GoogleProfile{ID: "g-1", Email: "nuno@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)

	created, err := users.UpsertGoogleUser(ctx, GoogleProfile{ID: "g-2", Email: "olga@example.com", GivenName: "Olga"})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, created.ID)
	assert.Equal(t, "Olga", created.FirstName)
	assert.Contains(t, created.Username, "g_")
	assert.Equal(t, int64(2), count(t, db, &models.User{}))

	_, err = users.UpsertGoogleUser(ctx, GoogleProfile{Email: "olga@example.com"})
	assertValidationMessage(t, err, "Google profile is missing id or email")
}

func TestEnsureAdmin(t *testing.T) {
	db := openTestDB(t)
	users := NewUserService(db, testSecret, time.Hour)
	ctx := context.Background()

	require.NoError(t, users.EnsureAdmin(ctx, "Admin@GamerShop.test", "Admin123!"))
	require.NoError(t, users.EnsureAdmin(ctx, "admin@gamershop.test", "Other123!"))
	require.NoError(t, users.EnsureAdmin(ctx, "", ""))
	assert.Equal(t, int64(1), count(t, db, &models.User{}))

	admin, token, err := users.Login(ctx, "admin@gamershop.test", "Admin123!")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	identity, err := utils.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin())
}
