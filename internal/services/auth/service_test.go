package auth

import (
	"context"
	"testing"
	"time"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories/memory"
	"estatehub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store.Users(), utils.NewTokenManager("test-secret", time.Hour), nil).(*service)
	svc.cost = bcrypt.MinCost
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Name: "Agent Smith", Email: " Agent@Example.com ", Password: "s3cret!pw", Role: models.RoleAgent})
	require.NoError(t, err)
	assert.Equal(t, "agent@example.com", res.User.Email)
	assert.Equal(t, models.RoleAgent, res.User.Role)
	assert.Equal(t, 0, res.User.Credits)
	assert.NotEmpty(t, res.AccessToken)
	assert.EqualValues(t, 3600, res.ExpiresIn)

	_, err = svc.Register(ctx, RegisterInput{Name: "Again", Email: "agent@example.com", Password: "s3cret!pw"})
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)

	login, err := svc.Login(ctx, "AGENT@example.com", "s3cret!pw")
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.True(t, claims.HasPermission(models.PermissionUnlock))

	_, err = svc.Authenticate(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	refreshed, err := svc.RefreshTokens(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestLoginRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Name: "Seeker", Email: "s@example.com", Password: "s3cret!pw"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "s3cret!pw"},
		{"wrong password", "s@example.com", "wrong!pw1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		})
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{Name: "Root", Email: "root@example.com", Password: "s3cret!pw", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAuthenticate_StaleTokenVersion(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	user := &models.User{Email: "v@example.com", Name: "V", Password: "x", Role: models.RoleSeeker, TokenVersion: 1}
	require.NoError(t, store.Users().Create(ctx, user))

	access, _, err := svc.tokens.GenerateTokens(&models.UserClaims{UserID: user.ID, Role: user.Role, TokenVersion: 2})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, access)
	de, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "session expired", de.Message)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
