package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "weighbridge/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{
		UserID:   "operator-7",
		Roles:    []string{RoleOperator},
		PlantIDs: []string{"plant-a"},
	})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator-7", user.UserID)
	assert.Equal(t, []string{RoleOperator}, user.Roles)
	assert.Equal(t, []string{"plant-a"}, user.PlantIDs)
	assert.False(t, user.IsAdmin)
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateAccessToken(appctx.UserContext{UserID: "u1"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken(appctx.UserContext{UserID: "u1"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RequiresUserID(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	_, _, err := svc.GenerateAccessToken(appctx.UserContext{})
	assert.Error(t, err)
}
