package services

import (
	"context"
	"io"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pairpoints/pairpoints-backend/internal/config"
	"github.com/pairpoints/pairpoints-backend/internal/validation"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(env *testEnv) *AuthService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpiresIn: 3600},
	}
	return NewAuthService(env.users, nil, cfg, logger)
}

func TestSignInProvisionsOnFirstUse(t *testing.T) {
	env := newTestEnv()
	auth := newTestAuthService(env)
	ctx := context.Background()

	user, token, err := auth.SignIn(ctx, "uid-100", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "uid-100", user.ID)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.True(t, validation.MatchingCode(user.MatchingCode).OK())
	assert.NotEmpty(t, token)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "uid-100", sub)
}

func TestSignInReturnsExistingUser(t *testing.T) {
	env := newTestEnv()
	auth := newTestAuthService(env)
	ctx := context.Background()

	first, _, err := auth.SignIn(ctx, "uid-100", "Alice")
	require.NoError(t, err)

	again, token, err := auth.SignIn(ctx, "uid-100", "Renamed")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, first.MatchingCode, again.MatchingCode, "sign-in never reprovisions")
	assert.Equal(t, "Alice", again.DisplayName)
}

func TestSignInEmptyDisplayNameFallsBackToID(t *testing.T) {
	env := newTestEnv()
	auth := newTestAuthService(env)

	user, _, err := auth.SignIn(context.Background(), "uid-200", "")
	require.NoError(t, err)
	assert.Equal(t, "uid-200", user.DisplayName)
}

func TestSignInRejectsEmptyID(t *testing.T) {
	env := newTestEnv()
	auth := newTestAuthService(env)

	_, _, err := auth.SignIn(context.Background(), "", "Alice")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}
