package auth

import (
	"testing"
	"time"

	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret-key",
		Issuer:     "dropship-api",
		Expiration: time.Hour,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()
	accountID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(accountID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID.String(), claims.AccountID)
	assert.Equal(t, "dropship-api", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _, err := newTestService().GenerateToken(uuid.New())
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "different-secret", Issuer: "dropship-api"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestService()
	svc.expiration = -time.Minute

	token, _, err := svc.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	issued := NewJWTService(config.JWTConfig{Secret: "test-secret-key", Issuer: "someone-else"})
	token, _, err := issued.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = newTestService().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := newTestService().ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
