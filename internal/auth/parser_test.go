package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeplancer/contracts-service/internal/model"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseRoundTrip(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, Claims{
		UserID: userID.String(),
		Role:   "buyer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret, jwt.SigningMethodHS256)

	principal, err := NewParser(testSecret).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, model.RoleBuyer, principal.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token := signToken(t, Claims{
		UserID: uuid.NewString(),
		Role:   "EXPERT",
	}, "other-secret", jwt.SigningMethodHS256)

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	token := signToken(t, Claims{
		UserID: uuid.NewString(),
		Role:   "AUDITOR",
	}, testSecret, jwt.SigningMethodHS256)

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token := signToken(t, Claims{
		UserID: uuid.NewString(),
		Role:   "BUYER",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testSecret, jwt.SigningMethodHS256)

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsBadUserID(t *testing.T) {
	token := signToken(t, Claims{
		UserID: "42",
		Role:   "BUYER",
	}, testSecret, jwt.SigningMethodHS256)

	_, err := NewParser(testSecret).Parse(token)
	assert.Error(t, err)
}
