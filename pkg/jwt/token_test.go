package jwtPkg

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "TEST_JWT_SECRET"

func TestSignAndVerify(t *testing.T) {
	t.Setenv(testSecretKey, "s3cret")

	raw, exp, err := Sign(map[string]interface{}{"id": "op-1", "role": "security", "email": "op@hotel.test"}, time.Hour, testSecretKey)
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	token, err := VerifyToken(raw, testSecretKey)
	require.NoError(t, err)

	operator, err := OperatorFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", operator.ID)
	assert.Equal(t, "security", operator.Role)
	assert.Equal(t, "op@hotel.test", operator.Email)
}

func TestVerifyToken_Rejects(t *testing.T) {
	t.Setenv(testSecretKey, "s3cret")

	expired, _, err := Sign(map[string]interface{}{"id": "op-1", "role": "admin"}, -time.Minute, testSecretKey)
	require.NoError(t, err)
	_, err = VerifyToken(expired, testSecretKey)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = VerifyToken("  ", testSecretKey)
	assert.ErrorIs(t, err, ErrEmptyToken)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "x", "role": "admin"})
	forged, err := other.SignedString([]byte("wrong"))
	require.NoError(t, err)
	_, err = VerifyToken(forged, testSecretKey)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerifyToken_NoSecret(t *testing.T) {
	t.Setenv(testSecretKey, "")
	_, err := VerifyToken("a.b.c", testSecretKey)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestOperatorFromToken_RequiresIDAndRole(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "op-1"})
	_, err := OperatorFromToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
