package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, time.Hour, service.tokenExpiry)
}

func TestGenerateAndValidate(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	userID := uuid.New()
	phone := "+919812345678"

	token, err := service.Generate(userID, phone, true)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, phone, claims.Phone)
	assert.True(t, claims.PhoneVerified)
	assert.Equal(t, "staynest-identity", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidate_WrongSecret(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	other := NewService("a-different-secret", time.Hour)

	token, err := service.Generate(uuid.New(), "+919812345678", true)
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidate_ExpiredToken(t *testing.T) {
	service := NewService(testSecret, -time.Hour)

	token, err := service.Generate(uuid.New(), "+919812345678", true)
	require.NoError(t, err)

	_, err = service.Validate(token)
	assert.Error(t, err)
	assert.True(t, service.IsTokenExpired(token))
}

func TestValidate_MalformedToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	_, err := service.Validate("not-a-jwt")
	assert.Error(t, err)
	assert.True(t, service.IsTokenExpired("not-a-jwt"))
}

func TestValidate_RejectsUnexpectedSigningMethod(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	// Token signed with "none" must never validate
	claims := Claims{
		UserID: uuid.New(),
		Phone:  "+919812345678",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.Validate(tokenString)
	assert.Error(t, err)
}

func TestIsTokenExpired_FreshToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	token, err := service.Generate(uuid.New(), "+919812345678", false)
	require.NoError(t, err)

	assert.False(t, service.IsTokenExpired(token))
}
