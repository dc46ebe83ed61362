package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/adapters/jwt"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := jwt.Generate("user-1", "secret", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwt.Validate(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "imgvault", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := jwt.Generate("user-1", "secret", time.Hour)
	require.NoError(t, err)

	_, err = jwt.Validate(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	token, err := jwt.Generate("user-1", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = jwt.Validate(token, "secret")
	assert.Error(t, err)
}
