package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

const testSecret = "test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	wallet := domain.Wallet("wallet-recipient-1")

	token, err := GenerateToken(wallet, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, wallet, claims.Wallet)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("wallet-1", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken("wallet-1", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", testSecret)
	assert.Error(t, err)
}
