package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idzvilla/vin-car/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, expiresAt, err := tm.GenerateToken("op-1", domain.SubjectTypeOperator)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.SubjectID)
	assert.Equal(t, domain.SubjectTypeOperator, claims.Subject)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	other := NewTokenManager("other-secret", 15)

	token, _, err := tm.GenerateToken("req-1", domain.SubjectTypeRequester)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}
