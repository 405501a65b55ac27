package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

func TestMaker_GenerateAndParseToken(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 15*time.Minute)

	tests := []struct {
		name    string
		session models.Session
	}{
		{name: "firm", session: models.Session{UserID: "u-1", Role: models.RoleFirm}},
		{name: "student", session: models.Session{UserID: "u-2", Role: models.RoleStudent}},
		{name: "admin", session: models.Session{UserID: "u-3", Role: models.RoleAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.session)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			got, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.session, got)
		})
	}
}

func TestMaker_GenerateToken_IncompleteSession(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute)
	_, err := maker.GenerateToken(models.Session{Role: models.RoleFirm})
	assert.Error(t, err)
}

func TestMaker_ParseToken_InvalidTokens(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 15*time.Minute)
	valid, err := maker.GenerateToken(models.Session{UserID: "u-1", Role: models.RoleFirm})
	require.NoError(t, err)

	otherKey, err := NewJWTMaker("another_secret", time.Minute).
		GenerateToken(models.Session{UserID: "u-1", Role: models.RoleFirm})
	require.NoError(t, err)

	expiredMaker := NewJWTMaker("test_secret_key_1234567890", time.Minute)
	expiredMaker.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredMaker.GenerateToken(models.Session{UserID: "u-1", Role: models.RoleFirm})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "tampered token", token: valid + "x"},
		{name: "foreign signature", token: otherKey},
		{name: "expired token", token: expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
		})
	}
}
