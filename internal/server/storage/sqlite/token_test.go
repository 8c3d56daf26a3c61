package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/esps-console/internal/models"
)

func TestTokenStorage_RevokeToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	token := &models.RevokedToken{
		ID:        "jti-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
		RevokedAt: time.Now(),
	}

	revoked, err := s.IsRevoked(ctx, token.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeToken(ctx, token))
	// повторный отзыв не ошибка
	require.NoError(t, s.RevokeToken(ctx, token))

	revoked, err = s.IsRevoked(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenStorage_DeleteExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	now := time.Now()
	tokens := []*models.RevokedToken{
		{ID: "expired-1", UserID: "u", ExpiresAt: now.Add(-2 * time.Hour), RevokedAt: now.Add(-3 * time.Hour)},
		{ID: "expired-2", UserID: "u", ExpiresAt: now.Add(-time.Minute), RevokedAt: now.Add(-time.Hour)},
		{ID: "active", UserID: "u", ExpiresAt: now.Add(time.Hour), RevokedAt: now},
	}
	for _, tok := range tokens {
		require.NoError(t, s.RevokeToken(ctx, tok))
	}

	deleted, err := s.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	revoked, err := s.IsRevoked(ctx, "active")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "expired-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	deleted, err = s.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
