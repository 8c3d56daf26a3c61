package storage

import (
	"context"
	"time"

	"github.com/iudanet/esps-console/internal/models"
)

// TokenStorage defines interface for access token revocation
type TokenStorage interface {
	// RevokeToken stores token id until its expiration
	// Revoking the same token twice is not an error
	RevokeToken(ctx context.Context, token *models.RevokedToken) error

	// IsRevoked reports whether token id was revoked
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpiredTokens removes revocations of tokens that expired before now
	// Returns number of deleted records
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
