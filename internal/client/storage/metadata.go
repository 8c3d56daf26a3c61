package storage

import (
	"context"
	"time"
)

// RefreshInfo is the outcome of the latest refresh of one collection.
// Only statistics are kept: records, tokens and documents never reach the disk.
type RefreshInfo struct {
	At     time.Time `json:"at"`
	Source string    `json:"source"`
	Error  string    `json:"error,omitempty"`
	Count  int       `json:"count"`
}

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveRefresh stores the latest refresh outcome of a collection
	SaveRefresh(ctx context.Context, info RefreshInfo) error

	// GetRefresh returns the latest refresh outcome of a collection
	// Returns ErrRefreshNotFound if the collection was never refreshed
	GetRefresh(ctx context.Context, source string) (*RefreshInfo, error)

	// ListRefresh returns refresh outcomes of all collections ordered by source
	ListRefresh(ctx context.Context) ([]RefreshInfo, error)

	// SaveLastUsername remembers the last successfully logged in username
	SaveLastUsername(ctx context.Context, username string) error

	// GetLastUsername returns the remembered username or "" if none
	GetLastUsername(ctx context.Context) (string, error)
}
