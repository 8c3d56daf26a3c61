package storage

import "errors"

// Common client storage errors
var (
	// ErrRefreshNotFound indicates that a collection has never been refreshed
	ErrRefreshNotFound = errors.New("refresh info not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
