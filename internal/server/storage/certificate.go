package storage

import (
	"context"
	"encoding/json"

	"github.com/iudanet/esps-console/internal/models"
)

// CertificateStorage defines interface for certificate persistence
type CertificateStorage interface {
	// SaveCertificate creates or replaces certificate by (source, id)
	SaveCertificate(ctx context.Context, cert *models.Certificate) error

	// ListPayloads returns payloads of a source, newest certificate date first
	// Returns empty slice if no certificates found
	ListPayloads(ctx context.Context, source models.Source) ([]json.RawMessage, error)

	// GetCertificate retrieves certificate with documents
	// Returns ErrCertificateNotFound if certificate doesn't exist
	GetCertificate(ctx context.Context, source models.Source, id string) (*models.Certificate, error)
}
