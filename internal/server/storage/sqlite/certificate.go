package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/internal/server/storage"
)

// SaveCertificate creates or replaces certificate by (source, id)
func (s *Storage) SaveCertificate(ctx context.Context, cert *models.Certificate) error {
	if !json.Valid(cert.Payload) {
		return fmt.Errorf("certificate %s/%s: payload is not valid JSON", cert.Source, cert.ID)
	}

	query := `
		INSERT INTO certificates (source, id, cert_date, payload, xml, xmlsigned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, id) DO UPDATE SET
			cert_date = excluded.cert_date,
			payload = excluded.payload,
			xml = excluded.xml,
			xmlsigned = excluded.xmlsigned
	`

	_, err := s.db.ExecContext(ctx, query,
		string(cert.Source),
		cert.ID,
		cert.CertDate,
		string(cert.Payload),
		cert.XML,
		cert.XMLSigned,
		cert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}

	return nil
}

// ListPayloads returns payloads of a source, newest first
func (s *Storage) ListPayloads(ctx context.Context, source models.Source) ([]json.RawMessage, error) {
	query := `
		SELECT payload
		FROM certificates
		WHERE source = ?
		ORDER BY cert_date DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	payloads := []json.RawMessage{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		payloads = append(payloads, json.RawMessage(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return payloads, nil
}

// GetCertificate retrieves certificate with documents
func (s *Storage) GetCertificate(ctx context.Context, source models.Source, id string) (*models.Certificate, error) {
	query := `
		SELECT source, id, cert_date, payload, xml, xmlsigned, created_at
		FROM certificates
		WHERE source = ? AND id = ?
	`

	cert := &models.Certificate{}
	var src, payload string

	err := s.db.QueryRowContext(ctx, query, string(source), id).Scan(
		&src,
		&cert.ID,
		&cert.CertDate,
		&payload,
		&cert.XML,
		&cert.XMLSigned,
		&cert.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	cert.Source = models.Source(src)
	cert.Payload = json.RawMessage(payload)
	return cert, nil
}
