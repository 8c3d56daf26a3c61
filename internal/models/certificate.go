package models

import (
	"encoding/json"
	"time"
)

// Certificate - запись сертификата на стороне backend.
// Payload отдается в списках как есть; документы выдаются только по отдельному запросу.
type Certificate struct {
	CreatedAt time.Time       `json:"created_at"`
	Source    Source          `json:"source"`
	ID        string          `json:"id"`
	CertDate  string          `json:"tgl_cert"`
	Payload   json.RawMessage `json:"payload"`
	XML       string          `json:"-"`
	XMLSigned string          `json:"-"`
}

// Document возвращает содержимое поля документа и признак того, что поле известно
func (c *Certificate) Document(field string) (string, bool) {
	switch field {
	case "xml":
		return c.XML, true
	case "xmlsigned":
		return c.XMLSigned, true
	default:
		return "", false
	}
}

// RevokedToken - access token, отозванный через logout
type RevokedToken struct {
	ExpiresAt time.Time
	RevokedAt time.Time
	ID        string // jti
	UserID    string
}
