package models

import (
	"fmt"
	"net/url"
)

// Direction is the direction of a certificate relative to the operator's jurisdiction.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Source identifies one certificate collection and its endpoint family.
type Source string

const (
	SourceEcertIn   Source = "ecertin"
	SourceEphytoIn  Source = "ephytoin"
	SourceEahOut    Source = "eahout"
	SourceEphytoOut Source = "ephytoout"
	SourceEcertOut  Source = "ecertout" // legacy outgoing eCert feed
)

// Record field names shared by every family.
const (
	FieldIDCert  = "id_cert"
	FieldIDHub   = "id_hub"
	FieldNoCert  = "no_cert"
	FieldTglCert = "tgl_cert"
	FieldUPT     = "upt"
)

type sourceInfo struct {
	direction Direction
	idKey     string
	rowKey    string
	fields    []string
}

// Outgoing records are always addressed by id_cert, incoming ephyto by id_hub.
// Outgoing ephyto rows are keyed by id_hub although documents go by id_cert.
var sources = map[Source]sourceInfo{
	SourceEcertIn:   {direction: DirectionIncoming, idKey: FieldIDCert, rowKey: FieldIDCert, fields: []string{"xml", "xmlsigned"}},
	SourceEphytoIn:  {direction: DirectionIncoming, idKey: FieldIDHub, rowKey: FieldIDHub, fields: []string{"xml", "xmlsigned"}},
	SourceEahOut:    {direction: DirectionOutgoing, idKey: FieldIDCert, rowKey: FieldIDCert, fields: []string{"xml"}},
	SourceEphytoOut: {direction: DirectionOutgoing, idKey: FieldIDCert, rowKey: FieldIDHub, fields: []string{"xml"}},
	SourceEcertOut:  {direction: DirectionOutgoing, idKey: FieldIDCert, rowKey: FieldIDCert, fields: []string{"xml"}},
}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if _, ok := sources[src]; !ok {
		return "", fmt.Errorf("unknown certificate source %q", s)
	}
	return src, nil
}

// Direction returns the direction the source belongs to.
func (s Source) Direction() Direction {
	return sources[s].direction
}

// IDKey returns the record field used to address documents of this source.
func (s Source) IDKey() string {
	return sources[s].idKey
}

// RowKey returns the record field used as the table row key.
func (s Source) RowKey() string {
	return sources[s].rowKey
}

// DocumentFields returns the lazily loaded document fields the source serves.
func (s Source) DocumentFields() []string {
	fields := sources[s].fields
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// HasDocumentField reports whether field can be requested for this source.
func (s Source) HasDocumentField(field string) bool {
	for _, f := range sources[s].fields {
		if f == field {
			return true
		}
	}
	return false
}

// CollectionPath returns the list endpoint, e.g. /incoming/ecertin.
func (s Source) CollectionPath() string {
	return fmt.Sprintf("/%s/%s", s.Direction(), s)
}

// DocumentPath returns the endpoint of a single document field.
func (s Source) DocumentPath(id, field string) string {
	return fmt.Sprintf("/%s/%s/%s/%s", s.Direction(), s, url.PathEscape(id), field)
}

// Sources returns the sources of a direction in display order.
func Sources(d Direction) []Source {
	switch d {
	case DirectionIncoming:
		return []Source{SourceEcertIn, SourceEphytoIn}
	case DirectionOutgoing:
		return []Source{SourceEahOut, SourceEphytoOut}
	default:
		return nil
	}
}
