package api

import "encoding/json"

// CollectionResponse is the envelope returned by the list endpoints.
// Some sources reply with a bare JSON array instead, clients must accept both.
type CollectionResponse struct {
	Data   []json.RawMessage `json:"data"`
	Status bool              `json:"status"`
}

// Document field names served by GET /{direction}/{source}/{id}/{field}.
const (
	FieldXML       = "xml"
	FieldXMLSigned = "xmlsigned"
)

// DocumentResponse maps the requested field name to its raw content.
type DocumentResponse map[string]string
