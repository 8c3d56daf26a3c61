package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/internal/server/storage"
	"github.com/iudanet/esps-console/pkg/api"
)

// mockCertificateStorage is a mock implementation of CertificateStorage for testing
type mockCertificateStorage struct {
	certs   map[models.Source][]*models.Certificate
	listErr error
}

func (m *mockCertificateStorage) SaveCertificate(ctx context.Context, cert *models.Certificate) error {
	m.certs[cert.Source] = append(m.certs[cert.Source], cert)
	return nil
}

func (m *mockCertificateStorage) ListPayloads(ctx context.Context, source models.Source) ([]json.RawMessage, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []json.RawMessage{}
	for _, c := range m.certs[source] {
		out = append(out, c.Payload)
	}
	return out, nil
}

func (m *mockCertificateStorage) GetCertificate(ctx context.Context, source models.Source, id string) (*models.Certificate, error) {
	for _, c := range m.certs[source] {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, storage.ErrCertificateNotFound
}

func newCertificateMux(store storage.CertificateStorage) *http.ServeMux {
	h := NewCertificateHandler(setupTestLogger(), store)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{direction}/{source}", h.List)
	mux.HandleFunc("GET /{direction}/{source}/{id}/{field}", h.Document)
	return mux
}

func testCertificates() *mockCertificateStorage {
	return &mockCertificateStorage{certs: map[models.Source][]*models.Certificate{
		models.SourceEcertIn: {
			{Source: models.SourceEcertIn, ID: "1", Payload: json.RawMessage(`{"id_cert":1,"no_cert":"A1"}`), XML: "<a/>", XMLSigned: "<a signed/>"},
		},
		models.SourceEahOut: {
			{Source: models.SourceEahOut, ID: "E1", Payload: json.RawMessage(`{"id_cert":"E1"}`), XML: "<e/>"},
		},
		models.SourceEcertOut: {
			{Source: models.SourceEcertOut, ID: "C1", Payload: json.RawMessage(`{"id_cert":"C1"}`)},
		},
	}}
}

func TestCertificateHandler_List(t *testing.T) {
	mux := newCertificateMux(testCertificates())

	tests := []struct {
		name       string
		path       string
		wantBody   string
		wantStatus int
	}{
		{
			name:       "envelope",
			path:       "/incoming/ecertin",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":true,"data":[{"id_cert":1,"no_cert":"A1"}]}`,
		},
		{
			name:       "empty source still returns a list",
			path:       "/incoming/ephytoin",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":true,"data":[]}`,
		},
		{
			name:       "legacy bare list",
			path:       "/outgoing/ecertout",
			wantStatus: http.StatusOK,
			wantBody:   `[{"id_cert":"C1"}]`,
		},
		{
			name:       "source under wrong direction",
			path:       "/outgoing/ecertin",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown source",
			path:       "/incoming/unknown",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestCertificateHandler_List_StorageError(t *testing.T) {
	store := testCertificates()
	store.listErr = errors.New("boom")
	mux := newCertificateMux(store)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/incoming/ecertin", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCertificateHandler_Document(t *testing.T) {
	mux := newCertificateMux(testCertificates())

	tests := []struct {
		name        string
		path        string
		field       string
		wantContent string
		wantStatus  int
	}{
		{name: "incoming xml", path: "/incoming/ecertin/1/xml", field: "xml", wantStatus: http.StatusOK, wantContent: "<a/>"},
		{name: "incoming signed xml", path: "/incoming/ecertin/1/xmlsigned", field: "xmlsigned", wantStatus: http.StatusOK, wantContent: "<a signed/>"},
		{name: "outgoing xml", path: "/outgoing/eahout/E1/xml", field: "xml", wantStatus: http.StatusOK, wantContent: "<e/>"},
		{name: "outgoing has no signed xml", path: "/outgoing/eahout/E1/xmlsigned", wantStatus: http.StatusNotFound},
		{name: "unknown field", path: "/incoming/ecertin/1/pdf", wantStatus: http.StatusNotFound},
		{name: "unknown record", path: "/incoming/ecertin/404/xml", wantStatus: http.StatusNotFound},
		{name: "wrong direction", path: "/outgoing/ecertin/1/xml", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp api.DocumentResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, api.DocumentResponse{tt.field: tt.wantContent}, resp)
		})
	}
}
