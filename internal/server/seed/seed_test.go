package seed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/esps-console/internal/crypto"
	"github.com/iudanet/esps-console/internal/logging"
	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/internal/server/storage/sqlite"
)

const testSeed = `
users:
  - username: budi
    name: Budi Santoso
    password: rahasia123
    roles:
      - role_name: SA
        apps_id: APP004
  - username: siti
    password: password99
certificates:
  - source: ecertin
    record:
      id_cert: 9007199254740993
      no_cert: A1
      tgl_cert: "2025-01-05"
      komoditas: Coffee
    xml: "<cert id=\"A1\"/>"
    xmlsigned: "<signed/>"
  - source: ephytoin
    record:
      id_hub: H-1
      no_cert: P1
      tgl_cert: "2025-02-01"
      data_from: ippc
    xml: "<phyto/>"
  - source: eahout
    record:
      id_cert: E1
      upt: 1000
      send_to:
        - send_to: asw
    xml: "<eah/>"
`

func setupTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	f, err := Parse(strings.NewReader(testSeed))
	require.NoError(t, err)

	res, err := Load(ctx, logging.Discard(), f, store)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersCreated: 2, Certificates: 3}, res)

	budi, err := store.GetUserByUsername(ctx, "budi")
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", budi.Name)
	assert.Equal(t, []models.RoleAssignment{{RoleName: "SA", AppsID: "APP004"}}, budi.Roles)
	require.NoError(t, crypto.VerifyPassword("rahasia123", budi.PasswordHash))

	siti, err := store.GetUserByUsername(ctx, "siti")
	require.NoError(t, err)
	assert.Equal(t, "siti", siti.Name, "name defaults to username")
	assert.Empty(t, siti.Roles)

	// длинный числовой id не теряет точность
	cert, err := store.GetCertificate(ctx, models.SourceEcertIn, "9007199254740993")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", cert.CertDate)
	assert.Equal(t, "<signed/>", cert.XMLSigned)
	assert.Contains(t, string(cert.Payload), `"id_cert":9007199254740993`)

	hub, err := store.GetCertificate(ctx, models.SourceEphytoIn, "H-1")
	require.NoError(t, err)
	assert.Equal(t, "<phyto/>", hub.XML)

	payloads, err := store.ListPayloads(ctx, models.SourceEahOut)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(payloads[0], &rec))
	assert.Equal(t, []any{map[string]any{"send_to": "asw"}}, rec["send_to"])
}

func TestLoad_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	f, err := Parse(strings.NewReader(testSeed))
	require.NoError(t, err)

	_, err = Load(ctx, logging.Discard(), f, store)
	require.NoError(t, err)

	// повторная загрузка не трогает существующих пользователей
	f.Users[0].Password = "другой-пароль"
	res, err := Load(ctx, logging.Discard(), f, store)
	require.NoError(t, err)
	assert.Equal(t, Result{UsersSkipped: 2, Certificates: 3}, res)

	budi, err := store.GetUserByUsername(ctx, "budi")
	require.NoError(t, err)
	assert.NoError(t, crypto.VerifyPassword("rahasia123", budi.PasswordHash))

	payloads, err := store.ListPayloads(ctx, models.SourceEcertIn)
	require.NoError(t, err)
	assert.Len(t, payloads, 1)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		wantErr string
	}{
		{
			name:    "short password",
			seed:    "users:\n  - username: budi\n    password: short\n",
			wantErr: "users[0]",
		},
		{
			name:    "bad username",
			seed:    "users:\n  - username: \"bad name\"\n    password: rahasia123\n",
			wantErr: "users[0]",
		},
		{
			name:    "unknown source",
			seed:    "certificates:\n  - source: ecertxx\n    record: {id_cert: 1}\n",
			wantErr: "unknown certificate source",
		},
		{
			name:    "missing id",
			seed:    "certificates:\n  - source: ephytoin\n    record: {id_cert: 1}\n",
			wantErr: "id_hub",
		},
		{
			name:    "signed document for outgoing source",
			seed:    "certificates:\n  - source: eahout\n    record: {id_cert: 1}\n    xmlsigned: x\n",
			wantErr: "no signed documents",
		},
		{
			name:    "empty record",
			seed:    "certificates:\n  - source: eahout\n",
			wantErr: "empty record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(strings.NewReader(tt.seed))
			require.NoError(t, err)

			_, err = Load(context.Background(), logging.Discard(), f, setupTestStorage(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)

	_, err = Parse(strings.NewReader("userz: []\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeed), 0o600))

	res, err := LoadFile(context.Background(), logging.Discard(), path, setupTestStorage(t))
	require.NoError(t, err)
	assert.Equal(t, 2, res.UsersCreated)

	_, err = LoadFile(context.Background(), logging.Discard(), filepath.Join(t.TempDir(), "missing.yaml"), setupTestStorage(t))
	assert.Error(t, err)
}
