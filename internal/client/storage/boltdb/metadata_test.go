package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/esps-console/internal/client/storage"
)

// createTestMetadataStorage создает временное BoltDB хранилище и инициализирует buckets
func createTestMetadataStorage(t *testing.T) (*Storage, func()) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "metadata_test.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		require.NoError(t, store.Close())
		require.NoError(t, os.RemoveAll(tmpDir))
	}

	return store, cleanup
}

func TestSaveAndGetRefresh(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestMetadataStorage(t)
	defer cleanup()

	// Изначально статистики нет
	_, err := store.GetRefresh(ctx, "ecertin")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrRefreshNotFound)

	at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	err = store.SaveRefresh(ctx, storage.RefreshInfo{Source: "ecertin", At: at, Count: 12})
	require.NoError(t, err)

	got, err := store.GetRefresh(ctx, "ecertin")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Count)
	assert.True(t, at.Equal(got.At))
	assert.Empty(t, got.Error)

	// Перезапись последним результатом
	err = store.SaveRefresh(ctx, storage.RefreshInfo{Source: "ecertin", At: at.Add(time.Minute), Error: "timeout"})
	require.NoError(t, err)

	got, err = store.GetRefresh(ctx, "ecertin")
	require.NoError(t, err)
	assert.Zero(t, got.Count)
	assert.Equal(t, "timeout", got.Error)
}

func TestSaveRefresh_WithoutSource(t *testing.T) {
	store, cleanup := createTestMetadataStorage(t)
	defer cleanup()

	assert.Error(t, store.SaveRefresh(context.Background(), storage.RefreshInfo{Count: 1}))
}

func TestListRefresh(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestMetadataStorage(t)
	defer cleanup()

	infos, err := store.ListRefresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	for _, src := range []string{"ephytoin", "ecertin", "eahout"} {
		require.NoError(t, store.SaveRefresh(ctx, storage.RefreshInfo{Source: src, At: time.Now()}))
	}

	infos, err = store.ListRefresh(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "eahout", infos[0].Source)
	assert.Equal(t, "ecertin", infos[1].Source)
	assert.Equal(t, "ephytoin", infos[2].Source)
}

func TestLastUsername(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestMetadataStorage(t)
	defer cleanup()

	name, err := store.GetLastUsername(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, store.SaveLastUsername(ctx, "budi"))

	name, err = store.GetLastUsername(ctx)
	require.NoError(t, err)
	assert.Equal(t, "budi", name)
}

func TestRefresh_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store, cleanup := createTestMetadataStorage(t)
	defer cleanup()

	// Удаляем bucket напрямую
	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketRefresh)
	})
	require.NoError(t, err)

	err = store.SaveRefresh(ctx, storage.RefreshInfo{Source: "ecertin"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refresh bucket not found")

	_, err = store.GetRefresh(ctx, "ecertin")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "refresh bucket not found")
}

func TestMetadata_ClosedStorage(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.SaveRefresh(ctx, storage.RefreshInfo{Source: "x"}), storage.ErrStorageClosed)
	_, err = store.ListRefresh(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = store.GetLastUsername(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
