package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/esps-console/internal/client/storage"
)

const (
	keyLastUsername = "last_username"
)

// SaveRefresh сохраняет результат последнего обновления коллекции
func (s *Storage) SaveRefresh(ctx context.Context, info storage.RefreshInfo) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if info.Source == "" {
		return fmt.Errorf("refresh info without source")
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal refresh info: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRefresh)
		if bucket == nil {
			return fmt.Errorf("refresh bucket not found")
		}

		if err := bucket.Put([]byte(info.Source), data); err != nil {
			return fmt.Errorf("failed to save refresh info: %w", err)
		}

		return nil
	})
}

// GetRefresh возвращает результат последнего обновления коллекции
func (s *Storage) GetRefresh(ctx context.Context, source string) (*storage.RefreshInfo, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var info storage.RefreshInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRefresh)
		if bucket == nil {
			return fmt.Errorf("refresh bucket not found")
		}

		data := bucket.Get([]byte(source))
		if data == nil {
			return storage.ErrRefreshNotFound
		}

		// data валиден только внутри транзакции, Unmarshal копирует значения
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh info: %w", err)
	}

	return &info, nil
}

// ListRefresh возвращает статистику всех коллекций (ключи bbolt отсортированы)
func (s *Storage) ListRefresh(ctx context.Context) ([]storage.RefreshInfo, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var infos []storage.RefreshInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRefresh)
		if bucket == nil {
			return fmt.Errorf("refresh bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var info storage.RefreshInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("corrupted refresh info %q: %w", k, err)
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh info: %w", err)
	}

	return infos, nil
}

// SaveLastUsername запоминает имя пользователя для подсказки при следующем входе
func (s *Storage) SaveLastUsername(ctx context.Context, username string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(keyLastUsername), []byte(username)); err != nil {
			return fmt.Errorf("failed to save last username: %w", err)
		}

		return nil
	})
}

// GetLastUsername возвращает сохраненное имя пользователя или пустую строку
func (s *Storage) GetLastUsername(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var username string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		username = string(bucket.Get([]byte(keyLastUsername)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get last username: %w", err)
	}

	return username, nil
}
