package cli

import (
	"context"

	"github.com/iudanet/esps-console/internal/client/iocli"
	"github.com/iudanet/esps-console/internal/client/poller"
	"github.com/iudanet/esps-console/internal/client/storage"
	"github.com/iudanet/esps-console/internal/models"
)

// collectionFetcher подставляет токен текущей сессии в запросы списков
type collectionFetcher struct {
	c *Cli
}

func (f collectionFetcher) Fetch(ctx context.Context, source models.Source) ([]byte, error) {
	sess, err := f.c.requireSession()
	if err != nil {
		return nil, err
	}
	return f.c.backend.FetchCollection(ctx, sess.Token, source)
}

// documentFetcher подставляет токен текущей сессии в запросы документов
type documentFetcher struct {
	c *Cli
}

func (f documentFetcher) FetchDocument(ctx context.Context, source models.Source, id, field string) (string, error) {
	sess, err := f.c.requireSession()
	if err != nil {
		return "", err
	}
	content, err := f.c.backend.FetchDocument(ctx, sess.Token, source, id, field)
	if err != nil {
		f.c.handleFetchError(err)
		return "", err
	}
	return content, nil
}

// refreshRecorder сохраняет статистику обновлений в локальное хранилище
type refreshRecorder struct {
	meta storage.MetadataStorage
}

func (r refreshRecorder) RecordRefresh(ctx context.Context, source models.Source, stat poller.RefreshStat) error {
	return r.meta.SaveRefresh(ctx, storage.RefreshInfo{
		Source: string(source),
		At:     stat.At,
		Count:  stat.Count,
		Error:  stat.Error,
	})
}

// ioNotifier выводит уведомления загрузчика документов в консоль
type ioNotifier struct {
	io iocli.IO
}

func (n ioNotifier) Info(msg string) {
	n.io.Printf("✓ %s\n", msg)
}

func (n ioNotifier) Error(msg string) {
	n.io.Printf("✗ %s\n", msg)
}
