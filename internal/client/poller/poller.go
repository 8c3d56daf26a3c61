// Package poller загружает коллекции сертификатов и периодически их обновляет.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/esps-console/internal/models"
)

// DefaultInterval is the refresh period of a mounted table view.
const DefaultInterval = 300 * time.Second

// ErrStopped is returned by Refresh after Stop.
var ErrStopped = errors.New("poller stopped")

//go:generate moq -out fetcher_mock.go . Fetcher

// Fetcher returns the raw list response of one source.
type Fetcher interface {
	Fetch(ctx context.Context, source models.Source) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, source models.Source) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, source models.Source) ([]byte, error) {
	return f(ctx, source)
}

// RefreshStat describes one settled fetch.
type RefreshStat struct {
	At    time.Time
	Error string
	Count int
}

// Recorder persists refresh statistics.
type Recorder interface {
	RecordRefresh(ctx context.Context, source models.Source, stat RefreshStat) error
}

// Collection is the published state of one source.
type Collection struct {
	UpdatedAt time.Time
	Err       error
	Records   []models.Record
	Loaded    bool
}

// Option настраивает Poller
type Option func(*Poller)

// WithInterval задает период обновления
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger задает логгер
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithRecorder задает хранилище статистики обновлений
func WithRecorder(r Recorder) Option {
	return func(p *Poller) {
		p.recorder = r
	}
}

// WithErrorHandler вызывается для каждой ошибки загрузки (вне блокировок)
func WithErrorHandler(fn func(models.Source, error)) Option {
	return func(p *Poller) {
		p.onError = fn
	}
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// Poller owns the collections of one mounted view.
// Each source is fetched independently; a failure of one never touches the others.
type Poller struct {
	fetcher     Fetcher
	recorder    Recorder
	logger      *slog.Logger
	onError     func(models.Source, error)
	now         func() time.Time
	collections map[models.Source]*Collection
	generations map[models.Source]uint64
	pending     map[models.Source]struct{}
	ready       chan struct{}
	cancel      context.CancelFunc
	runCtx      context.Context
	done        chan struct{}
	sources     []models.Source
	interval    time.Duration
	mu          sync.RWMutex
	started     bool
	stopped     bool
}

// New создает Poller для набора источников
func New(fetcher Fetcher, sources []models.Source, opts ...Option) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		sources:     append([]models.Source(nil), sources...),
		interval:    DefaultInterval,
		logger:      slog.Default(),
		now:         time.Now,
		collections: make(map[models.Source]*Collection, len(sources)),
		generations: make(map[models.Source]uint64, len(sources)),
		pending:     make(map[models.Source]struct{}, len(sources)),
		ready:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, s := range p.sources {
		p.collections[s] = &Collection{Records: []models.Record{}}
		p.pending[s] = struct{}{}
	}
	if len(p.pending) == 0 {
		close(p.ready)
	}
	return p
}

// Start запускает первичную загрузку всех источников и периодическое обновление.
// Возвращается сразу; коллекции публикуются по мере завершения запросов.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.runCtx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	runCtx := p.runCtx
	p.mu.Unlock()

	go p.loop(runCtx)
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshAll(ctx)
		}
	}
}

// Refresh немедленно перезагружает все источники и ждет завершения.
// Запросы отменяются как при отмене ctx, так и при Stop.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.RLock()
	stopped := p.stopped
	runCtx := p.runCtx
	p.mu.RUnlock()
	if stopped {
		return ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if runCtx != nil {
		stop := context.AfterFunc(runCtx, cancel)
		defer stop()
	}

	p.refreshAll(ctx)
	return nil
}

// refreshAll загружает источники параллельно; ошибки поглощаются по источнику
func (p *Poller) refreshAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range p.sources {
		g.Go(func() error {
			p.refreshOne(gctx, src)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) refreshOne(ctx context.Context, src models.Source) {
	gen, ok := p.begin(src)
	if !ok {
		return
	}

	raw, err := p.fetcher.Fetch(ctx, src)

	coll := Collection{UpdatedAt: p.now(), Loaded: true}
	if err != nil {
		coll.Err = err
		coll.Records = []models.Record{}
	} else {
		coll.Records = Normalize(raw)
	}

	if !p.publish(src, gen, coll) {
		p.logger.Debug("discarding stale collection", slog.String("source", string(src)))
		return
	}

	stat := RefreshStat{At: coll.UpdatedAt, Count: len(coll.Records)}
	if err != nil {
		stat.Error = err.Error()
		p.logger.Warn("failed to fetch collection",
			slog.String("source", string(src)),
			slog.Any("error", err))
		if p.onError != nil {
			p.onError(src, err)
		}
	} else {
		p.logger.Debug("collection refreshed",
			slog.String("source", string(src)),
			slog.Int("count", len(coll.Records)))
	}

	if p.recorder != nil {
		if recErr := p.recorder.RecordRefresh(context.WithoutCancel(ctx), src, stat); recErr != nil {
			p.logger.Warn("failed to record refresh", slog.Any("error", recErr))
		}
	}
}

// begin выдает номер поколения для нового запроса источника
func (p *Poller) begin(src models.Source) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return 0, false
	}
	p.generations[src]++
	return p.generations[src], true
}

// publish применяет результат, только если он от последнего запроса и Poller не остановлен
func (p *Poller) publish(src models.Source, gen uint64, coll Collection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.generations[src] != gen {
		return false
	}
	p.collections[src] = &coll
	if _, ok := p.pending[src]; ok {
		delete(p.pending, src)
		if len(p.pending) == 0 {
			close(p.ready)
		}
	}
	return true
}

// Ready закрывается, когда каждый источник опубликовал хотя бы один результат
func (p *Poller) Ready() <-chan struct{} {
	return p.ready
}

// Snapshot возвращает копию коллекции, не связанную с живыми данными
func (p *Poller) Snapshot(src models.Source) (Collection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.collections[src]
	if !ok {
		return Collection{}, false
	}
	out := *c
	out.Records = models.CloneRecords(c.Records)
	if out.Records == nil {
		out.Records = []models.Record{}
	}
	return out, true
}

// Sources возвращает источники в порядке отображения
func (p *Poller) Sources() []models.Source {
	return append([]models.Source(nil), p.sources...)
}

// Stop останавливает таймер и отменяет текущие запросы.
// После возврата из Stop ни один запрос не начинается и ни одна коллекция не обновляется.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
