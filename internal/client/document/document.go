// Package document лениво загружает защищенные поля записи (xml, xmlsigned)
// для открытой карточки сертификата.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/esps-console/internal/models"
)

var (
	// ErrInFlight возвращается при повторном запросе поля, которое уже загружается
	ErrInFlight = errors.New("document field is already loading")
	// ErrMissingID возвращается, если у записи нет идентификатора для запроса
	ErrMissingID = errors.New("record has no identifier")
	// ErrUnknownField возвращается для поля, которое источник не отдает
	ErrUnknownField = errors.New("field is not available for this source")
	// ErrStale означает, что ответ устарел (карточка закрыта или переоткрыта)
	ErrStale = errors.New("document response is stale")
	// ErrNotLoaded возвращается при копировании незагруженного поля
	ErrNotLoaded = errors.New("document field is not loaded")
)

// State of one document field inside an open view.
type State int

const (
	StateUnrequested State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unrequested"
	}
}

//go:generate moq -out fetcher_mock.go . Fetcher

// Fetcher loads one document field from the backend.
type Fetcher interface {
	FetchDocument(ctx context.Context, source models.Source, id, field string) (string, error)
}

// Notifier shows non-blocking feedback to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// Clipboard receives copied content.
type Clipboard interface {
	WriteAll(text string) error
}

// Loader owns at most one open detail view.
type Loader struct {
	fetcher   Fetcher
	notifier  Notifier
	clipboard Clipboard
	logger    *slog.Logger
	current   *View
	mu        sync.Mutex
}

// NewLoader создает загрузчик документов
func NewLoader(fetcher Fetcher, notifier Notifier, clipboard Clipboard, logger *slog.Logger) *Loader {
	return &Loader{
		fetcher:   fetcher,
		notifier:  notifier,
		clipboard: clipboard,
		logger:    logger,
	}
}

// Open открывает карточку записи. Предыдущая карточка закрывается, все поля
// новой карточки находятся в состоянии StateUnrequested. Источник передается явно:
// по форме записи семейство не определить.
func (l *Loader) Open(rec models.Record, src models.Source) *View {
	fields := src.DocumentFields()
	v := &View{
		loader:   l,
		record:   rec.Clone(),
		source:   src,
		recordID: idOf(rec, src),
		order:    fields,
		fields:   make(map[string]*entry, len(fields)),
	}
	for _, f := range fields {
		v.fields[f] = &entry{}
	}

	l.mu.Lock()
	prev := l.current
	l.current = v
	l.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return v
}

// Close закрывает текущую карточку; ответы на ее запросы будут отброшены
func (l *Loader) Close() {
	l.mu.Lock()
	prev := l.current
	l.current = nil
	l.mu.Unlock()

	if prev != nil {
		prev.close()
	}
}

// Current возвращает открытую карточку или nil
func (l *Loader) Current() *View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// idOf: ephytoin адресуется по id_hub, остальные источники по id_cert
func idOf(rec models.Record, src models.Source) string {
	h := rec.Header()
	switch src.IDKey() {
	case models.FieldIDHub:
		return h.IDHub
	default:
		return h.IDCert
	}
}

type entry struct {
	content string
	err     error
	gen     uint64
	state   State
}

// View is a detached copy of one record plus the state of its document fields.
type View struct {
	loader   *Loader
	record   models.Record
	fields   map[string]*entry
	source   models.Source
	recordID string
	order    []string
	mu       sync.Mutex
	closed   bool
}

// Record возвращает копию записи карточки
func (v *View) Record() models.Record {
	return v.record.Clone()
}

// Source возвращает источник записи
func (v *View) Source() models.Source {
	return v.source
}

// RecordID возвращает идентификатор, по которому запрашиваются документы
func (v *View) RecordID() string {
	return v.recordID
}

// Fields returns the document fields of the source in display order.
func (v *View) Fields() []string {
	return append([]string(nil), v.order...)
}

// State возвращает состояние поля
func (v *View) State(field string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.fields[field]; ok {
		return e.state
	}
	return StateUnrequested
}

// Content возвращает загруженное содержимое поля
func (v *View) Content(field string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.fields[field]
	if !ok || e.state != StateLoaded {
		return "", false
	}
	return e.content, true
}

// Load загружает поле документа.
// Загруженное поле повторно не запрашивается. Пока запрос выполняется, второй
// запрос того же поля отклоняется с ErrInFlight. Ответ применяется, только если
// его поколение все еще текущее для этой карточки и поля.
func (v *View) Load(ctx context.Context, field string) (string, error) {
	v.mu.Lock()
	e, ok := v.fields[field]
	switch {
	case !ok:
		v.mu.Unlock()
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownField, v.source, field)
	case v.closed:
		v.mu.Unlock()
		return "", ErrStale
	case e.state == StateLoaded:
		content := e.content
		v.mu.Unlock()
		return content, nil
	case e.state == StateLoading:
		v.mu.Unlock()
		return "", ErrInFlight
	}
	if v.recordID == "" {
		v.mu.Unlock()
		v.loader.notifier.Error("record ID not found")
		return "", ErrMissingID
	}
	e.gen++
	gen := e.gen
	e.state = StateLoading
	e.err = nil
	v.mu.Unlock()

	content, err := v.loader.fetcher.FetchDocument(ctx, v.source, v.recordID, field)

	v.mu.Lock()
	if v.closed || e.gen != gen {
		v.mu.Unlock()
		v.loader.logger.Debug("discarding stale document response",
			slog.String("source", string(v.source)),
			slog.String("field", field))
		return "", ErrStale
	}
	if err != nil {
		e.state = StateFailed
		e.err = err
		v.mu.Unlock()

		v.loader.logger.Warn("failed to load document",
			slog.String("source", string(v.source)),
			slog.String("id", v.recordID),
			slog.String("field", field),
			slog.Any("error", err))
		v.loader.notifier.Error("failed to load " + field)
		return "", fmt.Errorf("load %s: %w", field, err)
	}
	e.state = StateLoaded
	e.content = content
	v.mu.Unlock()

	return content, nil
}

// Err возвращает ошибку последней неудачной загрузки поля
func (v *View) Err(field string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.fields[field]; ok {
		return e.err
	}
	return nil
}

// Copy копирует загруженное поле в буфер обмена и сообщает результат пользователю
func (v *View) Copy(field string) error {
	content, ok := v.Content(field)
	if !ok {
		v.loader.notifier.Error(field + " is not loaded")
		return fmt.Errorf("%w: %s", ErrNotLoaded, field)
	}
	if err := v.loader.clipboard.WriteAll(content); err != nil {
		v.loader.notifier.Error("failed to copy " + field)
		return fmt.Errorf("copy %s: %w", field, err)
	}
	v.loader.notifier.Info(field + " copied")
	return nil
}

func (v *View) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}
