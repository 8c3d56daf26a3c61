// Package filter отбирает и подготавливает строки таблиц сертификатов.
//
// Поиск, диапазон дат и фасет комбинируются по AND. Сопоставление всегда идет по
// исходным значениям записи; подписи (Labels) применяются только к отображению.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/esps-console/internal/models"
)

// DateLayout is the layout of tgl_cert.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days. A zero bound means "missing".
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange разбирает пару дат в формате 2006-01-02
func ParseDateRange(from, to string) (*DateRange, error) {
	f, err := time.Parse(DateLayout, strings.TrimSpace(from))
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", from, err)
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(to))
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", to, err)
	}
	if t.Before(f) {
		return nil, fmt.Errorf("end date %s is before start date %s", to, from)
	}
	return &DateRange{From: f, To: t}, nil
}

// Active reports whether both bounds are set.
func (r *DateRange) Active() bool {
	return r != nil && !r.From.IsZero() && !r.To.IsZero()
}

func (r *DateRange) String() string {
	if !r.Active() {
		return "any"
	}
	return r.From.Format(DateLayout) + ".." + r.To.Format(DateLayout)
}

// Criteria is the transient filter state of one table.
type Criteria struct {
	Range *DateRange
	Query string
	Facet string
}

// Labels maps field -> raw code -> display label (e.g. neg_asal ID -> Indonesia).
type Labels map[string]map[string]string

// Row is a materialized table row.
type Row struct {
	Raw     models.Record
	Display map[string]string
	Key     string
}

// Engine filters one collection. The zero value is not usable, see ForSource.
type Engine struct {
	Labels     Labels
	KeyField   string
	Family     string
	DateField  string
	DateLayout string
	FacetField string
	TagFields  []string
}

// ForSource возвращает движок с настройками таблицы источника:
// ключ строки по идентификатору источника, фасет по upt для исходящих,
// теги способа доставки send_to / data_from.
func ForSource(src models.Source, labels Labels) *Engine {
	e := &Engine{
		Labels:     labels,
		KeyField:   src.RowKey(),
		Family:     familyOf(src),
		DateField:  models.FieldTglCert,
		DateLayout: DateLayout,
		TagFields:  []string{FieldSendTo, FieldDataFrom},
	}
	if src.Direction() == models.DirectionOutgoing {
		e.FacetField = models.FieldUPT
	}
	return e
}

func familyOf(src models.Source) string {
	switch src {
	case models.SourceEcertIn, models.SourceEcertOut:
		return "ecert"
	case models.SourceEphytoIn, models.SourceEphytoOut:
		return "ephyto"
	case models.SourceEahOut:
		return "eah"
	default:
		return string(src)
	}
}

// Apply возвращает строки, прошедшие все предикаты, в исходном порядке.
// Функция чистая: одинаковые входные данные дают одинаковый результат.
func (e *Engine) Apply(records []models.Record, c Criteria) []Row {
	query := strings.ToLower(c.Query)
	rows := make([]Row, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i, rec := range records {
		if !MatchesQuery(rec, query) || !e.matchesRange(rec, c.Range) || !e.matchesFacet(rec, c.Facet) {
			continue
		}

		// позиция берется в исходной коллекции, а не в отфильтрованной
		key := e.rowKey(rec, i)
		for {
			if _, dup := seen[key]; !dup {
				break
			}
			key = key + "-" + strconv.Itoa(i)
		}
		seen[key] = struct{}{}

		raw := rec.Clone()
		rows = append(rows, Row{
			Key:     key,
			Raw:     raw,
			Display: e.display(raw),
		})
	}
	return rows
}

// MatchesQuery: регистронезависимый поиск подстроки по строковому виду всех значений.
// query должен быть уже в нижнем регистре; пустой запрос подходит всем.
func MatchesQuery(rec models.Record, query string) bool {
	if query == "" {
		return true
	}
	for _, v := range rec {
		if strings.Contains(strings.ToLower(models.Stringify(v)), query) {
			return true
		}
	}
	return false
}

func (e *Engine) matchesRange(rec models.Record, r *DateRange) bool {
	if !r.Active() {
		return true
	}
	day, ok := e.parseDay(rec[e.DateField])
	if !ok {
		return false
	}
	from := startOfDay(r.From)
	to := startOfDay(r.To)
	return !day.Before(from) && !day.After(to)
}

// parseDay разбирает дату записи; время после T или пробела отбрасывается
func (e *Engine) parseDay(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	layout := e.DateLayout
	if layout == "" {
		layout = DateLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return startOfDay(t), true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) matchesFacet(rec models.Record, facet string) bool {
	if facet == "" || e.FacetField == "" {
		return true
	}
	return models.Stringify(rec[e.FacetField]) == facet
}

func (e *Engine) rowKey(rec models.Record, index int) string {
	if v, ok := rec[e.KeyField]; ok && v != nil {
		return models.Stringify(v)
	}
	prefix := e.Family
	if v, ok := rec[models.FieldNoCert]; ok && v != nil {
		prefix = models.Stringify(v)
	}
	return prefix + "-" + strconv.Itoa(index)
}

func (e *Engine) display(rec models.Record) map[string]string {
	out := make(map[string]string, len(rec))
	for field, v := range rec {
		if e.isTagField(field) {
			out[field] = strings.Join(Tags(v, field), ", ")
			continue
		}
		s := models.Stringify(v)
		if label, ok := e.Labels[field][s]; ok {
			s = label
		}
		out[field] = s
	}
	return out
}

func (e *Engine) isTagField(field string) bool {
	for _, f := range e.TagFields {
		if f == field {
			return true
		}
	}
	return false
}

// Facets возвращает различающиеся непустые значения поля в порядке первого появления
func Facets(records []models.Record, field string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rec := range records {
		s := models.Stringify(rec[field])
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
