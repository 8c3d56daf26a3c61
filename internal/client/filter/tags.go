package filter

import (
	"github.com/iudanet/esps-console/internal/models"
)

// Delivery channel fields.
const (
	FieldSendTo   = "send_to"
	FieldDataFrom = "data_from"
)

// NoTags is displayed when a record carries no delivery channel.
const NoTags = "-"

// Tags возвращает список каналов доставки (asw, h2h, ippc ...).
// Значение может быть строкой, объектом или списком объектов; в последних
// двух случаях учитываются только элементы с заполненным send_to.
func Tags(v any, field string) []string {
	switch t := v.(type) {
	case nil:
		return []string{NoTags}
	case string:
		if t == "" {
			return []string{NoTags}
		}
		return []string{t}
	case map[string]any:
		return tagsOf([]any{t}, field)
	case []any:
		return tagsOf(t, field)
	default:
		return []string{models.Stringify(t)}
	}
}

func tagsOf(items []any, field string) []string {
	var out []string
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if models.Stringify(m[FieldSendTo]) == "" {
			continue
		}
		out = append(out, models.Stringify(m[field]))
	}
	if len(out) == 0 {
		return []string{NoTags}
	}
	return out
}
