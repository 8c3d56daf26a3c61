package poller

import (
	"bytes"
	"encoding/json"

	"github.com/iudanet/esps-console/internal/models"
)

// Normalize приводит ответ списка к коллекции записей.
// Поддерживаются голый массив и объект с массивом в поле data.
// Любая другая форма (в том числе невалидный JSON) дает пустую коллекцию;
// элементы массива, не являющиеся объектами, отбрасываются.
func Normalize(raw []byte) []models.Record {
	records := []models.Record{}

	items, ok := extractItems(bytes.TrimSpace(raw))
	if !ok {
		return records
	}

	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var rec map[string]any
		dec := json.NewDecoder(bytes.NewReader(item))
		// json.Number сохраняет длинные числовые идентификаторы без потери точности
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			continue
		}
		records = append(records, models.Record(rec))
	}
	return records
}

func extractItems(raw []byte) ([]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var items []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, false
		}
		return items, true
	case '{':
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, false
		}
		data := bytes.TrimSpace(envelope.Data)
		if len(data) == 0 || data[0] != '[' {
			return nil, false
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, false
		}
		return items, true
	default:
		return nil, false
	}
}
