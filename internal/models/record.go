package models

import (
	"encoding/json"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Record представляет одну запись eCert/ePhyto: плоский набор поле -> скалярное значение.
// Числа декодируются как json.Number, чтобы длинные идентификаторы не теряли точность.
type Record map[string]any

// Header содержит поля записи, на которые опирается логика консоли
type Header struct {
	IDCert  string `mapstructure:"id_cert"`
	IDHub   string `mapstructure:"id_hub"`
	NoCert  string `mapstructure:"no_cert"`
	TglCert string `mapstructure:"tgl_cert"`
	UPT     string `mapstructure:"upt"`
}

// Header извлекает служебные поля записи.
// Используется нестрогое декодирование: id_cert может прийти и числом, и строкой.
func (r Record) Header() Header {
	var h Header
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &h,
	})
	if err != nil {
		return h
	}
	// Поля с несовместимым типом (например, объект вместо строки) остаются пустыми,
	// остальные поля декодируются.
	_ = dec.Decode(map[string]any(r))
	return h
}

// String возвращает строковое представление поля (пустая строка для отсутствующего)
func (r Record) String(field string) string {
	return Stringify(r[field])
}

// Clone возвращает глубокую копию записи, не связанную с исходной коллекцией
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Record:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// CloneRecords копирует коллекцию целиком
func CloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Stringify приводит значение поля к строке для поиска и отображения.
// nil -> "", числа в кратчайшей десятичной форме, составные значения -> компактный JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
