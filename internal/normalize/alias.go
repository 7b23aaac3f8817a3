package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/models"
)

// FirstNonEmpty returns the first value that is not blank after trimming
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// lookup follows a dotted path through nested objects
func lookup(obj map[string]any, path string) any {
	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[key]; !ok {
			return nil
		}
	}
	return cur
}

// elementField returns list[index][field] for the list found at path
func elementField(obj map[string]any, path string, index int, field string) any {
	list, ok := lookup(obj, path).([]any)
	if !ok || index < 0 || index >= len(list) {
		return nil
	}
	elem, ok := list[index].(map[string]any)
	if !ok {
		return nil
	}
	return elem[field]
}

// scalarString renders a JSON scalar as text. Objects, arrays and null are
// not usable field values.
func scalarString(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case bool:
		s = strconv.FormatBool(val)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func firstString(obj map[string]any, paths ...string) string {
	for _, p := range paths {
		if s, ok := scalarString(lookup(obj, p)); ok {
			return s
		}
	}
	return ""
}

func firstInt(obj map[string]any, paths ...string) models.OptionalInt {
	for _, p := range paths {
		if s, ok := scalarString(lookup(obj, p)); ok {
			if v := models.ParseInt(s); v.Valid {
				return v
			}
		}
	}
	return models.OptionalInt{}
}

func firstFloat(obj map[string]any, paths ...string) models.OptionalFloat {
	for _, p := range paths {
		if s, ok := scalarString(lookup(obj, p)); ok {
			if v := models.ParseFloat(s); v.Valid {
				return v
			}
		}
	}
	return models.OptionalFloat{}
}
