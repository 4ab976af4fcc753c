package recordstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Fields is the loosely typed column map of a record.
type Fields map[string]interface{}

// String returns the field rendered as a trimmed string; lookups and rollups yield their first element.
func (f Fields) String(key string) string {
	value, ok := f[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		return Fields{key: v[0]}.String(key)
	case []string:
		if len(v) == 0 {
			return ""
		}
		return strings.TrimSpace(v[0])
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// StringPtr returns nil when the field is absent or blank.
func (f Fields) StringPtr(key string) *string {
	value := f.String(key)
	if value == "" {
		return nil
	}
	return &value
}

// Bool treats missing checkbox columns as false.
func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	case float64:
		return v != 0
	default:
		return false
	}
}

// LinkedIDs returns the ids of a linked-record column.
func (f Fields) LinkedIDs(key string) []string {
	switch v := f[key].(type) {
	case []interface{}:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if id, ok := item.(string); ok && strings.TrimSpace(id) != "" {
				ids = append(ids, strings.TrimSpace(id))
			}
		}
		return ids
	case []string:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{strings.TrimSpace(v)}
	default:
		return nil
	}
}

// FirstLinkedID returns the first linked id or an empty string.
func (f Fields) FirstLinkedID(key string) string {
	ids := f.LinkedIDs(key)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// Has reports whether the column is present on the record, even if null.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// FirstString walks keys in order and returns the first non-blank value.
func (f Fields) FirstString(keys ...string) string {
	for _, key := range keys {
		if value := f.String(key); value != "" {
			return value
		}
	}
	return ""
}

// EscapeFormula quotes a value for use inside a filterByFormula string literal.
func EscapeFormula(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
