// Package records ranks raw service records from the remote store and turns
// them into display rows. Every function is pure: inputs are never mutated and
// malformed fields degrade to absent values instead of errors.
package records

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tartampluch/go-svcrecords/internal/config"
)

// Record is one row as decoded from the remote store.
// Unknown keys are kept untouched.
type Record map[string]any

// Str returns the field as a string, or "" when it is missing or not a string.
func (r Record) Str(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// List returns the field coerced with StringList.
func (r Record) List(key string) []string {
	return StringList(r[key])
}

// HasItem reports whether the record's items list contains name.
func (r Record) HasItem(name string) bool {
	return contains(r.List(config.FieldItems), name)
}

// StringList interprets a multi-select field. The remote store sometimes keeps
// these as real arrays and sometimes as a JSON array inside a string:
//
//	["淨水設備"]       -> [淨水設備]
//	"[\"淨水設備\"]"   -> [淨水設備]
//	"淨水設備"         -> []
//
// Non-string array elements become "". Anything unparseable yields nil.
func StringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		return stringsOf(val)
	case string:
		if !strings.HasPrefix(strings.TrimSpace(val), "[") {
			return nil
		}
		var arr []any
		if err := json.Unmarshal([]byte(val), &arr); err != nil {
			return nil
		}
		return stringsOf(arr)
	default:
		return nil
	}
}

func stringsOf(arr []any) []string {
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

// JoinList trims every value, drops empty ones and joins the rest with " / ".
func JoinList(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, config.ListJoinSeparator)
}

// FromRows keeps the JSON objects of a response's rows and skips anything else.
func FromRows(rows []any) []Record {
	out := make([]Record, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		switch v := row.(type) {
		case map[string]any:
			out = append(out, Record(v))
		case Record:
			out = append(out, v)
		default:
			skipped++
		}
	}
	if skipped > 0 {
		slog.Debug(config.MsgSkippedRow,
			config.LogKeyComponent, config.CompRecords,
			config.LogKeySkipped, skipped,
			config.LogKeyTotal, len(rows))
	}
	return out
}
