package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Reserved record fields managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldOwner     = "owner_user_id"
)

// Record is a schemaless persisted mapping. Only id, created_at and
// updated_at are interpreted by the store.
type Record map[string]any

// ID returns the record id or "" when unset.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the field as a bool, false when absent.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Int64 returns a numeric field regardless of how it was decoded.
func (r Record) Int64(key string) int64 {
	f, ok := ToFloat(r[key])
	if !ok {
		return 0
	}
	return int64(f)
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge overwrites r's fields with patch's fields.
func (r Record) Merge(patch map[string]any) Record {
	for k, v := range patch {
		r[k] = v
	}
	return r
}

// ToFloat converts any numeric representation produced by encoding/json
// or by Go callers into a float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
