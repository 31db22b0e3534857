package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"

	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrStorageFailure marks a persistence write that did not complete.
var ErrStorageFailure = errors.New("storage failure")

// ErrInvalidResource indicates a resource name that cannot be mapped to a collection.
var ErrInvalidResource = errors.New("invalid resource name")

// WriteError reports a failed collection write. It matches ErrStorageFailure.
type WriteError struct {
	Resource string
	Op       string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool {
	return target == ErrStorageFailure
}

// Mutator rewrites a whole collection. Returning changed=false skips the save.
type Mutator func(items []models.Record) (out []models.Record, changed bool)

// RecordMutator receives the stored record, or nil when absent, and returns
// the record to persist. A non-nil error aborts the write and is returned as is.
type RecordMutator func(existing models.Record) (models.Record, error)

// CollectionStore captures persistence of named record collections.
//
// Reads never fail: unreadable or malformed collections are reported as empty.
// Writes are atomic per collection and report failures as *WriteError.
type CollectionStore interface {
	List(ctx context.Context, resource string) []models.Record
	Get(ctx context.Context, resource, id string) (models.Record, error)
	Find(ctx context.Context, resource string, where map[string]any) []models.Record
	Upsert(ctx context.Context, resource string, rec models.Record) (models.Record, error)
	Delete(ctx context.Context, resource, id string) (bool, error)
	Update(ctx context.Context, resource, id string, fn RecordMutator) (models.Record, error)
	Modify(ctx context.Context, resource string, fn Mutator) error
}

var resourceName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateResource rejects names that could escape the collection namespace.
func ValidateResource(resource string) error {
	if !resourceName.MatchString(resource) {
		return fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}
	return nil
}

// Filter returns the records matching every key of where.
func Filter(items []models.Record, where map[string]any) []models.Record {
	out := make([]models.Record, 0, len(items))
	for _, it := range items {
		if Matches(it, where) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether rec satisfies the exact-match conjunction in where.
// A nil filter value matches a missing or null field; any other value requires
// the field to be present and equal.
func Matches(rec models.Record, where map[string]any) bool {
	for k, want := range where {
		got, ok := rec[k]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}

// Equal compares decoded JSON values, treating numbers by value.
func Equal(a, b any) bool {
	fa, aNum := models.ToFloat(a)
	fb, bNum := models.ToFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := asMap(b)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case models.Record:
		return Equal(map[string]any(av), b)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case models.Record:
		return m, true
	}
	return nil, false
}

// Stamp returns a copy of rec with store-managed fields filled in. existing is
// the stored record with the same id, or nil when rec is new.
func Stamp(resource string, rec, existing models.Record, now int64) models.Record {
	out := rec.Clone()
	switch {
	case out.ID() == "":
		out[models.FieldID] = ids.NewID(resource)
		out[models.FieldCreatedAt] = now
	case !out.Has(models.FieldCreatedAt):
		if existing != nil && existing.Has(models.FieldCreatedAt) {
			out[models.FieldCreatedAt] = existing[models.FieldCreatedAt]
		} else {
			out[models.FieldCreatedAt] = now
		}
	}
	out[models.FieldUpdatedAt] = now
	return out
}
