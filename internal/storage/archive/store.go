// Package archive stores each resource as a JSON array file inside an
// archive directory. Every write rewrites the whole file through a temp file
// and an atomic rename.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/storage"
)

// Ensure Store satisfies the storage.CollectionStore interface at compile time.
var _ storage.CollectionStore = (*Store)(nil)

// Store provides file-backed persistence for record collections.
//
// Writers within one process are serialized per resource. Separate processes
// sharing a directory are not coordinated; the last rename wins.
type Store struct {
	dir   string
	clock ids.Clock
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// beforeRename runs after the temp file is written and synced.
	beforeRename func(tmpPath string)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(c ids.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger used for swallowed read errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates the archive directory if needed and returns a Store rooted at it.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	s := &Store{
		dir:   dir,
		clock: ids.SystemClock{},
		log:   slog.Default(),
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(resource string) string {
	return filepath.Join(s.dir, resource+".json")
}

func (s *Store) lock(resource string) func() {
	s.mu.Lock()
	l, ok := s.locks[resource]
	if !ok {
		l = &sync.Mutex{}
		s.locks[resource] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// List returns every record of resource in file order.
func (s *Store) List(_ context.Context, resource string) []models.Record {
	return s.load(resource)
}

// Get returns the record with the given id.
func (s *Store) Get(_ context.Context, resource, id string) (models.Record, error) {
	if id == "" {
		return nil, storage.ErrNotFound
	}
	for _, it := range s.load(resource) {
		if it.ID() == id {
			return it, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Find returns the records matching every key of where.
func (s *Store) Find(_ context.Context, resource string, where map[string]any) []models.Record {
	return storage.Filter(s.load(resource), where)
}

// Upsert replaces the record with the same id in place, or appends it.
func (s *Store) Upsert(_ context.Context, resource string, rec models.Record) (models.Record, error) {
	if err := storage.ValidateResource(resource); err != nil {
		return nil, err
	}
	unlock := s.lock(resource)
	defer unlock()

	out, err := s.put(resource, s.load(resource), rec)
	if err != nil {
		return nil, &storage.WriteError{Resource: resource, Op: "upsert", Err: err}
	}
	return out, nil
}

// Update runs fn on the current record with id and persists its result, all
// under the resource lock.
func (s *Store) Update(_ context.Context, resource, id string, fn storage.RecordMutator) (models.Record, error) {
	if err := storage.ValidateResource(resource); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("update %s: empty id: %w", resource, storage.ErrNotFound)
	}
	unlock := s.lock(resource)
	defer unlock()

	items := s.load(resource)
	var existing models.Record
	if i := indexOf(items, id); i >= 0 {
		existing = items[i].Clone()
	}
	rec, err := fn(existing)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()
	rec[models.FieldID] = id

	out, err := s.put(resource, items, rec)
	if err != nil {
		return nil, &storage.WriteError{Resource: resource, Op: "update", Err: err}
	}
	return out, nil
}

// put stamps rec, places it into items and saves the collection.
func (s *Store) put(resource string, items []models.Record, rec models.Record) (models.Record, error) {
	idx := indexOf(items, rec.ID())
	var existing models.Record
	if idx >= 0 {
		existing = items[idx]
	}
	out := storage.Stamp(resource, rec, existing, s.clock.NowMS())
	if idx >= 0 {
		items[idx] = out
	} else {
		items = append(items, out)
	}
	if err := s.save(resource, items); err != nil {
		return nil, err
	}
	return out, nil
}

func indexOf(items []models.Record, id string) int {
	if id == "" {
		return -1
	}
	for i, it := range items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

// Delete removes the record with the given id. It reports whether anything was removed.
func (s *Store) Delete(_ context.Context, resource, id string) (bool, error) {
	if err := storage.ValidateResource(resource); err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}
	unlock := s.lock(resource)
	defer unlock()

	items := s.load(resource)
	out := items[:0]
	for _, it := range items {
		if it.ID() != id {
			out = append(out, it)
		}
	}
	if len(out) == len(items) {
		return false, nil
	}
	if err := s.save(resource, out); err != nil {
		return false, &storage.WriteError{Resource: resource, Op: "delete", Err: err}
	}
	return true, nil
}

// Modify hands the full collection to fn and saves the result when fn reports a change.
func (s *Store) Modify(_ context.Context, resource string, fn storage.Mutator) error {
	if err := storage.ValidateResource(resource); err != nil {
		return err
	}
	unlock := s.lock(resource)
	defer unlock()

	out, changed := fn(s.load(resource))
	if !changed {
		return nil
	}
	if err := s.save(resource, out); err != nil {
		return &storage.WriteError{Resource: resource, Op: "modify", Err: err}
	}
	return nil
}

func (s *Store) load(resource string) []models.Record {
	if storage.ValidateResource(resource) != nil {
		return []models.Record{}
	}
	p := s.path(resource)
	data, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("archive read failed; treating collection as empty", "resource", resource, "error", err)
		}
		return []models.Record{}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		s.log.Warn("archive file is malformed; treating collection as empty", "resource", resource, "error", err)
		return []models.Record{}
	}
	arr, ok := raw.([]any)
	if !ok {
		s.log.Warn("archive file is not an array; treating collection as empty", "resource", resource)
		return []models.Record{}
	}

	items := make([]models.Record, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			items = append(items, models.Record(m))
		}
	}
	return items
}

func (s *Store) save(resource string, items []models.Record) error {
	if items == nil {
		items = []models.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, resource+".json.tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if s.beforeRename != nil {
		s.beforeRename(tmpPath)
	}

	if err := os.Rename(tmpPath, s.path(resource)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace collection file: %w", err)
	}
	return nil
}
