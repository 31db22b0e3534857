package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/record-archive/internal/ids"
	"github.com/hongminglow/record-archive/internal/models"
	"github.com/hongminglow/record-archive/internal/storage"
)

// Ensure Store satisfies the storage.CollectionStore interface at compile time.
var _ storage.CollectionStore = (*Store)(nil)

// Store keeps record collections in a single JSONB table. Writes to one
// resource are serialized with a transaction-scoped advisory lock.
type Store struct {
	pool  *pgxpool.Pool
	clock ids.Clock
	log   *slog.Logger
}

// NewStore connects to Postgres and runs migrations.
func NewStore(ctx context.Context, databaseURL string, log *slog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	s := &Store{pool: pool, clock: ids.SystemClock{}, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS archive_records (
			resource TEXT NOT NULL,
			id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			doc JSONB NOT NULL,
			PRIMARY KEY (resource, id)
		);`,
		`CREATE INDEX IF NOT EXISTS archive_records_seq_idx ON archive_records (resource, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// List returns every record of resource in insertion order.
func (s *Store) List(ctx context.Context, resource string) []models.Record {
	items, err := listRecords(ctx, s.pool, resource)
	if err != nil {
		s.log.Warn("archive read failed; treating collection as empty", "resource", resource, "error", err)
		return []models.Record{}
	}
	return items
}

// Get fetches a record by id.
func (s *Store) Get(ctx context.Context, resource, id string) (models.Record, error) {
	if id == "" {
		return nil, storage.ErrNotFound
	}
	const query = `SELECT doc FROM archive_records WHERE resource = $1 AND id = $2;`
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, resource, id).Scan(&raw); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn("archive read failed", "resource", resource, "id", id, "error", err)
		}
		return nil, storage.ErrNotFound
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		s.log.Warn("archive record is malformed", "resource", resource, "id", id, "error", err)
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

// Find filters the collection in memory; collections are small.
func (s *Store) Find(ctx context.Context, resource string, where map[string]any) []models.Record {
	return storage.Filter(s.List(ctx, resource), where)
}

// Upsert replaces the record with the same id in place, or appends it.
func (s *Store) Upsert(ctx context.Context, resource string, rec models.Record) (models.Record, error) {
	if err := storage.ValidateResource(resource); err != nil {
		return nil, err
	}
	var out models.Record
	err := s.withResourceTx(ctx, resource, func(tx pgx.Tx) error {
		var existing models.Record
		if id := rec.ID(); id != "" {
			var err error
			if existing, err = selectRecord(ctx, tx, resource, id); err != nil {
				return err
			}
		}
		var err error
		out, err = s.put(ctx, tx, resource, rec, existing)
		return err
	})
	if err != nil {
		return nil, &storage.WriteError{Resource: resource, Op: "upsert", Err: err}
	}
	return out, nil
}

// Update runs fn on the current record with id and persists its result
// inside the collection's transaction.
func (s *Store) Update(ctx context.Context, resource, id string, fn storage.RecordMutator) (models.Record, error) {
	if err := storage.ValidateResource(resource); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("update %s: empty id: %w", resource, storage.ErrNotFound)
	}
	var (
		out   models.Record
		fnErr error
	)
	err := s.withResourceTx(ctx, resource, func(tx pgx.Tx) error {
		existing, err := selectRecord(ctx, tx, resource, id)
		if err != nil {
			return err
		}
		var arg models.Record
		if existing != nil {
			arg = existing.Clone()
		}
		rec, err := fn(arg)
		if err != nil {
			fnErr = err
			return err
		}
		rec = rec.Clone()
		rec[models.FieldID] = id
		out, err = s.put(ctx, tx, resource, rec, existing)
		return err
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, &storage.WriteError{Resource: resource, Op: "update", Err: err}
	}
	return out, nil
}

// selectRecord returns the stored record or nil when absent.
func selectRecord(ctx context.Context, tx pgx.Tx, resource, id string) (models.Record, error) {
	var raw []byte
	err := tx.QueryRow(ctx, `SELECT doc FROM archive_records WHERE resource = $1 AND id = $2;`, resource, id).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	rec, _ := decodeRecord(raw)
	if rec == nil {
		rec = models.Record{}
	}
	return rec, nil
}

// put stamps rec and writes it over existing, or appends it when existing is nil.
func (s *Store) put(ctx context.Context, tx pgx.Tx, resource string, rec, existing models.Record) (models.Record, error) {
	out := storage.Stamp(resource, rec, existing, s.clock.NowMS())
	doc, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	if existing != nil {
		_, err = tx.Exec(ctx, `UPDATE archive_records SET doc = $3::jsonb WHERE resource = $1 AND id = $2;`, resource, out.ID(), string(doc))
		return out, err
	}
	const insert = `
		INSERT INTO archive_records (resource, id, seq, doc)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3::jsonb
		FROM archive_records WHERE resource = $1;
	`
	_, err = tx.Exec(ctx, insert, resource, out.ID(), string(doc))
	return out, err
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, resource, id string) (bool, error) {
	if err := storage.ValidateResource(resource); err != nil {
		return false, err
	}
	var removed bool
	err := s.withResourceTx(ctx, resource, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM archive_records WHERE resource = $1 AND id = $2;`, resource, id)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, &storage.WriteError{Resource: resource, Op: "delete", Err: err}
	}
	return removed, nil
}

// Modify rewrites the whole collection inside one transaction.
func (s *Store) Modify(ctx context.Context, resource string, fn storage.Mutator) error {
	if err := storage.ValidateResource(resource); err != nil {
		return err
	}
	err := s.withResourceTx(ctx, resource, func(tx pgx.Tx) error {
		items, err := listRecords(ctx, tx, resource)
		if err != nil {
			return err
		}
		out, changed := fn(items)
		if !changed {
			return nil
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM archive_records WHERE resource = $1;`, resource)
		for i, rec := range out {
			if rec.ID() == "" {
				rec[models.FieldID] = ids.NewID(resource)
			}
			doc, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
			batch.Queue(`INSERT INTO archive_records (resource, id, seq, doc) VALUES ($1, $2, $3, $4::jsonb);`,
				resource, rec.ID(), int64(i+1), string(doc))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return &storage.WriteError{Resource: resource, Op: "modify", Err: err}
	}
	return nil
}

func (s *Store) withResourceTx(ctx context.Context, resource string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, resource); err != nil {
		return fmt.Errorf("lock collection: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listRecords(ctx context.Context, q querier, resource string) ([]models.Record, error) {
	rows, err := q.Query(ctx, `SELECT doc FROM archive_records WHERE resource = $1 ORDER BY seq;`, resource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Record{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			continue
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func decodeRecord(raw []byte) (models.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("record is not an object")
	}
	return models.Record(m), nil
}
