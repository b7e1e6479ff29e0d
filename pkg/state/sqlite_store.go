package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

const revisionsSchema = `
CREATE TABLE IF NOT EXISTS revisions (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	document    TEXT NOT NULL,
	snapshot_id TEXT NOT NULL UNIQUE,
	etag        TEXT NOT NULL,
	version     TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	extra       TEXT,
	payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS revisions_document ON revisions(document, seq);
`

// SQLiteStore keeps revisions in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	own bool
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA busy_timeout=10000", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("state: %s: %w", pragma, err)
		}
	}
	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.own = true
	return store, nil
}

// NewSQLiteStore uses an existing database handle and creates the schema.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, &errdefs.MissingRequiredFieldError{Op: "state", Field: "database"}
	}
	if _, err := db.ExecContext(ctx, revisionsSchema); err != nil {
		return nil, fmt.Errorf("state: create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.own {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, ref Ref) (snapshot.Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, etag, version, updated_at, extra, payload
		FROM revisions WHERE document = ? ORDER BY seq DESC LIMIT 1`, key)
	out, meta, err := scanRevision(row, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, err
	}
	return out, meta, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, ref Ref, snap snapshot.Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	out, payload, err := newRevision(snap, meta, s.now())
	if err != nil {
		return Meta{}, err
	}
	extra, err := encodeExtra(out.Extra)
	if err != nil {
		return Meta{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("state: begin: %w", err)
	}
	defer tx.Rollback()

	var latest string
	err = tx.QueryRowContext(ctx, `SELECT etag FROM revisions WHERE document = ? ORDER BY seq DESC LIMIT 1`, key).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Meta{}, fmt.Errorf("state: read latest etag: %w", err)
	}
	if err := checkETag(meta.ETag, latest); err != nil {
		return Meta{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO revisions (document, snapshot_id, etag, version, updated_at, extra, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, out.SnapshotID, out.ETag, out.Version, out.UpdatedAt.Format(time.RFC3339Nano), extra, payload)
	if err != nil {
		return Meta{}, fmt.Errorf("state: insert revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Meta{}, fmt.Errorf("state: commit: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Revision(ctx context.Context, ref Ref, snapshotID string) (snapshot.Snapshot, Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, etag, version, updated_at, extra, payload
		FROM revisions WHERE document = ? AND snapshot_id = ?`, key, snapshotID)
	out, meta, err := scanRevision(row, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Meta{}, errdefs.ErrNotFound
	}
	return out, meta, err
}

func (s *SQLiteStore) History(ctx context.Context, ref Ref, limit int) ([]Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, err
	}
	query := `SELECT snapshot_id, etag, version, updated_at, extra FROM revisions WHERE document = ? ORDER BY seq DESC`
	args := []any{key}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("state: history: %w", err)
	}
	defer rows.Close()

	var out []Meta
	for rows.Next() {
		var meta Meta
		var updated string
		var extra sql.NullString
		if err := rows.Scan(&meta.SnapshotID, &meta.ETag, &meta.Version, &updated, &extra); err != nil {
			return nil, fmt.Errorf("state: history: %w", err)
		}
		if err := decodeMeta(&meta, updated, extra); err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

func scanRevision(row *sql.Row, key string) (snapshot.Snapshot, Meta, error) {
	var meta Meta
	var updated string
	var extra sql.NullString
	var payload []byte
	if err := row.Scan(&meta.SnapshotID, &meta.ETag, &meta.Version, &updated, &extra, &payload); err != nil {
		return nil, Meta{}, err
	}
	if err := decodeMeta(&meta, updated, extra); err != nil {
		return nil, Meta{}, err
	}
	out, err := snapshot.Decode(payload, key)
	if err != nil {
		return nil, Meta{}, err
	}
	return out, meta, nil
}

func decodeMeta(meta *Meta, updated string, extra sql.NullString) error {
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return fmt.Errorf("state: parse updated_at: %w", err)
	}
	meta.UpdatedAt = t
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return fmt.Errorf("state: decode extra: %w", err)
		}
	}
	return nil
}

func encodeExtra(extra map[string]string) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("state: encode extra: %w", err)
	}
	return string(payload), nil
}
