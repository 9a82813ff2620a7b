// Package sqlite keeps archives in a single SQLite file using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	dbutil "github.com/flarebyte/tracker-snapshot/internal/dao/dbutil"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout has a fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS archives (
    name TEXT PRIMARY KEY,
    run_id TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    description TEXT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS collections (
    archive TEXT NOT NULL REFERENCES archives(name) ON DELETE CASCADE,
    entity_type TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    PRIMARY KEY (archive, entity_type)
);
CREATE TABLE IF NOT EXISTS entity_records (
    archive TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    position INTEGER NOT NULL,
    original_id TEXT NOT NULL,
    parent_ref TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    PRIMARY KEY (archive, entity_type, position),
    FOREIGN KEY (archive, entity_type) REFERENCES collections(archive, entity_type) ON DELETE CASCADE
);
`

// Backend holds every archive kept in one database file.
type Backend struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(ctx context.Context, path string) (*Backend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, dbutil.ErrWrap("archive.schema.ensure", err, dbutil.ParamSummary("path", path))
	}
	return &Backend{db: db}, nil
}

// Close closes the database.
func (b *Backend) Close() error { return b.db.Close() }

// ArchiveStore is the backup.RecordStore view of one named archive.
type ArchiveStore struct {
	b    *Backend
	name string
}

var (
	_ backup.RecordStore   = (*ArchiveStore)(nil)
	_ backup.Cataloger     = (*ArchiveStore)(nil)
	_ backup.ManifestStore = (*ArchiveStore)(nil)
)

// Archive returns the store for the named archive.
func (b *Backend) Archive(name string) *ArchiveStore {
	return &ArchiveStore{b: b, name: name}
}

// Write replaces one collection inside a single transaction.
func (s *ArchiveStore) Write(ctx context.Context, typeName string, records []backup.Record) error {
	tx, err := s.b.db.BeginTx(ctx, nil)
	if err != nil {
		return dbutil.ErrWrap("archive.write.begin", err, dbutil.ParamSummary("archive", s.name))
	}
	defer dbutil.Rollback(tx)

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `INSERT INTO archives (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`, s.name, now); err != nil {
		return dbutil.ErrWrap("archive.write.archive", err, dbutil.ParamSummary("archive", s.name))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE archive=? AND entity_type=?`, s.name, typeName); err != nil {
		return dbutil.ErrWrap("archive.write.clear", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO collections (archive, entity_type, record_count) VALUES (?, ?, ?)`, s.name, typeName, len(records)); err != nil {
		return dbutil.ErrWrap("archive.write.collection", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	if len(records) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO entity_records (archive, entity_type, position, original_id, parent_ref, payload) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return dbutil.ErrWrap("archive.write.prepare", err)
		}
		defer func() { _ = stmt.Close() }()
		for i, r := range records {
			if _, err := stmt.ExecContext(ctx, s.name, typeName, i, r.OriginalID, r.ParentRef, string(r.Payload)); err != nil {
				return dbutil.ErrWrap("archive.write.record", err, dbutil.ParamSummary("type", typeName), dbutil.ParamSummary("position", i))
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return dbutil.ErrWrap("archive.write.commit", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	return nil
}

// Read loads one collection in write order. ok=false when no collections row
// exists.
func (s *ArchiveStore) Read(ctx context.Context, typeName string) ([]backup.Record, bool, error) {
	var count int
	err := s.b.db.QueryRowContext(ctx, `SELECT record_count FROM collections WHERE archive=? AND entity_type=?`, s.name, typeName).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dbutil.ErrWrap("archive.read.collection", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	rows, err := s.b.db.QueryContext(ctx, `SELECT original_id, parent_ref, payload FROM entity_records WHERE archive=? AND entity_type=? ORDER BY position`, s.name, typeName)
	if err != nil {
		return nil, false, dbutil.ErrWrap("archive.read.records", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	defer func() { _ = rows.Close() }()
	out := make([]backup.Record, 0, count)
	for rows.Next() {
		var r backup.Record
		var payload string
		if err := rows.Scan(&r.OriginalID, &r.ParentRef, &payload); err != nil {
			return nil, false, dbutil.ErrWrap("archive.read.scan", err)
		}
		r.Payload = []byte(payload)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, dbutil.ErrWrap("archive.read.records", err, dbutil.ParamSummary("archive", s.name))
	}
	return out, true, nil
}

// Collections lists the collections of the archive.
func (s *ArchiveStore) Collections(ctx context.Context) ([]backup.CollectionInfo, error) {
	rows, err := s.b.db.QueryContext(ctx, `SELECT entity_type, record_count FROM collections WHERE archive=? ORDER BY entity_type`, s.name)
	if err != nil {
		return nil, dbutil.ErrWrap("archive.collections", err, dbutil.ParamSummary("archive", s.name))
	}
	defer func() { _ = rows.Close() }()
	var out []backup.CollectionInfo
	for rows.Next() {
		var c backup.CollectionInfo
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, dbutil.ErrWrap("archive.collections.scan", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// WriteManifest records the archive metadata.
func (s *ArchiveStore) WriteManifest(ctx context.Context, m backup.Manifest) error {
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var desc sql.NullString
	if m.Description != "" {
		desc = sql.NullString{String: m.Description, Valid: true}
	}
	_, err := s.b.db.ExecContext(ctx, `INSERT INTO archives (name, run_id, source, description, created_at) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (name) DO UPDATE SET run_id=excluded.run_id, source=excluded.source,
            description=excluded.description, created_at=excluded.created_at`,
		s.name, m.RunID, m.Source, desc, created.UTC().Format(timeLayout))
	return dbutil.ErrWrap("archive.manifest.write", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("desc", desc))
}

// ReadManifest returns the archive metadata with its collections.
func (s *ArchiveStore) ReadManifest(ctx context.Context) (backup.Manifest, bool, error) {
	var m backup.Manifest
	var desc sql.NullString
	var created string
	err := s.b.db.QueryRowContext(ctx, `SELECT run_id, source, description, created_at FROM archives WHERE name=?`, s.name).
		Scan(&m.RunID, &m.Source, &desc, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return backup.Manifest{}, false, nil
	}
	if err != nil {
		return backup.Manifest{}, false, dbutil.ErrWrap("archive.manifest.read", err, dbutil.ParamSummary("archive", s.name))
	}
	m.Description = desc.String
	m.CreatedAt = parseTime(created)
	if m.Collections, err = s.Collections(ctx); err != nil {
		return backup.Manifest{}, false, err
	}
	return m, true, nil
}

// List returns every archive, newest first.
func (b *Backend) List(ctx context.Context) ([]backup.ArchiveInfo, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT a.name, a.run_id, a.source, a.description, a.created_at,
            COUNT(c.entity_type), COALESCE(SUM(c.record_count), 0)
        FROM archives a LEFT JOIN collections c ON c.archive = a.name
        GROUP BY a.name ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, dbutil.ErrWrap("archive.list", err)
	}
	defer func() { _ = rows.Close() }()
	var out []backup.ArchiveInfo
	for rows.Next() {
		var a backup.ArchiveInfo
		var desc sql.NullString
		var created string
		if err := rows.Scan(&a.Name, &a.RunID, &a.Source, &desc, &created, &a.Types, &a.Records); err != nil {
			return nil, dbutil.ErrWrap("archive.list.scan", err)
		}
		a.Description = desc.String
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an archive with its collections and records.
func (b *Backend) Delete(ctx context.Context, name string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM archives WHERE name=?`, name)
	if err != nil {
		return false, dbutil.ErrWrap("archive.delete", err, dbutil.ParamSummary("name", name))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbutil.ErrWrap("archive.delete", err, dbutil.ParamSummary("name", name))
	}
	return n > 0, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
