package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	dbutil "github.com/flarebyte/tracker-snapshot/internal/dao/dbutil"
	"github.com/jackc/pgx/v5"
)

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

// Archive returns the store for the named archive. Nothing is written until
// the first Write or WriteManifest.
func (b *Backend) Archive(name string) *ArchiveStore {
	return &ArchiveStore{b: b, name: name}
}

func (b *Backend) table(name string) string {
	return pgx.Identifier{b.schema, name}.Sanitize()
}

// Write replaces one collection inside a single transaction. The collections
// row is written even for an empty slice.
func (s *ArchiveStore) Write(ctx context.Context, typeName string, records []backup.Record) error {
	b := s.b
	tx, err := b.db.Begin(ctx)
	if err != nil {
		return dbutil.ErrWrap("archive.write.begin", err, dbutil.ParamSummary("archive", s.name))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO `+b.table("archives")+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, s.name); err != nil {
		return dbutil.ErrWrap("archive.write.archive", err, dbutil.ParamSummary("archive", s.name))
	}
	if _, err := tx.Exec(ctx, `DELETE FROM `+b.table("collections")+` WHERE archive=$1 AND entity_type=$2`, s.name, typeName); err != nil {
		return dbutil.ErrWrap("archive.write.clear", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+b.table("collections")+` (archive, entity_type, record_count) VALUES ($1, $2, $3)`, s.name, typeName, len(records)); err != nil {
		return dbutil.ErrWrap("archive.write.collection", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	if len(records) > 0 {
		batch := &pgx.Batch{}
		q := `INSERT INTO ` + b.table("entity_records") + ` (archive, entity_type, position, original_id, parent_ref, payload)
              VALUES ($1, $2, $3, $4, $5, $6::jsonb)`
		for i, r := range records {
			batch.Queue(q, s.name, typeName, i, r.OriginalID, r.ParentRef, string(r.Payload))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return dbutil.ErrWrap("archive.write.records", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName), dbutil.ParamSummary("records", records))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return dbutil.ErrWrap("archive.write.commit", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	return nil
}

// Read loads one collection in write order. ok=false when no collections row
// exists.
func (s *ArchiveStore) Read(ctx context.Context, typeName string) ([]backup.Record, bool, error) {
	b := s.b
	var count int
	err := b.db.QueryRow(ctx, `SELECT record_count FROM `+b.table("collections")+` WHERE archive=$1 AND entity_type=$2`, s.name, typeName).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dbutil.ErrWrap("archive.read.collection", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	rows, err := b.db.Query(ctx, `SELECT original_id, parent_ref, payload::text FROM `+b.table("entity_records")+`
          WHERE archive=$1 AND entity_type=$2 ORDER BY position`, s.name, typeName)
	if err != nil {
		return nil, false, dbutil.ErrWrap("archive.read.records", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("type", typeName))
	}
	defer rows.Close()
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
	b := s.b
	rows, err := b.db.Query(ctx, `SELECT entity_type, record_count FROM `+b.table("collections")+` WHERE archive=$1 ORDER BY entity_type`, s.name)
	if err != nil {
		return nil, dbutil.ErrWrap("archive.collections", err, dbutil.ParamSummary("archive", s.name))
	}
	defer rows.Close()
	var out []backup.CollectionInfo
	for rows.Next() {
		var c backup.CollectionInfo
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, dbutil.ErrWrap("archive.collections.scan", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbutil.ErrWrap("archive.collections", err, dbutil.ParamSummary("archive", s.name))
	}
	return out, nil
}

// WriteManifest records the archive metadata.
func (s *ArchiveStore) WriteManifest(ctx context.Context, m backup.Manifest) error {
	b := s.b
	var desc *string
	if m.Description != "" {
		desc = &m.Description
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := `INSERT INTO ` + b.table("archives") + ` (name, run_id, source, description, created_at)
          VALUES ($1, $2, $3, $4, $5)
          ON CONFLICT (name) DO UPDATE SET run_id=EXCLUDED.run_id, source=EXCLUDED.source,
              description=EXCLUDED.description, created_at=EXCLUDED.created_at`
	if _, err := b.db.Exec(ctx, q, s.name, m.RunID, m.Source, desc, created); err != nil {
		return dbutil.ErrWrap("archive.manifest.write", err, dbutil.ParamSummary("archive", s.name), dbutil.ParamSummary("desc", desc))
	}
	return nil
}

// ReadManifest returns the archive metadata with its collections.
func (s *ArchiveStore) ReadManifest(ctx context.Context) (backup.Manifest, bool, error) {
	b := s.b
	var m backup.Manifest
	var desc *string
	err := b.db.QueryRow(ctx, `SELECT run_id, source, description, created_at FROM `+b.table("archives")+` WHERE name=$1`, s.name).
		Scan(&m.RunID, &m.Source, &desc, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return backup.Manifest{}, false, nil
	}
	if err != nil {
		return backup.Manifest{}, false, dbutil.ErrWrap("archive.manifest.read", err, dbutil.ParamSummary("archive", s.name))
	}
	if desc != nil {
		m.Description = *desc
	}
	if m.Collections, err = s.Collections(ctx); err != nil {
		return backup.Manifest{}, false, err
	}
	return m, true, nil
}

// List returns every archive, newest first.
func (b *Backend) List(ctx context.Context) ([]backup.ArchiveInfo, error) {
	q := `SELECT a.name, a.run_id, a.source, a.description, a.created_at,
                 COUNT(c.entity_type), COALESCE(SUM(c.record_count), 0)
          FROM ` + b.table("archives") + ` a
          LEFT JOIN ` + b.table("collections") + ` c ON c.archive = a.name
          GROUP BY a.name ORDER BY a.created_at DESC`
	rows, err := b.db.Query(ctx, q)
	if err != nil {
		return nil, dbutil.ErrWrap("archive.list", err, dbutil.ParamSummary("schema", b.schema))
	}
	defer rows.Close()
	var out []backup.ArchiveInfo
	for rows.Next() {
		var a backup.ArchiveInfo
		var desc *string
		var records int64
		if err := rows.Scan(&a.Name, &a.RunID, &a.Source, &desc, &a.CreatedAt, &a.Types, &records); err != nil {
			return nil, dbutil.ErrWrap("archive.list.scan", err)
		}
		if desc != nil {
			a.Description = *desc
		}
		a.Records = int(records)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbutil.ErrWrap("archive.list", err, dbutil.ParamSummary("schema", b.schema))
	}
	return out, nil
}

// Delete removes an archive and, by cascade, its collections and records.
func (b *Backend) Delete(ctx context.Context, name string) (bool, error) {
	ct, err := b.db.Exec(ctx, `DELETE FROM `+b.table("archives")+` WHERE name=$1`, name)
	if err != nil {
		return false, dbutil.ErrWrap("archive.delete", err, dbutil.ParamSummary("schema", b.schema), dbutil.ParamSummary("name", name))
	}
	return ct.RowsAffected() > 0, nil
}
