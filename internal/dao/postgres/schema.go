package postgres

import (
	"context"
	"fmt"

	dbutil "github.com/flarebyte/tracker-snapshot/internal/dao/dbutil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureArchiveSchema creates the archive schema and tables if missing.
// It does not require superuser privileges.
func EnsureArchiveSchema(ctx context.Context, db *pgxpool.Pool, schema string) error {
	sid := pgx.Identifier{schema}.Sanitize()
	qual := func(tbl string) string { return pgx.Identifier{schema, tbl}.Sanitize() }
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, sid),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            name TEXT PRIMARY KEY,
            run_id TEXT NOT NULL DEFAULT '',
            source TEXT NOT NULL DEFAULT '',
            description TEXT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`, qual("archives")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            archive TEXT NOT NULL REFERENCES %s(name) ON DELETE CASCADE,
            entity_type TEXT NOT NULL,
            record_count INTEGER NOT NULL,
            written_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (archive, entity_type)
        )`, qual("collections"), qual("archives")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            archive TEXT NOT NULL,
            entity_type TEXT NOT NULL,
            position INTEGER NOT NULL,
            original_id TEXT NOT NULL,
            parent_ref TEXT NOT NULL DEFAULT '',
            payload JSONB NOT NULL,
            PRIMARY KEY (archive, entity_type, position),
            FOREIGN KEY (archive, entity_type) REFERENCES %s(archive, entity_type) ON DELETE CASCADE
        )`, qual("entity_records"), qual("collections")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_entity_records_original ON %s(archive, entity_type, original_id)`, qual("entity_records")),
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return dbutil.ErrWrap("archive.schema.ensure", err, dbutil.ParamSummary("schema", schema))
		}
	}
	return nil
}
