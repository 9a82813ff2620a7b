package app

import (
	"context"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// Save runs the save pipeline into store and then records the manifest.
// The manifest lists every collection of the archive, including those kept
// from earlier saves into the same archive.
func Save(ctx context.Context, rc backup.RunContext, src backup.Source, store ArchiveStore, source, description string) (*backup.Report, error) {
	rep, err := backup.CreateBackup(ctx, rc, src, store)
	if err != nil {
		return rep, err
	}
	m := backup.ManifestFromReport(rep, source, description)
	cols, err := store.Collections(ctx)
	if err != nil {
		return rep, &backup.StoreError{Type: "archive", Phase: backup.PhaseSave, Op: "collections", Err: err}
	}
	m.Collections = cols
	if err := store.WriteManifest(ctx, m); err != nil {
		return rep, &backup.StoreError{Type: "archive", Phase: backup.PhaseSave, Op: "manifest", Err: err}
	}
	return rep, nil
}
