// Package app wires configuration, stores and tracker clients into the
// backup engine for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/flarebyte/tracker-snapshot/internal/config"
	"github.com/flarebyte/tracker-snapshot/internal/dao/filestore"
	"github.com/flarebyte/tracker-snapshot/internal/dao/postgres"
	"github.com/flarebyte/tracker-snapshot/internal/dao/sqlite"
)

// ArchiveStore is one named archive held by a backend.
type ArchiveStore interface {
	backup.RecordStore
	backup.Cataloger
	backup.ManifestStore
}

// Backend holds a set of named archives.
type Backend interface {
	Archive(name string) (ArchiveStore, error)
	List(ctx context.Context) ([]backup.ArchiveInfo, error)
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}

// ErrArchiveNotFound is returned when a named archive does not exist.
var ErrArchiveNotFound = errors.New("archive not found")

// OpenBackend opens the store selected by store.kind.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Kind {
	case config.StoreFile, "":
		return &fileBackend{dir: cfg.Dir}, nil
	case config.StorePostgres:
		b, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return pgBackend{b}, nil
	case config.StoreSQLite:
		b, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return sqliteBackend{b}, nil
	}
	return nil, fmt.Errorf("store.kind: unknown store %q", cfg.Kind)
}

// fileBackend keeps each archive in a subdirectory of dir. A name holding a
// path separator is used as a directory path as is.
type fileBackend struct {
	dir string
}

func (f *fileBackend) path(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) || strings.HasPrefix(name, ".") {
		return name
	}
	return filepath.Join(f.dir, name)
}

func (f *fileBackend) Archive(name string) (ArchiveStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("archive name is required")
	}
	return filestore.Open(f.path(name))
}

func (f *fileBackend) List(ctx context.Context) ([]backup.ArchiveInfo, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list archives in %s: %w", f.dir, err)
	}
	var out []backup.ArchiveInfo
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		st, err := filestore.Open(filepath.Join(f.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		m, ok, err := st.ReadManifest(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, backup.InfoFromManifest(e.Name(), m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fileBackend) Delete(ctx context.Context, name string) (bool, error) {
	st, err := filestore.Open(f.path(name))
	if err != nil {
		return false, err
	}
	if _, ok, err := st.ReadManifest(ctx); err != nil || !ok {
		return false, err
	}
	if err := st.Delete(); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fileBackend) Close() error { return nil }

type pgBackend struct{ *postgres.Backend }

func (b pgBackend) Archive(name string) (ArchiveStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("archive name is required")
	}
	return b.Backend.Archive(name), nil
}

func (b pgBackend) Close() error {
	b.Backend.Close()
	return nil
}

type sqliteBackend struct{ *sqlite.Backend }

func (b sqliteBackend) Archive(name string) (ArchiveStore, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("archive name is required")
	}
	return b.Backend.Archive(name), nil
}

// OpenExisting returns the named archive, failing when it has no manifest.
func OpenExisting(ctx context.Context, b Backend, name string) (ArchiveStore, backup.Manifest, error) {
	st, err := b.Archive(name)
	if err != nil {
		return nil, backup.Manifest{}, err
	}
	m, ok, err := st.ReadManifest(ctx)
	if err != nil {
		return nil, backup.Manifest{}, err
	}
	if !ok {
		return nil, backup.Manifest{}, fmt.Errorf("%w: %s", ErrArchiveNotFound, name)
	}
	return st, m, nil
}
