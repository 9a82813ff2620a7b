// Package filestore keeps an archive as a directory of JSON files, one per
// entity type, plus a manifest.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

const (
	manifestFile  = "manifest.json"
	collectionExt = ".json"
)

var typeNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Store is a backup.RecordStore rooted at one archive directory.
type Store struct {
	dir string
}

var (
	_ backup.RecordStore   = (*Store)(nil)
	_ backup.Cataloger     = (*Store)(nil)
	_ backup.ManifestStore = (*Store)(nil)
)

// Open returns a store for dir. The directory is created on first write.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("filestore: archive directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve %s: %w", dir, err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(typeName string) (string, error) {
	if !typeNameRe.MatchString(typeName) {
		return "", fmt.Errorf("filestore: invalid type name %q", typeName)
	}
	return filepath.Join(s.dir, typeName+collectionExt), nil
}

// Write replaces the collection file atomically. An empty slice is written as
// "[]", so an empty collection stays distinguishable from a missing one.
func (s *Store) Write(ctx context.Context, typeName string, records []backup.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(typeName)
	if err != nil {
		return err
	}
	if records == nil {
		records = []backup.Record{}
	}
	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("filestore: encode %s: %w", typeName, err)
	}
	return atomicWriteFile(p, data, 0o644)
}

// Read loads a collection. A missing file reports ok=false.
func (s *Store) Read(ctx context.Context, typeName string) ([]backup.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p, err := s.path(typeName)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("filestore: read %s: %w", typeName, err)
	}
	var recs []backup.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, false, fmt.Errorf("filestore: decode %s: %w", typeName, err)
	}
	if recs == nil {
		recs = []backup.Record{}
	}
	return recs, true, nil
}

// Collections lists the collection files in the archive directory.
func (s *Store) Collections(ctx context.Context) ([]backup.CollectionInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("filestore: list %s: %w", s.dir, err)
	}
	var out []backup.CollectionInfo
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == manifestFile || !strings.HasSuffix(name, collectionExt) {
			continue
		}
		typeName := strings.TrimSuffix(name, collectionExt)
		if !typeNameRe.MatchString(typeName) {
			continue
		}
		recs, ok, err := s.Read(ctx, typeName)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, backup.CollectionInfo{Type: typeName, Count: len(recs)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// WriteManifest writes manifest.json.
func (s *Store) WriteManifest(ctx context.Context, m backup.Manifest) error {
	data, err := encode(m)
	if err != nil {
		return fmt.Errorf("filestore: encode manifest: %w", err)
	}
	return atomicWriteFile(filepath.Join(s.dir, manifestFile), data, 0o644)
}

// ReadManifest reads manifest.json, ok=false if missing.
func (s *Store) ReadManifest(ctx context.Context) (backup.Manifest, bool, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return backup.Manifest{}, false, nil
		}
		return backup.Manifest{}, false, fmt.Errorf("filestore: read manifest: %w", err)
	}
	var m backup.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return backup.Manifest{}, false, fmt.Errorf("filestore: decode manifest: %w", err)
	}
	return m, true, nil
}

// Delete removes the archive directory.
func (s *Store) Delete() error {
	if _, err := os.Stat(filepath.Join(s.dir, manifestFile)); err != nil {
		return fmt.Errorf("filestore: %s is not an archive: %w", s.dir, err)
	}
	return os.RemoveAll(s.dir)
}

// encode renders v as stable, indented JSON with a trailing newline.
// HTML escaping is off so payload text round-trips unchanged.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// atomicWriteFile writes to a temp file in the same directory, syncs it and
// renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp to final: %w", err)
	}
	success = true
	return nil
}
