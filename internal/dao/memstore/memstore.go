// Package memstore keeps archive collections in memory. It backs dry runs
// and tests.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// Store is an in-memory backup.RecordStore.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]backup.Record
	writes      map[string]int
	manifest    *backup.Manifest
}

var (
	_ backup.RecordStore   = (*Store)(nil)
	_ backup.Cataloger     = (*Store)(nil)
	_ backup.ManifestStore = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{collections: map[string][]backup.Record{}, writes: map[string]int{}}
}

// Write replaces the collection for typeName. An empty slice is stored as an
// empty collection.
func (s *Store) Write(ctx context.Context, typeName string, records []backup.Record) error {
	cp := make([]backup.Record, len(records))
	for i, r := range records {
		cp[i] = cloneRecord(r)
	}
	s.mu.Lock()
	s.collections[typeName] = cp
	s.writes[typeName]++
	s.mu.Unlock()
	return nil
}

// Read returns the collection, ok=false if it was never written.
func (s *Store) Read(ctx context.Context, typeName string) ([]backup.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.collections[typeName]
	if !ok {
		return nil, false, nil
	}
	out := make([]backup.Record, len(recs))
	for i, r := range recs {
		out[i] = cloneRecord(r)
	}
	return out, true, nil
}

// Collections lists stored collections sorted by type.
func (s *Store) Collections(ctx context.Context) ([]backup.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]backup.CollectionInfo, 0, len(s.collections))
	for t, recs := range s.collections {
		out = append(out, backup.CollectionInfo{Type: t, Count: len(recs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// Writes returns how many times typeName was written.
func (s *Store) Writes(typeName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[typeName]
}

// Encode returns the collection as indented JSON, for comparing runs.
func (s *Store) Encode(typeName string) ([]byte, bool) {
	recs, ok, _ := s.Read(context.Background(), typeName)
	if !ok {
		return nil, false
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, false
	}
	return b, true
}

func cloneRecord(r backup.Record) backup.Record {
	if r.Payload != nil {
		p := make(json.RawMessage, len(r.Payload))
		copy(p, r.Payload)
		r.Payload = p
	}
	return r
}

// WriteManifest keeps the manifest in memory.
func (s *Store) WriteManifest(ctx context.Context, m backup.Manifest) error {
	s.mu.Lock()
	s.manifest = &m
	s.mu.Unlock()
	return nil
}

// ReadManifest returns the last written manifest.
func (s *Store) ReadManifest(ctx context.Context) (backup.Manifest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return backup.Manifest{}, false, nil
	}
	return *s.manifest, true, nil
}
