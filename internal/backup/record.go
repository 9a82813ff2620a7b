package backup

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one archived entity: an opaque payload plus the identifiers the
// engine reads.
type Record struct {
	OriginalID string          `json:"original_id"`
	ParentRef  string          `json:"parent_ref,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// RecordStore persists one ordered collection per entity type.
// Read reports ok=false for a type that was never written, which is distinct
// from a written empty collection.
type RecordStore interface {
	Write(ctx context.Context, typeName string, records []Record) error
	Read(ctx context.Context, typeName string) (records []Record, ok bool, err error)
}

// Scope narrows a fetch to the children of known parents. Sources may ignore it.
type Scope struct {
	ParentType string
	ParentIDs  []string
}

// Source fetches entities of one type from the system being saved.
type Source interface {
	Fetch(ctx context.Context, typeName string, scope *Scope) ([]Record, error)
}

// CreateRequest carries a record to the target along with the target
// identifiers its references were remapped to.
type CreateRequest struct {
	Type   string
	Record Record
	// Parent is the target id of the owning parent, empty for root types.
	Parent string
	// Links maps a link's payload path to the remapped target id.
	Links map[string]string
}

// Target creates entities in the system being restored into.
type Target interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
}

// Updater is the optional update capability of a Target. Implementations
// return ErrUpdateUnsupported for types they cannot update.
type Updater interface {
	Update(ctx context.Context, targetID string, req CreateRequest) error
}

// KeyLister is the optional capability of a Target to list the uniqueness
// keys already present for a keyed type, mapped to their target ids.
type KeyLister interface {
	ExistingKeys(ctx context.Context, typeName string) (map[string]string, error)
}

// CollectionInfo summarises one stored collection.
type CollectionInfo struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Cataloger is implemented by stores able to list their collections.
type Cataloger interface {
	Collections(ctx context.Context) ([]CollectionInfo, error)
}

// Manifest describes one saved archive.
type Manifest struct {
	RunID       string           `json:"run_id"`
	Source      string           `json:"source"`
	Description string           `json:"description,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Collections []CollectionInfo `json:"collections"`
}

// ManifestStore is implemented by stores that keep archive metadata.
type ManifestStore interface {
	WriteManifest(ctx context.Context, m Manifest) error
	ReadManifest(ctx context.Context) (Manifest, bool, error)
}

// ManifestFromReport builds a manifest out of a save report.
func ManifestFromReport(rep *Report, source, description string) Manifest {
	m := Manifest{RunID: rep.RunID, Source: source, Description: description, CreatedAt: rep.StartedAt}
	for _, t := range rep.Types {
		if t.Present {
			m.Collections = append(m.Collections, CollectionInfo{Type: t.Type, Count: t.Persisted})
		}
	}
	return m
}

// ArchiveInfo summarises one archive held by a backend.
type ArchiveInfo struct {
	Name        string    `json:"name"`
	RunID       string    `json:"run_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Types       int       `json:"types"`
	Records     int       `json:"records"`
}

// InfoFromManifest fills an ArchiveInfo from a manifest.
func InfoFromManifest(name string, m Manifest) ArchiveInfo {
	info := ArchiveInfo{Name: name, RunID: m.RunID, Source: m.Source, Description: m.Description, CreatedAt: m.CreatedAt, Types: len(m.Collections)}
	for _, c := range m.Collections {
		info.Records += c.Count
	}
	return info
}
