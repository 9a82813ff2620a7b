// Package archive serves the contents of one archive read-only over HTTP.
package archive

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// Store is what the handler needs from an archive.
type Store interface {
	backup.RecordStore
	backup.Cataloger
}

// TypeSummary is one row of GET /archive/v1/types.
type TypeSummary struct {
	Type    string `json:"type"`
	Present bool   `json:"present"`
	Count   int    `json:"count"`
}

// TypesResult is the payload of GET /archive/v1/types.
type TypesResult struct {
	Archive string        `json:"archive"`
	Types   []TypeSummary `json:"types"`
}

// Handler bundles dependencies for the archive endpoints.
type Handler struct {
	name     string
	store    Store
	registry *backup.Registry
	log      *slog.Logger
}

// New constructs a Handler over the named archive. A nil registry means the
// default entity table.
func New(name string, store Store, registry *backup.Registry, log *slog.Logger) *Handler {
	if registry == nil {
		registry = backup.DefaultRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{name: name, store: store, registry: registry, log: log}
}

// Router wires the handler into a chi router under /archive/v1.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/archive/v1/types", h.getTypes)
	r.Get("/archive/v1/types/{type}", h.getType)
	r.Get("/archive/v1/manifest", h.getManifest)
	return r
}

// getTypes lists every registered type, present or not, with its record count.
func (h *Handler) getTypes(w http.ResponseWriter, r *http.Request) {
	cols, err := h.store.Collections(r.Context())
	if err != nil {
		h.log.Error("list collections", "archive", h.name, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to list collections")
		return
	}
	counts := make(map[string]int, len(cols))
	for _, c := range cols {
		counts[c.Type] = c.Count
	}
	res := TypesResult{Archive: h.name, Types: []TypeSummary{}}
	for _, d := range h.registry.Entities() {
		n, ok := counts[d.Type]
		res.Types = append(res.Types, TypeSummary{Type: d.Type, Present: ok, Count: n})
	}
	writeJSON(w, http.StatusOK, res)
}

// getType returns the records of one collection in archive order.
func (h *Handler) getType(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	if _, ok := h.registry.Lookup(typeName); !ok {
		writeError(w, http.StatusNotFound, "unknown_type", "unknown entity type: "+typeName)
		return
	}
	records, ok, err := h.store.Read(r.Context(), typeName)
	if err != nil {
		h.log.Error("read collection", "archive", h.name, "type", typeName, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to read collection")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "absent", "collection not present in archive: "+typeName)
		return
	}
	if records == nil {
		records = []backup.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getManifest(w http.ResponseWriter, r *http.Request) {
	ms, ok := h.store.(backup.ManifestStore)
	if !ok {
		writeError(w, http.StatusNotFound, "no_manifest", "archive keeps no manifest")
		return
	}
	m, found, err := ms.ReadManifest(r.Context())
	if err != nil {
		h.log.Error("read manifest", "archive", h.name, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "failed to read manifest")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no_manifest", "archive has no manifest")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// writeJSON writes a value as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var e errorEnvelope
	e.Error.Code = code
	e.Error.Message = message
	writeJSON(w, status, e)
}
