package backup

import (
	"errors"
	"sync"
	"time"
)

// TypeReport holds the counters of one entity type.
type TypeReport struct {
	Type        string `json:"type"`
	Present     bool   `json:"present"`
	Fetched     int    `json:"fetched"`
	FilteredOut int    `json:"filtered_out"`
	Anomalies   int    `json:"anomalies,omitempty"`
	Orphaned    int    `json:"orphaned"`
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	Persisted   int    `json:"persisted,omitempty"`
}

// ProblemKind classifies a non-fatal condition.
type ProblemKind string

const (
	ProblemError     ProblemKind = "error"
	ProblemOrphan    ProblemKind = "orphan"
	ProblemSelection ProblemKind = "selection"
)

// Problem is one non-fatal condition scoped to a record.
type Problem struct {
	Kind       ProblemKind `json:"kind"`
	Type       string      `json:"type"`
	OriginalID string      `json:"original_id"`
	Cause      string      `json:"cause"`
	Err        error       `json:"-"`
}

// Report is the structured outcome of a save or restore run.
type Report struct {
	RunID      string       `json:"run_id"`
	Phase      Phase        `json:"phase"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Types      []TypeReport `json:"types"`
	Problems   []Problem    `json:"problems"`
	// Remapped counts remap entries per type (restore only).
	Remapped map[string]int `json:"remapped,omitempty"`

	mu    sync.Mutex
	index map[string]int
}

func newReport(runID string, phase Phase) *Report {
	return &Report{
		RunID:     runID,
		Phase:     phase,
		StartedAt: time.Now().UTC(),
		Problems:  []Problem{},
		index:     map[string]int{},
	}
}

// update applies fn to the counters of typ under the report lock.
func (r *Report) update(typ string, fn func(*TypeReport)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[typ]
	if !ok {
		r.Types = append(r.Types, TypeReport{Type: typ})
		i = len(r.Types) - 1
		r.index[typ] = i
	}
	fn(&r.Types[i])
}

func (r *Report) problem(p Problem) {
	if p.Cause == "" && p.Err != nil {
		p.Cause = p.Err.Error()
	}
	r.mu.Lock()
	r.Problems = append(r.Problems, p)
	r.mu.Unlock()
}

func (r *Report) recordError(err *RecordError) {
	r.update(err.Type, func(t *TypeReport) { t.Failed++ })
	r.problem(Problem{Kind: ProblemError, Type: err.Type, OriginalID: err.OriginalID, Err: err})
}

func (r *Report) orphan(w *OrphanWarning) {
	r.update(w.Type, func(t *TypeReport) { t.Orphaned++ })
	r.problem(Problem{Kind: ProblemOrphan, Type: w.Type, OriginalID: w.OriginalID, Err: w})
}

func (r *Report) finish() {
	r.mu.Lock()
	r.FinishedAt = time.Now().UTC()
	r.mu.Unlock()
}

// Type returns the counters for one type.
func (r *Report) Type(typ string) (TypeReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[typ]
	if !ok {
		return TypeReport{}, false
	}
	return r.Types[i], true
}

// RecordErrors returns the per-record creation errors.
func (r *Report) RecordErrors() []*RecordError {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*RecordError
	for _, p := range r.Problems {
		var re *RecordError
		if errors.As(p.Err, &re) {
			out = append(out, re)
		}
	}
	return out
}

// Orphans returns the orphaned-reference warnings.
func (r *Report) Orphans() []*OrphanWarning {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OrphanWarning
	for _, p := range r.Problems {
		var w *OrphanWarning
		if errors.As(p.Err, &w) {
			out = append(out, w)
		}
	}
	return out
}
