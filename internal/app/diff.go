package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// TypeDiff compares one collection between two archives by original id.
type TypeDiff struct {
	Type    string   `json:"type"`
	InA     bool     `json:"in_a"`
	InB     bool     `json:"in_b"`
	CountA  int      `json:"count_a"`
	CountB  int      `json:"count_b"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Empty reports whether both sides hold the same records.
func (d TypeDiff) Empty() bool {
	return d.InA == d.InB && len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffArchives compares every registered type of a and b. Payloads are
// compared after compaction so formatting differences do not count.
func DiffArchives(ctx context.Context, reg *backup.Registry, a, b backup.RecordStore) ([]TypeDiff, error) {
	if reg == nil {
		reg = backup.DefaultRegistry()
	}
	var out []TypeDiff
	for _, d := range reg.Entities() {
		ra, okA, err := a.Read(ctx, d.Type)
		if err != nil {
			return nil, err
		}
		rb, okB, err := b.Read(ctx, d.Type)
		if err != nil {
			return nil, err
		}
		if !okA && !okB {
			continue
		}
		td := TypeDiff{Type: d.Type, InA: okA, InB: okB, CountA: len(ra), CountB: len(rb),
			Added: []string{}, Removed: []string{}, Changed: []string{}}
		left := indexByID(ra)
		right := indexByID(rb)
		for id, pa := range left {
			pb, ok := right[id]
			switch {
			case !ok:
				td.Removed = append(td.Removed, id)
			case !bytes.Equal(compact(pa), compact(pb)):
				td.Changed = append(td.Changed, id)
			}
		}
		for id := range right {
			if _, ok := left[id]; !ok {
				td.Added = append(td.Added, id)
			}
		}
		sortIDs(td.Added)
		sortIDs(td.Removed)
		sortIDs(td.Changed)
		out = append(out, td)
	}
	return out, nil
}

func indexByID(rs []backup.Record) map[string][]byte {
	m := make(map[string][]byte, len(rs))
	for _, r := range rs {
		m[r.OriginalID] = r.Payload
	}
	return m
}

func compact(b []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return b
	}
	return buf.Bytes()
}

// sortIDs orders numeric ids numerically and the rest lexically after them.
func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ni, ei := strconv.ParseInt(ids[i], 10, 64)
		nj, ej := strconv.ParseInt(ids[j], 10, 64)
		switch {
		case ei == nil && ej == nil:
			return ni < nj
		case ei == nil:
			return true
		case ej == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}

// RenderDiff prints a per-type summary of DiffArchives.
func RenderDiff(w io.Writer, diffs []TypeDiff, asJSON bool) error {
	if asJSON {
		if diffs == nil {
			diffs = []TypeDiff{}
		}
		return writeJSON(w, diffs)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"TYPE", "A", "B", "ADDED", "REMOVED", "CHANGED"})
	count := func(present bool, n int) string {
		if !present {
			return "-"
		}
		return strconv.Itoa(n)
	}
	for _, d := range diffs {
		tw.Append([]string{d.Type, count(d.InA, d.CountA), count(d.InB, d.CountB),
			strconv.Itoa(len(d.Added)), strconv.Itoa(len(d.Removed)), strconv.Itoa(len(d.Changed))})
	}
	tw.Render()
	return nil
}
