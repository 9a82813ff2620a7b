package backup

import "sync"

type remapKey struct {
	typ      string
	original string
}

// RemapTable maps (type, original id) to the id assigned by the target.
// Entries are only added, never removed, during a run. Safe for concurrent use.
type RemapTable struct {
	mu sync.RWMutex
	m  map[remapKey]string
}

// NewRemapTable returns an empty table.
func NewRemapTable() *RemapTable {
	return &RemapTable{m: map[remapKey]string{}}
}

// Put records the target id for an original id. Last write wins.
func (t *RemapTable) Put(typ, original, target string) {
	t.mu.Lock()
	t.m[remapKey{typ, original}] = target
	t.mu.Unlock()
}

// Lookup returns the target id for an original id.
func (t *RemapTable) Lookup(typ, original string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.m[remapKey{typ, original}]
	return v, ok
}

// Len returns the number of entries.
func (t *RemapTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

// Count returns the number of entries for one type.
func (t *RemapTable) Count(typ string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for k := range t.m {
		if k.typ == typ {
			n++
		}
	}
	return n
}

// Snapshot copies the table as type -> original -> target.
func (t *RemapTable) Snapshot() map[string]map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := map[string]map[string]string{}
	for k, v := range t.m {
		if out[k.typ] == nil {
			out[k.typ] = map[string]string{}
		}
		out[k.typ][k.original] = v
	}
	return out
}
