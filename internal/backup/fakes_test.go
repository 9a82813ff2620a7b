package backup_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

func rec(id, payload string) backup.Record {
	return backup.Record{OriginalID: id, Payload: json.RawMessage(payload)}
}

func issue(n int) backup.Record {
	return rec(fmt.Sprint(n), fmt.Sprintf(`{"number":%d,"title":"issue %d"}`, n, n))
}

func comment(id, issueNumber int) backup.Record {
	return rec(fmt.Sprint(id), fmt.Sprintf(`{"id":%d,"issue_url":"https://api.github.com/repos/acme/app/issues/%d","body":"c"}`, id, issueNumber))
}

func label(name string) backup.Record {
	return rec(name, fmt.Sprintf(`{"name":%q,"color":"ff0000"}`, name))
}

// fakeSource serves fixed collections and records the scopes it was given.
type fakeSource struct {
	data   map[string][]backup.Record
	fail   map[string]error
	mu     sync.Mutex
	scopes map[string]*backup.Scope
}

func newFakeSource(data map[string][]backup.Record) *fakeSource {
	return &fakeSource{data: data, fail: map[string]error{}, scopes: map[string]*backup.Scope{}}
}

func (s *fakeSource) Fetch(ctx context.Context, typeName string, scope *backup.Scope) ([]backup.Record, error) {
	s.mu.Lock()
	s.scopes[typeName] = scope
	s.mu.Unlock()
	if err := s.fail[typeName]; err != nil {
		return nil, err
	}
	return s.data[typeName], nil
}

var errBoom = errors.New("boom")

// fakeTarget assigns sequential ids per type and can be told to fail.
type fakeTarget struct {
	mu       sync.Mutex
	next     map[string]int
	created  []backup.CreateRequest
	updated  map[string]backup.CreateRequest
	failOn   map[string]bool // "type/original_id"
	existing map[string]map[string]string
	keysErr  map[string]error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		next:     map[string]int{},
		updated:  map[string]backup.CreateRequest{},
		failOn:   map[string]bool{},
		existing: map[string]map[string]string{},
		keysErr:  map[string]error{},
	}
}

func (t *fakeTarget) Create(ctx context.Context, req backup.CreateRequest) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failOn[req.Type+"/"+req.Record.OriginalID] {
		return "", errBoom
	}
	t.next[req.Type]++
	t.created = append(t.created, req)
	return fmt.Sprintf("%s-new-%d", req.Type, t.next[req.Type]), nil
}

func (t *fakeTarget) ExistingKeys(ctx context.Context, typeName string) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.keysErr[typeName]; err != nil {
		return nil, err
	}
	out := map[string]string{}
	for k, v := range t.existing[typeName] {
		out[k] = v
	}
	return out, nil
}

func (t *fakeTarget) createdOf(typ string) []backup.CreateRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []backup.CreateRequest
	for _, c := range t.created {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

// updatingTarget adds the Updater capability; labels only.
type updatingTarget struct {
	*fakeTarget
}

func (t updatingTarget) Update(ctx context.Context, targetID string, req backup.CreateRequest) error {
	if req.Type != backup.TypeLabels {
		return backup.ErrUpdateUnsupported
	}
	t.mu.Lock()
	t.updated[targetID] = req
	t.mu.Unlock()
	return nil
}
