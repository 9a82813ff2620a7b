package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tidwall/gjson"
)

// Action is what the restore pipeline does with one candidate record.
type Action int

const (
	ActionCreate Action = iota
	ActionSkip
	ActionOverwrite
	ActionRename
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionSkip:
		return "skip"
	case ActionOverwrite:
		return "overwrite"
	case ActionRename:
		return "rename"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of evaluating a conflict policy.
type Decision struct {
	Action Action
	// TargetID is the colliding entity, set for skip and overwrite.
	TargetID string
	// NewKey is the replacement unique key, set for rename.
	NewKey string
}

// Strategy selects how a keyed type reacts to a collision.
type Strategy string

const (
	StrategyFailFast  Strategy = "fail-fast"
	StrategySkip      Strategy = "skip-existing"
	StrategyOverwrite Strategy = "overwrite-existing"
	StrategyRename    Strategy = "rename-on-conflict"
)

// DefaultStrategy applies to keyed types without an explicit strategy.
const DefaultStrategy = StrategySkip

// ParseStrategy accepts the strategy names, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyFailFast:
		return StrategyFailFast, nil
	case StrategySkip, "skip":
		return StrategySkip, nil
	case StrategyOverwrite, "overwrite":
		return StrategyOverwrite, nil
	case StrategyRename, "rename":
		return StrategyRename, nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q (want fail-fast|skip-existing|overwrite-existing|rename-on-conflict)", s)
}

// Candidate is a record about to be restored.
type Candidate struct {
	Type       string
	OriginalID string
	Key        string // Empty when the type is not keyed or the payload lacks the key.
}

// KeyIndex is the target's current set of uniqueness keys for one type,
// compared case-insensitively. Safe for concurrent use.
type KeyIndex struct {
	mu   sync.Mutex
	keys map[string]string
}

// NewKeyIndex builds an index from key -> target id.
func NewKeyIndex(existing map[string]string) *KeyIndex {
	idx := &KeyIndex{keys: make(map[string]string, len(existing))}
	for k, v := range existing {
		idx.keys[normalizeKey(k)] = v
	}
	return idx
}

// Lookup returns the target id holding key.
func (k *KeyIndex) Lookup(key string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	id, ok := k.keys[normalizeKey(key)]
	return id, ok
}

// Add records key as taken.
func (k *KeyIndex) Add(key, targetID string) {
	k.mu.Lock()
	k.keys[normalizeKey(key)] = targetID
	k.mu.Unlock()
}

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Policy decides what to do with one candidate given the target's state.
// It is evaluated once per candidate and never retried.
type Policy interface {
	Evaluate(c Candidate, existing *KeyIndex) (Decision, error)
}

// AlwaysCreate is the policy for types without a uniqueness key.
type AlwaysCreate struct{}

func (AlwaysCreate) Evaluate(Candidate, *KeyIndex) (Decision, error) {
	return Decision{Action: ActionCreate}, nil
}

// KeyedPolicy applies a Strategy to a keyed type.
type KeyedPolicy struct {
	Strategy Strategy
}

func (p KeyedPolicy) Evaluate(c Candidate, existing *KeyIndex) (Decision, error) {
	if c.Key == "" || existing == nil {
		return Decision{Action: ActionCreate}, nil
	}
	targetID, taken := existing.Lookup(c.Key)
	if !taken {
		return Decision{Action: ActionCreate}, nil
	}
	switch p.Strategy {
	case StrategyFailFast:
		return Decision{}, &ConflictError{Type: c.Type, OriginalID: c.OriginalID, Key: c.Key, TargetID: targetID}
	case StrategySkip:
		return Decision{Action: ActionSkip, TargetID: targetID}, nil
	case StrategyOverwrite:
		return Decision{Action: ActionOverwrite, TargetID: targetID}, nil
	case StrategyRename:
		return Decision{Action: ActionRename, NewKey: renameKey(c, existing)}, nil
	}
	return Decision{}, fmt.Errorf("conflict policy for %s: unknown strategy %q", c.Type, p.Strategy)
}

// renameKey derives a free key from the original id: "<key> (restored <id>)",
// then "<key> (restored <id>-2)", "-3", ... until the index has no match.
func renameKey(c Candidate, existing *KeyIndex) string {
	base := fmt.Sprintf("%s (restored %s", c.Key, c.OriginalID)
	key := base + ")"
	for n := 2; ; n++ {
		if _, taken := existing.Lookup(key); !taken {
			return key
		}
		key = fmt.Sprintf("%s-%d)", base, n)
	}
}

// NewPolicies builds one policy per descriptor. Strategies may only name keyed
// types; keyed types without one get DefaultStrategy.
func NewPolicies(reg *Registry, strategies map[string]Strategy) (map[string]Policy, error) {
	for name := range strategies {
		d, ok := reg.Lookup(name)
		if !ok {
			return nil, &ConfigError{Type: name, Err: ErrUnknownType}
		}
		if !d.Keyed() {
			return nil, &ConfigError{Type: name, Err: ErrNotKeyed}
		}
	}
	out := map[string]Policy{}
	for _, d := range reg.Entities() {
		if !d.Keyed() {
			out[d.Type] = AlwaysCreate{}
			continue
		}
		s, ok := strategies[d.Type]
		if !ok {
			s = DefaultStrategy
		}
		out[d.Type] = KeyedPolicy{Strategy: s}
	}
	return out, nil
}

// setTopLevelField replaces one top-level string field of a JSON object. An
// existing value is spliced in place so the rest of the payload keeps its
// bytes and key order; a missing field is appended before the closing brace.
func setTopLevelField(payload []byte, field, value string) ([]byte, error) {
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return nil, fmt.Errorf("rename: payload is not a JSON object")
	}
	enc, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	cur := gjson.GetBytes(payload, gjson.Escape(field))
	if cur.Exists() && cur.Index > 0 {
		out := make([]byte, 0, len(payload)-len(cur.Raw)+len(enc))
		out = append(out, payload[:cur.Index]...)
		out = append(out, enc...)
		return append(out, payload[cur.Index+len(cur.Raw):]...), nil
	}
	if cur.Exists() {
		return nil, fmt.Errorf("rename: cannot locate %q in payload", field)
	}
	key, err := json.Marshal(field)
	if err != nil {
		return nil, err
	}
	end := bytes.LastIndexByte(payload, '}')
	head := bytes.TrimRightFunc(payload[:end], unicode.IsSpace)
	out := make([]byte, 0, len(payload)+len(key)+len(enc)+2)
	out = append(out, head...)
	if head[len(head)-1] != '{' {
		out = append(out, ',')
	}
	out = append(out, key...)
	out = append(out, ':')
	out = append(out, enc...)
	return append(out, payload[end:]...), nil
}

func keyOf(d EntityDescriptor, payload []byte) string {
	if !d.Keyed() || !gjson.ValidBytes(payload) {
		return ""
	}
	r := gjson.GetBytes(payload, d.UniqueKey)
	if r.Type != gjson.String {
		return ""
	}
	return r.String()
}
