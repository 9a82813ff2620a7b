package backup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Entity type names.
const (
	TypeRepository         = "repository"
	TypeLabels             = "labels"
	TypeMilestones         = "milestones"
	TypeIssues             = "issues"
	TypeIssueComments      = "issue_comments"
	TypeSubIssues          = "sub_issues"
	TypePullRequests       = "pull_requests"
	TypePullRequestReviews = "pull_request_reviews"
)

// RefSource locates an identifier inside a record payload.
// Path is a gjson path. When URL is set the value is a URL whose last
// path segment is the identifier (e.g. ".../issues/42").
type RefSource struct {
	Path string
	URL  bool
}

// Extract returns the referenced identifier. Missing, empty or malformed
// values report false instead of failing.
func (r RefSource) Extract(payload []byte) (string, bool) {
	if r.Path == "" || len(payload) == 0 || !gjson.ValidBytes(payload) {
		return "", false
	}
	res := gjson.GetBytes(payload, r.Path)
	if !res.Exists() {
		return "", false
	}
	var v string
	switch res.Type {
	case gjson.Number:
		v = strconv.FormatInt(res.Int(), 10)
	case gjson.String:
		v = strings.TrimSpace(res.String())
	default:
		return "", false
	}
	if r.URL {
		v = strings.TrimRight(v, "/")
		i := strings.LastIndex(v, "/")
		if i < 0 {
			return "", false
		}
		v = v[i+1:]
		if _, err := strconv.ParseUint(v, 10, 63); err != nil {
			return "", false
		}
	}
	if v == "" {
		return "", false
	}
	return v, true
}

// Link is a secondary cross-entity reference remapped at restore time.
// A Required link that cannot be resolved orphans the record; an optional
// one is dropped.
type Link struct {
	Type     string
	Ref      RefSource
	Required bool
}

// EntityDescriptor declares how one entity type takes part in save and restore.
type EntityDescriptor struct {
	Type             string    // Logical name, also the collection name in the store.
	Dependencies     []string  // Types that must be processed first.
	ParentType       string    // Owning type for child-coupled types.
	Parent           RefSource // Where the parent's original id lives in the payload.
	Selectable       bool      // Accepts a user selection (numbers/ranges).
	UniqueKey        string    // gjson path of the uniqueness-bearing field, empty if none.
	Links            []Link
	Ordered          bool // Created one at a time, in archive order.
	IncludeByDefault bool
}

// Keyed reports whether the type has a natural uniqueness key.
func (d EntityDescriptor) Keyed() bool { return d.UniqueKey != "" }

// DefaultEntities returns the static descriptor table in declaration order.
// Declaration order breaks ties in the resolver.
func DefaultEntities() []EntityDescriptor {
	return []EntityDescriptor{
		{Type: TypeRepository, Ordered: true, IncludeByDefault: true},
		{Type: TypeLabels, UniqueKey: "name", Ordered: true, IncludeByDefault: true},
		{Type: TypeMilestones, UniqueKey: "title", Ordered: true, IncludeByDefault: true},
		{
			Type:             TypeIssues,
			Dependencies:     []string{TypeLabels, TypeMilestones},
			Selectable:       true,
			Links:            []Link{{Type: TypeMilestones, Ref: RefSource{Path: "milestone.number"}}},
			Ordered:          true,
			IncludeByDefault: true,
		},
		{
			Type:             TypeIssueComments,
			Dependencies:     []string{TypeIssues},
			ParentType:       TypeIssues,
			Parent:           RefSource{Path: "issue_url", URL: true},
			IncludeByDefault: true,
		},
		{
			Type:             TypeSubIssues,
			Dependencies:     []string{TypeIssues},
			ParentType:       TypeIssues,
			Parent:           RefSource{Path: "parent_issue_number"},
			Links:            []Link{{Type: TypeIssues, Ref: RefSource{Path: "sub_issue.number"}, Required: true}},
			IncludeByDefault: true,
		},
		{
			Type:             TypePullRequests,
			Dependencies:     []string{TypeLabels, TypeMilestones},
			Selectable:       true,
			Links:            []Link{{Type: TypeMilestones, Ref: RefSource{Path: "milestone.number"}}},
			Ordered:          true,
			IncludeByDefault: true,
		},
		{
			Type:             TypePullRequestReviews,
			Dependencies:     []string{TypePullRequests},
			ParentType:       TypePullRequests,
			Parent:           RefSource{Path: "pull_request_url", URL: true},
			IncludeByDefault: true,
		},
	}
}

// Registry is an immutable, validated descriptor table.
type Registry struct {
	entities []EntityDescriptor
	index    map[string]int
}

// NewRegistry validates the descriptors: names are unique, dependencies are
// declared, and a child's parent is one of its dependencies.
func NewRegistry(entities []EntityDescriptor) (*Registry, error) {
	r := &Registry{
		entities: make([]EntityDescriptor, len(entities)),
		index:    make(map[string]int, len(entities)),
	}
	copy(r.entities, entities)
	for i, e := range r.entities {
		name := strings.TrimSpace(e.Type)
		if name == "" {
			return nil, fmt.Errorf("descriptor %d: empty type name", i)
		}
		if _, dup := r.index[name]; dup {
			return nil, fmt.Errorf("descriptor %q declared twice", name)
		}
		r.index[name] = i
	}
	for _, e := range r.entities {
		for _, dep := range e.Dependencies {
			if _, ok := r.index[dep]; !ok {
				return nil, &ConfigError{Type: e.Type, Dependency: dep, Err: ErrUnknownType}
			}
		}
		if e.ParentType != "" {
			if !contains(e.Dependencies, e.ParentType) {
				return nil, fmt.Errorf("descriptor %q: parent %q must be a dependency", e.Type, e.ParentType)
			}
			if e.Parent.Path == "" {
				return nil, fmt.Errorf("descriptor %q: parent reference path missing", e.Type)
			}
		}
	}
	return r, nil
}

// DefaultRegistry returns the registry built from DefaultEntities.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultEntities())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for a type name.
func (r *Registry) Lookup(name string) (EntityDescriptor, bool) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return EntityDescriptor{}, false
	}
	return r.entities[i], true
}

// Entities returns a copy of the descriptors in declaration order.
func (r *Registry) Entities() []EntityDescriptor {
	out := make([]EntityDescriptor, len(r.entities))
	copy(out, r.entities)
	return out
}

// EnabledTypes applies include/exclude lists over the defaults.
// A non-empty include list replaces the defaults.
func (r *Registry) EnabledTypes(include, exclude []string) ([]string, error) {
	includeSet := setFromSlice(include)
	excludeSet := setFromSlice(exclude)
	for _, set := range []map[string]struct{}{includeSet, excludeSet} {
		for n := range set {
			if _, ok := r.index[n]; !ok {
				return nil, &ConfigError{Type: n, Err: ErrUnknownType}
			}
		}
	}
	var out []string
	for _, e := range r.entities {
		include := e.IncludeByDefault
		if len(includeSet) > 0 {
			_, include = includeSet[e.Type]
		}
		if _, ex := excludeSet[e.Type]; ex {
			include = false
		}
		if include {
			out = append(out, e.Type)
		}
	}
	return out, nil
}

func setFromSlice(ss []string) map[string]struct{} {
	m := map[string]struct{}{}
	for _, s := range ss {
		s = strings.TrimSpace(strings.ToLower(s))
		if s != "" {
			m[s] = struct{}{}
		}
	}
	return m
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
