package backup

import "sort"

// RetainedSet holds the original ids of one type that survived filtering
// (save) or were loaded (restore). Filtered marks a set narrowed by a
// selection somewhere up the chain; children are only coupled to filtered
// parents.
type RetainedSet struct {
	ids      map[string]struct{}
	order    []string
	filtered bool
}

func newRetainedSet(filtered bool) *RetainedSet {
	return &RetainedSet{ids: map[string]struct{}{}, filtered: filtered}
}

func (s *RetainedSet) add(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// Has reports membership. A nil set contains nothing.
func (s *RetainedSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of retained ids.
func (s *RetainedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Filtered reports whether the set was narrowed by a selection.
func (s *RetainedSet) Filtered() bool { return s != nil && s.filtered }

// IDs returns the retained ids in record order.
func (s *RetainedSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SortedIDs returns the retained ids in lexical order.
func (s *RetainedSet) SortedIDs() []string {
	out := s.IDs()
	sort.Strings(out)
	return out
}

// FilterInput is the input of Filter.
type FilterInput struct {
	Records    []Record
	Descriptor EntityDescriptor
	// Parent is the parent's retained set, nil when the type has no parent or
	// the parent was not filtered.
	Parent *RetainedSet
	// Selection applies only to selectable descriptors. Nil means all.
	Selection *Selection
}

// FilterResult is the output of Filter.
type FilterResult struct {
	Records     []Record
	Retained    *RetainedSet
	FilteredOut int
	// Anomalies counts child records dropped because their parent reference
	// could not be extracted.
	Anomalies int
}

// Filter restricts one type's records by selection (selectable roots) or by
// parent membership (child-coupled types). Parent refs are extracted into
// each child record. An empty parent set yields an empty, non-nil result.
func Filter(in FilterInput) FilterResult {
	d := in.Descriptor
	res := FilterResult{Records: make([]Record, 0, len(in.Records))}

	selecting := d.Selectable && in.Selection != nil && !in.Selection.All()
	coupling := !selecting && d.ParentType != "" && in.Parent != nil
	res.Retained = newRetainedSet(selecting || (coupling && in.Parent.Filtered()))

	for _, rec := range in.Records {
		if d.ParentType != "" {
			ref, ok := d.Parent.Extract(rec.Payload)
			switch {
			case ok:
				rec.ParentRef = ref
			case rec.ParentRef != "":
				// Archived records keep the reference resolved at save.
				ref, ok = rec.ParentRef, true
			}
			if coupling {
				if !ok {
					res.Anomalies++
					res.FilteredOut++
					continue
				}
				if !in.Parent.Has(ref) {
					res.FilteredOut++
					continue
				}
			}
		}
		if selecting && !in.Selection.Matches(rec.OriginalID) {
			res.FilteredOut++
			continue
		}
		res.Records = append(res.Records, rec)
		res.Retained.add(rec.OriginalID)
	}
	return res
}
