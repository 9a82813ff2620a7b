package backup

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is an inclusive numeric range.
type Range struct {
	Lo, Hi int64
}

// Selection identifies a subset of a selectable root type: explicit numbers,
// inclusive ranges, or everything. The zero value selects everything.
type Selection struct {
	numbers  map[int64]struct{}
	ranges   []Range
	explicit bool
	ignored  []string
}

// SelectAll returns the selection matching every record.
func SelectAll() Selection { return Selection{} }

// ParseSelection parses "all", "", "5,7", "3-9" or a mix such as "1,4-6".
// Members that are negative, non-numeric, reversed or too large for an int64
// match nothing and are kept in Ignored. Only input without any member, such
// as ",", is an error.
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return SelectAll(), nil
	}
	sel := Selection{numbers: map[int64]struct{}{}, explicit: true}
	members := 0
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		members++
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			l, lok := parseSelectionNumber(lo)
			h, hok := parseSelectionNumber(hi)
			if !lok || !hok || l > h {
				sel.ignored = append(sel.ignored, part)
				continue
			}
			sel.ranges = append(sel.ranges, Range{Lo: l, Hi: h})
			continue
		}
		n, ok := parseSelectionNumber(part)
		if !ok {
			sel.ignored = append(sel.ignored, part)
			continue
		}
		sel.numbers[n] = struct{}{}
	}
	if members == 0 {
		return Selection{}, fmt.Errorf("selection: %q has no members", s)
	}
	return sel, nil
}

// NewSelection builds a selection from explicit numbers and ranges.
func NewSelection(numbers []int64, ranges ...Range) Selection {
	sel := Selection{numbers: map[int64]struct{}{}, ranges: ranges, explicit: true}
	for _, n := range numbers {
		sel.numbers[n] = struct{}{}
	}
	return sel
}

func parseSelectionNumber(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// All reports whether the selection matches everything.
func (s Selection) All() bool { return !s.explicit }

// Ignored lists the members that could not be read as a number or range.
func (s Selection) Ignored() []string {
	out := make([]string, len(s.ignored))
	copy(out, s.ignored)
	return out
}

// Matches reports whether an original id is selected. Ids that are not
// non-negative integers never match.
func (s Selection) Matches(originalID string) bool {
	if s.All() {
		return true
	}
	n, err := strconv.ParseInt(strings.TrimSpace(originalID), 10, 64)
	if err != nil || n < 0 {
		return false
	}
	if _, ok := s.numbers[n]; ok {
		return true
	}
	for _, r := range s.ranges {
		if n >= r.Lo && n <= r.Hi {
			return true
		}
	}
	return false
}

// Unmatched lists the explicit numbers, and the ranges, for which no retained
// id matched. It is used by strict selection reporting.
func (s Selection) Unmatched(retained *RetainedSet) []string {
	var out []string
	nums := make([]int64, 0, len(s.numbers))
	for n := range s.numbers {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for _, n := range nums {
		if !retained.Has(strconv.FormatInt(n, 10)) {
			out = append(out, strconv.FormatInt(n, 10))
		}
	}
	for _, r := range s.ranges {
		hit := false
		for _, id := range retained.IDs() {
			n, err := strconv.ParseInt(id, 10, 64)
			if err == nil && n >= r.Lo && n <= r.Hi {
				hit = true
				break
			}
		}
		if !hit {
			out = append(out, fmt.Sprintf("%d-%d", r.Lo, r.Hi))
		}
	}
	return out
}

// String renders the selection in the syntax ParseSelection accepts.
func (s Selection) String() string {
	if s.All() {
		return "all"
	}
	if len(s.numbers) == 0 && len(s.ranges) == 0 {
		return "none"
	}
	var parts []string
	nums := make([]int64, 0, len(s.numbers))
	for n := range s.numbers {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for _, n := range nums {
		parts = append(parts, strconv.FormatInt(n, 10))
	}
	for _, r := range s.ranges {
		parts = append(parts, fmt.Sprintf("%d-%d", r.Lo, r.Hi))
	}
	return strings.Join(parts, ",")
}
