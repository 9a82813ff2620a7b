package backup

import (
	"context"
	"fmt"
	"strings"
)

// CreateBackup runs the save pipeline: for each enabled type in dependency
// order it fetches from the source, filters by selection or parent coupling,
// and writes the collection to the store, even when it is empty.
//
// A fetch or store failure aborts the run. Collections already written for
// earlier types are left in place; re-running replaces them.
func CreateBackup(ctx context.Context, rc RunContext, src Source, store RecordStore) (*Report, error) {
	plan, err := rc.Validate()
	if err != nil {
		return nil, err
	}
	log := rc.logger()
	rep := newReport(rc.runID(), PhaseSave)
	defer rep.finish()

	retained := map[string]*RetainedSet{}
	for _, d := range plan {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("save halted before %s: %w", d.Type, err)
		}

		var parent *RetainedSet
		var scope *Scope
		if d.ParentType != "" {
			if p := retained[d.ParentType]; p.Filtered() {
				parent = p
				scope = &Scope{ParentType: d.ParentType, ParentIDs: p.IDs()}
			}
		}

		records, err := src.Fetch(ctx, d.Type, scope)
		if err != nil {
			return rep, &FetchError{Type: d.Type, Phase: PhaseSave, Err: err}
		}
		sel := rc.selection(d)
		res := Filter(FilterInput{Records: records, Descriptor: d, Parent: parent, Selection: sel})

		if err := store.Write(ctx, d.Type, res.Records); err != nil {
			return rep, &StoreError{Type: d.Type, Phase: PhaseSave, Op: "write", Err: err}
		}
		retained[d.Type] = res.Retained

		rep.update(d.Type, func(t *TypeReport) {
			t.Present = true
			t.Fetched = len(records)
			t.FilteredOut = res.FilteredOut
			t.Anomalies = res.Anomalies
			t.Persisted = len(res.Records)
		})
		if rc.StrictSelection {
			reportSelection(rep, d.Type, sel, res.Retained, "requested but not found in source")
		}
		log.Info("saved entity type",
			"type", d.Type,
			"fetched", len(records),
			"persisted", len(res.Records),
			"filtered_out", res.FilteredOut,
			"anomalies", res.Anomalies,
			"coupled_to", ternary(parent != nil, d.ParentType, ""),
			"selection", ternary(sel != nil, selectionString(sel), ""))
	}
	return rep, nil
}

// reportSelection adds a selection problem for every unreadable member and
// every requested number or range that retained nothing.
func reportSelection(rep *Report, typ string, sel *Selection, retained *RetainedSet, missing string) {
	if sel == nil || sel.All() {
		return
	}
	for _, member := range sel.Ignored() {
		rep.problem(Problem{Kind: ProblemSelection, Type: typ, OriginalID: member, Cause: "not a non-negative number or range"})
	}
	for _, miss := range sel.Unmatched(retained) {
		rep.problem(Problem{Kind: ProblemSelection, Type: typ, OriginalID: miss, Cause: missing})
	}
}

func selectionString(s *Selection) string {
	if s == nil {
		return "all"
	}
	return s.String()
}

// PlanSummary renders a plan as "a -> b -> c".
func PlanSummary(plan []EntityDescriptor) string {
	names := make([]string, len(plan))
	for i, d := range plan {
		names[i] = d.Type
	}
	return strings.Join(names, " -> ")
}

func ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
