package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// restorer carries the state of one restore run. The remap table and report
// are the only state shared between record workers.
type restorer struct {
	target   Target
	updater  Updater
	lister   KeyLister
	remap    *RemapTable
	report   *Report
	policies map[string]Policy
	log      *slog.Logger
}

// RestoreFromBackup runs the restore pipeline: for each enabled type in
// dependency order it reads the collection, filters it by selection or parent
// coupling, remaps references, applies the conflict policy and creates
// records in the target.
//
// Types never saved are skipped. Record-level failures and orphans are
// collected in the report; only configuration, store, target-state and
// fail-fast conflict errors abort the run.
func RestoreFromBackup(ctx context.Context, rc RunContext, store RecordStore, target Target) (*Report, *RemapTable, error) {
	plan, err := rc.Validate()
	if err != nil {
		return nil, nil, err
	}
	policies, err := NewPolicies(rc.registry(), rc.Strategies)
	if err != nil {
		return nil, nil, err
	}
	r := &restorer{
		target:   target,
		remap:    NewRemapTable(),
		report:   newReport(rc.runID(), PhaseRestore),
		policies: policies,
		log:      rc.logger(),
	}
	r.updater, _ = target.(Updater)
	r.lister, _ = target.(KeyLister)
	defer r.finish()

	retained := map[string]*RetainedSet{}
	for _, d := range plan {
		if err := ctx.Err(); err != nil {
			return r.report, r.remap, fmt.Errorf("restore halted before %s: %w", d.Type, err)
		}
		records, ok, err := store.Read(ctx, d.Type)
		if err != nil {
			return r.report, r.remap, &StoreError{Type: d.Type, Phase: PhaseRestore, Op: "read", Err: err}
		}
		if !ok {
			r.report.update(d.Type, func(t *TypeReport) { t.Present = false })
			r.log.Info("entity type not in archive, skipping", "type", d.Type)
			continue
		}
		var parent *RetainedSet
		if d.ParentType != "" {
			if p := retained[d.ParentType]; p.Filtered() {
				parent = p
			}
		}
		sel := rc.selection(d)
		res := Filter(FilterInput{Records: records, Descriptor: d, Parent: parent, Selection: sel})
		retained[d.Type] = res.Retained

		r.report.update(d.Type, func(t *TypeReport) {
			t.Present = true
			t.Fetched = len(records)
			t.FilteredOut = res.FilteredOut
			t.Anomalies = res.Anomalies
		})
		if rc.StrictSelection {
			reportSelection(r.report, d.Type, sel, res.Retained, "requested but not in archive")
		}
		if err := r.restoreType(ctx, d, res.Records, rc.concurrency()); err != nil {
			return r.report, r.remap, err
		}
		tr, _ := r.report.Type(d.Type)
		r.log.Info("restored entity type",
			"type", d.Type,
			"loaded", tr.Fetched,
			"filtered_out", tr.FilteredOut,
			"created", tr.Created,
			"updated", tr.Updated,
			"skipped", tr.Skipped,
			"orphaned", tr.Orphaned,
			"failed", tr.Failed)
	}
	return r.report, r.remap, nil
}

func (r *restorer) finish() {
	r.report.Remapped = map[string]int{}
	for typ, m := range r.remap.Snapshot() {
		r.report.Remapped[typ] = len(m)
	}
	r.report.finish()
}

func (r *restorer) restoreType(ctx context.Context, d EntityDescriptor, records []Record, concurrency int) error {
	var idx *KeyIndex
	if d.Keyed() {
		existing := map[string]string{}
		if r.lister != nil {
			var err error
			existing, err = r.lister.ExistingKeys(ctx, d.Type)
			if err != nil {
				return &TargetStateError{Type: d.Type, Err: err}
			}
		}
		idx = NewKeyIndex(existing)
	}

	// Keyed types share the key index across records, and ordered types
	// must keep archive order, so both run sequentially.
	if d.Ordered || d.Keyed() || concurrency <= 1 {
		for _, rec := range records {
			if ctx.Err() != nil {
				return fmt.Errorf("restore halted during %s: %w", d.Type, ctx.Err())
			}
			if err := r.restoreRecord(ctx, d, rec, idx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			return r.restoreRecord(gctx, d, rec, idx)
		})
	}
	return g.Wait()
}

// restoreRecord returns an error only for conditions that abort the run.
func (r *restorer) restoreRecord(ctx context.Context, d EntityDescriptor, rec Record, idx *KeyIndex) error {
	req := CreateRequest{Type: d.Type, Record: rec, Links: map[string]string{}}

	if d.ParentType != "" {
		ref, ok := d.Parent.Extract(rec.Payload)
		if !ok {
			ref = rec.ParentRef
		}
		if ref == "" {
			r.report.orphan(&OrphanWarning{Type: d.Type, OriginalID: rec.OriginalID, RefType: d.ParentType})
			return nil
		}
		parent, ok := r.remap.Lookup(d.ParentType, ref)
		if !ok {
			r.report.orphan(&OrphanWarning{Type: d.Type, OriginalID: rec.OriginalID, RefType: d.ParentType, Ref: ref})
			return nil
		}
		req.Parent = parent
	}
	for _, l := range d.Links {
		ref, ok := l.Ref.Extract(rec.Payload)
		if !ok {
			if l.Required {
				r.report.orphan(&OrphanWarning{Type: d.Type, OriginalID: rec.OriginalID, RefType: l.Type})
				return nil
			}
			continue
		}
		target, ok := r.remap.Lookup(l.Type, ref)
		if !ok {
			if l.Required {
				r.report.orphan(&OrphanWarning{Type: d.Type, OriginalID: rec.OriginalID, RefType: l.Type, Ref: ref})
				return nil
			}
			r.log.Debug("dropping unresolved link", "type", d.Type, "original_id", rec.OriginalID, "link", l.Type, "ref", ref)
			continue
		}
		req.Links[l.Ref.Path] = target
	}

	policy, ok := r.policies[d.Type]
	if !ok {
		policy = AlwaysCreate{}
	}
	cand := Candidate{Type: d.Type, OriginalID: rec.OriginalID, Key: keyOf(d, rec.Payload)}
	dec, err := policy.Evaluate(cand, idx)
	if err != nil {
		return err
	}

	switch dec.Action {
	case ActionSkip:
		r.report.update(d.Type, func(t *TypeReport) { t.Skipped++ })
		r.log.Debug("skipping existing entity", "type", d.Type, "original_id", rec.OriginalID, "target_id", dec.TargetID)
		return nil
	case ActionOverwrite:
		if r.updater != nil {
			err := r.updater.Update(ctx, dec.TargetID, req)
			if err == nil {
				r.remap.Put(d.Type, rec.OriginalID, dec.TargetID)
				r.report.update(d.Type, func(t *TypeReport) { t.Updated++ })
				return nil
			}
			if !errors.Is(err, ErrUpdateUnsupported) {
				r.report.recordError(&RecordError{Type: d.Type, OriginalID: rec.OriginalID, Action: ActionOverwrite, Err: err})
				return nil
			}
		}
		r.log.Info("update not supported, creating instead", "type", d.Type, "original_id", rec.OriginalID)
	case ActionRename:
		payload, err := setTopLevelField(rec.Payload, d.UniqueKey, dec.NewKey)
		if err != nil {
			r.report.recordError(&RecordError{Type: d.Type, OriginalID: rec.OriginalID, Action: ActionRename, Err: err})
			return nil
		}
		req.Record.Payload = payload
		cand.Key = dec.NewKey
	}

	id, err := r.target.Create(ctx, req)
	if err != nil {
		r.report.recordError(&RecordError{Type: d.Type, OriginalID: rec.OriginalID, Action: dec.Action, Err: err})
		return nil
	}
	r.remap.Put(d.Type, rec.OriginalID, id)
	if idx != nil && cand.Key != "" {
		idx.Add(cand.Key, id)
	}
	r.report.update(d.Type, func(t *TypeReport) { t.Created++ })
	return nil
}
