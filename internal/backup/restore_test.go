package backup_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/flarebyte/tracker-snapshot/internal/dao/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var issueTypes = []string{"labels", "milestones", "issues", "issue_comments", "sub_issues"}

func archive(t *testing.T, collections map[string][]backup.Record) *memstore.Store {
	t.Helper()
	s := memstore.New()
	for typ, recs := range collections {
		require.NoError(t, s.Write(context.Background(), typ, recs))
	}
	return s
}

func withParent(r backup.Record, parent string) backup.Record {
	r.ParentRef = parent
	return r
}

func TestRestoreRemapsParentsAndLinks(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:     {label("bug")},
		backup.TypeMilestones: {rec("3", `{"number":3,"title":"v1"}`)},
		backup.TypeIssues: {
			rec("5", `{"number":5,"milestone":{"number":3}}`),
			rec("7", `{"number":7,"milestone":{"number":99}}`),
		},
		backup.TypeIssueComments: {
			withParent(comment(100, 5), "5"),
			withParent(comment(101, 9), "9"),
		},
		backup.TypeSubIssues: {
			rec("5:7", `{"parent_issue_number":5,"sub_issue":{"number":7}}`),
			rec("5:42", `{"parent_issue_number":5,"sub_issue":{"number":42}}`),
		},
	})
	target := newFakeTarget()

	rep, remap, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{Enabled: issueTypes}, store, target)
	require.NoError(t, err)

	issues := target.createdOf(backup.TypeIssues)
	require.Len(t, issues, 2)
	assert.Equal(t, "milestones-new-1", issues[0].Links["milestone.number"])
	_, linked := issues[1].Links["milestone.number"]
	assert.False(t, linked, "unresolved optional link is dropped")

	comments := target.createdOf(backup.TypeIssueComments)
	require.Len(t, comments, 1)
	assert.Equal(t, "issues-new-1", comments[0].Parent)

	subs := target.createdOf(backup.TypeSubIssues)
	require.Len(t, subs, 1)
	assert.Equal(t, "issues-new-1", subs[0].Parent)
	assert.Equal(t, "issues-new-2", subs[0].Links["sub_issue.number"])

	orphans := rep.Orphans()
	require.Len(t, orphans, 2)
	assert.Equal(t, "101", orphans[0].OriginalID)
	assert.Equal(t, "9", orphans[0].Ref)
	assert.Equal(t, "5:42", orphans[1].OriginalID)

	for typ, created := range map[string]int{"labels": 1, "milestones": 1, "issues": 2, "issue_comments": 1, "sub_issues": 1} {
		tr, ok := rep.Type(typ)
		require.True(t, ok, typ)
		assert.Equal(t, created, tr.Created, typ)
		assert.Equal(t, created, remap.Count(typ), "one remap entry per created record of %s", typ)
	}
	_, ok := remap.Lookup(backup.TypeIssueComments, "101")
	assert.False(t, ok)
	assert.Equal(t, 6, remap.Len())
}

func TestRestoreRecordErrorOrphansChildren(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:     {},
		backup.TypeMilestones: {},
		backup.TypeIssues:     {issue(5), issue(7)},
		backup.TypeIssueComments: {
			withParent(comment(100, 5), "5"),
			withParent(comment(101, 7), "7"),
		},
	})
	target := newFakeTarget()
	target.failOn["issues/7"] = true

	rep, remap, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{Enabled: issueTypes}, store, target)
	require.NoError(t, err)

	recErrs := rep.RecordErrors()
	require.Len(t, recErrs, 1)
	assert.Equal(t, "7", recErrs[0].OriginalID)
	assert.ErrorIs(t, recErrs[0], errBoom)

	tr, _ := rep.Type(backup.TypeIssues)
	assert.Equal(t, 1, tr.Created)
	assert.Equal(t, 1, tr.Failed)

	tr, _ = rep.Type(backup.TypeIssueComments)
	assert.Equal(t, 1, tr.Created)
	assert.Equal(t, 1, tr.Orphaned)
	_, ok := remap.Lookup(backup.TypeIssues, "7")
	assert.False(t, ok)
}

func TestRestoreAppliesSelection(t *testing.T) {
	var issues, comments []backup.Record
	for i, n := range []int{3, 5, 7, 9} {
		issues = append(issues, issue(n))
		comments = append(comments, withParent(comment(100+i, n), fmt.Sprint(n)))
	}
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:        {},
		backup.TypeMilestones:    {},
		backup.TypeIssues:        issues,
		backup.TypeIssueComments: comments,
	})
	target := newFakeTarget()

	rep, remap, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:    []string{"labels", "milestones", "issues", "issue_comments"},
		Selections: map[string]backup.Selection{backup.TypeIssues: backup.NewSelection([]int64{5, 7})},
	}, store, target)
	require.NoError(t, err)

	var restored []string
	for _, c := range target.createdOf(backup.TypeIssues) {
		restored = append(restored, c.Record.OriginalID)
	}
	assert.Equal(t, []string{"5", "7"}, restored)
	tr, _ := rep.Type(backup.TypeIssues)
	assert.Equal(t, 4, tr.Fetched)
	assert.Equal(t, 2, tr.Created)
	assert.Equal(t, 2, tr.FilteredOut)

	tr, _ = rep.Type(backup.TypeIssueComments)
	assert.Equal(t, 2, tr.Created)
	assert.Equal(t, 2, tr.FilteredOut)
	assert.Zero(t, tr.Orphaned, "unselected children are filtered, not orphaned")
	assert.Empty(t, rep.Orphans())
	_, ok := remap.Lookup(backup.TypeIssues, "3")
	assert.False(t, ok)
}

func TestRestoreStrictSelectionReportsMissingNumbers(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:     {},
		backup.TypeMilestones: {},
		backup.TypeIssues:     {issue(5)},
	})
	rep, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:         []string{"labels", "milestones", "issues"},
		Selections:      map[string]backup.Selection{backup.TypeIssues: backup.NewSelection([]int64{5, 8})},
		StrictSelection: true,
	}, store, newFakeTarget())
	require.NoError(t, err)
	require.Len(t, rep.Problems, 1)
	assert.Equal(t, backup.ProblemSelection, rep.Problems[0].Kind)
	assert.Equal(t, "8", rep.Problems[0].OriginalID)
}

func TestRestoreAbortsWhenTargetKeysCannotBeListed(t *testing.T) {
	store := archive(t, map[string][]backup.Record{backup.TypeLabels: {label("bug")}})
	target := newFakeTarget()
	target.keysErr[backup.TypeLabels] = errBoom

	_, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{Enabled: []string{"labels"}}, store, target)
	var te *backup.TargetStateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, backup.TypeLabels, te.Type)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, target.createdOf(backup.TypeLabels))
}

func TestRestoreSkipsAbsentTypes(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels: {label("bug")},
		backup.TypeIssues: {issue(1)},
	})
	rep, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{Enabled: issueTypes}, store, newFakeTarget())
	require.NoError(t, err)

	tr, ok := rep.Type(backup.TypeMilestones)
	require.True(t, ok)
	assert.False(t, tr.Present)
	assert.Zero(t, tr.Created+tr.Skipped+tr.Failed+tr.Orphaned)

	tr, _ = rep.Type(backup.TypeIssues)
	assert.True(t, tr.Present)
	assert.Equal(t, 1, tr.Created)
}

func TestRestoreSkipExisting(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels: {label("bug"), label("docs")},
	})
	target := newFakeTarget()
	target.existing[backup.TypeLabels] = map[string]string{"BUG": "label-17"}

	rep, remap, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:    []string{"labels"},
		Strategies: map[string]backup.Strategy{backup.TypeLabels: backup.StrategySkip},
	}, store, target)
	require.NoError(t, err)

	created := target.createdOf(backup.TypeLabels)
	require.Len(t, created, 1)
	assert.Equal(t, "docs", created[0].Record.OriginalID)

	tr, _ := rep.Type(backup.TypeLabels)
	assert.Equal(t, 1, tr.Skipped)
	assert.Equal(t, 1, tr.Created)
	_, ok := remap.Lookup(backup.TypeLabels, "bug")
	assert.False(t, ok, "skipped records get no remap entry")
}

func TestRestoreFailFast(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:     {label("docs"), label("bug"), label("zzz")},
		backup.TypeMilestones: {rec("1", `{"number":1,"title":"v1"}`)},
	})
	target := newFakeTarget()
	target.existing[backup.TypeLabels] = map[string]string{"bug": "label-17"}

	_, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:    []string{"labels", "milestones"},
		Strategies: map[string]backup.Strategy{backup.TypeLabels: backup.StrategyFailFast},
	}, store, target)
	require.ErrorIs(t, err, backup.ErrConflict)
	var ce *backup.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "bug", ce.OriginalID)
	assert.Equal(t, "label-17", ce.TargetID)

	assert.Len(t, target.createdOf(backup.TypeLabels), 1)
	assert.Empty(t, target.createdOf(backup.TypeMilestones), "run stops at the collision")
}

func TestRestoreRenameOnConflict(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels: {label("bug"), label("dup"), label("Dup")},
	})
	target := newFakeTarget()
	target.existing[backup.TypeLabels] = map[string]string{
		"bug":                "label-17",
		"bug (restored bug)": "label-18",
	}
	run := func() []string {
		target.created = nil
		target.next = map[string]int{}
		_, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
			Enabled:    []string{"labels"},
			Strategies: map[string]backup.Strategy{backup.TypeLabels: backup.StrategyRename},
		}, store, target)
		require.NoError(t, err)
		var names []string
		for _, c := range target.createdOf(backup.TypeLabels) {
			names = append(names, gjson.GetBytes(c.Record.Payload, "name").String())
		}
		return names
	}

	first := run()
	assert.Equal(t, []string{"bug (restored bug-2)", "dup", "Dup (restored Dup)"}, first)
	assert.Equal(t, first, run(), "renames are reproducible")

	created := target.createdOf(backup.TypeLabels)
	assert.Equal(t, "ff0000", gjson.GetBytes(created[0].Record.Payload, "color").String())
}

func TestRestoreOverwriteExisting(t *testing.T) {
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:     {label("bug")},
		backup.TypeMilestones: {rec("3", `{"number":3,"title":"v1"}`)},
	})
	target := newFakeTarget()
	target.existing[backup.TypeLabels] = map[string]string{"bug": "label-17"}
	target.existing[backup.TypeMilestones] = map[string]string{"v1": "milestone-9"}

	rep, remap, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled: []string{"labels", "milestones"},
		Strategies: map[string]backup.Strategy{
			backup.TypeLabels:     backup.StrategyOverwrite,
			backup.TypeMilestones: backup.StrategyOverwrite,
		},
	}, store, updatingTarget{target})
	require.NoError(t, err)

	_, updated := target.updated["label-17"]
	assert.True(t, updated)
	id, ok := remap.Lookup(backup.TypeLabels, "bug")
	require.True(t, ok)
	assert.Equal(t, "label-17", id)
	tr, _ := rep.Type(backup.TypeLabels)
	assert.Equal(t, 1, tr.Updated)
	assert.Zero(t, tr.Created)

	// Milestones cannot be updated, so overwrite degrades to create.
	tr, _ = rep.Type(backup.TypeMilestones)
	assert.Equal(t, 1, tr.Created)
	id, ok = remap.Lookup(backup.TypeMilestones, "3")
	require.True(t, ok)
	assert.Equal(t, "milestones-new-1", id)
}

func TestRestoreOverwriteWithoutUpdaterCreates(t *testing.T) {
	store := archive(t, map[string][]backup.Record{backup.TypeLabels: {label("bug")}})
	target := newFakeTarget()
	target.existing[backup.TypeLabels] = map[string]string{"bug": "label-17"}

	rep, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:    []string{"labels"},
		Strategies: map[string]backup.Strategy{backup.TypeLabels: backup.StrategyOverwrite},
	}, store, target)
	require.NoError(t, err)
	tr, _ := rep.Type(backup.TypeLabels)
	assert.Equal(t, 1, tr.Created)
}

func TestRestoreConcurrentChildren(t *testing.T) {
	var comments []backup.Record
	for i := 0; i < 50; i++ {
		comments = append(comments, withParent(comment(1000+i, 1+i%3), fmt.Sprint(1+i%3)))
	}
	store := archive(t, map[string][]backup.Record{
		backup.TypeLabels:        {},
		backup.TypeMilestones:    {},
		backup.TypeIssues:        {issue(1), issue(2), issue(3)},
		backup.TypeIssueComments: comments,
	})
	target := newFakeTarget()
	target.failOn["issue_comments/1007"] = true

	rep, remap, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:     issueTypes,
		Concurrency: 8,
	}, store, target)
	require.NoError(t, err)
	tr, _ := rep.Type(backup.TypeIssueComments)
	assert.Equal(t, 49, tr.Created)
	assert.Equal(t, 1, tr.Failed)
	assert.Equal(t, 49, remap.Count(backup.TypeIssueComments))
	for _, c := range target.createdOf(backup.TypeIssueComments) {
		assert.Contains(t, []string{"issues-new-1", "issues-new-2", "issues-new-3"}, c.Parent)
	}
}

func TestRestoreRejectsStrategyOnUnkeyedType(t *testing.T) {
	_, _, err := backup.RestoreFromBackup(context.Background(), backup.RunContext{
		Enabled:    issueTypes,
		Strategies: map[string]backup.Strategy{backup.TypeIssues: backup.StrategySkip},
	}, memstore.New(), newFakeTarget())
	assert.ErrorIs(t, err, backup.ErrNotKeyed)
}

func TestRestoreHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := archive(t, map[string][]backup.Record{backup.TypeLabels: {label("bug")}})
	target := newFakeTarget()
	_, _, err := backup.RestoreFromBackup(ctx, backup.RunContext{Enabled: []string{"labels"}}, store, target)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, target.created)
}
