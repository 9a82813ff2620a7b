package backup_test

import (
	"errors"
	"testing"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTypes() []string {
	var out []string
	for _, e := range backup.DefaultEntities() {
		out = append(out, e.Type)
	}
	return out
}

func TestResolveDefaultOrder(t *testing.T) {
	plan, err := backup.DefaultRegistry().Plan(allTypes())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"repository", "labels", "milestones", "issues",
		"issue_comments", "sub_issues", "pull_requests", "pull_request_reviews",
	}, plan)
}

func TestResolveIsDeterministic(t *testing.T) {
	reg := backup.DefaultRegistry()
	first, err := reg.Plan([]string{"pull_request_reviews", "issues", "labels", "milestones", "pull_requests"})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := reg.Plan([]string{"milestones", "pull_requests", "labels", "pull_request_reviews", "issues"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"labels", "milestones", "issues", "pull_requests", "pull_request_reviews"}, first)
}

func TestResolveDependenciesPrecede(t *testing.T) {
	reg := backup.DefaultRegistry()
	plan, err := reg.Resolve(allTypes())
	require.NoError(t, err)
	pos := map[string]int{}
	for i, d := range plan {
		pos[d.Type] = i
	}
	for _, d := range plan {
		for _, dep := range d.Dependencies {
			assert.Less(t, pos[dep], pos[d.Type], "%s must follow %s", d.Type, dep)
		}
	}
}

func TestResolveMissingDependency(t *testing.T) {
	_, err := backup.DefaultRegistry().Resolve([]string{"issues", "issue_comments"})
	require.Error(t, err)
	var ce *backup.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "issues", ce.Type)
	assert.Contains(t, []string{"labels", "milestones"}, ce.Dependency)
	assert.ErrorIs(t, err, backup.ErrMissingDependency)
}

func TestResolveUnknownType(t *testing.T) {
	_, err := backup.DefaultRegistry().Resolve([]string{"wiki_pages"})
	assert.ErrorIs(t, err, backup.ErrUnknownType)
}

func TestResolveReportsFirstUnknownTypeInNameOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		_, err := backup.DefaultRegistry().Resolve([]string{"zeppelins", "labels", "wiki_pages", "gists"})
		var ce *backup.ConfigError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "gists", ce.Type)
	}
}

func TestResolveCycle(t *testing.T) {
	reg, err := backup.NewRegistry([]backup.EntityDescriptor{
		{Type: "a", Dependencies: []string{"b"}},
		{Type: "b", Dependencies: []string{"a"}},
	})
	require.NoError(t, err)
	_, err = reg.Resolve([]string{"a", "b"})
	assert.ErrorIs(t, err, backup.ErrCycle)
}

func TestNewRegistryRejectsBadTables(t *testing.T) {
	_, err := backup.NewRegistry([]backup.EntityDescriptor{{Type: "a"}, {Type: "a"}})
	assert.Error(t, err)

	_, err = backup.NewRegistry([]backup.EntityDescriptor{{Type: "a", Dependencies: []string{"ghost"}}})
	assert.ErrorIs(t, err, backup.ErrUnknownType)

	_, err = backup.NewRegistry([]backup.EntityDescriptor{
		{Type: "p"},
		{Type: "c", ParentType: "p", Parent: backup.RefSource{Path: "p_id"}},
	})
	assert.Error(t, err, "parent must be a dependency")
}

func TestEnabledTypes(t *testing.T) {
	reg := backup.DefaultRegistry()
	got, err := reg.EnabledTypes(nil, []string{"pull_request_reviews", "Sub_Issues"})
	require.NoError(t, err)
	assert.NotContains(t, got, "pull_request_reviews")
	assert.NotContains(t, got, "sub_issues")
	assert.Contains(t, got, "issues")

	got, err = reg.EnabledTypes([]string{"labels", "milestones"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"labels", "milestones"}, got)

	_, err = reg.EnabledTypes([]string{"nope"}, nil)
	assert.ErrorIs(t, err, backup.ErrUnknownType)
}
