package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/flarebyte/tracker-snapshot/internal/dao/memstore"
)

func TestDiffArchives(t *testing.T) {
	ctx := context.Background()
	a, b := memstore.New(), memstore.New()
	require.NoError(t, a.Write(ctx, backup.TypeIssues, []backup.Record{
		{OriginalID: "10", Payload: json.RawMessage(`{"title":"same"}`)},
		{OriginalID: "2", Payload: json.RawMessage(`{"title":"old"}`)},
		{OriginalID: "3", Payload: json.RawMessage(`{"title":"gone"}`)},
	}))
	require.NoError(t, b.Write(ctx, backup.TypeIssues, []backup.Record{
		{OriginalID: "10", Payload: json.RawMessage("{\n  \"title\": \"same\"\n}")},
		{OriginalID: "2", Payload: json.RawMessage(`{"title":"new"}`)},
		{OriginalID: "4", Payload: json.RawMessage(`{"title":"fresh"}`)},
	}))
	require.NoError(t, a.Write(ctx, backup.TypeLabels, nil))

	diffs, err := DiffArchives(ctx, nil, a, b)
	require.NoError(t, err)
	require.Len(t, diffs, 2)

	labels := diffs[0]
	assert.Equal(t, "labels", labels.Type)
	assert.True(t, labels.InA)
	assert.False(t, labels.InB)
	assert.False(t, labels.Empty())

	issues := diffs[1]
	assert.Equal(t, []string{"4"}, issues.Added)
	assert.Equal(t, []string{"3"}, issues.Removed)
	assert.Equal(t, []string{"2"}, issues.Changed)

	var buf bytes.Buffer
	require.NoError(t, RenderDiff(&buf, diffs, false))
	assert.Contains(t, buf.String(), "issues")
}

func TestSortIDs(t *testing.T) {
	ids := []string{"b", "10", "a", "9"}
	sortIDs(ids)
	assert.Equal(t, []string{"9", "10", "a", "b"}, ids)
}
