package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadAndEmptyCollections(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "snap"))
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "labels", nil))
	raw, err := os.ReadFile(filepath.Join(s.Dir(), "labels.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))

	got, ok, err := s.Read(ctx, "labels")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	_, ok, err = s.Read(ctx, "milestones")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRewritesAreByteIdentical(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	recs := []backup.Record{
		{OriginalID: "5", Payload: json.RawMessage(`{"number":5,"body":"<b>a & b</b>"}`)},
		{OriginalID: "900", ParentRef: "5", Payload: json.RawMessage(`{"id":900}`)},
	}
	require.NoError(t, s.Write(ctx, "issues", recs))
	first, err := os.ReadFile(filepath.Join(s.Dir(), "issues.json"))
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "issues", recs))
	second, err := os.ReadFile(filepath.Join(s.Dir(), "issues.json"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "<b>a & b</b>")

	got, _, err := s.Read(ctx, "issues")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "5", got[1].ParentRef)
}

func TestCollectionsAndManifest(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "milestones", []backup.Record{{OriginalID: "1", Payload: json.RawMessage(`{}`)}}))
	require.NoError(t, s.Write(ctx, "labels", nil))
	m := backup.Manifest{RunID: "01HZX", Source: "acme/app", CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.WriteManifest(ctx, m))

	cols, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []backup.CollectionInfo{{Type: "labels", Count: 0}, {Type: "milestones", Count: 1}}, cols)

	got, ok, err := s.ReadManifest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "01HZX", got.RunID)
	assert.True(t, m.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, s.Delete())
	_, err = os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestInvalidTypeName(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	err = s.Write(context.Background(), "../escape", nil)
	require.Error(t, err)
}
