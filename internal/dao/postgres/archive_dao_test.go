package postgres

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/flarebyte/tracker-snapshot/internal/config"
)

func TestTableNamesAreQuoted(t *testing.T) {
	b := &Backend{schema: "tsnap"}
	assert.Equal(t, `"tsnap"."archives"`, b.table("archives"))
	b = &Backend{schema: `we"ird`}
	assert.Equal(t, `"we""ird"."collections"`, b.table("collections"))
}

// openTestBackend connects to TSNAP_TEST_POSTGRES_DSN in a throwaway schema.
func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv("TSNAP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TSNAP_TEST_POSTGRES_DSN not set")
	}
	pc, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cc := pc.ConnConfig
	sslmode := "disable"
	if cc.TLSConfig != nil {
		sslmode = "require"
	}
	ctx := context.Background()
	b, err := Open(ctx, config.PostgresConfig{
		Host: cc.Host, Port: int(cc.Port), User: cc.User, Password: cc.Password,
		DBName: cc.Database, SSLMode: sslmode,
		Schema: "tsnap_test_" + strings.ToLower(ulid.Make().String()),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = b.db.Exec(context.Background(), `DROP SCHEMA `+pgx.Identifier{b.schema}.Sanitize()+` CASCADE`)
		b.Close()
	})
	return b
}

func TestArchiveRoundTrip(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	st := b.Archive("nightly")

	_, ok, err := st.Read(ctx, backup.TypeLabels)
	require.NoError(t, err)
	assert.False(t, ok)

	recs := []backup.Record{
		{OriginalID: "5", Payload: json.RawMessage(`{"number":5}`)},
		{OriginalID: "7", Payload: json.RawMessage(`{"number":7}`)},
	}
	require.NoError(t, st.Write(ctx, backup.TypeIssues, recs))
	require.NoError(t, st.Write(ctx, backup.TypeLabels, nil))

	got, ok, err := st.Read(ctx, backup.TypeIssues)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "5", got[0].OriginalID)
	assert.JSONEq(t, `{"number":7}`, string(got[1].Payload))

	empty, ok, err := st.Read(ctx, backup.TypeLabels)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, empty)

	// A second write replaces the collection.
	require.NoError(t, st.Write(ctx, backup.TypeIssues, recs[:1]))
	got, _, err = st.Read(ctx, backup.TypeIssues)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, st.WriteManifest(ctx, backup.Manifest{RunID: "r1", Source: "acme/app", Description: "d"}))
	m, ok, err := st.ReadManifest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "acme/app", m.Source)
	assert.ElementsMatch(t, []backup.CollectionInfo{{Type: "issues", Count: 1}, {Type: "labels", Count: 0}}, m.Collections)

	infos, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].Records)

	deleted, err := b.Delete(ctx, "nightly")
	require.NoError(t, err)
	assert.True(t, deleted)
	_, ok, err = st.Read(ctx, backup.TypeIssues)
	require.NoError(t, err)
	assert.False(t, ok)
}
