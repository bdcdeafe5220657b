package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_GetRunNotFound(t *testing.T) {
	st := newTestSQLite(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLite(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	run, err := st.CreateRun(ctx, "validate")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st2.Close() })

	got, err := st2.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "validate", got.Command)
}

func TestSQLite_ListEmpty(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	phases, err := st.ListPhases(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, phases)

	failures, err := st.ListTurnFailures(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, failures)
}
