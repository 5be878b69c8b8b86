package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclaw/conformance/internal/conformance"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport() conformance.Report {
	return conformance.NewReport([]conformance.Outcome{
		{Name: "healthz.ok_true", Passed: true, Detail: "/healthz returned ok=true"},
		{Name: "info.protocol_version", Passed: false, Detail: "expected protocolVersion=3, found 9"},
		{Name: "channels.status_views", Passed: true, Detail: "status exposed 2 channels"},
	})
}

func TestStore_RecordAndReadBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	startedAt := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	report := sampleReport()

	runID, err := store.RecordRun(ctx, "http://127.0.0.1:18789", startedAt, report)
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "http://127.0.0.1:18789", runs[0].BaseURL)
	assert.Equal(t, 3, runs[0].Total)
	assert.Equal(t, 1, runs[0].Failed)
	assert.True(t, runs[0].StartedAt.Equal(startedAt))

	outcomes, err := store.Outcomes(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, report.Outcomes, outcomes)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := store.RecordRun(ctx, "http://gateway.local", base.Add(time.Duration(i)*time.Minute), sampleReport())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestStore_OutcomesUnknownRunIsEmpty(t *testing.T) {
	store := newTestStore(t)

	outcomes, err := store.Outcomes(context.Background(), 9999)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	runID, err := store.RecordRun(context.Background(), "http://gateway.local", time.Now().UTC(), sampleReport())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
}
