// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/asset-extract/pkg/types"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", dbFile))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func summaryAt(start time.Time, results ...types.Result) *types.Summary {
	s := &types.Summary{
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results:    results,
	}
	s.Total = len(results)
	for _, r := range results {
		if r.Outcome.Failed() {
			s.Failed++
		} else {
			s.Success++
			s.Bytes += r.Entry.Size
		}
	}
	return s
}

func TestRecordAndGet(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	start := time.Date(2026, time.October, 14, 9, 30, 0, 123456789, time.UTC)

	cfg := types.ExtractionConfig{ManifestPath: "indexes/17.json", ObjectsDir: "objects", OutputDir: "out"}
	s := summaryAt(start,
		types.Result{Entry: types.Entry{Path: "ok.ogg", Hash: "aa", Size: 100}, Outcome: types.OutcomeCopied},
		types.Result{Entry: types.Entry{Path: "gone.ogg", Hash: "bb", Size: 5}, Outcome: types.OutcomeMissingSource, Err: errors.New("source object does not exist")},
		types.Result{Entry: types.Entry{Path: "bad.png", Hash: "cc", Size: 9}, Outcome: types.OutcomeSizeMismatch, Err: errors.New("size mismatch")},
	)

	run, err := l.Record(ctx, cfg, s)
	require.NoError(t, err)
	_, err = uuid.Parse(run.ID)
	require.NoError(t, err, "run ids are UUIDs")

	got, err := l.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "indexes/17.json", got.Manifest)
	assert.Equal(t, 1, got.Success)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, int64(100), got.Bytes)
	assert.False(t, got.Interrupted)
	assert.True(t, got.StartedAt.Equal(start), "started_at round trips with nanoseconds")

	failures, err := l.Failures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, Failure{
		RunID: run.ID, Path: "gone.ogg", Hash: "bb", Size: 5,
		Outcome: types.OutcomeMissingSource, Error: "source object does not exist",
	}, failures[0])
	assert.Equal(t, types.OutcomeSizeMismatch, failures[1].Outcome)
}

func TestRunsNewestFirst(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()
	base := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		s := summaryAt(base.Add(time.Duration(i)*time.Hour + time.Duration(i*100)*time.Millisecond))
		s.Interrupted = i == 1
		run, err := l.Record(ctx, types.ExtractionConfig{ManifestPath: "m.json"}, s)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.True(t, runs[1].Interrupted)

	limited, err := l.Runs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestUnknownRun(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	_, err := l.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = l.Failures(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), dbFile)
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	run, err := l.Record(ctx, types.ExtractionConfig{}, summaryAt(time.Now()))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}
