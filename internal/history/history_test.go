package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/raoulx24/dropzip/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "db", "history.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	gt.NoError(t, s.Record(ctx, history.Record{
		ID: "1", Name: "first", OutputPath: "/out/first.zip", Trigger: "cli",
		Status: history.StatusSucceeded, Entries: 3, Bytes: 120,
		StartedAt: base, FinishedAt: base.Add(time.Second),
	}))
	gt.NoError(t, s.Record(ctx, history.Record{
		ID: "2", Name: "second", OutputPath: "/out/second.zip", Trigger: "inbox",
		Status: history.StatusFailed, Error: "permission denied", Skipped: 1,
		StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second),
	}))

	records, err := s.List(ctx, 0)
	gt.NoError(t, err)
	gt.Equal(t, len(records), 2)

	gt.Equal(t, records[0].ID, "2")
	gt.Equal(t, records[0].Status, history.StatusFailed)
	gt.Equal(t, records[0].Error, "permission denied")
	gt.Equal(t, records[0].Skipped, 1)
	gt.True(t, records[0].StartedAt.Equal(base.Add(time.Minute)))

	gt.Equal(t, records[1].Name, "first")
	gt.Equal(t, records[1].Entries, 3)
	gt.Equal(t, records[1].Bytes, int64(120))
	gt.Equal(t, records[1].Error, "")
}

func TestStore_ListLimit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		gt.NoError(t, s.Record(ctx, history.Record{
			ID: id, Name: id, OutputPath: "/out/" + id + ".zip", Trigger: "cli",
			Status: history.StatusSucceeded, StartedAt: ts, FinishedAt: ts,
		}))
	}

	records, err := s.List(ctx, 2)
	gt.NoError(t, err)
	gt.Equal(t, len(records), 2)
	gt.Equal(t, records[0].ID, "c")
	gt.Equal(t, records[1].ID, "b")
}

func TestStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	r := history.Record{ID: "x", Name: "x", OutputPath: "/x.zip", Trigger: "cli", Status: history.StatusSucceeded}
	gt.NoError(t, s.Record(ctx, r))
	gt.Error(t, s.Record(ctx, r))
}
