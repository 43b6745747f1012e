// Package storetest holds the behavioral suite every domain.UsageStore
// implementation must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"skillcat/internal/domain"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) domain.UsageStore

var base = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC) // a Monday

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Helper()
	t.Run("counters", func(t *testing.T) { testCounters(t, open(t)) })
	t.Run("invalid log", func(t *testing.T) { testInvalidLog(t, open(t)) })
	t.Run("duplicate log id", func(t *testing.T) { testDuplicateLog(t, open(t)) })
	t.Run("list logs", func(t *testing.T) { testListLogs(t, open(t)) })
	t.Run("delete logs", func(t *testing.T) { testDeleteLogs(t, open(t)) })
	t.Run("daily stats", func(t *testing.T) { testDailyStats(t, open(t)) })
	t.Run("weekly stats", func(t *testing.T) { testWeeklyStats(t, open(t)) })
	t.Run("closed", func(t *testing.T) { testClosed(t, open(t)) })
}

func usageLog(id, recordID string, success bool, at time.Time) domain.UsageLog {
	return domain.UsageLog{
		ID:         id,
		RecordID:   recordID,
		Kind:       domain.RecordKindSkill,
		Success:    success,
		Duration:   150 * time.Millisecond,
		Query:      "q-" + id,
		OccurredAt: at,
	}
}

func testCounters(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.RecordUsage(ctx, usageLog("1", "r1", true, base)))
	require.NoError(t, store.RecordUsage(ctx, usageLog("2", "r1", false, base.Add(time.Minute))))
	require.NoError(t, store.RecordUsage(ctx, usageLog("3", "r1", true, base.Add(2*time.Minute))))
	require.NoError(t, store.RecordUsage(ctx, usageLog("4", "r2", false, base)))

	got, err := store.UsageCounters(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{UsageCount: 3, SuccessCount: 2}, got)

	got, err = store.UsageCounters(ctx, "r2")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{UsageCount: 1}, got)

	got, err = store.UsageCounters(ctx, "never-used")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{}, got)
}

func testInvalidLog(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	err := store.RecordUsage(ctx, domain.UsageLog{ID: "x", OccurredAt: base})
	require.ErrorIs(t, err, domain.ErrInvalidUsage)

	err = store.RecordUsage(ctx, domain.UsageLog{RecordID: "r1", OccurredAt: base})
	require.ErrorIs(t, err, domain.ErrInvalidUsage)
}

func testDuplicateLog(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.RecordUsage(ctx, usageLog("dup", "r1", true, base)))
	require.Error(t, store.RecordUsage(ctx, usageLog("dup", "r1", true, base)))

	got, err := store.UsageCounters(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{UsageCount: 1, SuccessCount: 1}, got)
}

func testListLogs(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	first := usageLog("a", "r1", true, base)
	second := usageLog("b", "r2", false, base.Add(time.Hour))
	third := usageLog("c", "r1", true, base.Add(2*time.Hour))
	for _, log := range []domain.UsageLog{third, first, second} {
		require.NoError(t, store.RecordUsage(ctx, log))
	}

	got, err := store.ListUsageLogs(ctx, base, base.Add(2*time.Hour))
	require.NoError(t, err)
	if diff := cmp.Diff([]domain.UsageLog{first, second}, got); diff != "" {
		t.Fatalf("logs mismatch (-want +got):\n%s", diff)
	}

	empty, err := store.ListUsageLogs(ctx, base.Add(-time.Hour), base)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func testDeleteLogs(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	old := base.AddDate(0, 0, -40)
	require.NoError(t, store.RecordUsage(ctx, usageLog("old-1", "r1", true, old)))
	require.NoError(t, store.RecordUsage(ctx, usageLog("old-2", "r1", false, old.Add(time.Hour))))
	require.NoError(t, store.RecordUsage(ctx, usageLog("new", "r1", true, base)))

	deleted, err := store.DeleteUsageLogsBefore(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	remaining, err := store.ListUsageLogs(ctx, old, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "new", remaining[0].ID)

	counters, err := store.UsageCounters(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{UsageCount: 3, SuccessCount: 2}, counters)

	deleted, err = store.DeleteUsageLogsBefore(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func testDailyStats(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	day1 := domain.DayStart(base)
	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, store.UpsertDailyStats(ctx, []domain.DailyStat{
		{RecordID: "r2", Day: day1, UsageCount: 1, SuccessCount: 0, AvgDurationMs: 10},
		{RecordID: "r1", Day: day1, UsageCount: 2, SuccessCount: 1, AvgDurationMs: 20},
		{RecordID: "r1", Day: day2.Add(5 * time.Hour), UsageCount: 4, SuccessCount: 4, AvgDurationMs: 30},
	}))
	require.NoError(t, store.UpsertDailyStats(ctx, []domain.DailyStat{
		{RecordID: "r1", Day: day1, UsageCount: 3, SuccessCount: 2, AvgDurationMs: 25},
	}))
	require.NoError(t, store.UpsertDailyStats(ctx, nil))

	got, err := store.ListDailyStats(ctx, day1, day2.AddDate(0, 0, 1))
	require.NoError(t, err)
	want := []domain.DailyStat{
		{RecordID: "r1", Day: day1, UsageCount: 3, SuccessCount: 2, AvgDurationMs: 25},
		{RecordID: "r2", Day: day1, UsageCount: 1, SuccessCount: 0, AvgDurationMs: 10},
		{RecordID: "r1", Day: day2, UsageCount: 4, SuccessCount: 4, AvgDurationMs: 30},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("daily stats mismatch (-want +got):\n%s", diff)
	}

	onlyFirst, err := store.ListDailyStats(ctx, day1, day2)
	require.NoError(t, err)
	require.Len(t, onlyFirst, 2)
}

func testWeeklyStats(t *testing.T, store domain.UsageStore) {
	defer store.Close()
	ctx := context.Background()

	week1 := domain.WeekStart(base)
	week2 := week1.AddDate(0, 0, 7)
	require.NoError(t, store.UpsertWeeklyStats(ctx, []domain.WeeklyStat{
		{RecordID: "r1", WeekStart: week1.AddDate(0, 0, 3), UsageCount: 5, SuccessCount: 4, AvgDurationMs: 12},
		{RecordID: "r1", WeekStart: week2, UsageCount: 1, SuccessCount: 1, AvgDurationMs: 8},
	}))
	require.NoError(t, store.UpsertWeeklyStats(ctx, []domain.WeeklyStat{
		{RecordID: "r1", WeekStart: week1, UsageCount: 6, SuccessCount: 5, AvgDurationMs: 11},
	}))

	got, err := store.ListWeeklyStats(ctx, week1, week2.AddDate(0, 0, 7))
	require.NoError(t, err)
	want := []domain.WeeklyStat{
		{RecordID: "r1", WeekStart: week1, UsageCount: 6, SuccessCount: 5, AvgDurationMs: 11},
		{RecordID: "r1", WeekStart: week2, UsageCount: 1, SuccessCount: 1, AvgDurationMs: 8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("weekly stats mismatch (-want +got):\n%s", diff)
	}
}

func testClosed(t *testing.T, store domain.UsageStore) {
	ctx := context.Background()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	err := store.RecordUsage(ctx, usageLog("1", "r1", true, base))
	require.ErrorIs(t, err, domain.ErrStoreClosed)
	_, err = store.UsageCounters(ctx, "r1")
	require.ErrorIs(t, err, domain.ErrStoreClosed)
	_, err = store.ListUsageLogs(ctx, base, base.Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrStoreClosed)
	_, err = store.DeleteUsageLogsBefore(ctx, base)
	require.ErrorIs(t, err, domain.ErrStoreClosed)
}
