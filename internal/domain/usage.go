package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// UsageCounters are the monotonic per-record counters maintained by usage logging.
type UsageCounters struct {
	UsageCount   int64 `json:"usageCount"`
	SuccessCount int64 `json:"successCount"`
}

// SuccessRate returns successCount/usageCount, or 0 when the record was never used.
func (c UsageCounters) SuccessRate() float64 {
	if c.UsageCount <= 0 {
		return 0
	}
	return float64(c.SuccessCount) / float64(max(c.UsageCount, 1))
}

// UsageVolume is the log-scaled usage term in [0,1]; 1000 uses saturate it.
func (c UsageCounters) UsageVolume() float64 {
	return math.Min(math.Log10(float64(c.UsageCount)+1)/3, 1)
}

// UsageLog is one raw invocation record.
type UsageLog struct {
	ID         string        `json:"id"`
	RecordID   string        `json:"recordId"`
	Kind       RecordKind    `json:"kind,omitempty"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"duration"`
	Query      string        `json:"query,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// Validate reports whether the log can be persisted.
func (l UsageLog) Validate() error {
	switch {
	case l.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidUsage)
	case l.RecordID == "":
		return fmt.Errorf("%w: recordId is required", ErrInvalidUsage)
	case l.OccurredAt.IsZero():
		return fmt.Errorf("%w: occurredAt is required", ErrInvalidUsage)
	case l.Duration < 0:
		return fmt.Errorf("%w: duration must be >= 0", ErrInvalidUsage)
	}
	return nil
}

// DailyStat aggregates one record's raw logs for a calendar day (UTC).
type DailyStat struct {
	RecordID      string    `json:"recordId"`
	Day           time.Time `json:"day"`
	UsageCount    int64     `json:"usageCount"`
	SuccessCount  int64     `json:"successCount"`
	AvgDurationMs float64   `json:"avgDurationMs"`
}

// WeeklyStat aggregates daily stats for one ISO week.
type WeeklyStat struct {
	RecordID      string    `json:"recordId"`
	WeekStart     time.Time `json:"weekStart"`
	UsageCount    int64     `json:"usageCount"`
	SuccessCount  int64     `json:"successCount"`
	AvgDurationMs float64   `json:"avgDurationMs"`
}

// UsageReader exposes live usage counters for a record.
type UsageReader interface {
	UsageCounters(ctx context.Context, recordID string) (UsageCounters, error)
}

// UsageStore persists usage logs, counters and rollups.
type UsageStore interface {
	UsageReader
	RecordUsage(ctx context.Context, log UsageLog) error
	ListUsageLogs(ctx context.Context, from, to time.Time) ([]UsageLog, error)
	DeleteUsageLogsBefore(ctx context.Context, cutoff time.Time) (int, error)
	UpsertDailyStats(ctx context.Context, stats []DailyStat) error
	ListDailyStats(ctx context.Context, from, to time.Time) ([]DailyStat, error)
	UpsertWeeklyStats(ctx context.Context, stats []WeeklyStat) error
	ListWeeklyStats(ctx context.Context, from, to time.Time) ([]WeeklyStat, error)
	Close() error
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday (UTC) of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
