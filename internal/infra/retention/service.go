// Package retention rolls raw usage logs into daily and weekly statistics and
// prunes logs that fall outside the retention window.
package retention

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/telemetry"
)

// RunResult summarizes one retention pass.
type RunResult struct {
	RolledDays []time.Time `json:"rolledDays,omitempty"`
	DailyRows  int         `json:"dailyRows"`
	WeeklyRows int         `json:"weeklyRows"`
	Pruned     int         `json:"pruned"`
	Cutoff     time.Time   `json:"cutoff"`
}

// Service runs the retention pass on demand or on a ticker.
type Service struct {
	store   domain.UsageStore
	config  domain.RetentionConfig
	metrics domain.Metrics
	health  *telemetry.HealthTracker
	logger  *zap.Logger
	now     func() time.Time

	runMu sync.Mutex

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
	beat   *telemetry.Heartbeat
}

// NewService builds a retention service. Zero config fields fall back to defaults.
func NewService(store domain.UsageStore, config domain.RetentionConfig, metrics domain.Metrics, health *telemetry.HealthTracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if config.Days <= 0 {
		config.Days = domain.DefaultRetentionDays
	}
	if config.IntervalSeconds <= 0 {
		config.IntervalSeconds = domain.DefaultRetentionIntervalSeconds
	}
	return &Service{
		store:   store,
		config:  config,
		metrics: metrics,
		health:  health,
		logger:  logger.Named("retention"),
		now:     time.Now,
	}
}

// RunOnce rolls up every complete day inside the window that has no daily
// stats yet, refreshes the weekly rows those days touch, then prunes logs
// older than now minus the window. Rollups run first so pruned logs are
// already aggregated.
func (s *Service) RunOnce(ctx context.Context, now time.Time) (RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	result, err := s.run(ctx, now.UTC())
	s.metrics.ObserveRetentionRun(result.Pruned, result.DailyRows, result.WeeklyRows, time.Since(start), err)
	if err != nil {
		s.logger.Error("retention run failed",
			telemetry.EventField(telemetry.EventRetentionFailed),
			zap.Error(err),
		)
		return result, err
	}
	s.logger.Info("retention run completed",
		telemetry.EventField(telemetry.EventRetentionRun),
		zap.Int("rolledDays", len(result.RolledDays)),
		zap.Int("dailyRows", result.DailyRows),
		zap.Int("weeklyRows", result.WeeklyRows),
		zap.Int("pruned", result.Pruned),
		telemetry.DurationField(time.Since(start)),
	)
	return result, nil
}

func (s *Service) run(ctx context.Context, now time.Time) (RunResult, error) {
	if s.store == nil {
		return RunResult{}, errors.New("retention: usage store is required")
	}
	cutoff := now.Add(-s.config.Window())
	result := RunResult{Cutoff: cutoff}

	today := domain.DayStart(now)
	from := domain.DayStart(cutoff)

	daily, days, err := s.rollupDays(ctx, from, today)
	if err != nil {
		return result, err
	}
	result.RolledDays = days
	result.DailyRows = daily

	if s.config.Weekly && len(days) > 0 {
		weekly, err := s.rollupWeeks(ctx, days)
		if err != nil {
			return result, err
		}
		result.WeeklyRows = weekly
	}

	pruned, err := s.store.DeleteUsageLogsBefore(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("prune usage logs: %w", err)
	}
	result.Pruned = pruned
	return result, nil
}

type dayKey struct {
	recordID string
	day      time.Time
}

type accumulator struct {
	usage    int64
	success  int64
	duration time.Duration
}

func (s *Service) rollupDays(ctx context.Context, from, to time.Time) (int, []time.Time, error) {
	if !from.Before(to) {
		return 0, nil, nil
	}
	existing, err := s.store.ListDailyStats(ctx, from, to)
	if err != nil {
		return 0, nil, fmt.Errorf("list daily stats: %w", err)
	}
	aggregated := make(map[time.Time]struct{}, len(existing))
	for _, stat := range existing {
		aggregated[domain.DayStart(stat.Day)] = struct{}{}
	}

	logs, err := s.store.ListUsageLogs(ctx, from, to)
	if err != nil {
		return 0, nil, fmt.Errorf("list usage logs: %w", err)
	}

	acc := make(map[dayKey]*accumulator)
	for _, log := range logs {
		day := domain.DayStart(log.OccurredAt)
		if _, done := aggregated[day]; done {
			continue
		}
		key := dayKey{recordID: log.RecordID, day: day}
		entry := acc[key]
		if entry == nil {
			entry = &accumulator{}
			acc[key] = entry
		}
		entry.usage++
		if log.Success {
			entry.success++
		}
		entry.duration += log.Duration
	}
	if len(acc) == 0 {
		return 0, nil, nil
	}

	stats := make([]domain.DailyStat, 0, len(acc))
	daySet := make(map[time.Time]struct{})
	for key, entry := range acc {
		stats = append(stats, domain.DailyStat{
			RecordID:      key.recordID,
			Day:           key.day,
			UsageCount:    entry.usage,
			SuccessCount:  entry.success,
			AvgDurationMs: float64(entry.duration.Milliseconds()) / float64(entry.usage),
		})
		daySet[key.day] = struct{}{}
	}
	slices.SortFunc(stats, func(a, b domain.DailyStat) int {
		if c := a.Day.Compare(b.Day); c != 0 {
			return c
		}
		return strings.Compare(a.RecordID, b.RecordID)
	})
	if err := s.store.UpsertDailyStats(ctx, stats); err != nil {
		return 0, nil, fmt.Errorf("upsert daily stats: %w", err)
	}

	days := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	return len(stats), days, nil
}

// rollupWeeks recomputes each touched week from its daily rows.
func (s *Service) rollupWeeks(ctx context.Context, days []time.Time) (int, error) {
	var weeks []time.Time
	for _, day := range days {
		week := domain.WeekStart(day)
		if !slices.ContainsFunc(weeks, week.Equal) {
			weeks = append(weeks, week)
		}
	}

	var stats []domain.WeeklyStat
	for _, week := range weeks {
		daily, err := s.store.ListDailyStats(ctx, week, week.AddDate(0, 0, 7))
		if err != nil {
			return 0, fmt.Errorf("list daily stats: %w", err)
		}
		stats = append(stats, foldWeek(week, daily)...)
	}
	if len(stats) == 0 {
		return 0, nil
	}
	if err := s.store.UpsertWeeklyStats(ctx, stats); err != nil {
		return 0, fmt.Errorf("upsert weekly stats: %w", err)
	}
	return len(stats), nil
}

func foldWeek(week time.Time, daily []domain.DailyStat) []domain.WeeklyStat {
	type weekAcc struct {
		usage   int64
		success int64
		totalMs float64
	}
	byRecord := make(map[string]*weekAcc)
	var order []string
	for _, stat := range daily {
		entry := byRecord[stat.RecordID]
		if entry == nil {
			entry = &weekAcc{}
			byRecord[stat.RecordID] = entry
			order = append(order, stat.RecordID)
		}
		entry.usage += stat.UsageCount
		entry.success += stat.SuccessCount
		entry.totalMs += stat.AvgDurationMs * float64(stat.UsageCount)
	}
	slices.Sort(order)

	out := make([]domain.WeeklyStat, 0, len(order))
	for _, recordID := range order {
		entry := byRecord[recordID]
		avg := 0.0
		if entry.usage > 0 {
			avg = entry.totalMs / float64(entry.usage)
		}
		out = append(out, domain.WeeklyStat{
			RecordID:      recordID,
			WeekStart:     week,
			UsageCount:    entry.usage,
			SuccessCount:  entry.success,
			AvgDurationMs: avg,
		})
	}
	return out
}

// Start runs RunOnce every interval until Stop. A second Start is a no-op.
func (s *Service) Start(ctx context.Context) {
	interval := s.config.Interval()
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return
	}
	s.ticker = time.NewTicker(interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	ticker, stop, done := s.ticker, s.stop, s.done
	if s.health != nil {
		s.beat = s.health.Register("retention", interval*3)
	}
	beat := s.beat
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				beat.Beat()
				_, _ = s.RunOnce(ctx, s.now())
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	close(s.stop)
	done := s.done
	s.beat.Stop()
	s.beat = nil
	s.mu.Unlock()

	<-done
}
