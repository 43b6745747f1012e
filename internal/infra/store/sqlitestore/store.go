// Package sqlitestore persists usage logs, counters and rollups in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"skillcat/internal/domain"
)

const dayLayout = time.DateOnly

type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
	logger *zap.Logger
}

// Open opens or creates the usage database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("store path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if trimmed != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
			return nil, fmt.Errorf("ensure store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers without relying on busy retries alone.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{
		db:     db,
		path:   trimmed,
		logger: logger.Named("store").With(zap.String("driver", domain.StoreDriverSQLite)),
	}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// RecordUsage stores the log and bumps the record's counters atomically.
func (s *Store) RecordUsage(ctx context.Context, log domain.UsageLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO usage_logs (id, record_id, kind, success, duration_ns, query, occurred_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			log.ID, log.RecordID, string(log.Kind), boolToInt(log.Success),
			int64(log.Duration), log.Query, log.OccurredAt.UTC().UnixNano(),
		); err != nil {
			return fmt.Errorf("insert usage log: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO usage_counters (record_id, usage_count, success_count) VALUES (?, 1, ?)
			 ON CONFLICT(record_id) DO UPDATE SET
			   usage_count = usage_count + 1,
			   success_count = success_count + excluded.success_count`,
			log.RecordID, boolToInt(log.Success),
		); err != nil {
			return fmt.Errorf("update usage counters: %w", err)
		}
		return nil
	})
}

// UsageCounters returns zero counters for records that were never used.
func (s *Store) UsageCounters(ctx context.Context, recordID string) (domain.UsageCounters, error) {
	var counters domain.UsageCounters
	err := s.withDB(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx,
			"SELECT usage_count, success_count FROM usage_counters WHERE record_id = ?", recordID)
		err := row.Scan(&counters.UsageCount, &counters.SuccessCount)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	})
	return counters, err
}

// ListUsageLogs returns logs with from <= occurredAt < to, oldest first.
func (s *Store) ListUsageLogs(ctx context.Context, from, to time.Time) ([]domain.UsageLog, error) {
	logs := make([]domain.UsageLog, 0)
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT id, record_id, kind, success, duration_ns, query, occurred_at
			 FROM usage_logs WHERE occurred_at >= ? AND occurred_at < ?
			 ORDER BY occurred_at, id`,
			from.UTC().UnixNano(), to.UTC().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("query usage logs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				log        domain.UsageLog
				kind       string
				success    int
				durationNs int64
				occurredAt int64
			)
			if err := rows.Scan(&log.ID, &log.RecordID, &kind, &success, &durationNs, &log.Query, &occurredAt); err != nil {
				return fmt.Errorf("scan usage log: %w", err)
			}
			log.Kind = domain.RecordKind(kind)
			log.Success = success != 0
			log.Duration = time.Duration(durationNs)
			log.OccurredAt = time.Unix(0, occurredAt).UTC()
			logs = append(logs, log)
		}
		return rows.Err()
	})
	return logs, err
}

// DeleteUsageLogsBefore removes logs older than cutoff. Counters are kept.
func (s *Store) DeleteUsageLogsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var deleted int64
	err := s.withDB(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM usage_logs WHERE occurred_at < ?", cutoff.UTC().UnixNano())
		if err != nil {
			return fmt.Errorf("delete usage logs: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return int(deleted), err
}

func (s *Store) UpsertDailyStats(ctx context.Context, stats []domain.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO daily_stats (record_id, day, usage_count, success_count, avg_duration_ms)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(record_id, day) DO UPDATE SET
			   usage_count = excluded.usage_count,
			   success_count = excluded.success_count,
			   avg_duration_ms = excluded.avg_duration_ms`)
		if err != nil {
			return fmt.Errorf("prepare daily upsert: %w", err)
		}
		defer stmt.Close()
		for _, stat := range stats {
			if _, err := stmt.ExecContext(ctx, stat.RecordID, domain.DayStart(stat.Day).Format(dayLayout),
				stat.UsageCount, stat.SuccessCount, stat.AvgDurationMs); err != nil {
				return fmt.Errorf("upsert daily stat %s: %w", stat.RecordID, err)
			}
		}
		return nil
	})
}

// ListDailyStats returns rows with from <= day < to ordered by day then record.
func (s *Store) ListDailyStats(ctx context.Context, from, to time.Time) ([]domain.DailyStat, error) {
	stats := make([]domain.DailyStat, 0)
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT record_id, day, usage_count, success_count, avg_duration_ms
			 FROM daily_stats WHERE day >= ? AND day < ? ORDER BY day, record_id`,
			domain.DayStart(from).Format(dayLayout), domain.DayStart(to).Format(dayLayout),
		)
		if err != nil {
			return fmt.Errorf("query daily stats: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				stat domain.DailyStat
				day  string
			)
			if err := rows.Scan(&stat.RecordID, &day, &stat.UsageCount, &stat.SuccessCount, &stat.AvgDurationMs); err != nil {
				return fmt.Errorf("scan daily stat: %w", err)
			}
			if stat.Day, err = time.ParseInLocation(dayLayout, day, time.UTC); err != nil {
				return fmt.Errorf("parse day %q: %w", day, err)
			}
			stats = append(stats, stat)
		}
		return rows.Err()
	})
	return stats, err
}

func (s *Store) UpsertWeeklyStats(ctx context.Context, stats []domain.WeeklyStat) error {
	if len(stats) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO weekly_stats (record_id, week_start, usage_count, success_count, avg_duration_ms)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(record_id, week_start) DO UPDATE SET
			   usage_count = excluded.usage_count,
			   success_count = excluded.success_count,
			   avg_duration_ms = excluded.avg_duration_ms`)
		if err != nil {
			return fmt.Errorf("prepare weekly upsert: %w", err)
		}
		defer stmt.Close()
		for _, stat := range stats {
			if _, err := stmt.ExecContext(ctx, stat.RecordID, domain.WeekStart(stat.WeekStart).Format(dayLayout),
				stat.UsageCount, stat.SuccessCount, stat.AvgDurationMs); err != nil {
				return fmt.Errorf("upsert weekly stat %s: %w", stat.RecordID, err)
			}
		}
		return nil
	})
}

// ListWeeklyStats returns rows with from <= weekStart < to.
func (s *Store) ListWeeklyStats(ctx context.Context, from, to time.Time) ([]domain.WeeklyStat, error) {
	stats := make([]domain.WeeklyStat, 0)
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT record_id, week_start, usage_count, success_count, avg_duration_ms
			 FROM weekly_stats WHERE week_start >= ? AND week_start < ? ORDER BY week_start, record_id`,
			domain.DayStart(from).Format(dayLayout), domain.DayStart(to).Format(dayLayout),
		)
		if err != nil {
			return fmt.Errorf("query weekly stats: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				stat domain.WeeklyStat
				week string
			)
			if err := rows.Scan(&stat.RecordID, &week, &stat.UsageCount, &stat.SuccessCount, &stat.AvgDurationMs); err != nil {
				return fmt.Errorf("scan weekly stat: %w", err)
			}
			if stat.WeekStart, err = time.ParseInLocation(dayLayout, week, time.UTC); err != nil {
				return fmt.Errorf("parse week %q: %w", week, err)
			}
			stats = append(stats, stat)
		}
		return rows.Err()
	})
	return stats, err
}

func (s *Store) withDB(fn func(*sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return fn(s.db)
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return s.withDB(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("rollback failed", zap.Error(rbErr))
			}
			return err
		}
		return tx.Commit()
	})
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

var _ domain.UsageStore = (*Store)(nil)
