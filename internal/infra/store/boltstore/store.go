// Package boltstore persists usage logs, counters and rollups in a bbolt file.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"skillcat/internal/domain"
)

const dayLayout = time.DateOnly

// ErrDuplicateLog is returned when a usage log id was already stored.
var ErrDuplicateLog = errors.New("usage log already recorded")

type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
	logger *zap.Logger
}

type storedLog struct {
	ID         string            `json:"id"`
	RecordID   string            `json:"recordId"`
	Kind       domain.RecordKind `json:"kind,omitempty"`
	Success    bool              `json:"success"`
	DurationNs int64             `json:"durationNs"`
	Query      string            `json:"query,omitempty"`
	OccurredAt int64             `json:"occurredAt"`
}

type storedStat struct {
	UsageCount    int64   `json:"usageCount"`
	SuccessCount  int64   `json:"successCount"`
	AvgDurationMs float64 `json:"avgDurationMs"`
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, errors.New("store path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:     db,
		path:   trimmed,
		logger: logger.Named("store").With(zap.String("driver", domain.StoreDriverBolt)),
	}, nil
}

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

func (s *Store) RecordUsage(ctx context.Context, log domain.UsageLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(storedLog{
		ID:         log.ID,
		RecordID:   log.RecordID,
		Kind:       log.Kind,
		Success:    log.Success,
		DurationNs: int64(log.Duration),
		Query:      log.Query,
		OccurredAt: log.OccurredAt.UTC().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode usage log: %w", err)
	}
	key := logKey(log.OccurredAt, log.ID)

	return s.update(func(tx *bolt.Tx) error {
		ids, err := bucket(tx, logIDsBucketName)
		if err != nil {
			return err
		}
		if ids.Get([]byte(log.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateLog, log.ID)
		}
		logs, err := bucket(tx, logsBucketName)
		if err != nil {
			return err
		}
		if err := logs.Put(key, value); err != nil {
			return fmt.Errorf("write usage log: %w", err)
		}
		if err := ids.Put([]byte(log.ID), key); err != nil {
			return fmt.Errorf("index usage log: %w", err)
		}

		counters, err := bucket(tx, countersBucketName)
		if err != nil {
			return err
		}
		current, err := decodeCounters(counters.Get([]byte(log.RecordID)))
		if err != nil {
			return err
		}
		current.UsageCount++
		if log.Success {
			current.SuccessCount++
		}
		encoded, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode counters: %w", err)
		}
		return counters.Put([]byte(log.RecordID), encoded)
	})
}

func (s *Store) UsageCounters(ctx context.Context, recordID string) (domain.UsageCounters, error) {
	var counters domain.UsageCounters
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, countersBucketName)
		if err != nil {
			return err
		}
		counters, err = decodeCounters(b.Get([]byte(recordID)))
		return err
	})
	return counters, err
}

func (s *Store) ListUsageLogs(ctx context.Context, from, to time.Time) ([]domain.UsageLog, error) {
	logs := make([]domain.UsageLog, 0)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, logsBucketName)
		if err != nil {
			return err
		}
		upper := timeKey(to)
		c := b.Cursor()
		for k, v := c.Seek(timeKey(from)); k != nil && bytes.Compare(k[:8], upper) < 0; k, v = c.Next() {
			var stored storedLog
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("decode usage log: %w", err)
			}
			logs = append(logs, domain.UsageLog{
				ID:         stored.ID,
				RecordID:   stored.RecordID,
				Kind:       stored.Kind,
				Success:    stored.Success,
				Duration:   time.Duration(stored.DurationNs),
				Query:      stored.Query,
				OccurredAt: time.Unix(0, stored.OccurredAt).UTC(),
			})
		}
		return nil
	})
	return logs, err
}

func (s *Store) DeleteUsageLogsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deleted := 0
	err := s.update(func(tx *bolt.Tx) error {
		logs, err := bucket(tx, logsBucketName)
		if err != nil {
			return err
		}
		ids, err := bucket(tx, logIDsBucketName)
		if err != nil {
			return err
		}
		upper := timeKey(cutoff)
		var expired [][]byte
		c := logs.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k[:8], upper) < 0; k, _ = c.Next() {
			expired = append(expired, append([]byte(nil), k...))
		}
		for _, key := range expired {
			if err := logs.Delete(key); err != nil {
				return fmt.Errorf("delete usage log: %w", err)
			}
			if err := ids.Delete(key[8:]); err != nil {
				return fmt.Errorf("delete usage log id: %w", err)
			}
		}
		deleted = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Debug("usage logs deleted", zap.Int("count", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

func (s *Store) UpsertDailyStats(ctx context.Context, stats []domain.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, dailyBucketName)
		if err != nil {
			return err
		}
		for _, stat := range stats {
			value, err := json.Marshal(storedStat{
				UsageCount:    stat.UsageCount,
				SuccessCount:  stat.SuccessCount,
				AvgDurationMs: stat.AvgDurationMs,
			})
			if err != nil {
				return fmt.Errorf("encode daily stat: %w", err)
			}
			if err := b.Put(statKey(domain.DayStart(stat.Day), stat.RecordID), value); err != nil {
				return fmt.Errorf("write daily stat %s: %w", stat.RecordID, err)
			}
		}
		return nil
	})
}

func (s *Store) ListDailyStats(ctx context.Context, from, to time.Time) ([]domain.DailyStat, error) {
	stats := make([]domain.DailyStat, 0)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, dailyBucketName)
		if err != nil {
			return err
		}
		return scanStats(b, domain.DayStart(from), domain.DayStart(to), func(day time.Time, recordID string, stat storedStat) {
			stats = append(stats, domain.DailyStat{
				RecordID:      recordID,
				Day:           day,
				UsageCount:    stat.UsageCount,
				SuccessCount:  stat.SuccessCount,
				AvgDurationMs: stat.AvgDurationMs,
			})
		})
	})
	return stats, err
}

func (s *Store) UpsertWeeklyStats(ctx context.Context, stats []domain.WeeklyStat) error {
	if len(stats) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, weeklyBucketName)
		if err != nil {
			return err
		}
		for _, stat := range stats {
			value, err := json.Marshal(storedStat{
				UsageCount:    stat.UsageCount,
				SuccessCount:  stat.SuccessCount,
				AvgDurationMs: stat.AvgDurationMs,
			})
			if err != nil {
				return fmt.Errorf("encode weekly stat: %w", err)
			}
			if err := b.Put(statKey(domain.WeekStart(stat.WeekStart), stat.RecordID), value); err != nil {
				return fmt.Errorf("write weekly stat %s: %w", stat.RecordID, err)
			}
		}
		return nil
	})
}

func (s *Store) ListWeeklyStats(ctx context.Context, from, to time.Time) ([]domain.WeeklyStat, error) {
	stats := make([]domain.WeeklyStat, 0)
	err := s.view(ctx, func(tx *bolt.Tx) error {
		b, err := bucket(tx, weeklyBucketName)
		if err != nil {
			return err
		}
		return scanStats(b, domain.DayStart(from), domain.DayStart(to), func(week time.Time, recordID string, stat storedStat) {
			stats = append(stats, domain.WeeklyStat{
				RecordID:      recordID,
				WeekStart:     week,
				UsageCount:    stat.UsageCount,
				SuccessCount:  stat.SuccessCount,
				AvgDurationMs: stat.AvgDurationMs,
			})
		})
	})
	return stats, err
}

func (s *Store) view(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(fn)
}

// timeKey encodes t so that byte order matches chronological order,
// including instants before the Unix epoch.
func timeKey(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UTC().UnixNano())^(1<<63))
	return buf
}

func logKey(t time.Time, id string) []byte {
	return append(timeKey(t), id...)
}

// statKey is "YYYY-MM-DD/<recordID>"; lexical order is day then record.
func statKey(day time.Time, recordID string) []byte {
	return []byte(day.Format(dayLayout) + "/" + recordID)
}

func scanStats(b *bolt.Bucket, from, to time.Time, emit func(time.Time, string, storedStat)) error {
	lower := []byte(from.Format(dayLayout))
	upper := []byte(to.Format(dayLayout))
	c := b.Cursor()
	for k, v := c.Seek(lower); k != nil && len(k) > len(dayLayout) && bytes.Compare(k[:len(dayLayout)], upper) < 0; k, v = c.Next() {
		day, err := time.ParseInLocation(dayLayout, string(k[:len(dayLayout)]), time.UTC)
		if err != nil {
			return fmt.Errorf("parse stat key %q: %w", k, err)
		}
		var stat storedStat
		if err := json.Unmarshal(v, &stat); err != nil {
			return fmt.Errorf("decode stat: %w", err)
		}
		emit(day, string(k[len(dayLayout)+1:]), stat)
	}
	return nil
}

func decodeCounters(raw []byte) (domain.UsageCounters, error) {
	var counters domain.UsageCounters
	if len(raw) == 0 {
		return counters, nil
	}
	if err := json.Unmarshal(raw, &counters); err != nil {
		return counters, fmt.Errorf("decode counters: %w", err)
	}
	return counters, nil
}

var _ domain.UsageStore = (*Store)(nil)
