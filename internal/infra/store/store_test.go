package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/store/boltstore"
	"skillcat/internal/infra/store/sqlitestore"
)

func TestOpen_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sqlite, err := Open(ctx, domain.StoreConfig{Driver: domain.StoreDriverSQLite, Path: filepath.Join(dir, "a.db")}, zap.NewNop())
	require.NoError(t, err)
	defer sqlite.Close()
	require.IsType(t, &sqlitestore.Store{}, sqlite)

	bolt, err := Open(ctx, domain.StoreConfig{Driver: domain.StoreDriverBolt, Path: filepath.Join(dir, "b.bolt")}, zap.NewNop())
	require.NoError(t, err)
	defer bolt.Close()
	require.IsType(t, &boltstore.Store{}, bolt)

	_, err = Open(ctx, domain.StoreConfig{Driver: "redis", Path: "x"}, zap.NewNop())
	require.ErrorIs(t, err, domain.ErrUnknownDriver)
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	require.Equal(t, domain.CodeInvalidArgument, code)
}

type recordingMetrics struct {
	domain.Metrics
	kinds    []domain.RecordKind
	outcomes []bool
}

func (m *recordingMetrics) ObserveUsageRecorded(kind domain.RecordKind, success bool) {
	m.kinds = append(m.kinds, kind)
	m.outcomes = append(m.outcomes, success)
}

func TestRecorder_FillsDefaults(t *testing.T) {
	ctx := context.Background()
	usage, err := sqlitestore.Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer usage.Close()

	metrics := &recordingMetrics{}
	recorder := NewRecorder(usage, metrics, zap.NewNop())
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("x", 3600))
	recorder.now = func() time.Time { return fixed }
	recorder.newID = func() string { return "generated" }

	stored, err := recorder.Record(ctx, domain.UsageLog{RecordID: " s1 ", Kind: domain.RecordKindSkill, Success: true})
	require.NoError(t, err)
	require.Equal(t, "generated", stored.ID)
	require.Equal(t, "s1", stored.RecordID)
	require.True(t, stored.OccurredAt.Equal(fixed))
	require.Equal(t, time.UTC, stored.OccurredAt.Location())

	counters, err := usage.UsageCounters(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{UsageCount: 1, SuccessCount: 1}, counters)
	require.Equal(t, []domain.RecordKind{domain.RecordKindSkill}, metrics.kinds)
	require.Equal(t, []bool{true}, metrics.outcomes)
}

func TestRecorder_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	usage, err := sqlitestore.Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer usage.Close()

	metrics := &recordingMetrics{}
	recorder := NewRecorder(usage, metrics, nil)

	_, err = recorder.Record(ctx, domain.UsageLog{RecordID: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidUsage)
	require.Empty(t, metrics.kinds)
}
