package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.UsageStore {
		return newTestStore(t)
	})
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "usage.db")
	ctx := context.Background()

	store, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.Equal(t, path, store.Path())
	require.NoError(t, store.RecordUsage(ctx, domain.UsageLog{
		ID:         "l1",
		RecordID:   "r1",
		Success:    true,
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC),
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	counters, err := reopened.UsageCounters(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, domain.UsageCounters{UsageCount: 1, SuccessCount: 1}, counters)

	var version int
	require.NoError(t, reopened.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version))
	require.Equal(t, len(migrations)-1, version)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ", nil)
	require.Error(t, err)
}
