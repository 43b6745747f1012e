package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/telemetry"
)

const baseCatalog = `
tools:
  - id: fs.read
    name: read_file
    category: file
skills:
  - id: skill.notes
    name: note_taker
    category: productivity
    tools: [fs.read]
`

const grownCatalog = `
tools:
  - id: fs.read
    name: read_file
    category: file
  - id: fs.write
    name: write_file
    category: file
skills:
  - id: skill.notes
    name: note_taker
    category: productivity
    tools: [fs.read, fs.write]
`

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) ClearCache() {
	c.calls.Add(1)
}

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newProvider(t *testing.T, content string, opts Options) (*DynamicCatalogProvider, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, content)
	provider, err := NewDynamicCatalogProvider(context.Background(), path, opts)
	require.NoError(t, err)
	return provider, path
}

func TestNewDynamicCatalogProvider_IndexesCatalog(t *testing.T) {
	provider, _ := newProvider(t, baseCatalog, Options{Logger: zap.NewNop()})

	state, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Revision)
	assert.Len(t, state.Catalog.Tools, 1)
	assert.Len(t, state.ETag, 64)

	require.Equal(t, 2, provider.Index().Len())
	records, err := provider.ListRecords(context.Background(), domain.RecordFilter{Kind: domain.RecordKindSkill})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "skill.notes", records[0].ID)

	tools, err := provider.AssociatedToolIDs(context.Background(), "skill.notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"fs.read"}, tools)
}

func TestNewDynamicCatalogProvider_InvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, "tools: nope\n")

	_, err := NewDynamicCatalogProvider(context.Background(), path, Options{})
	require.ErrorIs(t, err, domain.ErrInvalidCatalog)
}

func TestReload_SwapsIndexAndClearsCaches(t *testing.T) {
	provider, path := newProvider(t, baseCatalog, Options{})
	invalidator := &countingInvalidator{}
	provider.AddInvalidator(invalidator)
	provider.AddInvalidator(nil)

	updates := make(chan domain.CatalogUpdate, 1)
	provider.subsMu.Lock()
	provider.subs[updates] = struct{}{}
	provider.subsMu.Unlock()

	before := provider.Index()
	writeCatalog(t, path, grownCatalog)
	require.NoError(t, provider.Reload(context.Background()))

	assert.NotSame(t, before, provider.Index())
	assert.Equal(t, 3, provider.Index().Len())
	assert.Equal(t, 2, before.Len())
	assert.Equal(t, int32(1), invalidator.calls.Load())

	select {
	case update := <-updates:
		assert.Equal(t, domain.CatalogUpdateSourceManual, update.Source)
		assert.Equal(t, uint64(2), update.Snapshot.Revision)
		assert.NotEmpty(t, update.Snapshot.ETag)
		assert.Equal(t, []string{"tool/fs.write"}, update.Diff.AddedRecords)
		assert.Equal(t, []string{"skill/skill.notes"}, update.Diff.UpdatedRecords)
	default:
		t.Fatal("no update broadcast")
	}

	// Unchanged content is a no-op.
	require.NoError(t, provider.Reload(context.Background()))
	assert.Equal(t, int32(1), invalidator.calls.Load())
	state, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.Revision)
}

func TestReload_KeepsPreviousStateOnError(t *testing.T) {
	provider, path := newProvider(t, baseCatalog, Options{})
	invalidator := &countingInvalidator{}
	provider.AddInvalidator(invalidator)

	writeCatalog(t, path, "skills: {broken: true}\n")
	require.ErrorIs(t, provider.Reload(context.Background()), domain.ErrInvalidCatalog)

	assert.Equal(t, 2, provider.Index().Len())
	assert.Zero(t, invalidator.calls.Load())
}

func TestReload_RejectsRuntimeAndTaxonomyChanges(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "runtime", content: baseCatalog + "retention:\n  days: 7\n"},
		{name: "taxonomy", content: baseCatalog + "intents:\n  - intent: code\n    keywords: [code]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, path := newProvider(t, baseCatalog, Options{})
			writeCatalog(t, path, tt.content)

			err := provider.Reload(context.Background())
			require.ErrorIs(t, err, ErrRestartRequired)

			state, err := provider.Snapshot(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(1), state.Revision)
		})
	}
}

func TestReload_AppliesDynamicRuntimeFields(t *testing.T) {
	provider, path := newProvider(t, baseCatalog, Options{})
	writeCatalog(t, path, baseCatalog+"recommend:\n  threshold: 0.5\n")

	require.NoError(t, provider.Reload(context.Background()))

	state, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.Revision)
	assert.InDelta(t, 0.5, state.Catalog.Runtime.Recommend.Threshold, 1e-9)
}

func TestNewDynamicCatalogProvider_InstallsIndexHealthCheck(t *testing.T) {
	health := telemetry.NewHealthTracker()
	provider, path := newProvider(t, baseCatalog, Options{Health: health})

	report := health.Report()
	require.Len(t, report.Checks, 1)
	assert.Equal(t, IndexHealthCheck, report.Checks[0].Name)
	assert.Equal(t, telemetry.HealthStatusOK, report.Status)

	writeCatalog(t, path, grownCatalog+`
  - id: skill.notes
    name: note_taker_v2
`)
	require.NoError(t, provider.Reload(context.Background()))
	report = health.Report()
	assert.Equal(t, telemetry.HealthStatusDegraded, report.Status)
	assert.Contains(t, report.Checks[0].Message, "unhealthy")
}

func TestWatch_ReloadsOnFileChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, baseCatalog)
	provider, err := NewDynamicCatalogProvider(ctx, path, Options{})
	require.NoError(t, err)

	updates, err := provider.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher goroutine time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeCatalog(t, path, grownCatalog)

	select {
	case update := <-updates:
		assert.Equal(t, domain.CatalogUpdateSourceWatch, update.Source)
		assert.Equal(t, 3, provider.Index().Len())
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the catalog")
	}
}

func TestWatch_SubscriberRemovedOnCancel(t *testing.T) {
	provider, _ := newProvider(t, baseCatalog, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := provider.Watch(ctx)
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		return len(provider.copySubscribers()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSnapshot_ConcurrentWithReload(t *testing.T) {
	provider, path := newProvider(t, baseCatalog, Options{})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := provider.Snapshot(context.Background())
			assert.NoError(t, err)
			assert.NotZero(t, state.Revision)
			_, err = provider.ListRecords(context.Background(), domain.RecordFilter{})
			assert.NoError(t, err)
		}()
	}
	writeCatalog(t, path, grownCatalog)
	require.NoError(t, provider.Reload(context.Background()))
	wg.Wait()
}

func TestSnapshot_ContextCancellation(t *testing.T) {
	provider, _ := newProvider(t, baseCatalog, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestShouldReloadForPath(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		configPath   string
		shouldReload bool
	}{
		{name: "exact match", path: "/etc/skillcat/catalog.yaml", configPath: "/etc/skillcat/catalog.yaml", shouldReload: true},
		{name: "sibling file", path: "/etc/skillcat/other.yaml", configPath: "/etc/skillcat/catalog.yaml"},
		{name: "empty path", configPath: "/etc/skillcat/catalog.yaml"},
		{name: "empty config path", path: "/etc/skillcat/catalog.yaml"},
		{name: "unclean path", path: "/etc/skillcat/./catalog.yaml", configPath: "/etc/skillcat/catalog.yaml", shouldReload: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shouldReload, shouldReloadForPath(tt.path, tt.configPath))
		})
	}
}

func TestTimerChan(t *testing.T) {
	assert.Nil(t, timerChan(nil))

	timer := time.NewTimer(time.Millisecond)
	defer timer.Stop()
	select {
	case <-timerChan(timer):
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
