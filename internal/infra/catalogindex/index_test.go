package catalogindex

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"skillcat/internal/domain"
)

func sampleRecords() []domain.CatalogRecord {
	return []domain.CatalogRecord{
		{ID: "fs.read", Kind: domain.RecordKindTool, Name: "read_file", DisplayName: "Read File", Description: "Read a file from disk", Category: "file", RequiredPermissions: []string{"fs.read"}, RiskLevel: 1, Enabled: true},
		{ID: "fs.write", Kind: domain.RecordKindTool, Name: "write_file", DisplayName: "Write File", Description: "Write content to disk", Category: "file", RequiredPermissions: []string{"fs.read", "fs.write"}, RiskLevel: 3, Enabled: true},
		{ID: "sh.exec", Kind: domain.RecordKindTool, Name: "run_shell", DisplayName: "Run Shell", Description: "Execute a shell command", Category: "system", RequiredPermissions: []string{"shell.exec", "fs.write"}, RiskLevel: 5, Enabled: false},
		{ID: "web.fetch", Kind: domain.RecordKindTool, Name: "fetch_url", DisplayName: "Fetch URL", Description: "Download a web page", Category: "web", RequiredPermissions: []string{"net"}, Enabled: true},
		{ID: "skill.code", Kind: domain.RecordKindSkill, Name: "code_helper", DisplayName: "Code Helper", Description: "Write and debug code", Category: "development", Tools: []string{"fs.read", "fs.write", "sh.exec"}, Enabled: true},
	}
}

func ids(records []domain.CatalogRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestNew_CategoryScenario(t *testing.T) {
	idx := New([]domain.CatalogRecord{
		{ID: "t1", Name: "alpha", Category: "code"},
		{ID: "t2", Name: "beta"},
	}, Options{})

	require.Equal(t, []string{"t1"}, ids(idx.GetByCategory("code")))
	require.Empty(t, idx.GetByCategory("missing"))
	require.NotNil(t, idx.GetByCategory("missing"))

	_, ok := idx.GetByID("t2")
	require.True(t, ok)
	require.Equal(t, []string{"code"}, idx.Categories())
}

func TestNew_SkipsInvalidRecordsWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	idx := New([]domain.CatalogRecord{
		{ID: "a", Name: "alpha"},
		{ID: "", Name: "nameless-id"},
		{ID: "c", Name: ""},
		{ID: "d", Name: "delta"},
	}, Options{Logger: zap.New(core)})

	require.Equal(t, 2, idx.Len())
	require.Equal(t, []string{"a", "d"}, ids(idx.Records()))
	require.Equal(t, 2, logs.FilterMessage("skipping catalog record without id or name").Len())

	_, ok := idx.GetByName("nameless-id")
	require.False(t, ok)
}

func TestNew_LastWriterWinsOnDuplicates(t *testing.T) {
	idx := New([]domain.CatalogRecord{
		{ID: "x", Name: "same", Description: "first"},
		{ID: "y", Name: "same", Description: "second"},
		{ID: "x", Name: "other", Description: "third"},
	}, Options{})

	byName, ok := idx.GetByName("same")
	require.True(t, ok)
	require.Equal(t, "second", byName.Description)

	byID, ok := idx.GetByID("x")
	require.True(t, ok)
	require.Equal(t, "third", byID.Description)

	report := idx.HealthCheck()
	require.False(t, report.Healthy)
	require.Equal(t, 2, report.UniqueIDs)
	require.Equal(t, 3, report.ValidRecords)
}

func TestLookups_MissingKeysAreEmpty(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	_, ok := idx.GetByID("nope")
	assert.False(t, ok)
	_, ok = idx.GetByName("nope")
	assert.False(t, ok)
	assert.Empty(t, idx.GetByCategory("nope"))
	assert.Empty(t, idx.GetByPermission("nope"))
	assert.Empty(t, idx.GetByRiskLevel(42))
}

func TestGetByPermission_InvertedIndex(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	require.Equal(t, []string{"fs.read", "fs.write"}, ids(idx.GetByPermission("fs.read")))
	require.Equal(t, []string{"fs.write", "sh.exec"}, ids(idx.GetByPermission("fs.write")))
	require.Equal(t, []string{"sh.exec"}, ids(idx.GetByPermission("shell.exec")))
}

func TestGetByRiskLevel_DefaultsToOne(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	require.Equal(t, []string{"fs.read", "web.fetch", "skill.code"}, ids(idx.GetByRiskLevel(1)))
	require.Equal(t, []string{"sh.exec"}, ids(idx.GetByRiskLevel(5)))
	require.Equal(t, []int{1, 3, 5}, idx.RiskLevels())
}

func TestQuery(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	tests := []struct {
		name   string
		filter domain.RecordFilter
		want   []string
	}{
		{name: "empty filter returns everything", filter: domain.RecordFilter{}, want: []string{"fs.read", "fs.write", "sh.exec", "web.fetch", "skill.code"}},
		{name: "category", filter: domain.RecordFilter{Category: "file"}, want: []string{"fs.read", "fs.write"}},
		{name: "risk level", filter: domain.RecordFilter{RiskLevel: 3}, want: []string{"fs.write"}},
		{name: "permissions use AND", filter: domain.RecordFilter{Permissions: []string{"fs.read", "fs.write"}}, want: []string{"fs.write"}},
		{name: "enabled false", filter: domain.RecordFilter{Enabled: domain.Bool(false)}, want: []string{"sh.exec"}},
		{name: "kind", filter: domain.RecordFilter{Kind: domain.RecordKindSkill}, want: []string{"skill.code"}},
		{name: "composed filters", filter: domain.RecordFilter{Category: "file", Enabled: domain.Bool(true), Permissions: []string{"fs.write"}}, want: []string{"fs.write"}},
		{name: "no match", filter: domain.RecordFilter{Category: "file", RiskLevel: 5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(idx.Query(tt.filter))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("query mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuery_PermissionSubsetOfInvertedIndex(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	for _, permission := range idx.Permissions() {
		queried := idx.Query(domain.RecordFilter{Permissions: []string{permission}})
		indexed := idx.GetByPermission(permission)
		require.ElementsMatch(t, ids(indexed), ids(queried), permission)

		narrowed := idx.Query(domain.RecordFilter{Permissions: []string{permission}, Enabled: domain.Bool(true)})
		require.Subset(t, ids(indexed), ids(narrowed), permission)
	}
}

func TestSearch(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	require.Equal(t, []string{"fs.read", "fs.write"}, ids(idx.Search("FILE")))
	require.Equal(t, []string{"web.fetch"}, ids(idx.Search("download")))
	require.Empty(t, idx.Search(""))
	require.Empty(t, idx.Search("   "))
	require.Equal(t, []string{"sh.exec"}, ids(idx.Search("system", FieldCategory)))
	require.Empty(t, idx.Search("system"))
	require.Equal(t, []string{"skill.code"}, ids(idx.Search("skill.", FieldID)))
}

func TestStats(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	stats := idx.Stats()
	require.Equal(t, 5, stats.TotalRecords)
	require.Equal(t, 4, stats.CategoryCount)
	require.Equal(t, 4, stats.PermissionCount)
	require.Equal(t, 3, stats.RiskLevelCount)
	require.Equal(t, map[string]int{"file": 2, "system": 1, "web": 1, "development": 1}, stats.ByCategory)
	require.Equal(t, map[int]int{1: 3, 3: 1, 5: 1}, stats.ByRiskLevel)

	want := []PermissionUsage{
		{Permission: "fs.read", Count: 2},
		{Permission: "fs.write", Count: 2},
		{Permission: "shell.exec", Count: 1},
		{Permission: "net", Count: 1},
	}
	if diff := cmp.Diff(want, stats.TopPermissions); diff != "" {
		t.Fatalf("top permissions mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_TopPermissionsCappedAtTen(t *testing.T) {
	records := make([]domain.CatalogRecord, 0, 12)
	for i := range 12 {
		perm := string(rune('a' + i))
		records = append(records, domain.CatalogRecord{ID: perm, Name: perm, RequiredPermissions: []string{perm}})
	}
	idx := New(records, Options{})

	stats := idx.Stats()
	require.Equal(t, 12, stats.PermissionCount)
	require.Len(t, stats.TopPermissions, 10)
	require.Equal(t, "a", stats.TopPermissions[0].Permission)
}

func TestHealthCheck(t *testing.T) {
	idx := New(sampleRecords(), Options{})
	report := idx.HealthCheck()
	require.True(t, report.Healthy)
	require.Empty(t, report.Issues)
	require.Equal(t, report.ValidRecords, report.UniqueIDs)

	broken := New([]domain.CatalogRecord{
		{ID: "ok", Name: "ok", Category: "c"},
		{Name: "no-id"},
		{ID: "no-cat", Name: "no-cat"},
	}, Options{})
	report = broken.HealthCheck()
	require.False(t, report.Healthy)
	require.Equal(t, 3, report.InputRecords)
	require.Equal(t, 2, report.ValidRecords)
	require.Equal(t, []string{"records[1] (no-id)"}, report.MissingID)
	require.ElementsMatch(t, []string{"records[1] (no-id)", "no-cat"}, report.MissingCategory)
	require.Len(t, report.Warnings, 1)
}

func TestIndex_ReturnsCopies(t *testing.T) {
	idx := New(sampleRecords(), Options{})

	got, ok := idx.GetByID("fs.write")
	require.True(t, ok)
	got.RequiredPermissions[0] = "mutated"

	again, _ := idx.GetByID("fs.write")
	require.Equal(t, "fs.read", again.RequiredPermissions[0])
}

func TestAccessor(t *testing.T) {
	idx := New(sampleRecords(), Options{})
	ctx := context.Background()

	records, err := idx.ListRecords(ctx, domain.RecordFilter{Enabled: domain.Bool(true), Kind: domain.RecordKindTool})
	require.NoError(t, err)
	require.Equal(t, []string{"fs.read", "fs.write", "web.fetch"}, ids(records))

	tools, err := idx.AssociatedToolIDs(ctx, "skill.code")
	require.NoError(t, err)
	require.Equal(t, []string{"fs.read", "fs.write", "sh.exec"}, tools)

	tools, err = idx.AssociatedToolIDs(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, tools)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = idx.ListRecords(canceled, domain.RecordFilter{})
	require.ErrorIs(t, err, context.Canceled)
}
