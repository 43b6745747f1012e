package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcat/internal/domain"
)

func TestCatalogETag(t *testing.T) {
	catalog := domain.Catalog{
		Tools:    []domain.CatalogRecord{{ID: "fs.read", Kind: domain.RecordKindTool, Name: "read_file", Enabled: true}},
		Taxonomy: domain.DefaultTaxonomy(),
	}

	first := CatalogETag(zap.NewNop(), catalog)
	require.Len(t, first, 64)
	require.Equal(t, first, CatalogETag(nil, catalog))

	catalog.Tools[0].Enabled = false
	require.NotEqual(t, first, CatalogETag(nil, catalog))
}

func TestCatalogETag_OrderSensitive(t *testing.T) {
	a := domain.CatalogRecord{ID: "a", Kind: domain.RecordKindTool}
	b := domain.CatalogRecord{ID: "b", Kind: domain.RecordKindTool}

	require.NotEqual(t,
		CatalogETag(nil, domain.Catalog{Tools: []domain.CatalogRecord{a, b}}),
		CatalogETag(nil, domain.Catalog{Tools: []domain.CatalogRecord{b, a}}),
	)
}
