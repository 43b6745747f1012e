package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaxonomyNormalized_DropsRepeatedKeywords(t *testing.T) {
	taxonomy := Taxonomy{
		Intents: []IntentRule{
			{Intent: "code", Label: "coding", Keywords: []string{"Code", "code", " CODE ", "", "debug", "Debug"}},
			{Intent: "data", Keywords: []string{"data", "code"}},
		},
		CategoryIntents: map[string][]string{"development": {"code"}},
	}

	normalized := taxonomy.Normalized()
	require.Equal(t, []string{"code", "debug"}, normalized.Intents[0].Keywords)
	require.Equal(t, []string{"data", "code"}, normalized.Intents[1].Keywords)
	require.Equal(t, "coding", normalized.Intents[0].Label)
	require.Equal(t, taxonomy.CategoryIntents, normalized.CategoryIntents)
}
