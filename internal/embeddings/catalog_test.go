package embeddings_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
)

func TestCatalogSorted(t *testing.T) {
	models := embeddings.Catalog()
	require.NotEmpty(t, models)

	assert.True(t, sort.SliceIsSorted(models, func(i, j int) bool {
		return models[i].ModelName < models[j].ModelName
	}))

	for _, m := range models {
		assert.NotEmpty(t, m.ModelName)
		assert.NotEmpty(t, m.ProviderType)
		assert.Greater(t, m.VectorSize, 0)
	}
}

func TestLookup(t *testing.T) {
	info, err := embeddings.Lookup("sentence-transformers/all-MiniLM-L6-v2")
	require.NoError(t, err)
	assert.Equal(t, 384, info.VectorSize)
	assert.Equal(t, "fastembed", info.ProviderType)

	info, err = embeddings.Lookup("BAAI/bge-large-en-v1.5")
	require.NoError(t, err)
	assert.Equal(t, 1024, info.VectorSize)

	_, err = embeddings.Lookup("made-up/model")
	assert.ErrorIs(t, err, embeddings.ErrUnknownModel)

	_, err = embeddings.Lookup("")
	assert.ErrorIs(t, err, embeddings.ErrUnknownModel)
}

func TestFindByVectorSize(t *testing.T) {
	small := embeddings.FindByVectorSize(384)
	require.NotEmpty(t, small)
	names := make(map[string]bool, len(small))
	for _, m := range small {
		assert.Equal(t, 384, m.VectorSize)
		names[m.ModelName] = true
	}
	assert.True(t, names["sentence-transformers/all-MiniLM-L6-v2"])
	assert.True(t, names["BAAI/bge-small-en-v1.5"])

	assert.Empty(t, embeddings.FindByVectorSize(123))
}

func TestVectorNameFor(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"sentence-transformers/all-MiniLM-L6-v2", "fast-all-minilm-l6-v2"},
		{"BAAI/bge-small-en-v1.5", "fast-bge-small-en-v1.5"},
		{"thenlper/gte-base", "fast-gte-base"},
		{"no-namespace-model", "fast-no-namespace-model"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, embeddings.VectorNameFor(tt.model))
		})
	}
}
