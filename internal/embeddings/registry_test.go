package embeddings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
)

func TestNewRegistryRequiresDefaultModel(t *testing.T) {
	_, err := embeddings.NewRegistry(embeddings.RegistryConfig{}, nil)
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
}

func TestRegistryDefaults(t *testing.T) {
	r, err := embeddings.NewRegistry(embeddings.RegistryConfig{
		DefaultModel: "BAAI/bge-small-en-v1.5",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "BAAI/bge-small-en-v1.5", r.DefaultModel())
	assert.Empty(t, r.Loaded(), "no providers should load until requested")
	assert.NoError(t, r.Close())
}
