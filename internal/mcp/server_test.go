package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/qdrantd/internal/vectorstore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "qdrantd", cfg.Name)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.False(t, cfg.ReadOnly)
	assert.NotNil(t, cfg.Logger)
}

func TestNewServerRequiresConnector(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connector is required")
}

func TestFormatEntry(t *testing.T) {
	t.Run("content only", func(t *testing.T) {
		got := formatEntry("remember this", nil)
		assert.Equal(t, "<entry><content>remember this</content></entry>", got)
	})

	t.Run("with metadata", func(t *testing.T) {
		got := formatEntry("remember this", map[string]any{"source": "chat"})
		assert.Equal(t, `<entry><content>remember this</content><metadata>{"source":"chat"}</metadata></entry>`, got)
	})

	t.Run("empty metadata map", func(t *testing.T) {
		got := formatEntry("remember this", map[string]any{})
		assert.Equal(t, "<entry><content>remember this</content></entry>", got)
	})
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"dimension mismatch", &vectorstore.DimensionMismatchError{Collection: "m", Expected: 768, Actual: 384}, "dimension_mismatch"},
		{"reserved collection", vectorstore.ErrReservedCollection, "reserved_collection"},
		{"invalid name", vectorstore.ErrInvalidCollectionName, "validation_error"},
		{"not found", vectorstore.ErrCollectionNotFound, "not_found"},
		{"timeout", errors.New("context deadline exceeded"), "timeout"},
		{"embedding", vectorstore.ErrEmbeddingFailed, "embedding_error"},
		{"storage", errors.New("vectorstore: something broke"), "storage_error"},
		{"internal", errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorizeError(tt.err))
		})
	}
}
