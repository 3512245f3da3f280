// Package embeddings provides embedding generation via local ONNX models.
package embeddings

import (
	"context"
	"strings"
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// ModelName returns the canonical model name (e.g. "BAAI/bge-small-en-v1.5").
	ModelName() string
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// VectorName returns the named-vector slot this model writes to.
	VectorName() string
	// Close releases resources held by the provider.
	Close() error
}

// VectorNameFor derives the named-vector slot for a model. The name is
// stable across processes so points written by one server instance are
// readable by another using the same model.
//
//	"sentence-transformers/all-MiniLM-L6-v2" -> "fast-all-minilm-l6-v2"
func VectorNameFor(model string) string {
	base := model
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		base = model[idx+1:]
	}
	return "fast-" + strings.ToLower(base)
}
