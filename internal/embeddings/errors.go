// Package embeddings provides embedding generation via local ONNX models.
package embeddings

import "errors"

var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("embeddings: invalid configuration")
	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("embeddings: empty input")
	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embeddings: generation failed")
	// ErrUnknownModel indicates a model name not present in the catalog.
	ErrUnknownModel = errors.New("embeddings: unknown model")
	// ErrNoLocalModel indicates a model with no local ONNX weights. Such
	// models can still serve collections when the Qdrant server performs
	// inference.
	ErrNoLocalModel = errors.New("embeddings: no local model available")
)
