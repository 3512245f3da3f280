// Package embeddings provides embedding generation via local ONNX models.
package embeddings

import (
	"fmt"
	"sort"
)

// ModelInfo describes an embedding model known to the server.
type ModelInfo struct {
	// ModelName is the canonical name clients use to select the model.
	ModelName string `json:"model_name"`
	// ProviderType is the provider family serving the model.
	ProviderType string `json:"provider_type"`
	// VectorSize is the embedding dimension produced by the model.
	VectorSize int `json:"vector_size"`
	// Description is a short human-readable summary.
	Description string `json:"description"`
}

// catalog lists the models the server knows how to describe. Models not
// locally runnable can still be bound to collections when embedding is
// delegated to the Qdrant server's inference service.
var catalog = []ModelInfo{
	{"sentence-transformers/all-MiniLM-L6-v2", "fastembed", 384, "Fast general-purpose model, good quality/speed tradeoff"},
	{"sentence-transformers/all-MiniLM-L12-v2", "fastembed", 384, "Deeper MiniLM variant, slightly better quality"},
	{"sentence-transformers/all-mpnet-base-v2", "fastembed", 768, "High-quality general-purpose model"},
	{"BAAI/bge-small-en-v1.5", "fastembed", 384, "BGE small English model"},
	{"BAAI/bge-base-en-v1.5", "fastembed", 768, "BGE base English model"},
	{"BAAI/bge-large-en-v1.5", "fastembed", 1024, "BGE large English model, best BGE retrieval quality"},
	{"thenlper/gte-small", "fastembed", 384, "GTE small model"},
	{"thenlper/gte-base", "fastembed", 768, "GTE base model"},
	{"thenlper/gte-large", "fastembed", 1024, "GTE large model"},
	{"intfloat/e5-small-v2", "fastembed", 384, "E5 small model, strong on asymmetric search"},
	{"intfloat/e5-base-v2", "fastembed", 768, "E5 base model"},
	{"intfloat/e5-large-v2", "fastembed", 1024, "E5 large model"},
}

// catalogIndex is keyed by canonical model name.
var catalogIndex = func() map[string]ModelInfo {
	idx := make(map[string]ModelInfo, len(catalog))
	for _, m := range catalog {
		idx[m.ModelName] = m
	}
	return idx
}()

// Catalog returns all known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out
}

// Lookup returns catalog information for a model name.
func Lookup(model string) (ModelInfo, error) {
	info, ok := catalogIndex[model]
	if !ok {
		return ModelInfo{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return info, nil
}

// FindByVectorSize returns all catalog models producing the given dimension.
// Used to suggest compatible models when a dimension mismatch is detected.
func FindByVectorSize(size int) []ModelInfo {
	var out []ModelInfo
	for _, m := range Catalog() {
		if m.VectorSize == size {
			out = append(out, m)
		}
	}
	return out
}
