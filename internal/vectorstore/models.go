// Package vectorstore provides Qdrant-backed vector storage for memories.
package vectorstore

// Entry is a stored memory: free text plus optional structured metadata.
type Entry struct {
	// ID is the point UUID in Qdrant.
	ID string `json:"id"`
	// Content is the memory text that was embedded.
	Content string `json:"content"`
	// Metadata is arbitrary JSON-like data attached to the entry.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BatchEntry is one item of a batch store request. ID is optional: a valid
// UUID is used as-is, any other non-empty string is mapped deterministically
// to a UUID, and an empty ID gets a random one.
type BatchEntry struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScoredEntry is a search hit with its similarity score.
type ScoredEntry struct {
	Entry
	Score float32 `json:"score"`
}

// ScrollPage is one page of a collection scan.
type ScrollPage struct {
	Entries []Entry `json:"entries"`
	// NextOffset resumes the scan when non-empty. Opaque to callers.
	NextOffset string `json:"next_offset,omitempty"`
}

// CollectionInfo describes a collection's schema and contents.
type CollectionInfo struct {
	Name       string `json:"name"`
	PointCount int    `json:"point_count"`
	VectorSize int    `json:"vector_size"`
	// VectorName is the named-vector slot, empty for legacy unnamed collections.
	VectorName string `json:"vector_name,omitempty"`
	Distance   string `json:"distance,omitempty"`
	// Model is the bound embedding model, empty when no binding exists.
	Model string `json:"model,omitempty"`
}

// ModelBinding records which embedding model a collection was created with.
// Bindings persist in Qdrant itself so every server instance sharing the
// database agrees on the model.
type ModelBinding struct {
	CollectionName string `json:"collection_name"`
	ModelName      string `json:"model_name"`
	VectorSize     int    `json:"vector_size"`
	Distance       string `json:"distance"`
	Provider       string `json:"provider"`
}
