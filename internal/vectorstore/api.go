// Package vectorstore provides Qdrant-backed vector storage for memories.
package vectorstore

import "context"

// CollectionSchema is the typed vector schema of a collection, extracted
// from the server's collection config. Named reports whether the collection
// uses named vector slots; legacy collections created with a single unnamed
// vector have Named false and an empty VectorName.
type CollectionSchema struct {
	VectorSize uint64
	VectorName string
	Distance   string
	Named      bool
}

// CollectionDescription is a collection's schema plus its point count.
type CollectionDescription struct {
	Schema      CollectionSchema
	PointsCount uint64
}

// Point is a point to upsert. ID must be a UUID string or the decimal form
// of an unsigned integer. VectorName selects the named-vector slot; leave
// empty for unnamed-vector collections.
type Point struct {
	ID         string
	Vector     []float32
	VectorName string
	Payload    map[string]any
}

// ScoredPoint is a similarity search hit.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// RetrievedPoint is a point returned by scroll or retrieve.
type RetrievedPoint struct {
	ID      string
	Payload map[string]any
}

// Query is a similarity search request. Exactly one of Vector or
// DocumentText must be set. DocumentText delegates embedding to the Qdrant
// server's inference service using DocumentModel.
type Query struct {
	Collection     string
	Vector         []float32
	DocumentText   string
	DocumentModel  string
	VectorName     string
	Limit          uint64
	ScoreThreshold *float32
	// MustMatch adds equality conditions on payload fields. Values may be
	// string, bool, or any integer type.
	MustMatch map[string]any
}

// Client is the typed boundary to the vector database. The production
// implementation is GRPCClient; tests substitute an in-memory fake.
type Client interface {
	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
	// CreateCollection creates a collection with the given schema.
	CreateCollection(ctx context.Context, collection string, schema CollectionSchema) error
	// DeleteCollection removes a collection and all its points.
	DeleteCollection(ctx context.Context, collection string) error
	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)
	// Describe returns a collection's schema and point count.
	// Returns ErrCollectionNotFound if the collection does not exist.
	Describe(ctx context.Context, collection string) (*CollectionDescription, error)
	// Upsert writes points, waiting for the write to be applied.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Retrieve fetches points by ID. Missing IDs are silently omitted.
	Retrieve(ctx context.Context, collection string, ids []string) ([]RetrievedPoint, error)
	// DeletePoints removes points by ID.
	DeletePoints(ctx context.Context, collection string, ids []string) error
	// Query performs a similarity search.
	Query(ctx context.Context, q Query) ([]ScoredPoint, error)
	// Scroll pages through a collection. offset resumes from a previous
	// page's next offset; empty starts from the beginning. The returned
	// offset is empty when the scan is exhausted.
	Scroll(ctx context.Context, collection string, offset string, limit uint32) ([]RetrievedPoint, string, error)
	// HealthCheck verifies the server connection.
	HealthCheck(ctx context.Context) error
	// Close releases the connection.
	Close() error
}
