// Package vectorstore provides Qdrant-backed vector storage for memories.
package vectorstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("vectorstore: invalid configuration")
	// ErrInvalidCollectionName indicates an invalid collection name.
	ErrInvalidCollectionName = errors.New("vectorstore: invalid collection name")
	// ErrReservedCollection indicates an attempt to operate on an internal collection.
	ErrReservedCollection = errors.New("vectorstore: collection name is reserved")
	// ErrConnectionFailed indicates Qdrant connection failure.
	ErrConnectionFailed = errors.New("vectorstore: connection failed")
	// ErrCollectionNotFound indicates the collection does not exist.
	ErrCollectionNotFound = errors.New("vectorstore: collection not found")
	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("vectorstore: embedding failed")
	// ErrInvalidOffset indicates an unparseable scroll offset.
	ErrInvalidOffset = errors.New("vectorstore: invalid scroll offset")
	// ErrInvalidPointID indicates a point ID that is neither a UUID nor an unsigned integer.
	ErrInvalidPointID = errors.New("vectorstore: invalid point id")
)

// DimensionMismatchError is returned when a vector's width does not match
// the collection schema. Writing anyway would corrupt the collection or be
// rejected by the server with an opaque error, so the check happens before
// any write.
type DimensionMismatchError struct {
	Collection string
	Expected   int
	Actual     int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("Vector dimension mismatch in collection '%s': expected %dD, got %dD. Use a different embedding model or recreate the collection.",
		e.Collection, e.Expected, e.Actual)
}

// IsDimensionMismatch reports whether err is a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var dm *DimensionMismatchError
	return errors.As(err, &dm)
}
