// Package vectorstore provides Qdrant-backed vector storage for memories.
package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BindingsCollection is the internal collection holding collection-to-model
// bindings. It lives in Qdrant itself so every server instance sharing the
// database sees the same bindings. Hidden from all user-facing operations.
const BindingsCollection = "mcp_model_bindings"

// bindingVectorName is the named slot of the 1-dimensional placeholder
// vector each binding point carries. Qdrant requires a vector per point;
// the binding data lives entirely in the payload.
const bindingVectorName = "meta"

// BindingStore persists collection-to-model bindings. Reads are served
// from an in-process cache; writes go through to Qdrant.
type BindingStore struct {
	client Client
	logger *zap.Logger

	mu      sync.RWMutex
	cache   map[string]*ModelBinding
	locks   map[string]*sync.Mutex
	ensured bool
}

// NewBindingStore creates a binding store over the given client.
func NewBindingStore(client Client, logger *zap.Logger) *BindingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BindingStore{
		client: client,
		logger: logger,
		cache:  make(map[string]*ModelBinding),
		locks:  make(map[string]*sync.Mutex),
	}
}

// collectionLock returns the mutex serializing writes for one collection's
// binding. Concurrent Bind and Unbind calls for the same collection must not
// interleave the Qdrant write with the cache update.
func (s *BindingStore) collectionLock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[collection] = lock
	}
	return lock
}

// bindingPointID derives the deterministic point ID for a collection's
// binding. Rebinding a collection overwrites the same point.
func bindingPointID(collection string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(collection)).String()
}

// ensure creates the bindings collection on first use.
func (s *BindingStore) ensure(ctx context.Context) error {
	s.mu.RLock()
	done := s.ensured
	s.mu.RUnlock()
	if done {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, BindingsCollection)
	if err != nil {
		return fmt.Errorf("checking bindings collection: %w", err)
	}
	if !exists {
		err := s.client.CreateCollection(ctx, BindingsCollection, CollectionSchema{
			VectorSize: 1,
			VectorName: bindingVectorName,
			Distance:   "Cosine",
			Named:      true,
		})
		if err != nil {
			return fmt.Errorf("creating bindings collection: %w", err)
		}
		s.logger.Info("created model bindings collection",
			zap.String("collection", BindingsCollection))
	}

	s.ensured = true
	return nil
}

// Bind persists a collection-to-model binding, replacing any existing one.
func (s *BindingStore) Bind(ctx context.Context, binding ModelBinding) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	lock := s.collectionLock(binding.CollectionName)
	lock.Lock()
	defer lock.Unlock()

	point := Point{
		ID:         bindingPointID(binding.CollectionName),
		Vector:     []float32{1},
		VectorName: bindingVectorName,
		Payload: map[string]any{
			"collection_name": binding.CollectionName,
			"model_name":      binding.ModelName,
			"vector_size":     binding.VectorSize,
			"distance":        binding.Distance,
			"provider":        binding.Provider,
		},
	}
	if err := s.client.Upsert(ctx, BindingsCollection, []Point{point}); err != nil {
		return fmt.Errorf("persisting binding for %s: %w", binding.CollectionName, err)
	}

	s.mu.Lock()
	b := binding
	s.cache[binding.CollectionName] = &b
	s.mu.Unlock()

	s.logger.Info("bound collection to model",
		zap.String("collection", binding.CollectionName),
		zap.String("model", binding.ModelName),
		zap.Int("vector_size", binding.VectorSize))
	return nil
}

// Get returns the binding for a collection, or nil when none exists.
func (s *BindingStore) Get(ctx context.Context, collection string) (*ModelBinding, error) {
	s.mu.RLock()
	if b, ok := s.cache[collection]; ok {
		s.mu.RUnlock()
		return b, nil
	}
	s.mu.RUnlock()

	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	points, err := s.client.Retrieve(ctx, BindingsCollection, []string{bindingPointID(collection)})
	if err != nil {
		return nil, fmt.Errorf("loading binding for %s: %w", collection, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	binding := bindingFromPayload(points[0].Payload)
	if binding == nil {
		s.logger.Warn("malformed binding payload",
			zap.String("collection", collection))
		return nil, nil
	}

	s.mu.Lock()
	s.cache[collection] = binding
	s.mu.Unlock()
	return binding, nil
}

// Unbind removes a collection's binding. Removing a binding that does not
// exist is not an error.
func (s *BindingStore) Unbind(ctx context.Context, collection string) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	if err := s.client.DeletePoints(ctx, BindingsCollection, []string{bindingPointID(collection)}); err != nil {
		return fmt.Errorf("removing binding for %s: %w", collection, err)
	}

	s.mu.Lock()
	delete(s.cache, collection)
	s.mu.Unlock()
	return nil
}

// All returns every persisted binding.
func (s *BindingStore) All(ctx context.Context) ([]ModelBinding, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	var bindings []ModelBinding
	offset := ""
	for {
		points, next, err := s.client.Scroll(ctx, BindingsCollection, offset, 100)
		if err != nil {
			return nil, fmt.Errorf("scanning bindings: %w", err)
		}
		for _, p := range points {
			if b := bindingFromPayload(p.Payload); b != nil {
				bindings = append(bindings, *b)
			}
		}
		if next == "" || len(points) == 0 {
			break
		}
		offset = next
	}
	return bindings, nil
}

func bindingFromPayload(payload map[string]any) *ModelBinding {
	name, _ := payload["collection_name"].(string)
	model, _ := payload["model_name"].(string)
	if name == "" || model == "" {
		return nil
	}

	binding := &ModelBinding{
		CollectionName: name,
		ModelName:      model,
	}
	switch v := payload["vector_size"].(type) {
	case int64:
		binding.VectorSize = int(v)
	case float64:
		binding.VectorSize = int(v)
	case int:
		binding.VectorSize = v
	}
	binding.Distance, _ = payload["distance"].(string)
	binding.Provider, _ = payload["provider"].(string)
	return binding
}
