// Package vectorstore provides Qdrant-backed vector storage for memories.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("qdrantd.vectorstore")

const (
	// payloadDocumentKey holds the memory text in point payloads.
	payloadDocumentKey = "document"
	// payloadMetadataKey holds the structured metadata in point payloads.
	payloadMetadataKey = "metadata"

	// maxK bounds search and scroll limits to prevent resource exhaustion.
	maxK = 10000
	// maxQueryLength bounds query text size.
	maxQueryLength = 10000

	defaultDistance = "Cosine"
)

// ConnectorConfig holds configuration for the connector.
type ConnectorConfig struct {
	// DefaultCollection is used when an operation does not name a collection.
	DefaultCollection string
	// SearchLimit is the default number of search results.
	// Default: 10
	SearchLimit int
	// MaxBatchSize caps the number of entries per batch store.
	// Default: 100
	MaxBatchSize int
	// ScrollLimit is the default page size for scroll.
	// Default: 100
	ScrollLimit int
}

// ApplyDefaults sets default values for unset fields.
func (c *ConnectorConfig) ApplyDefaults() {
	if c.SearchLimit == 0 {
		c.SearchLimit = 10
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 100
	}
	if c.ScrollLimit == 0 {
		c.ScrollLimit = 100
	}
}

// ProviderResolver supplies embedding providers by model name.
// Implemented by embeddings.Registry.
type ProviderResolver interface {
	DefaultModel() string
	ForModel(model string) (embeddings.Provider, error)
	Close() error
}

// Connector ties together the Qdrant client, the embedding registry, and
// the binding store. All memory operations go through it.
type Connector struct {
	client   Client
	registry ProviderResolver
	bindings *BindingStore
	config   ConnectorConfig
	logger   *zap.Logger
}

// NewConnector creates a connector over the given client and registry.
func NewConnector(client Client, registry ProviderResolver, bindings *BindingStore, config ConnectorConfig, logger *zap.Logger) (*Connector, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client required", ErrInvalidConfig)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: embedding registry required", ErrInvalidConfig)
	}
	if bindings == nil {
		return nil, fmt.Errorf("%w: binding store required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if config.DefaultCollection != "" {
		if err := validateUserCollection(config.DefaultCollection); err != nil {
			return nil, err
		}
	}

	return &Connector{
		client:   client,
		registry: registry,
		bindings: bindings,
		config:   config,
		logger:   logger,
	}, nil
}

// DefaultCollection returns the configured default collection name.
func (c *Connector) DefaultCollection() string {
	return c.config.DefaultCollection
}

// MaxBatchSize returns the configured batch size cap.
func (c *Connector) MaxBatchSize() int {
	return c.config.MaxBatchSize
}

// DefaultModel returns the registry's default embedding model name.
func (c *Connector) DefaultModel() string {
	return c.registry.DefaultModel()
}

// validateUserCollection validates a collection name for user-facing
// operations. The bindings collection is reserved for internal use.
func validateUserCollection(name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if name == BindingsCollection {
		return fmt.Errorf("%w: %q", ErrReservedCollection, name)
	}
	return nil
}

// normalizeDistance maps user-supplied distance names to their canonical
// Qdrant form. Empty input defaults to Cosine.
func normalizeDistance(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "cosine":
		return "Cosine", nil
	case "dot":
		return "Dot", nil
	case "euclid", "euclidean":
		return "Euclid", nil
	case "manhattan":
		return "Manhattan", nil
	default:
		return "", fmt.Errorf("unknown distance %q (expected Cosine, Dot, Euclid, or Manhattan)", name)
	}
}

// Store embeds content and writes it as a single point. Returns the point ID.
func (c *Connector) Store(ctx context.Context, collection, content string, metadata map[string]any, model string) (string, error) {
	ctx, span := tracer.Start(ctx, "Connector.Store")
	defer span.End()

	span.SetAttributes(attribute.String("collection", collection))

	if content == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if err := validateUserCollection(collection); err != nil {
		return "", err
	}

	provider, binding, err := c.resolveProvider(ctx, collection, model)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	vectors, err := provider.EmbedDocuments(ctx, []string{content})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	vector := vectors[0]

	schema, err := c.ensureCollection(ctx, collection, provider, binding)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	// Re-validate against the live schema right before the write. The
	// collection may have been recreated with a different model since
	// the provider was resolved.
	if uint64(len(vector)) != schema.VectorSize {
		err := &DimensionMismatchError{
			Collection: collection,
			Expected:   int(schema.VectorSize),
			Actual:     len(vector),
		}
		c.warnDimensionMismatch(collection, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	id := uuid.NewString()
	point := Point{
		ID:         id,
		Vector:     vector,
		VectorName: schema.VectorName,
		Payload:    entryPayload(content, metadata),
	}
	if err := c.client.Upsert(ctx, collection, []Point{point}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetStatus(codes.Ok, "success")
	return id, nil
}

// BatchStore embeds and writes multiple entries in one upsert. Entry IDs
// follow three rules: a valid UUID is used as-is, any other non-empty ID is
// mapped deterministically to a UUID, and an empty ID gets a random one.
// After the write every point is read back by ID; a missing point fails the
// whole batch. Returns the number of entries stored.
func (c *Connector) BatchStore(ctx context.Context, collection string, entries []BatchEntry, model string) (int, error) {
	ctx, span := tracer.Start(ctx, "Connector.BatchStore")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("entry_count", len(entries)),
	)

	if len(entries) == 0 {
		return 0, fmt.Errorf("entries cannot be empty")
	}
	if len(entries) > c.config.MaxBatchSize {
		return 0, fmt.Errorf("batch size %d exceeds maximum %d", len(entries), c.config.MaxBatchSize)
	}
	if err := validateUserCollection(collection); err != nil {
		return 0, err
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		if e.Content == "" {
			return 0, fmt.Errorf("entry %d: content cannot be empty", i)
		}
		texts[i] = e.Content
	}

	provider, binding, err := c.resolveProvider(ctx, collection, model)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	vectors, err := provider.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	schema, err := c.ensureCollection(ctx, collection, provider, binding)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	if uint64(len(vectors[0])) != schema.VectorSize {
		err := &DimensionMismatchError{
			Collection: collection,
			Expected:   int(schema.VectorSize),
			Actual:     len(vectors[0]),
		}
		c.warnDimensionMismatch(collection, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	points := make([]Point, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = normalizeEntryID(e.ID)
		points[i] = Point{
			ID:         ids[i],
			Vector:     vectors[i],
			VectorName: schema.VectorName,
			Payload:    entryPayload(e.Content, e.Metadata),
		}
	}

	if err := c.client.Upsert(ctx, collection, points); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	// Verify the write: read every point back by ID.
	unique := uniqueStrings(ids)
	retrieved, err := c.client.Retrieve(ctx, collection, unique)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("verifying batch write: %w", err)
	}
	if len(retrieved) != len(unique) {
		// The upsert itself did not error, so the outcome is ambiguous.
		// Report zero stored rather than raising.
		c.logger.Warn("batch write verification fell short",
			zap.String("collection", collection),
			zap.Int("readable", len(retrieved)),
			zap.Int("written", len(unique)))
		span.SetAttributes(attribute.Int("points_stored", 0))
		span.SetStatus(codes.Ok, "verification mismatch reported as zero stored")
		return 0, nil
	}

	span.SetAttributes(attribute.Int("points_stored", len(points)))
	span.SetStatus(codes.Ok, "success")
	return len(points), nil
}

// Search performs similarity search. Searching a collection that does not
// exist returns an empty result, not an error.
func (c *Connector) Search(ctx context.Context, collection, query string, limit int, threshold *float32, model string) ([]ScoredEntry, error) {
	return c.search(ctx, collection, query, nil, limit, threshold, model)
}

// HybridSearch combines similarity search with exact-match metadata filters.
// Filter keys address fields inside entry metadata.
func (c *Connector) HybridSearch(ctx context.Context, collection, query string, filters map[string]any, limit int, threshold *float32, model string) ([]ScoredEntry, error) {
	mustMatch := make(map[string]any, len(filters))
	for k, v := range filters {
		mustMatch[payloadMetadataKey+"."+k] = v
	}
	return c.search(ctx, collection, query, mustMatch, limit, threshold, model)
}

func (c *Connector) search(ctx context.Context, collection, query string, mustMatch map[string]any, limit int, threshold *float32, model string) ([]ScoredEntry, error) {
	ctx, span := tracer.Start(ctx, "Connector.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("limit", limit),
		attribute.Int("filter_count", len(mustMatch)),
	)

	if err := validateUserCollection(collection); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if len(query) > maxQueryLength {
		return nil, fmt.Errorf("query exceeds maximum length of %d characters", maxQueryLength)
	}
	if limit <= 0 {
		limit = c.config.SearchLimit
	}
	if limit > maxK {
		limit = maxK
	}

	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !exists {
		span.SetStatus(codes.Ok, "collection absent")
		return nil, nil
	}

	desc, err := c.client.Describe(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	binding, err := c.bindings.Get(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	modelName := c.effectiveModel(collection, binding, model)

	// Strategy 1: let the Qdrant server embed the query. Works on
	// deployments with the inference service enabled and saves a local
	// model load.
	hits, serverErr := c.client.Query(ctx, Query{
		Collection:     collection,
		DocumentText:   query,
		DocumentModel:  modelName,
		VectorName:     desc.Schema.VectorName,
		Limit:          uint64(limit),
		ScoreThreshold: threshold,
		MustMatch:      mustMatch,
	})
	if serverErr == nil {
		span.SetAttributes(attribute.Int("results_count", len(hits)), attribute.String("strategy", "server"))
		span.SetStatus(codes.Ok, "success")
		return scoredEntries(hits), nil
	}

	c.logger.Debug("server-side embedding unavailable, falling back to local embedding",
		zap.String("collection", collection),
		zap.Error(serverErr))

	// Strategy 2: embed locally and search by vector.
	provider, err := c.registry.ForModel(modelName)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("no local model for %q and server-side embedding failed: %w", modelName, err)
	}

	vector, err := provider.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	if uint64(len(vector)) != desc.Schema.VectorSize {
		err := &DimensionMismatchError{
			Collection: collection,
			Expected:   int(desc.Schema.VectorSize),
			Actual:     len(vector),
		}
		c.warnDimensionMismatch(collection, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	hits, err = c.client.Query(ctx, Query{
		Collection:     collection,
		Vector:         vector,
		VectorName:     desc.Schema.VectorName,
		Limit:          uint64(limit),
		ScoreThreshold: threshold,
		MustMatch:      mustMatch,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)), attribute.String("strategy", "local"))
	span.SetStatus(codes.Ok, "success")
	return scoredEntries(hits), nil
}

// Scroll pages through a collection without similarity ranking.
func (c *Connector) Scroll(ctx context.Context, collection string, limit int, offset string) (*ScrollPage, error) {
	ctx, span := tracer.Start(ctx, "Connector.Scroll")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("limit", limit),
	)

	if err := validateUserCollection(collection); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = c.config.ScrollLimit
	}
	if limit > maxK {
		limit = maxK
	}

	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !exists {
		// Reads against an absent collection are not errors.
		span.SetStatus(codes.Ok, "collection absent")
		return &ScrollPage{}, nil
	}

	points, next, err := c.client.Scroll(ctx, collection, offset, uint32(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	page := &ScrollPage{
		Entries:    make([]Entry, len(points)),
		NextOffset: next,
	}
	for i, p := range points {
		page.Entries[i] = entryFromPayload(p.ID, p.Payload)
	}

	span.SetAttributes(attribute.Int("results_count", len(page.Entries)))
	span.SetStatus(codes.Ok, "success")
	return page, nil
}

// CreateCollection creates a collection bound to the given model. An empty
// model uses the registry default, a zero vectorSize uses the model's
// dimension, and an empty distance uses Cosine.
func (c *Connector) CreateCollection(ctx context.Context, collection, model string, vectorSize int, distance string) error {
	ctx, span := tracer.Start(ctx, "Connector.CreateCollection")
	defer span.End()

	span.SetAttributes(attribute.String("collection", collection))

	if err := validateUserCollection(collection); err != nil {
		return err
	}

	if model == "" {
		model = c.registry.DefaultModel()
	}
	info, err := embeddings.Lookup(model)
	if err != nil {
		return err
	}

	if vectorSize == 0 {
		vectorSize = info.VectorSize
	}
	if vectorSize != info.VectorSize {
		return fmt.Errorf("vector size %d does not match model %s (%dD)", vectorSize, model, info.VectorSize)
	}
	distance, err = normalizeDistance(distance)
	if err != nil {
		return err
	}

	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if exists {
		return fmt.Errorf("collection %q already exists", collection)
	}

	schema := CollectionSchema{
		VectorSize: uint64(vectorSize),
		VectorName: embeddings.VectorNameFor(model),
		Distance:   distance,
		Named:      true,
	}
	if err := c.client.CreateCollection(ctx, collection, schema); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = c.bindings.Bind(ctx, ModelBinding{
		CollectionName: collection,
		ModelName:      model,
		VectorSize:     vectorSize,
		Distance:       distance,
		Provider:       info.ProviderType,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// DeleteCollection removes a collection, its points, and its model binding.
func (c *Connector) DeleteCollection(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "Connector.DeleteCollection")
	defer span.End()

	span.SetAttributes(attribute.String("collection", collection))

	if err := validateUserCollection(collection); err != nil {
		return err
	}

	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	if err := c.client.DeleteCollection(ctx, collection); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := c.bindings.Unbind(ctx, collection); err != nil {
		// The collection is gone; a stale binding only wastes a point.
		c.logger.Warn("failed to remove model binding",
			zap.String("collection", collection),
			zap.Error(err))
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// ListCollections returns all user-visible collection names.
func (c *Connector) ListCollections(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Connector.ListCollections")
	defer span.End()

	names, err := c.client.ListCollections(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == BindingsCollection {
			continue
		}
		out = append(out, name)
	}

	span.SetAttributes(attribute.Int("collection_count", len(out)))
	span.SetStatus(codes.Ok, "success")
	return out, nil
}

// GetCollectionInfo returns a collection's schema, point count, and bound model.
func (c *Connector) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	ctx, span := tracer.Start(ctx, "Connector.GetCollectionInfo")
	defer span.End()

	span.SetAttributes(attribute.String("collection", collection))

	if err := validateUserCollection(collection); err != nil {
		return nil, err
	}

	desc, err := c.client.Describe(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	info := &CollectionInfo{
		Name:       collection,
		PointCount: int(desc.PointsCount),
		VectorSize: int(desc.Schema.VectorSize),
		VectorName: desc.Schema.VectorName,
		Distance:   desc.Schema.Distance,
	}

	binding, err := c.bindings.Get(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if binding != nil {
		info.Model = binding.ModelName
	}

	span.SetStatus(codes.Ok, "success")
	return info, nil
}

// SetCollectionModel binds a collection to a model. For an existing
// collection the model's dimension must match the collection schema. A
// binding may also be set before the collection exists; it then controls
// the schema at creation time.
func (c *Connector) SetCollectionModel(ctx context.Context, collection, model string) error {
	ctx, span := tracer.Start(ctx, "Connector.SetCollectionModel")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("model", model),
	)

	if err := validateUserCollection(collection); err != nil {
		return err
	}

	info, err := embeddings.Lookup(model)
	if err != nil {
		return err
	}

	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if exists {
		desc, err := c.client.Describe(ctx, collection)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if desc.Schema.VectorSize != uint64(info.VectorSize) {
			err := &DimensionMismatchError{
				Collection: collection,
				Expected:   int(desc.Schema.VectorSize),
				Actual:     info.VectorSize,
			}
			c.warnDimensionMismatch(collection, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	err = c.bindings.Bind(ctx, ModelBinding{
		CollectionName: collection,
		ModelName:      model,
		VectorSize:     info.VectorSize,
		Distance:       defaultDistance,
		Provider:       info.ProviderType,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// resolveProvider picks the embedding provider for a write. A persisted
// binding always wins; otherwise the explicit model, otherwise the default.
func (c *Connector) resolveProvider(ctx context.Context, collection, model string) (embeddings.Provider, *ModelBinding, error) {
	binding, err := c.bindings.Get(ctx, collection)
	if err != nil {
		return nil, nil, err
	}

	modelName := c.effectiveModel(collection, binding, model)

	provider, err := c.registry.ForModel(modelName)
	if err != nil {
		return nil, nil, err
	}
	return provider, binding, nil
}

// effectiveModel applies the binding-wins rule and logs ignored overrides.
func (c *Connector) effectiveModel(collection string, binding *ModelBinding, override string) string {
	if binding != nil {
		if override != "" && override != binding.ModelName {
			c.logger.Warn("ignoring model override, collection has a persisted binding",
				zap.String("collection", collection),
				zap.String("bound_model", binding.ModelName),
				zap.String("requested_model", override))
		}
		return binding.ModelName
	}
	if override != "" {
		return override
	}
	return c.registry.DefaultModel()
}

// ensureCollection makes sure the collection exists and its schema fits
// the provider. A width mismatch is fatal. A differing vector slot name is
// advisory: the existing slot is adopted so points stay readable.
func (c *Connector) ensureCollection(ctx context.Context, collection string, provider embeddings.Provider, binding *ModelBinding) (CollectionSchema, error) {
	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		return CollectionSchema{}, err
	}

	if !exists {
		schema := CollectionSchema{
			VectorSize: uint64(provider.Dimension()),
			VectorName: provider.VectorName(),
			Distance:   defaultDistance,
			Named:      true,
		}
		if err := c.client.CreateCollection(ctx, collection, schema); err != nil {
			return CollectionSchema{}, err
		}
		err := c.bindings.Bind(ctx, ModelBinding{
			CollectionName: collection,
			ModelName:      provider.ModelName(),
			VectorSize:     provider.Dimension(),
			Distance:       defaultDistance,
			Provider:       "fastembed",
		})
		if err != nil {
			return CollectionSchema{}, err
		}
		return schema, nil
	}

	desc, err := c.client.Describe(ctx, collection)
	if err != nil {
		return CollectionSchema{}, err
	}

	if desc.Schema.VectorSize != uint64(provider.Dimension()) {
		mismatch := &DimensionMismatchError{
			Collection: collection,
			Expected:   int(desc.Schema.VectorSize),
			Actual:     provider.Dimension(),
		}
		c.warnDimensionMismatch(collection, mismatch)
		return CollectionSchema{}, mismatch
	}

	if desc.Schema.Named && desc.Schema.VectorName != provider.VectorName() {
		c.logger.Warn("collection vector slot differs from model slot, using existing slot",
			zap.String("collection", collection),
			zap.String("collection_slot", desc.Schema.VectorName),
			zap.String("model_slot", provider.VectorName()))
	}

	if binding == nil {
		// Pre-existing collection with no binding: adopt it so future
		// writers agree on the model.
		err := c.bindings.Bind(ctx, ModelBinding{
			CollectionName: collection,
			ModelName:      provider.ModelName(),
			VectorSize:     provider.Dimension(),
			Distance:       desc.Schema.Distance,
			Provider:       "fastembed",
		})
		if err != nil {
			return CollectionSchema{}, err
		}
		c.logger.Info("adopted unbound collection",
			zap.String("collection", collection),
			zap.String("model", provider.ModelName()))
	}

	return desc.Schema, nil
}

func (c *Connector) warnDimensionMismatch(collection string, err *DimensionMismatchError) {
	compatible := embeddings.FindByVectorSize(err.Expected)
	names := make([]string, len(compatible))
	for i, m := range compatible {
		names[i] = m.ModelName
	}
	c.logger.Error("vector dimension mismatch",
		zap.String("collection", collection),
		zap.Int("expected", err.Expected),
		zap.Int("actual", err.Actual),
		zap.Strings("compatible_models", names))
}

// normalizeEntryID maps a caller-supplied entry ID to a point UUID.
func normalizeEntryID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(id)).String()
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func entryPayload(content string, metadata map[string]any) map[string]any {
	payload := map[string]any{payloadDocumentKey: content}
	if len(metadata) > 0 {
		payload[payloadMetadataKey] = metadata
	}
	return payload
}

func entryFromPayload(id string, payload map[string]any) Entry {
	entry := Entry{ID: id}
	if doc, ok := payload[payloadDocumentKey].(string); ok {
		entry.Content = doc
	}
	if meta, ok := payload[payloadMetadataKey].(map[string]any); ok {
		entry.Metadata = meta
	}
	return entry
}

func scoredEntries(hits []ScoredPoint) []ScoredEntry {
	out := make([]ScoredEntry, len(hits))
	for i, h := range hits {
		out[i] = ScoredEntry{
			Entry: entryFromPayload(h.ID, h.Payload),
			Score: h.Score,
		}
	}
	return out
}

// Healthy reports whether the backing store is reachable.
func (c *Connector) Healthy(ctx context.Context) error {
	return c.client.HealthCheck(ctx)
}

// Close releases the client connection.
func (c *Connector) Close() error {
	var errs []error
	if err := c.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
