// Package vectorstore provides Qdrant-backed vector storage for memories.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Config holds configuration for the Qdrant gRPC client.
type Config struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// APIKey authenticates against Qdrant Cloud or secured deployments.
	APIKey string

	// UseTLS enables TLS encryption for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries.
	// Doubles on each retry (exponential backoff).
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB (to handle large batch upserts)
	MaxMessageSize int

	// CircuitBreakerThreshold is the number of failures before opening circuit.
	// Default: 5
	CircuitBreakerThreshold int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024 // 50MB
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
}

// ValidateCollectionName validates a collection name against security rules.
// Pattern: ^[a-z0-9_]{1,64}$
// Rejects: uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// IsTransientError checks if an error is transient (should retry).
// Returns true for network timeouts, temporary unavailability.
// Returns false for invalid config, not found, permission denied.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// GRPCClient is a Client implementation using Qdrant's native gRPC client.
//
// This implementation bypasses Qdrant's actix-web HTTP layer, eliminating the 256kB
// payload limit that causes 413 errors on large batch writes.
type GRPCClient struct {
	client *qdrant.Client
	config Config

	// circuitBreaker tracks failures for circuit breaker pattern
	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewGRPCClient creates a Qdrant gRPC client and verifies the connection.
func NewGRPCClient(config Config) (*GRPCClient, error) {
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Warn if TLS is disabled (plaintext gRPC)
	if !config.UseTLS {
		fmt.Fprintf(os.Stderr, "WARNING: Qdrant gRPC using plaintext (TLS disabled). Insecure for production.\n")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c := &GRPCClient{
		client: client,
		config: config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	return c, nil
}

// HealthCheck verifies the Qdrant connection.
func (c *GRPCClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close closes the Qdrant gRPC connection.
func (c *GRPCClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (c *GRPCClient) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := c.config.RetryBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			c.resetCircuitBreaker()
			return nil
		}

		if c.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open", operationName)
		}

		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}

		c.recordFailure()

		if attempt == c.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, c.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (c *GRPCClient) recordFailure() {
	c.circuitBreaker.mu.Lock()
	defer c.circuitBreaker.mu.Unlock()
	c.circuitBreaker.failures++
	c.circuitBreaker.lastFail = time.Now()
}

func (c *GRPCClient) resetCircuitBreaker() {
	c.circuitBreaker.mu.Lock()
	defer c.circuitBreaker.mu.Unlock()
	c.circuitBreaker.failures = 0
}

func (c *GRPCClient) isCircuitOpen() bool {
	c.circuitBreaker.mu.Lock()
	defer c.circuitBreaker.mu.Unlock()

	if c.circuitBreaker.failures >= c.config.CircuitBreakerThreshold {
		// Allow retry after 30 seconds
		if time.Since(c.circuitBreaker.lastFail) > 30*time.Second {
			c.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// CollectionExists reports whether the named collection exists.
func (c *GRPCClient) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := c.retryOperation(ctx, "collection_exists", func() error {
		res, err := c.client.CollectionExists(ctx, collection)
		if err != nil {
			return err
		}
		exists = res
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	return exists, nil
}

// CreateCollection creates a collection with the given schema.
func (c *GRPCClient) CreateCollection(ctx context.Context, collection string, schema CollectionSchema) error {
	params := &qdrant.VectorParams{
		Size:     schema.VectorSize,
		Distance: distanceFromString(schema.Distance),
	}

	var vectorsConfig *qdrant.VectorsConfig
	if schema.Named {
		vectorsConfig = qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			schema.VectorName: params,
		})
	} else {
		vectorsConfig = qdrant.NewVectorsConfig(params)
	}

	err := c.retryOperation(ctx, "create_collection", func() error {
		return c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig:  vectorsConfig,
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", collection, err)
	}
	return nil
}

// DeleteCollection deletes a collection and all its points.
func (c *GRPCClient) DeleteCollection(ctx context.Context, collection string) error {
	err := c.retryOperation(ctx, "delete_collection", func() error {
		return c.client.DeleteCollection(ctx, collection)
	})
	if err != nil {
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}
	return nil
}

// ListCollections returns all collection names.
func (c *GRPCClient) ListCollections(ctx context.Context) ([]string, error) {
	var collections []string
	err := c.retryOperation(ctx, "list_collections", func() error {
		result, err := c.client.ListCollections(ctx)
		if err != nil {
			return err
		}
		collections = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return collections, nil
}

// Describe returns a collection's schema and point count.
func (c *GRPCClient) Describe(ctx context.Context, collection string) (*CollectionDescription, error) {
	var desc *CollectionDescription
	err := c.retryOperation(ctx, "describe_collection", func() error {
		info, err := c.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			st, ok := status.FromError(err)
			if ok && st.Code() == grpccodes.NotFound {
				return ErrCollectionNotFound
			}
			return err
		}

		schema, err := extractSchema(info)
		if err != nil {
			return fmt.Errorf("collection %s: %w", collection, err)
		}

		var points uint64
		if info.PointsCount != nil {
			points = *info.PointsCount
		}
		desc = &CollectionDescription{Schema: schema, PointsCount: points}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("describing collection %s: %w", collection, err)
	}
	return desc, nil
}

// Upsert writes points and waits for the write to be applied.
func (c *GRPCClient) Upsert(ctx context.Context, collection string, points []Point) error {
	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		id, err := pointIDFromString(p.ID)
		if err != nil {
			return err
		}

		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      id,
			Vectors: pointVectors(p),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	err := c.retryOperation(ctx, "upsert", func() error {
		_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         qdrantPoints,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting points to collection %s: %w", collection, err)
	}
	return nil
}

// pointVectors encodes a point's vector under its named slot when one is
// set, otherwise as the collection's single unnamed vector.
func pointVectors(p Point) *qdrant.Vectors {
	if p.VectorName != "" {
		return qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			p.VectorName: qdrant.NewVectorDense(p.Vector),
		})
	}
	return qdrant.NewVectors(p.Vector...)
}

// Retrieve fetches points by ID with their payloads.
func (c *GRPCClient) Retrieve(ctx context.Context, collection string, ids []string) ([]RetrievedPoint, error) {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pid, err := pointIDFromString(id)
		if err != nil {
			return nil, err
		}
		pointIDs[i] = pid
	}

	var result []RetrievedPoint
	err := c.retryOperation(ctx, "retrieve", func() error {
		points, err := c.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: collection,
			Ids:            pointIDs,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		result = make([]RetrievedPoint, len(points))
		for i, p := range points {
			result[i] = RetrievedPoint{
				ID:      pointIDToString(p.Id),
				Payload: decodePayload(p.Payload),
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving points from collection %s: %w", collection, err)
	}
	return result, nil
}

// DeletePoints removes points by ID.
func (c *GRPCClient) DeletePoints(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pid, err := pointIDFromString(id)
		if err != nil {
			return err
		}
		pointIDs[i] = pid
	}

	err := c.retryOperation(ctx, "delete", func() error {
		_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: pointIDs},
				},
			},
			Wait: qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting points from collection %s: %w", collection, err)
	}
	return nil
}

// Query performs a similarity search.
func (c *GRPCClient) Query(ctx context.Context, q Query) ([]ScoredPoint, error) {
	req := &qdrant.QueryPoints{
		CollectionName: q.Collection,
		Limit:          qdrant.PtrOf(q.Limit),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: q.ScoreThreshold,
		Filter:         buildFilter(q.MustMatch),
	}

	if q.DocumentText != "" {
		// Delegate embedding to the Qdrant server's inference service
		req.Query = qdrant.NewQueryNearest(qdrant.NewVectorInputDocument(&qdrant.Document{
			Text:  q.DocumentText,
			Model: q.DocumentModel,
		}))
	} else {
		req.Query = qdrant.NewQuery(q.Vector...)
	}

	if q.VectorName != "" {
		req.Using = qdrant.PtrOf(q.VectorName)
	}

	var results []*qdrant.ScoredPoint
	err := c.retryOperation(ctx, "query", func() error {
		res, err := c.client.Query(ctx, req)
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", q.Collection, err)
	}

	out := make([]ScoredPoint, len(results))
	for i, p := range results {
		out[i] = ScoredPoint{
			ID:      pointIDToString(p.Id),
			Score:   p.Score,
			Payload: decodePayload(p.Payload),
		}
	}
	return out, nil
}

// Scroll pages through a collection in point ID order.
func (c *GRPCClient) Scroll(ctx context.Context, collection string, offset string, limit uint32) ([]RetrievedPoint, string, error) {
	var offsetID *qdrant.PointId
	if offset != "" {
		pid, err := pointIDFromString(offset)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidOffset, offset)
		}
		offsetID = pid
	}

	var points []*qdrant.RetrievedPoint
	var nextOffset *qdrant.PointId
	err := c.retryOperation(ctx, "scroll", func() error {
		res, next, err := c.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Offset:         offsetID,
			Limit:          qdrant.PtrOf(limit),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		nextOffset = next
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("scrolling collection %s: %w", collection, err)
	}

	out := make([]RetrievedPoint, len(points))
	for i, p := range points {
		out[i] = RetrievedPoint{
			ID:      pointIDToString(p.Id),
			Payload: decodePayload(p.Payload),
		}
	}

	next := ""
	if nextOffset != nil {
		next = pointIDToString(nextOffset)
	}
	return out, next, nil
}

// extractSchema pulls the typed vector schema out of a collection config.
// Handles both unnamed single-vector collections and named-vector maps.
func extractSchema(info *qdrant.CollectionInfo) (CollectionSchema, error) {
	vc := info.GetConfig().GetParams().GetVectorsConfig()
	if vc == nil {
		return CollectionSchema{}, fmt.Errorf("collection has no vectors config")
	}

	switch cfg := vc.Config.(type) {
	case *qdrant.VectorsConfig_Params:
		return CollectionSchema{
			VectorSize: cfg.Params.GetSize(),
			Distance:   cfg.Params.GetDistance().String(),
		}, nil
	case *qdrant.VectorsConfig_ParamsMap:
		m := cfg.ParamsMap.GetMap()
		if len(m) == 0 {
			return CollectionSchema{}, fmt.Errorf("collection has empty vector params map")
		}
		// Collections written by this server carry exactly one named vector.
		// Pick deterministically if something else created more.
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		params := m[names[0]]
		return CollectionSchema{
			VectorSize: params.GetSize(),
			VectorName: names[0],
			Distance:   params.GetDistance().String(),
			Named:      true,
		}, nil
	default:
		return CollectionSchema{}, fmt.Errorf("unsupported vectors config type %T", vc.Config)
	}
}

func distanceFromString(name string) qdrant.Distance {
	switch name {
	case "Euclid":
		return qdrant.Distance_Euclid
	case "Dot":
		return qdrant.Distance_Dot
	case "Manhattan":
		return qdrant.Distance_Manhattan
	default:
		return qdrant.Distance_Cosine
	}
}

// pointIDFromString converts a string ID to a Qdrant point ID. Accepts
// UUID strings and decimal unsigned integers.
func pointIDFromString(id string) (*qdrant.PointId, error) {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id), nil
	}
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPointID, id)
}

func pointIDToString(id *qdrant.PointId) string {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	default:
		return ""
	}
}

// buildFilter converts equality conditions to a Qdrant must filter.
func buildFilter(mustMatch map[string]any) *qdrant.Filter {
	if len(mustMatch) == 0 {
		return nil
	}

	keys := make([]string, 0, len(mustMatch))
	for key := range mustMatch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	conditions := make([]*qdrant.Condition, 0, len(mustMatch))
	for _, key := range keys {
		var match *qdrant.Match
		switch v := mustMatch[key].(type) {
		case string:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}}
		case bool:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: v}}
		case int:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
		case int64:
			match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: v}}
		case float64:
			// JSON numbers decode as float64; match whole numbers as
			// integers and fractional values as a degenerate range.
			if v == math.Trunc(v) {
				match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
			} else {
				conditions = append(conditions, &qdrant.Condition{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   key,
							Range: &qdrant.Range{Gte: qdrant.PtrOf(v), Lte: qdrant.PtrOf(v)},
						},
					},
				})
				continue
			}
		default:
			continue
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{Key: key, Match: match},
			},
		})
	}
	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

// decodePayload converts Qdrant payload values to plain Go values.
func decodePayload(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = decodeValue(v)
	}
	return out
}

func decodeValue(v *qdrant.Value) any {
	switch val := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_StructValue:
		return decodePayload(val.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		values := val.ListValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = decodeValue(item)
		}
		return out
	default:
		return nil
	}
}
