package vectorstore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		wantErr    bool
	}{
		{"valid simple", "memories", false},
		{"valid with underscore", "my_collection", false},
		{"valid with numbers", "collection123", false},
		{"valid single char", "a", false},
		{"valid max length", "a234567890123456789012345678901234567890123456789012345678901234", false},
		{"empty", "", true},
		{"uppercase", "Memories", true},
		{"hyphen", "my-collection", true},
		{"space", "my collection", true},
		{"path traversal", "../etc/passwd", true},
		{"dot", "a.b", true},
		{"too long", "a2345678901234567890123456789012345678901234567890123456789012345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.collection)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCollectionName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(grpccodes.Unavailable, "server down"), true},
		{"deadline exceeded", status.Error(grpccodes.DeadlineExceeded, "timeout"), true},
		{"aborted", status.Error(grpccodes.Aborted, "conflict"), true},
		{"resource exhausted", status.Error(grpccodes.ResourceExhausted, "rate limited"), true},
		{"not found", status.Error(grpccodes.NotFound, "no such collection"), false},
		{"invalid argument", status.Error(grpccodes.InvalidArgument, "bad vector"), false},
		{"permission denied", status.Error(grpccodes.PermissionDenied, "no api key"), false},
		{"plain error", errors.New("something"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 50*1024*1024, cfg.MaxMessageSize)
	assert.Equal(t, 5, cfg.CircuitBreakerThreshold)

	custom := Config{Host: "qdrant.internal", Port: 7000, MaxRetries: 1}
	custom.ApplyDefaults()
	assert.Equal(t, "qdrant.internal", custom.Host)
	assert.Equal(t, 7000, custom.Port)
	assert.Equal(t, 1, custom.MaxRetries)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Host: "localhost", Port: 6334}
	assert.NoError(t, valid.Validate())

	noHost := Config{Port: 6334}
	assert.ErrorIs(t, noHost.Validate(), ErrInvalidConfig)

	badPort := Config{Host: "localhost", Port: 70000}
	assert.ErrorIs(t, badPort.Validate(), ErrInvalidConfig)
}

func TestExtractSchema(t *testing.T) {
	t.Run("unnamed single vector", func(t *testing.T) {
		info := &qdrant.CollectionInfo{
			Config: &qdrant.CollectionConfig{
				Params: &qdrant.CollectionParams{
					VectorsConfig: &qdrant.VectorsConfig{
						Config: &qdrant.VectorsConfig_Params{
							Params: &qdrant.VectorParams{
								Size:     384,
								Distance: qdrant.Distance_Cosine,
							},
						},
					},
				},
			},
		}

		schema, err := extractSchema(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(384), schema.VectorSize)
		assert.Equal(t, "Cosine", schema.Distance)
		assert.False(t, schema.Named)
		assert.Empty(t, schema.VectorName)
	})

	t.Run("named vector map", func(t *testing.T) {
		info := &qdrant.CollectionInfo{
			Config: &qdrant.CollectionConfig{
				Params: &qdrant.CollectionParams{
					VectorsConfig: &qdrant.VectorsConfig{
						Config: &qdrant.VectorsConfig_ParamsMap{
							ParamsMap: &qdrant.VectorParamsMap{
								Map: map[string]*qdrant.VectorParams{
									"fast-all-minilm-l6-v2": {
										Size:     384,
										Distance: qdrant.Distance_Cosine,
									},
								},
							},
						},
					},
				},
			},
		}

		schema, err := extractSchema(info)
		require.NoError(t, err)
		assert.Equal(t, uint64(384), schema.VectorSize)
		assert.Equal(t, "fast-all-minilm-l6-v2", schema.VectorName)
		assert.True(t, schema.Named)
	})

	t.Run("multiple named vectors picks first sorted", func(t *testing.T) {
		info := &qdrant.CollectionInfo{
			Config: &qdrant.CollectionConfig{
				Params: &qdrant.CollectionParams{
					VectorsConfig: &qdrant.VectorsConfig{
						Config: &qdrant.VectorsConfig_ParamsMap{
							ParamsMap: &qdrant.VectorParamsMap{
								Map: map[string]*qdrant.VectorParams{
									"zeta":  {Size: 768, Distance: qdrant.Distance_Dot},
									"alpha": {Size: 384, Distance: qdrant.Distance_Cosine},
								},
							},
						},
					},
				},
			},
		}

		schema, err := extractSchema(info)
		require.NoError(t, err)
		assert.Equal(t, "alpha", schema.VectorName)
		assert.Equal(t, uint64(384), schema.VectorSize)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := extractSchema(&qdrant.CollectionInfo{})
		assert.Error(t, err)
	})

	t.Run("empty params map", func(t *testing.T) {
		info := &qdrant.CollectionInfo{
			Config: &qdrant.CollectionConfig{
				Params: &qdrant.CollectionParams{
					VectorsConfig: &qdrant.VectorsConfig{
						Config: &qdrant.VectorsConfig_ParamsMap{
							ParamsMap: &qdrant.VectorParamsMap{},
						},
					},
				},
			},
		}
		_, err := extractSchema(info)
		assert.Error(t, err)
	})
}

func TestPointIDConversion(t *testing.T) {
	t.Run("uuid round trip", func(t *testing.T) {
		id := "8c2f9a10-41f0-47f2-8dd4-9ba68df01337"
		pid, err := pointIDFromString(id)
		require.NoError(t, err)
		assert.Equal(t, id, pointIDToString(pid))
	})

	t.Run("numeric round trip", func(t *testing.T) {
		pid, err := pointIDFromString("42")
		require.NoError(t, err)
		assert.Equal(t, "42", pointIDToString(pid))
	})

	t.Run("rejects arbitrary strings", func(t *testing.T) {
		_, err := pointIDFromString("doc-1")
		assert.ErrorIs(t, err, ErrInvalidPointID)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := pointIDFromString("")
		assert.ErrorIs(t, err, ErrInvalidPointID)
	})
}

func TestDistanceFromString(t *testing.T) {
	assert.Equal(t, qdrant.Distance_Cosine, distanceFromString("Cosine"))
	assert.Equal(t, qdrant.Distance_Euclid, distanceFromString("Euclid"))
	assert.Equal(t, qdrant.Distance_Dot, distanceFromString("Dot"))
	assert.Equal(t, qdrant.Distance_Manhattan, distanceFromString("Manhattan"))
	assert.Equal(t, qdrant.Distance_Cosine, distanceFromString("unknown"))
}

func TestBuildFilter(t *testing.T) {
	t.Run("empty returns nil", func(t *testing.T) {
		assert.Nil(t, buildFilter(nil))
		assert.Nil(t, buildFilter(map[string]any{}))
	})

	t.Run("typed conditions sorted by key", func(t *testing.T) {
		f := buildFilter(map[string]any{
			"metadata.tag":      "infra",
			"metadata.active":   true,
			"metadata.priority": 3,
		})
		require.NotNil(t, f)
		require.Len(t, f.Must, 3)

		active := f.Must[0].GetField()
		require.NotNil(t, active)
		assert.Equal(t, "metadata.active", active.Key)
		assert.True(t, active.Match.GetBoolean())

		priority := f.Must[1].GetField()
		assert.Equal(t, "metadata.priority", priority.Key)
		assert.Equal(t, int64(3), priority.Match.GetInteger())

		tag := f.Must[2].GetField()
		assert.Equal(t, "metadata.tag", tag.Key)
		assert.Equal(t, "infra", tag.Match.GetKeyword())
	})

	t.Run("whole json float matches as integer", func(t *testing.T) {
		f := buildFilter(map[string]any{"metadata.count": float64(7)})
		require.NotNil(t, f)
		require.Len(t, f.Must, 1)
		assert.Equal(t, int64(7), f.Must[0].GetField().Match.GetInteger())
	})

	t.Run("fractional json float matches as range", func(t *testing.T) {
		f := buildFilter(map[string]any{"metadata.score": 0.75})
		require.NotNil(t, f)
		require.Len(t, f.Must, 1)

		field := f.Must[0].GetField()
		require.NotNil(t, field)
		assert.Equal(t, "metadata.score", field.Key)
		assert.Nil(t, field.Match)
		require.NotNil(t, field.Range)
		require.NotNil(t, field.Range.Gte)
		require.NotNil(t, field.Range.Lte)
		assert.Equal(t, 0.75, *field.Range.Gte)
		assert.Equal(t, 0.75, *field.Range.Lte)
	})

	t.Run("unsupported value types skipped", func(t *testing.T) {
		f := buildFilter(map[string]any{"metadata.blob": []string{"a"}})
		assert.Nil(t, f)
	})
}

func TestPointVectors(t *testing.T) {
	named := pointVectors(Point{
		Vector:     []float32{1, 2, 3},
		VectorName: "fast-all-minilm-l6-v2",
	})
	require.NotNil(t, named.GetVectors())
	slot := named.GetVectors().GetVectors()["fast-all-minilm-l6-v2"]
	require.NotNil(t, slot)
	assert.Equal(t, []float32{1, 2, 3}, slot.GetDense().GetData())

	unnamed := pointVectors(Point{Vector: []float32{4, 5}})
	require.NotNil(t, unnamed.GetVector())
	assert.Equal(t, []float32{4, 5}, unnamed.GetVector().GetDense().GetData())
}

func TestDecodeValue(t *testing.T) {
	nested := &qdrant.Value{Kind: &qdrant.Value_StructValue{
		StructValue: &qdrant.Struct{Fields: map[string]*qdrant.Value{
			"name":  {Kind: &qdrant.Value_StringValue{StringValue: "inner"}},
			"count": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 5}},
		}},
	}}

	list := &qdrant.Value{Kind: &qdrant.Value_ListValue{
		ListValue: &qdrant.ListValue{Values: []*qdrant.Value{
			{Kind: &qdrant.Value_StringValue{StringValue: "a"}},
			{Kind: &qdrant.Value_DoubleValue{DoubleValue: 1.5}},
		}},
	}}

	payload := decodePayload(map[string]*qdrant.Value{
		"text":   {Kind: &qdrant.Value_StringValue{StringValue: "hello"}},
		"flag":   {Kind: &qdrant.Value_BoolValue{BoolValue: true}},
		"nested": nested,
		"items":  list,
	})

	assert.Equal(t, "hello", payload["text"])
	assert.Equal(t, true, payload["flag"])
	assert.Equal(t, map[string]any{"name": "inner", "count": int64(5)}, payload["nested"])
	assert.Equal(t, []any{"a", 1.5}, payload["items"])

	assert.Nil(t, decodePayload(nil))
}

func TestRetryOperationPermanentError(t *testing.T) {
	c := &GRPCClient{config: Config{MaxRetries: 3, RetryBackoff: time.Millisecond, CircuitBreakerThreshold: 5}}

	calls := 0
	err := c.retryOperation(t.Context(), "test_op", func() error {
		calls++
		return status.Error(grpccodes.InvalidArgument, "bad request")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permanent")
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestRetryOperationTransientError(t *testing.T) {
	c := &GRPCClient{config: Config{MaxRetries: 2, RetryBackoff: time.Millisecond, CircuitBreakerThreshold: 10}}

	calls := 0
	err := c.retryOperation(t.Context(), "test_op", func() error {
		calls++
		if calls < 3 {
			return status.Error(grpccodes.Unavailable, "server down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOperationExhaustsRetries(t *testing.T) {
	c := &GRPCClient{config: Config{MaxRetries: 2, RetryBackoff: time.Millisecond, CircuitBreakerThreshold: 10}}

	calls := 0
	err := c.retryOperation(t.Context(), "test_op", func() error {
		calls++
		return status.Error(grpccodes.Unavailable, "server down")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, calls)
}

func TestCircuitBreakerOpens(t *testing.T) {
	c := &GRPCClient{config: Config{MaxRetries: 0, RetryBackoff: time.Millisecond, CircuitBreakerThreshold: 2}}

	transient := func() error { return status.Error(grpccodes.Unavailable, "down") }

	for i := 0; i < 2; i++ {
		err := c.retryOperation(t.Context(), "test_op", transient)
		require.Error(t, err)
	}

	err := c.retryOperation(t.Context(), "test_op", transient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestDimensionMismatchErrorMessage(t *testing.T) {
	err := &DimensionMismatchError{Collection: "memories", Expected: 768, Actual: 384}
	want := fmt.Sprintf("Vector dimension mismatch in collection '%s': expected %dD, got %dD. "+
		"Use a different embedding model or recreate the collection.", "memories", 768, 384)
	assert.Equal(t, want, err.Error())

	wrapped := fmt.Errorf("store failed: %w", err)
	assert.True(t, IsDimensionMismatch(wrapped))
	assert.False(t, IsDimensionMismatch(errors.New("other")))
}
