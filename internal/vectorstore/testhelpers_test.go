package vectorstore_test

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
	"github.com/fyrsmithlabs/qdrantd/internal/vectorstore"
)

// embedText produces a deterministic unit vector for a text. Identical
// texts embed identically, so exact matches score 1.0 under cosine.
func embedText(text string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed>>33))/float64(1<<30) - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// fakeProvider is a deterministic embeddings.Provider.
type fakeProvider struct {
	model string
	dim   int
}

func (p *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t, p.dim)
	}
	return out, nil
}

func (p *fakeProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedText(text, p.dim), nil
}

func (p *fakeProvider) ModelName() string  { return p.model }
func (p *fakeProvider) Dimension() int     { return p.dim }
func (p *fakeProvider) VectorName() string { return embeddings.VectorNameFor(p.model) }
func (p *fakeProvider) Close() error       { return nil }

// fakeResolver maps model names to fake providers.
type fakeResolver struct {
	defaultModel string
	providers    map[string]*fakeProvider
}

func newFakeResolver(defaultModel string, dims map[string]int) *fakeResolver {
	providers := make(map[string]*fakeProvider, len(dims))
	for model, dim := range dims {
		providers[model] = &fakeProvider{model: model, dim: dim}
	}
	return &fakeResolver{defaultModel: defaultModel, providers: providers}
}

func (r *fakeResolver) DefaultModel() string { return r.defaultModel }

func (r *fakeResolver) ForModel(model string) (embeddings.Provider, error) {
	if model == "" {
		model = r.defaultModel
	}
	p, ok := r.providers[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", embeddings.ErrNoLocalModel, model)
	}
	return p, nil
}

func (r *fakeResolver) Close() error { return nil }

// fakePoint is a stored point in the fake client.
type fakePoint struct {
	vector  []float32
	payload map[string]any
}

// fakeCollection is a collection in the fake client.
type fakeCollection struct {
	schema vectorstore.CollectionSchema
	points map[string]fakePoint
}

// fakeClient is an in-memory vectorstore.Client with cosine scoring.
type fakeClient struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection

	// inference enables server-side Document queries. The embedding used
	// matches fakeProvider so both strategies agree on scores.
	inference bool
	// dropOnUpsert silently discards points with these IDs, simulating a
	// write the server acknowledged but did not apply.
	dropOnUpsert map[string]bool

	retrieveCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{collections: make(map[string]*fakeCollection)}
}

func (c *fakeClient) CollectionExists(_ context.Context, collection string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.collections[collection]
	return ok, nil
}

func (c *fakeClient) CreateCollection(_ context.Context, collection string, schema vectorstore.CollectionSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.collections[collection]; ok {
		return fmt.Errorf("collection %q already exists", collection)
	}
	c.collections[collection] = &fakeCollection{
		schema: schema,
		points: make(map[string]fakePoint),
	}
	return nil
}

func (c *fakeClient) DeleteCollection(_ context.Context, collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.collections, collection)
	return nil
}

func (c *fakeClient) ListCollections(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.collections))
	for name := range c.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *fakeClient) Describe(_ context.Context, collection string) (*vectorstore.CollectionDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[collection]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return &vectorstore.CollectionDescription{
		Schema:      coll.schema,
		PointsCount: uint64(len(coll.points)),
	}, nil
}

func (c *fakeClient) Upsert(_ context.Context, collection string, points []vectorstore.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q does not exist", collection)
	}
	for _, p := range points {
		if c.dropOnUpsert[p.ID] {
			continue
		}
		if uint64(len(p.Vector)) != coll.schema.VectorSize {
			return fmt.Errorf("vector size %d does not match schema %d", len(p.Vector), coll.schema.VectorSize)
		}
		coll.points[p.ID] = fakePoint{vector: p.Vector, payload: p.Payload}
	}
	return nil
}

func (c *fakeClient) Retrieve(_ context.Context, collection string, ids []string) ([]vectorstore.RetrievedPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retrieveCalls++
	coll, ok := c.collections[collection]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	var out []vectorstore.RetrievedPoint
	for _, id := range ids {
		if p, ok := coll.points[id]; ok {
			out = append(out, vectorstore.RetrievedPoint{ID: id, Payload: p.payload})
		}
	}
	return out, nil
}

func (c *fakeClient) DeletePoints(_ context.Context, collection string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[collection]
	if !ok {
		return vectorstore.ErrCollectionNotFound
	}
	for _, id := range ids {
		delete(coll.points, id)
	}
	return nil
}

func (c *fakeClient) Query(_ context.Context, q vectorstore.Query) ([]vectorstore.ScoredPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[q.Collection]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}

	vector := q.Vector
	if q.DocumentText != "" {
		if !c.inference {
			return nil, fmt.Errorf("inference service is not available")
		}
		vector = embedText(q.DocumentText, int(coll.schema.VectorSize))
	}

	var hits []vectorstore.ScoredPoint
	for id, p := range coll.points {
		if !matchesPayload(p.payload, q.MustMatch) {
			continue
		}
		score := cosine(vector, p.vector)
		if q.ScoreThreshold != nil && score < *q.ScoreThreshold {
			continue
		}
		hits = append(hits, vectorstore.ScoredPoint{ID: id, Score: score, Payload: p.payload})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if uint64(len(hits)) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func (c *fakeClient) Scroll(_ context.Context, collection string, offset string, limit uint32) ([]vectorstore.RetrievedPoint, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[collection]
	if !ok {
		return nil, "", vectorstore.ErrCollectionNotFound
	}

	ids := make([]string, 0, len(coll.points))
	for id := range coll.points {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if offset != "" {
		start = sort.SearchStrings(ids, offset)
	}

	end := start + int(limit)
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]vectorstore.RetrievedPoint, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, vectorstore.RetrievedPoint{ID: id, Payload: coll.points[id].payload})
	}

	next := ""
	if end < len(ids) {
		next = ids[end]
	}
	return out, next, nil
}

func (c *fakeClient) HealthCheck(context.Context) error { return nil }
func (c *fakeClient) Close() error                      { return nil }

// matchesPayload applies dotted-path equality conditions.
func matchesPayload(payload map[string]any, mustMatch map[string]any) bool {
	for key, want := range mustMatch {
		var got any = payload
		for _, part := range strings.Split(key, ".") {
			m, ok := got.(map[string]any)
			if !ok {
				return false
			}
			got, ok = m[part]
			if !ok {
				return false
			}
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

const (
	testModelSmall = "sentence-transformers/all-MiniLM-L6-v2"
	testModelLarge = "BAAI/bge-base-en-v1.5"
)

// newTestConnector wires a connector over a fake client with small and
// large fake models.
func newTestConnector(client *fakeClient) (*vectorstore.Connector, error) {
	resolver := newFakeResolver(testModelSmall, map[string]int{
		testModelSmall: 384,
		testModelLarge: 768,
	})
	bindings := vectorstore.NewBindingStore(client, zap.NewNop())
	return vectorstore.NewConnector(client, resolver, bindings, vectorstore.ConnectorConfig{
		DefaultCollection: "memories",
	}, zap.NewNop())
}
