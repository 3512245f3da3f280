package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
	"github.com/fyrsmithlabs/qdrantd/internal/vectorstore"
)

// formatEntry renders a stored entry for tool text output.
// Format: <entry><content>...</content><metadata>...</metadata></entry>
func formatEntry(content string, metadata map[string]any) string {
	if len(metadata) == 0 {
		return fmt.Sprintf("<entry><content>%s</content></entry>", content)
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Sprintf("<entry><content>%s</content></entry>", content)
	}
	return fmt.Sprintf("<entry><content>%s</content><metadata>%s</metadata></entry>", content, string(meta))
}

// ===== SEARCH TOOLS =====

type findInput struct {
	Query          string   `json:"query" jsonschema:"required,Natural language query to search for"`
	CollectionName string   `json:"collection_name,omitempty" jsonschema:"Collection to search (default collection if omitted)"`
	Limit          int      `json:"limit,omitempty" jsonschema:"Maximum number of results (default: 10)"`
	ScoreThreshold *float32 `json:"score_threshold,omitempty" jsonschema:"Minimum similarity score for results"`
	Model          string   `json:"model,omitempty" jsonschema:"Embedding model override (ignored when the collection has a persisted binding)"`
}

type searchResultOutput struct {
	ID       string         `json:"id" jsonschema:"Point ID"`
	Content  string         `json:"content" jsonschema:"Stored memory text"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Stored metadata"`
	Score    float32        `json:"score" jsonschema:"Similarity score"`
}

type findOutput struct {
	Results []searchResultOutput `json:"results" jsonschema:"Matching entries ordered by score"`
	Count   int                  `json:"count" jsonschema:"Number of results returned"`
}

type hybridSearchInput struct {
	Query          string         `json:"query" jsonschema:"required,Natural language query to search for"`
	Filters        map[string]any `json:"filters" jsonschema:"required,Exact-match conditions on metadata fields"`
	CollectionName string         `json:"collection_name,omitempty" jsonschema:"Collection to search (default collection if omitted)"`
	Limit          int            `json:"limit,omitempty" jsonschema:"Maximum number of results (default: 10)"`
	ScoreThreshold *float32       `json:"score_threshold,omitempty" jsonschema:"Minimum similarity score for results"`
	Model          string         `json:"model,omitempty" jsonschema:"Embedding model override (ignored when the collection has a persisted binding)"`
}

type scrollInput struct {
	CollectionName string `json:"collection_name,omitempty" jsonschema:"Collection to scan (default collection if omitted)"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Page size (default: 100)"`
	Offset         string `json:"offset,omitempty" jsonschema:"Opaque offset from a previous page"`
}

type scrollOutput struct {
	Entries    []searchResultOutput `json:"entries" jsonschema:"Entries in this page"`
	NextOffset string               `json:"next_offset,omitempty" jsonschema:"Offset for the next page, empty when exhausted"`
	Count      int                  `json:"count" jsonschema:"Number of entries in this page"`
}

func (s *Server) registerSearchTools() {
	// qdrant_find
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_find",
		Description: "Search stored memories by semantic similarity",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args findInput) (*mcp.CallToolResult, findOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_find")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_find")
			s.metrics.RecordInvocation(ctx, "qdrant_find", time.Since(start), toolErr)
		}()

		collection, err := s.resolveCollection(args.CollectionName)
		if err != nil {
			toolErr = err
			return nil, findOutput{}, err
		}

		results, err := s.connector.Search(ctx, collection, args.Query, args.Limit, args.ScoreThreshold, args.Model)
		if err != nil {
			toolErr = fmt.Errorf("search failed: %w", err)
			return nil, findOutput{}, toolErr
		}

		return searchToolResult(args.Query, results)
	})

	// qdrant_hybrid_search
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_hybrid_search",
		Description: "Search stored memories by semantic similarity combined with exact-match metadata filters",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args hybridSearchInput) (*mcp.CallToolResult, findOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_hybrid_search")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_hybrid_search")
			s.metrics.RecordInvocation(ctx, "qdrant_hybrid_search", time.Since(start), toolErr)
		}()

		collection, err := s.resolveCollection(args.CollectionName)
		if err != nil {
			toolErr = err
			return nil, findOutput{}, err
		}
		if len(args.Filters) == 0 {
			toolErr = fmt.Errorf("filters cannot be empty, use qdrant_find for unfiltered search")
			return nil, findOutput{}, toolErr
		}

		results, err := s.connector.HybridSearch(ctx, collection, args.Query, args.Filters, args.Limit, args.ScoreThreshold, args.Model)
		if err != nil {
			toolErr = fmt.Errorf("hybrid search failed: %w", err)
			return nil, findOutput{}, toolErr
		}

		return searchToolResult(args.Query, results)
	})

	// qdrant_scroll
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_scroll",
		Description: "Page through all entries of a collection without similarity ranking",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args scrollInput) (*mcp.CallToolResult, scrollOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_scroll")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_scroll")
			s.metrics.RecordInvocation(ctx, "qdrant_scroll", time.Since(start), toolErr)
		}()

		collection, err := s.resolveCollection(args.CollectionName)
		if err != nil {
			toolErr = err
			return nil, scrollOutput{}, err
		}

		page, err := s.connector.Scroll(ctx, collection, args.Limit, args.Offset)
		if err != nil {
			toolErr = fmt.Errorf("scroll failed: %w", err)
			return nil, scrollOutput{}, toolErr
		}

		out := scrollOutput{
			Entries:    make([]searchResultOutput, len(page.Entries)),
			NextOffset: page.NextOffset,
			Count:      len(page.Entries),
		}
		lines := make([]string, 0, len(page.Entries)+1)
		lines = append(lines, fmt.Sprintf("Entries in collection %s:", collection))
		for i, e := range page.Entries {
			out.Entries[i] = searchResultOutput{
				ID:       e.ID,
				Content:  e.Content,
				Metadata: e.Metadata,
			}
			lines = append(lines, formatEntry(e.Content, e.Metadata))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: strings.Join(lines, "\n")},
			},
		}, out, nil
	})
}

func searchToolResult(query string, results []vectorstore.ScoredEntry) (*mcp.CallToolResult, findOutput, error) {
	out := findOutput{
		Results: make([]searchResultOutput, len(results)),
		Count:   len(results),
	}

	if len(results) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("No information found for the query '%s'", query)},
			},
		}, out, nil
	}

	lines := make([]string, 0, len(results)+1)
	lines = append(lines, fmt.Sprintf("Results for the query '%s'", query))
	for i, r := range results {
		out.Results[i] = searchResultOutput{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Score,
		}
		lines = append(lines, formatEntry(r.Content, r.Metadata))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: strings.Join(lines, "\n")},
		},
	}, out, nil
}

// ===== STORE TOOLS =====

type storeInput struct {
	Information    string         `json:"information" jsonschema:"required,Memory text to store"`
	Metadata       map[string]any `json:"metadata,omitempty" jsonschema:"Structured metadata to attach"`
	CollectionName string         `json:"collection_name,omitempty" jsonschema:"Collection to store into (default collection if omitted)"`
	Model          string         `json:"model,omitempty" jsonschema:"Embedding model for a new collection (ignored when the collection has a persisted binding)"`
}

type storeOutput struct {
	ID         string `json:"id" jsonschema:"Assigned point ID"`
	Collection string `json:"collection" jsonschema:"Collection the entry was stored in"`
}

type batchEntryInput struct {
	ID       string         `json:"id,omitempty" jsonschema:"Optional entry ID, non-UUID values are mapped deterministically to UUIDs"`
	Content  string         `json:"content" jsonschema:"required,Memory text to store"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Structured metadata to attach"`
}

type storeBatchInput struct {
	Entries        []batchEntryInput `json:"entries" jsonschema:"required,Entries to store"`
	CollectionName string            `json:"collection_name,omitempty" jsonschema:"Collection to store into (default collection if omitted)"`
	Model          string            `json:"model,omitempty" jsonschema:"Embedding model for a new collection (ignored when the collection has a persisted binding)"`
}

type storeBatchOutput struct {
	Stored     int    `json:"stored" jsonschema:"Number of entries stored"`
	Collection string `json:"collection" jsonschema:"Collection the entries were stored in"`
}

func (s *Server) registerStoreTools() {
	// qdrant_store
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_store",
		Description: "Store a memory with optional metadata for later semantic retrieval",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args storeInput) (*mcp.CallToolResult, storeOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_store")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_store")
			s.metrics.RecordInvocation(ctx, "qdrant_store", time.Since(start), toolErr)
		}()

		collection, err := s.resolveCollection(args.CollectionName)
		if err != nil {
			toolErr = err
			return nil, storeOutput{}, err
		}

		id, err := s.connector.Store(ctx, collection, args.Information, args.Metadata, args.Model)
		if err != nil {
			toolErr = fmt.Errorf("store failed: %w", err)
			return nil, storeOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Remembered: %s in collection %s", args.Information, collection)},
			},
		}, storeOutput{ID: id, Collection: collection}, nil
	})

	// qdrant_store_batch
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_store_batch",
		Description: "Store multiple memories in one write, verifying every point landed",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args storeBatchInput) (*mcp.CallToolResult, storeBatchOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_store_batch")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_store_batch")
			s.metrics.RecordInvocation(ctx, "qdrant_store_batch", time.Since(start), toolErr)
		}()

		collection, err := s.resolveCollection(args.CollectionName)
		if err != nil {
			toolErr = err
			return nil, storeBatchOutput{}, err
		}

		entries := make([]vectorstore.BatchEntry, len(args.Entries))
		for i, e := range args.Entries {
			entries[i] = vectorstore.BatchEntry{
				ID:       e.ID,
				Content:  e.Content,
				Metadata: e.Metadata,
			}
		}

		stored, err := s.connector.BatchStore(ctx, collection, entries, args.Model)
		if err != nil {
			toolErr = fmt.Errorf("batch store failed: %w", err)
			return nil, storeBatchOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Stored %d entries in collection %s", stored, collection)},
			},
		}, storeBatchOutput{Stored: stored, Collection: collection}, nil
	})
}

// ===== COLLECTION TOOLS =====

type listCollectionsOutput struct {
	Collections []string `json:"collections" jsonschema:"Collection names"`
	Count       int      `json:"count" jsonschema:"Number of collections"`
}

type collectionInfoInput struct {
	CollectionName string `json:"collection_name" jsonschema:"required,Collection to describe"`
}

type collectionInfoOutput struct {
	Name       string `json:"name" jsonschema:"Collection name"`
	PointCount int    `json:"point_count" jsonschema:"Number of stored points"`
	VectorSize int    `json:"vector_size" jsonschema:"Embedding dimension"`
	VectorName string `json:"vector_name,omitempty" jsonschema:"Named vector slot"`
	Distance   string `json:"distance,omitempty" jsonschema:"Similarity metric"`
	Model      string `json:"model,omitempty" jsonschema:"Bound embedding model"`
}

type createCollectionInput struct {
	CollectionName string `json:"collection_name" jsonschema:"required,Collection to create"`
	Model          string `json:"model,omitempty" jsonschema:"Embedding model to bind (server default if omitted)"`
	VectorSize     int    `json:"vector_size,omitempty" jsonschema:"Embedding dimension (model's dimension if omitted)"`
	Distance       string `json:"distance,omitempty" jsonschema:"Similarity metric: Cosine, Dot, Euclid, or Manhattan (Cosine if omitted)"`
}

type createCollectionOutput struct {
	Name  string `json:"name" jsonschema:"Created collection name"`
	Model string `json:"model" jsonschema:"Bound embedding model"`
}

type deleteCollectionInput struct {
	CollectionName string `json:"collection_name" jsonschema:"required,Collection to delete"`
	Confirm        bool   `json:"confirm" jsonschema:"required,Must be true, deletion is irreversible"`
}

type deleteCollectionOutput struct {
	Deleted string `json:"deleted" jsonschema:"Deleted collection name"`
}

func (s *Server) registerCollectionTools() {
	// qdrant_list_collections
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_list_collections",
		Description: "List all memory collections",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, listCollectionsOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_list_collections")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_list_collections")
			s.metrics.RecordInvocation(ctx, "qdrant_list_collections", time.Since(start), toolErr)
		}()

		collections, err := s.connector.ListCollections(ctx)
		if err != nil {
			toolErr = fmt.Errorf("list collections failed: %w", err)
			return nil, listCollectionsOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Collections: %s", strings.Join(collections, ", "))},
			},
		}, listCollectionsOutput{Collections: collections, Count: len(collections)}, nil
	})

	// qdrant_collection_info
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_collection_info",
		Description: "Describe a collection's schema, point count, and bound embedding model",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args collectionInfoInput) (*mcp.CallToolResult, collectionInfoOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_collection_info")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_collection_info")
			s.metrics.RecordInvocation(ctx, "qdrant_collection_info", time.Since(start), toolErr)
		}()

		info, err := s.connector.GetCollectionInfo(ctx, args.CollectionName)
		if err != nil {
			toolErr = fmt.Errorf("collection info failed: %w", err)
			return nil, collectionInfoOutput{}, toolErr
		}

		out := collectionInfoOutput{
			Name:       info.Name,
			PointCount: info.PointCount,
			VectorSize: info.VectorSize,
			VectorName: info.VectorName,
			Distance:   info.Distance,
			Model:      info.Model,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Collection %s: %d points, %dD vectors, model %s",
					info.Name, info.PointCount, info.VectorSize, info.Model)},
			},
		}, out, nil
	})
}

func (s *Server) registerCollectionWriteTools() {
	// qdrant_create_collection
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_create_collection",
		Description: "Create a collection bound to an embedding model",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args createCollectionInput) (*mcp.CallToolResult, createCollectionOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_create_collection")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_create_collection")
			s.metrics.RecordInvocation(ctx, "qdrant_create_collection", time.Since(start), toolErr)
		}()

		model := args.Model
		if model == "" {
			model = s.connector.DefaultModel()
		}

		if err := s.connector.CreateCollection(ctx, args.CollectionName, model, args.VectorSize, args.Distance); err != nil {
			toolErr = fmt.Errorf("create collection failed: %w", err)
			return nil, createCollectionOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Created collection %s bound to model %s", args.CollectionName, model)},
			},
		}, createCollectionOutput{Name: args.CollectionName, Model: model}, nil
	})

	// qdrant_delete_collection
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_delete_collection",
		Description: "Delete a collection and all its memories (requires confirm=true)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deleteCollectionInput) (*mcp.CallToolResult, deleteCollectionOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_delete_collection")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_delete_collection")
			s.metrics.RecordInvocation(ctx, "qdrant_delete_collection", time.Since(start), toolErr)
		}()

		if !args.Confirm {
			toolErr = fmt.Errorf("deletion requires confirm=true")
			return nil, deleteCollectionOutput{}, toolErr
		}

		if err := s.connector.DeleteCollection(ctx, args.CollectionName); err != nil {
			toolErr = fmt.Errorf("delete collection failed: %w", err)
			return nil, deleteCollectionOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Deleted collection %s", args.CollectionName)},
			},
		}, deleteCollectionOutput{Deleted: args.CollectionName}, nil
	})

	// qdrant_set_collection_model
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_set_collection_model",
		Description: "Bind a collection to an embedding model, rejecting dimension-incompatible bindings",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args setCollectionModelInput) (*mcp.CallToolResult, setCollectionModelOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_set_collection_model")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_set_collection_model")
			s.metrics.RecordInvocation(ctx, "qdrant_set_collection_model", time.Since(start), toolErr)
		}()

		if err := s.connector.SetCollectionModel(ctx, args.CollectionName, args.Model); err != nil {
			toolErr = fmt.Errorf("set collection model failed: %w", err)
			return nil, setCollectionModelOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Bound collection %s to model %s", args.CollectionName, args.Model)},
			},
		}, setCollectionModelOutput{Collection: args.CollectionName, Model: args.Model}, nil
	})
}

// ===== MODEL TOOLS =====

type listModelsOutput struct {
	Models  []embeddings.ModelInfo `json:"models" jsonschema:"Known embedding models"`
	Default string                 `json:"default" jsonschema:"Server default model"`
}

type setCollectionModelInput struct {
	CollectionName string `json:"collection_name" jsonschema:"required,Collection to bind"`
	Model          string `json:"model" jsonschema:"required,Embedding model name"`
}

type setCollectionModelOutput struct {
	Collection string `json:"collection" jsonschema:"Bound collection"`
	Model      string `json:"model" jsonschema:"Bound model"`
}

func (s *Server) registerModelTools() {
	// qdrant_list_models
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "qdrant_list_models",
		Description: "List known embedding models with their dimensions",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, listModelsOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "qdrant_list_models")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "qdrant_list_models")
			s.metrics.RecordInvocation(ctx, "qdrant_list_models", time.Since(start), toolErr)
		}()

		models := embeddings.Catalog()
		lines := make([]string, 0, len(models)+1)
		lines = append(lines, "Available embedding models:")
		for _, m := range models {
			lines = append(lines, fmt.Sprintf("%s (%dD): %s", m.ModelName, m.VectorSize, m.Description))
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: strings.Join(lines, "\n")},
			},
		}, listModelsOutput{Models: models, Default: s.connector.DefaultModel()}, nil
	})
}
