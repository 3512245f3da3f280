// Package mcp provides the MCP server exposing memory tools over stdio.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the vectorstore connector directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qdrantd/internal/vectorstore"
)

// Server exposes memory operations as MCP tools on the stdio transport.
type Server struct {
	mcp       *mcp.Server
	connector *vectorstore.Connector
	metrics   *Metrics
	logger    *zap.Logger
	readOnly  bool
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "qdrantd")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// ReadOnly disables all tools that modify collections or points.
	ReadOnly bool

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "qdrantd",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server over the given connector.
func NewServer(cfg *Config, connector *vectorstore.Connector) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Name == "" {
		cfg.Name = "qdrantd"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if connector == nil {
		return nil, fmt.Errorf("connector is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:       mcpServer,
		connector: connector,
		metrics:   NewMetrics(cfg.Logger),
		logger:    cfg.Logger,
		readOnly:  cfg.ReadOnly,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all MCP tools with the server. Write tools are
// omitted entirely in read-only mode so clients never see them.
func (s *Server) registerTools() {
	s.registerSearchTools()
	s.registerCollectionTools()
	s.registerModelTools()

	if s.readOnly {
		s.logger.Info("read-only mode, write tools disabled")
		return
	}
	s.registerStoreTools()
	s.registerCollectionWriteTools()
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport",
		zap.Bool("read_only", s.readOnly),
		zap.String("default_collection", s.connector.DefaultCollection()))
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close closes the server and the connector.
func (s *Server) Close() error {
	s.logger.Info("closing MCP server")
	if err := s.connector.Close(); err != nil {
		return fmt.Errorf("connector close: %w", err)
	}
	return nil
}

// resolveCollection applies the configured default collection.
func (s *Server) resolveCollection(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if def := s.connector.DefaultCollection(); def != "" {
		return def, nil
	}
	return "", fmt.Errorf("collection_name is required: no default collection configured")
}
