package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/qdrantd/internal/config"
	"github.com/fyrsmithlabs/qdrantd/internal/embeddings"
	"github.com/fyrsmithlabs/qdrantd/internal/logging"
	qmcp "github.com/fyrsmithlabs/qdrantd/internal/mcp"
	"github.com/fyrsmithlabs/qdrantd/internal/telemetry"
	"github.com/fyrsmithlabs/qdrantd/internal/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the MCP server on the stdio transport.

Examples:
  # Serve with defaults (Qdrant on localhost:6334)
  qdrantd serve

  # Serve with a config file
  qdrantd serve --config qdrantd.yaml

  # Configure via environment
  QDRANTD_QDRANT_HOST=qdrant.internal QDRANTD_TOOLS_READ_ONLY=true qdrantd serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync(logger)

	// Signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	return run(ctx, cfg, logger)
}

// run wires the services and blocks until the context is cancelled or the
// MCP client disconnects.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting qdrantd",
		zap.String("version", version),
		zap.String("qdrant_host", cfg.Qdrant.Host),
		zap.Int("qdrant_port", cfg.Qdrant.Port),
		zap.String("default_model", cfg.Embedding.Model),
		zap.Bool("read_only", cfg.Tools.ReadOnly))

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Insecure:       cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	client, err := vectorstore.NewGRPCClient(vectorstore.Config{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		APIKey:         cfg.Qdrant.APIKey,
		UseTLS:         cfg.Qdrant.UseTLS,
		MaxRetries:     cfg.Qdrant.MaxRetries,
		RetryBackoff:   cfg.Qdrant.RetryBackoff,
		MaxMessageSize: cfg.Qdrant.MaxMessageSize,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	registry, err := embeddings.NewRegistry(embeddings.RegistryConfig{
		DefaultModel: cfg.Embedding.Model,
		CacheDir:     cfg.Embedding.CacheDir,
		MaxLength:    cfg.Embedding.MaxLength,
	}, logger)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to initialize embedding registry: %w", err)
	}

	bindings := vectorstore.NewBindingStore(client, logger)

	connector, err := vectorstore.NewConnector(client, registry, bindings, vectorstore.ConnectorConfig{
		DefaultCollection: cfg.Qdrant.CollectionName,
		SearchLimit:       cfg.Tools.SearchLimit,
		MaxBatchSize:      cfg.Tools.MaxBatchSize,
	}, logger)
	if err != nil {
		_ = registry.Close()
		_ = client.Close()
		return fmt.Errorf("failed to initialize connector: %w", err)
	}

	server, err := qmcp.NewServer(&qmcp.Config{
		Name:     cfg.Telemetry.ServiceName,
		Version:  version,
		ReadOnly: cfg.Tools.ReadOnly,
		Logger:   logger,
	}, connector)
	if err != nil {
		_ = connector.Close()
		return fmt.Errorf("failed to initialize MCP server: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.Warn("server close failed", zap.Error(err))
		}
	}()

	// Optional Prometheus metrics listener
	if cfg.Telemetry.MetricsAddr != "" {
		go serveMetrics(cfg.Telemetry.MetricsAddr, logger)
	}

	return server.Run(ctx)
}

// serveMetrics exposes Prometheus metrics on a side listener. The MCP
// protocol owns stdio, so metrics get their own HTTP port.
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("serving metrics", zap.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics listener failed", zap.Error(err))
	}
}
