// Package config provides configuration loading for qdrantd.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables with a QDRANTD_ prefix.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/qdrantd/internal/logging"
)

// Config holds the complete qdrantd configuration.
type Config struct {
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Tools     ToolConfig      `koanf:"tools"`
	Log       logging.Config  `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// QdrantConfig holds connection settings for the Qdrant gRPC endpoint.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string `koanf:"host"`

	// Port is the Qdrant gRPC port (6334 by default, NOT the 6333 REST port).
	Port int `koanf:"port"`

	// APIKey authenticates against Qdrant Cloud. Empty for local instances.
	APIKey string `koanf:"api_key"`

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool `koanf:"use_tls"`

	// CollectionName is the default collection used by tools when the
	// caller omits one. Empty means every tool call must name a collection.
	CollectionName string `koanf:"collection_name"`

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MaxMessageSize is the gRPC message size cap in bytes.
	MaxMessageSize int `koanf:"max_message_size"`
}

// EmbeddingConfig holds settings for the default embedding model.
type EmbeddingConfig struct {
	// Model is the default embedding model, used for collections without
	// an explicit model binding.
	Model string `koanf:"model"`

	// CacheDir is the directory for downloaded model files.
	CacheDir string `koanf:"cache_dir"`

	// MaxLength is the maximum input sequence length.
	MaxLength int `koanf:"max_length"`
}

// ToolConfig holds settings for the MCP tool surface.
type ToolConfig struct {
	// ReadOnly disables all tools that mutate collections.
	ReadOnly bool `koanf:"read_only"`

	// SearchLimit is the result cap for qdrant_find.
	SearchLimit int `koanf:"search_limit"`

	// MaxBatchSize caps entries per qdrant_store_batch call and per
	// scroll page.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	// Enabled turns on the OTLP trace exporter.
	Enabled bool `koanf:"enabled"`

	// Endpoint is the OTLP gRPC endpoint (host:port).
	Endpoint string `koanf:"endpoint"`

	// ServiceName identifies this process in traces.
	ServiceName string `koanf:"service_name"`

	// Insecure disables TLS for the OTLP gRPC exporter connection.
	Insecure bool `koanf:"insecure"`

	// MetricsAddr serves Prometheus metrics when non-empty (host:port).
	MetricsAddr string `koanf:"metrics_addr"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.MaxRetries == 0 {
		c.Qdrant.MaxRetries = 3
	}
	if c.Qdrant.RetryBackoff == 0 {
		c.Qdrant.RetryBackoff = time.Second
	}
	if c.Qdrant.MaxMessageSize == 0 {
		c.Qdrant.MaxMessageSize = 50 * 1024 * 1024 // 50MB
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.MaxLength == 0 {
		c.Embedding.MaxLength = 512
	}
	if c.Tools.SearchLimit == 0 {
		c.Tools.SearchLimit = 10
	}
	if c.Tools.MaxBatchSize == 0 {
		c.Tools.MaxBatchSize = 100
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "qdrantd"
	}
	c.Log.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Qdrant.Host == "" {
		return errors.New("qdrant host required")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d", c.Qdrant.Port)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding model required")
	}
	if c.Tools.SearchLimit <= 0 {
		return fmt.Errorf("search limit must be positive, got %d", c.Tools.SearchLimit)
	}
	if c.Tools.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be positive, got %d", c.Tools.MaxBatchSize)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry endpoint required when telemetry is enabled")
	}
	return c.Log.Validate()
}
