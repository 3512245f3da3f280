// Package embeddings provides embedding generation via local ONNX models.
package embeddings

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// RegistryConfig holds configuration for the provider registry.
type RegistryConfig struct {
	// DefaultModel is used when an operation does not name a model.
	DefaultModel string
	// CacheDir is the model weight cache directory, shared by all providers.
	CacheDir string
	// MaxLength is the maximum input sequence length.
	MaxLength int
}

// Registry caches embedding providers by model name. Model weights are
// expensive to load, so each model is initialized at most once per process
// and shared across all collections bound to it.
type Registry struct {
	cfg     RegistryConfig
	logger  *zap.Logger
	metrics *Metrics

	mu        sync.RWMutex
	providers map[string]Provider
	// loading serializes initialization per model so concurrent requests
	// for the same model do not load the weights twice.
	loading map[string]*sync.Mutex
}

// NewRegistry creates a provider registry with the given defaults.
func NewRegistry(cfg RegistryConfig, logger *zap.Logger) (*Registry, error) {
	if cfg.DefaultModel == "" {
		return nil, fmt.Errorf("%w: default model is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:       cfg,
		logger:    logger,
		metrics:   NewMetrics(logger),
		providers: make(map[string]Provider),
		loading:   make(map[string]*sync.Mutex),
	}, nil
}

// DefaultModel returns the configured default model name.
func (r *Registry) DefaultModel() string {
	return r.cfg.DefaultModel
}

// Default returns the provider for the default model.
func (r *Registry) Default() (Provider, error) {
	return r.ForModel(r.cfg.DefaultModel)
}

// ForModel returns a provider for the given model, initializing it on
// first use. Returns ErrNoLocalModel for models without local weights.
func (r *Registry) ForModel(model string) (Provider, error) {
	if model == "" {
		model = r.cfg.DefaultModel
	}

	r.mu.RLock()
	p, ok := r.providers[model]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	lock := r.loadLock(model)
	lock.Lock()
	defer lock.Unlock()

	// Another goroutine may have finished loading while we waited
	r.mu.RLock()
	p, ok = r.providers[model]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.logger.Info("loading embedding model",
		zap.String("model", model),
		zap.String("cache_dir", r.cfg.CacheDir))

	fe, err := NewFastEmbedProvider(FastEmbedConfig{
		Model:     model,
		CacheDir:  r.cfg.CacheDir,
		MaxLength: r.cfg.MaxLength,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider for %q: %w", model, err)
	}
	provider := &instrumentedProvider{Provider: fe, metrics: r.metrics}

	r.mu.Lock()
	r.providers[model] = provider
	r.mu.Unlock()

	r.logger.Info("embedding model ready",
		zap.String("model", model),
		zap.Int("dimension", provider.Dimension()),
		zap.String("vector_name", provider.VectorName()))

	return provider, nil
}

// Loaded returns the model names with initialized providers.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}

// Close releases all initialized providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing provider %q: %w", name, err)
		}
		delete(r.providers, name)
	}
	return firstErr
}

func (r *Registry) loadLock(model string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.loading[model]
	if !ok {
		lock = &sync.Mutex{}
		r.loading[model] = lock
	}
	return lock
}
