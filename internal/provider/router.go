package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Router tries an ordered list of backends and returns the first success.
// The list encodes a quality/cost priority: best quality first, cheapest
// fallback last. The Router is stateless apart from the immutable list.
// Each call makes one attempt per backend, with no retries and no mixing
// of results across backends.
type Router struct {
	backends []Backend
	logger   *slog.Logger
}

// NewRouter creates a Router over the given backend order.
func NewRouter(logger *slog.Logger, backends ...Backend) (*Router, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{backends: backends, logger: logger}, nil
}

// Backends returns the configured backend names in priority order.
func (r *Router) Backends() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// Classify invokes the backends in order and returns the first successful
// classification. If every backend fails, the last error is surfaced.
func (r *Router) Classify(ctx context.Context, in ClassifyInput) (ClassificationResult, error) {
	var lastErr error
	for _, b := range r.backends {
		res, err := b.Classify(ctx, in)
		if err != nil {
			r.logger.Warn("classification backend failed", "backend", b.Name(), "error", err)
			lastErr = err
			continue
		}
		return res, nil
	}
	// Surface the last error, not the first: the cheapest fallback's failure
	// is the most diagnostic signal that the whole chain is down.
	return ClassificationResult{}, fmt.Errorf("classify: all %d backends failed: %w", len(r.backends), lastErr)
}

// GenerateResponse invokes the backends in order and returns the first
// successful generation. If every backend fails, the last error is surfaced.
func (r *Router) GenerateResponse(ctx context.Context, in GenerateInput) (GenerationResult, error) {
	var lastErr error
	for _, b := range r.backends {
		res, err := b.GenerateResponse(ctx, in)
		if err != nil {
			r.logger.Warn("generation backend failed", "backend", b.Name(), "error", err)
			lastErr = err
			continue
		}
		return res, nil
	}
	return GenerationResult{}, fmt.Errorf("generate: all %d backends failed: %w", len(r.backends), lastErr)
}
