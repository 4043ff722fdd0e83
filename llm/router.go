package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nuvex/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouterConfig holds routing behavior for the provider router.
type RouterConfig struct {
	// Primary is the provider name tried first for every prompt.
	Primary string
	// Secondary is the provider tried once when the primary fails and
	// FallbackEnabled is set.
	Secondary string
	// FallbackEnabled allows the single secondary attempt.
	FallbackEnabled bool
	// RequestTimeout bounds each individual provider call.
	RequestTimeout time.Duration
}

type routedProvider struct {
	provider Provider
	// limiter enforces the minimum inter-request interval for this provider;
	// it is shared by all callers (leaky bucket of size 1, global per
	// provider) and nil when the provider is unpaced.
	limiter *rate.Limiter
}

// Router implements Generator over a set of registered providers. All
// concurrent requests against a rate-limited provider serialize on its
// limiter rather than bursting it.
type Router struct {
	config    RouterConfig
	mu        sync.RWMutex
	providers map[string]*routedProvider
	logger    *zap.SugaredLogger
}

// NewRouter creates a provider router with no providers registered.
func NewRouter(config RouterConfig, logger *zap.SugaredLogger) *Router {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	return &Router{
		config:    config,
		providers: make(map[string]*routedProvider),
		logger:    logger,
	}
}

// Register adds a provider under its own name. A positive minInterval paces
// requests so consecutive invocations are at least that far apart.
func (r *Router) Register(p Provider, minInterval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rp := &routedProvider{provider: p}
	if minInterval > 0 {
		rp.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	r.providers[p.Name()] = rp
}

// Complete generates text for the prompt. The primary provider is tried
// first; when it fails and fallback is enabled the secondary is tried exactly
// once. If both fail the primary's result is returned, since it carries the
// most actionable diagnostic. Complete never returns a Go error.
func (r *Router) Complete(ctx context.Context, prompt string) Result {
	primary := r.invoke(ctx, r.config.Primary, prompt)
	if !primary.Failed() {
		return primary
	}

	if !r.config.FallbackEnabled || r.config.Secondary == "" {
		return primary
	}

	r.logger.Warnw("Primary text provider failed, trying fallback",
		"primary", r.config.Primary,
		"secondary", r.config.Secondary,
		"error", primary.ErrText)
	metrics.ProviderFallbacks.Inc()

	secondary := r.invoke(ctx, r.config.Secondary, prompt)
	if !secondary.Failed() {
		return secondary
	}
	return primary
}

func (r *Router) invoke(ctx context.Context, name, prompt string) Result {
	r.mu.RLock()
	rp, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		metrics.ProviderRequests.WithLabelValues(name, "error").Inc()
		return ErrorResult(name, fmt.Sprintf("no such provider: %s", name))
	}

	// Block until the provider's minimum inter-request interval has elapsed.
	if rp.limiter != nil {
		if err := rp.limiter.Wait(ctx); err != nil {
			metrics.ProviderRequests.WithLabelValues(name, "error").Inc()
			return ErrorResult(name, fmt.Sprintf("request pacing interrupted: %v", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.config.RequestTimeout)
	defer cancel()

	text, err := rp.provider.Complete(callCtx, prompt)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(name, "error").Inc()
		return ErrorResult(name, fmt.Sprintf("unable to query %s: %v", name, err))
	}

	metrics.ProviderRequests.WithLabelValues(name, "success").Inc()
	return TextResult(name, text)
}
