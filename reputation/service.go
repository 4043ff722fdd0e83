package reputation

import (
	"context"
	"time"

	"nuvex/core"
	"nuvex/metrics"

	"go.uber.org/zap"
)

// MultiService fans an indicator lookup out to every configured provider and
// flattens the findings. It implements Service: a failing provider is logged
// and skipped, never surfaced to the pipeline.
type MultiService struct {
	providers []Provider
	cache     *Cache
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// NewMultiService creates a reputation service over the given providers.
// cache may be nil to disable caching.
func NewMultiService(providers []Provider, cache *Cache, timeout time.Duration, logger *zap.SugaredLogger) *MultiService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MultiService{
		providers: providers,
		cache:     cache,
		timeout:   timeout,
		logger:    logger,
	}
}

// Lookup scores one indicator against all providers concurrently. Results
// arrive as a flat list, one finding per provider that handled the
// indicator. An unknown indicator type or total provider failure yields an
// empty slice.
func (s *MultiService) Lookup(ctx context.Context, indicator string) []core.ReputationFinding {
	kind := Classify(indicator)
	if kind == IndicatorUnknown {
		s.logger.Debugw("Skipping unsupported indicator", "indicator", indicator)
		return nil
	}

	if s.cache != nil {
		if findings, ok := s.cache.Get(ctx, indicator); ok {
			return findings
		}
	}

	type lookupResult struct {
		finding  *core.ReputationFinding
		err      error
		provider string
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make(chan lookupResult, len(s.providers))
	for _, p := range s.providers {
		go func(p Provider) {
			finding, err := p.Check(lookupCtx, indicator, kind)
			results <- lookupResult{finding: finding, err: err, provider: p.Name()}
		}(p)
	}

	var findings []core.ReputationFinding
	for range s.providers {
		select {
		case res := <-results:
			if res.err != nil {
				metrics.ReputationLookups.WithLabelValues(res.provider, "error").Inc()
				s.logger.Warnw("Reputation provider failed",
					"provider", res.provider, "indicator", indicator, "error", res.err)
				continue
			}
			if res.finding == nil {
				// Provider does not handle this indicator type.
				continue
			}
			metrics.ReputationLookups.WithLabelValues(res.provider, "success").Inc()
			findings = append(findings, *res.finding)
		case <-lookupCtx.Done():
			s.logger.Warnw("Reputation lookup timed out",
				"indicator", indicator, "collected", len(findings))
			return findings
		}
	}

	if s.cache != nil && len(findings) > 0 {
		s.cache.Set(ctx, indicator, findings)
	}
	return findings
}
