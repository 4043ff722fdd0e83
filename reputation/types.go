// Package reputation scores offense indicators against external reputation
// providers. The pipeline consumes it through the Service interface; provider
// failures degrade to empty results, never errors.
package reputation

import (
	"context"
	"net"
	"net/url"
	"strings"

	"nuvex/core"
)

// IndicatorType classifies an indicator value.
type IndicatorType string

const (
	IndicatorIP      IndicatorType = "ip"
	IndicatorDomain  IndicatorType = "domain"
	IndicatorURL     IndicatorType = "url"
	IndicatorUnknown IndicatorType = "unknown"
)

// Service is the reputation boundary the triage pipeline depends on. Lookup
// never returns an error; a failing provider contributes nothing to the
// result and an unreachable backend yields an empty slice.
type Service interface {
	Lookup(ctx context.Context, indicator string) []core.ReputationFinding
}

// Provider is a single reputation backend.
type Provider interface {
	// Name identifies the provider in findings, logs, and metrics.
	Name() string

	// Check scores one indicator. A nil finding with nil error means the
	// provider does not handle this indicator type.
	Check(ctx context.Context, indicator string, kind IndicatorType) (*core.ReputationFinding, error)
}

// Classify determines what kind of indicator a value is.
func Classify(indicator string) IndicatorType {
	if net.ParseIP(indicator) != nil {
		return IndicatorIP
	}
	if u, err := url.Parse(indicator); err == nil && u.Scheme != "" && u.Host != "" {
		return IndicatorURL
	}
	if strings.Contains(indicator, ".") && !strings.ContainsAny(indicator, " /") {
		return IndicatorDomain
	}
	return IndicatorUnknown
}
