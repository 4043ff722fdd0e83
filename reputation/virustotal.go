package reputation

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"nuvex/core"
)

const virusTotalDefaultBaseURL = "https://www.virustotal.com/api/v3"

// VirusTotalProvider scores IPs, domains, and URLs via the VirusTotal v3
// API. A circuit breaker guards the backend so a broken VirusTotal does not
// add latency to every lookup.
type VirusTotalProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *core.CircuitBreaker
}

// NewVirusTotalProvider creates a VirusTotal provider.
func NewVirusTotalProvider(apiKey string) *VirusTotalProvider {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &VirusTotalProvider{
		apiKey:  apiKey,
		baseURL: virusTotalDefaultBaseURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		breaker: core.NewCircuitBreaker(core.DefaultCircuitBreakerConfig()),
	}
}

// Name returns the provider name.
func (p *VirusTotalProvider) Name() string {
	return "virustotal"
}

// Check queries the analysis stats for an indicator.
func (p *VirusTotalProvider) Check(ctx context.Context, indicator string, kind IndicatorType) (*core.ReputationFinding, error) {
	var endpoint string
	switch kind {
	case IndicatorIP:
		endpoint = fmt.Sprintf("%s/ip_addresses/%s", p.baseURL, indicator)
	case IndicatorDomain:
		endpoint = fmt.Sprintf("%s/domains/%s", p.baseURL, indicator)
	case IndicatorURL:
		endpoint = fmt.Sprintf("%s/urls/%s", p.baseURL, urlID(indicator))
	default:
		return nil, nil
	}

	if err := p.breaker.Allow(); err != nil {
		return &core.ReputationFinding{
			Indicator: indicator,
			Provider:  p.Name(),
			Metadata:  map[string]string{"error": "circuit_breaker_open"},
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-apikey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		p.breaker.RecordFailure()
		return nil, fmt.Errorf("failed to query VirusTotal: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		p.breaker.RecordFailure()
		return &core.ReputationFinding{
			Indicator: indicator,
			Provider:  p.Name(),
			Metadata:  map[string]string{"error": "rate_limited"},
		}, nil
	case resp.StatusCode == http.StatusNotFound:
		// Unknown to VirusTotal: a clean zero-vote finding.
		p.breaker.RecordSuccess()
		return &core.ReputationFinding{
			Indicator: indicator,
			Provider:  p.Name(),
		}, nil
	case resp.StatusCode != http.StatusOK:
		p.breaker.RecordFailure()
		return nil, fmt.Errorf("VirusTotal returned status %d", resp.StatusCode)
	}

	p.breaker.RecordSuccess()

	var body struct {
		Data struct {
			Attributes struct {
				LastAnalysisStats struct {
					Malicious  int `json:"malicious"`
					Suspicious int `json:"suspicious"`
					Harmless   int `json:"harmless"`
					Undetected int `json:"undetected"`
				} `json:"last_analysis_stats"`
				Reputation int `json:"reputation"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	stats := body.Data.Attributes.LastAnalysisStats
	total := stats.Malicious + stats.Suspicious + stats.Harmless + stats.Undetected

	return &core.ReputationFinding{
		Indicator:       indicator,
		Provider:        p.Name(),
		MaliciousVotes:  stats.Malicious,
		SuspiciousVotes: stats.Suspicious,
		Metadata: map[string]string{
			"total_engines": strconv.Itoa(total),
			"reputation":    strconv.Itoa(body.Data.Attributes.Reputation),
		},
	}, nil
}

// urlID computes the VirusTotal URL identifier: unpadded URL-safe base64 of
// the URL itself.
func urlID(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}
