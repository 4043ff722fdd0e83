package reputation

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nuvex/core"
)

const abuseIPDBDefaultBaseURL = "https://api.abuseipdb.com"

// AbuseIPDBProvider scores IP addresses via the AbuseIPDB check API. It only
// handles IPs; other indicator types are skipped.
type AbuseIPDBProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAbuseIPDBProvider creates an AbuseIPDB provider.
func NewAbuseIPDBProvider(apiKey string) *AbuseIPDBProvider {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &AbuseIPDBProvider{
		apiKey:  apiKey,
		baseURL: abuseIPDBDefaultBaseURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

// Name returns the provider name.
func (p *AbuseIPDBProvider) Name() string {
	return "abuseipdb"
}

// Check queries the abuse confidence score for an IP address.
func (p *AbuseIPDBProvider) Check(ctx context.Context, indicator string, kind IndicatorType) (*core.ReputationFinding, error) {
	if kind != IndicatorIP {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/api/v2/check?ipAddress=%s&maxAgeInDays=90", p.baseURL, url.QueryEscape(indicator))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query AbuseIPDB: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Degrade to a zero-confidence finding rather than failing the lookup.
		return &core.ReputationFinding{
			Indicator: indicator,
			Provider:  p.Name(),
			Metadata:  map[string]string{"error": "rate_limited"},
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AbuseIPDB returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
			TotalReports         int    `json:"totalReports"`
			CountryCode          string `json:"countryCode"`
			ISP                  string `json:"isp"`
			IsWhitelisted        bool   `json:"isWhitelisted"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &core.ReputationFinding{
		Indicator:       indicator,
		Provider:        p.Name(),
		AbuseConfidence: body.Data.AbuseConfidenceScore,
		Metadata: map[string]string{
			"country":        body.Data.CountryCode,
			"isp":            body.Data.ISP,
			"total_reports":  strconv.Itoa(body.Data.TotalReports),
			"is_whitelisted": strconv.FormatBool(body.Data.IsWhitelisted),
		},
	}, nil
}
