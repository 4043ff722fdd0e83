package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nuvex/core"
	"nuvex/metrics"

	"go.uber.org/zap"
)

// Notifier delivers a heads-up about an escalated offense to an external
// channel. Implementations must not block the triage pipeline for long.
type Notifier interface {
	NotifyEscalation(ctx context.Context, offense *core.Offense, analysis *core.Analysis) error
}

// NoopNotifier discards notifications. Used when no channel is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyEscalation(context.Context, *core.Offense, *core.Analysis) error {
	return nil
}

// WebhookNotifier posts a JSON escalation summary to a configured webhook
// endpoint. Delivery failures trip a circuit breaker so a dead endpoint
// cannot slow every escalation down.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
	breaker *core.CircuitBreaker
	logger  *zap.SugaredLogger
}

func NewWebhookNotifier(url string, headers map[string]string, logger *zap.SugaredLogger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &WebhookNotifier{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: core.NewCircuitBreaker(core.DefaultCircuitBreakerConfig()),
		logger:  logger,
	}
}

type escalationPayload struct {
	OffenseID   string   `json:"offense_id"`
	Description string   `json:"description"`
	Decision    string   `json:"decision"`
	RiskLevel   string   `json:"risk_level"`
	Reasons     []string `json:"reasons"`
	ReportPath  string   `json:"report_path,omitempty"`
}

func (n *WebhookNotifier) NotifyEscalation(ctx context.Context, offense *core.Offense, analysis *core.Analysis) error {
	if err := n.breaker.Allow(); err != nil {
		metrics.NotificationsSent.WithLabelValues("webhook", "skipped").Inc()
		return fmt.Errorf("notification skipped: %w", core.ErrCircuitOpen)
	}

	payload := escalationPayload{
		OffenseID:   offense.ID,
		Description: offense.Description,
		Decision:    string(analysis.Decision),
		RiskLevel:   analysis.RiskLevel,
		Reasons:     analysis.Reasons,
		ReportPath:  analysis.ReportPath,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode escalation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.breaker.RecordFailure()
		metrics.NotificationsSent.WithLabelValues("webhook", "error").Inc()
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		n.breaker.RecordFailure()
		metrics.NotificationsSent.WithLabelValues("webhook", "error").Inc()
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.breaker.RecordSuccess()
	metrics.NotificationsSent.WithLabelValues("webhook", "success").Inc()
	n.logger.Infow("Escalation notification delivered", "offense_id", offense.ID)
	return nil
}
