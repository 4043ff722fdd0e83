package triage

import (
	"context"
	"fmt"

	"nuvex/core"
	"nuvex/llm"
	"nuvex/store"

	"go.uber.org/zap"
)

// Decision thresholds. An indicator exceeding either one escalates the
// offense regardless of everything else.
const (
	maliciousVoteThreshold   = 1
	abuseConfidenceThreshold = 50
)

// CriticalTag is the similar-case tag that forces escalation. The policy is
// "any": a single retrieved case carrying this tag is enough. An earlier
// iteration of the ruleset required all retrieved cases to carry it; "any"
// is the conservative choice and is fixed here as policy.
const CriticalTag = "Data Exfiltration"

// StaticFalsePositiveReason is the audit reason used when no rule fired and
// no generated justification is available.
const StaticFalsePositiveReason = "no significant threat indicators detected"

// Risk level labels attached to escalations.
const (
	RiskHigh   = "high"
	RiskMedium = "medium"
)

// Verdict is the decision engine output.
type Verdict struct {
	Decision  core.Decision
	Reasons   []string
	RiskLevel string
	// Warnings records soft failures such as an audit note that could not
	// be written.
	Warnings []string
}

// Engine combines reputation findings and retrieved similar cases into an
// escalate / false-positive verdict. The escalate path is pure rule
// evaluation with no AI call; only the justification of a false positive may
// consult the text generator, and its failure falls back to the static
// reason.
type Engine struct {
	audit            store.AuditLog
	generator        llm.Generator
	narrativeEnabled bool
	logger           *zap.SugaredLogger
}

// NewEngine creates a decision engine. generator may be nil; audit must not
// be, since the audit note is the only record of an auto-closed offense.
func NewEngine(audit store.AuditLog, generator llm.Generator, narrativeEnabled bool, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		audit:            audit,
		generator:        generator,
		narrativeEnabled: narrativeEnabled,
		logger:           logger,
	}
}

// Decide evaluates all rules; any rule firing escalates. Missing numeric
// fields in findings are zero values and simply never trip a threshold.
// Every false positive verdict is appended to the audit log before
// returning.
func (e *Engine) Decide(ctx context.Context, offense *core.Offense, findings []core.ReputationFinding, similar []core.SimilarCase) Verdict {
	decision := core.DecisionFalsePositive
	var reasons []string
	var risk string

	for _, f := range findings {
		if f.MaliciousVotes > maliciousVoteThreshold {
			decision = core.DecisionEscalate
			risk = RiskHigh
			reasons = append(reasons, fmt.Sprintf("malicious vote count %d exceeds %d for %s (%s)",
				f.MaliciousVotes, maliciousVoteThreshold, f.Indicator, f.Provider))
		}
		if f.AbuseConfidence > abuseConfidenceThreshold {
			decision = core.DecisionEscalate
			risk = RiskHigh
			reasons = append(reasons, fmt.Sprintf("abuse confidence %d exceeds %d for %s (%s)",
				f.AbuseConfidence, abuseConfidenceThreshold, f.Indicator, f.Provider))
		}
	}

	for _, c := range similar {
		if c.HasTag(CriticalTag) {
			decision = core.DecisionEscalate
			if risk == "" {
				risk = RiskMedium
			}
			reasons = append(reasons, fmt.Sprintf("similar past case tagged %q (similarity %.3f)",
				CriticalTag, c.Similarity))
			break
		}
	}

	verdict := Verdict{Decision: decision, Reasons: reasons, RiskLevel: risk}

	if decision == core.DecisionFalsePositive {
		verdict.Reasons = []string{e.falsePositiveReason(ctx, findings, similar)}
		if err := e.audit.Append(offense.ID, verdict.Reasons); err != nil {
			e.logger.Errorw("Failed to append audit note", "offense_id", offense.ID, "error", err)
			verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("audit note not written: %v", err))
		}
	}
	return verdict
}

// falsePositiveReason produces the single justification for an auto-close:
// a generated one when narrative mode is on and generation succeeds, the
// static message otherwise.
func (e *Engine) falsePositiveReason(ctx context.Context, findings []core.ReputationFinding, similar []core.SimilarCase) string {
	if !e.narrativeEnabled || e.generator == nil {
		return StaticFalsePositiveReason
	}
	res := e.generator.Complete(ctx, buildFalsePositivePrompt(findings, similar))
	if res.Failed() || res.Text == "" {
		e.logger.Warnw("False positive justification generation failed, using static reason",
			"provider", res.Provider, "error", res.ErrText)
		return StaticFalsePositiveReason
	}
	return res.Text
}
