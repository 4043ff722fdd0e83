package triage

import (
	"context"
	"time"

	"nuvex/core"
	"nuvex/llm"
	"nuvex/memory"
	"nuvex/metrics"
	"nuvex/notify"
	"nuvex/reputation"
	"nuvex/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CaseRetriever looks up past cases similar to an offense.
type CaseRetriever interface {
	Retrieve(ctx context.Context, offense *core.Offense, topK int) []core.SimilarCase
}

// Pipeline runs the full triage flow for one offense: behavior summary,
// reputation enrichment, case retrieval, decision, and on escalation the
// report, log-hunt instructions, and notification. Triage always returns a
// complete analysis; sub-system failures degrade into warnings.
type Pipeline struct {
	reputation reputation.Service
	retriever  CaseRetriever
	engine     *Engine
	assembler  *Assembler
	reports    *store.ReportStore
	generator  llm.Generator
	notifier   notify.Notifier
	topK       int
	logger     *zap.SugaredLogger
}

// PipelineConfig collects the pipeline collaborators. Retriever and Notifier
// may be nil; they default to an empty retriever and a no-op notifier.
type PipelineConfig struct {
	Reputation reputation.Service
	Retriever  CaseRetriever
	Engine     *Engine
	Assembler  *Assembler
	Reports    *store.ReportStore
	Generator  llm.Generator
	Notifier   notify.Notifier
	TopK       int
}

func NewPipeline(cfg PipelineConfig, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NoopNotifier{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = memory.DefaultTopK
	}
	return &Pipeline{
		reputation: cfg.Reputation,
		retriever:  cfg.Retriever,
		engine:     cfg.Engine,
		assembler:  cfg.Assembler,
		reports:    cfg.Reports,
		generator:  cfg.Generator,
		notifier:   cfg.Notifier,
		topK:       cfg.TopK,
		logger:     logger,
	}
}

// Triage processes one offense end to end. The offense is not mutated beyond
// identifier assignment when it arrives without one.
func (p *Pipeline) Triage(ctx context.Context, offense *core.Offense) *core.Analysis {
	start := time.Now()

	if offense.ID == "" {
		offense.ID = uuid.NewString()
		p.logger.Debugw("Assigned offense identifier", "offense_id", offense.ID)
	}

	summary := Summarize(offense)
	analysis := &core.Analysis{
		OffenseID: offense.ID,
		Pattern:   summary.Pattern,
		Behavior:  summary.Behavior,
		LogTypes:  summary.LogTypes,
		Summary:   summary.Summary,
	}

	analysis.Findings = p.lookupFindings(ctx, offense)
	if p.retriever != nil {
		analysis.SimilarCases = p.retriever.Retrieve(ctx, offense, p.topK)
	}

	verdict := p.engine.Decide(ctx, offense, analysis.Findings, analysis.SimilarCases)
	analysis.Decision = verdict.Decision
	analysis.Reasons = verdict.Reasons
	analysis.RiskLevel = verdict.RiskLevel
	analysis.Warnings = append(analysis.Warnings, verdict.Warnings...)

	if verdict.Decision == core.DecisionEscalate {
		p.escalate(ctx, offense, analysis)
	}

	metrics.OffensesTriaged.WithLabelValues(string(verdict.Decision)).Inc()
	metrics.TriageDuration.Observe(time.Since(start).Seconds())
	p.logger.Infow("Offense triaged",
		"offense_id", offense.ID,
		"decision", verdict.Decision,
		"findings", len(analysis.Findings),
		"similar_cases", len(analysis.SimilarCases),
		"duration", time.Since(start))
	return analysis
}

func (p *Pipeline) lookupFindings(ctx context.Context, offense *core.Offense) []core.ReputationFinding {
	indicators := offense.Indicators()
	if len(indicators) == 0 || p.reputation == nil {
		return nil
	}
	var findings []core.ReputationFinding
	for _, indicator := range indicators {
		findings = append(findings, p.reputation.Lookup(ctx, indicator)...)
	}
	return findings
}

// escalate produces the analyst-facing artifacts. Every step here is a soft
// failure: the escalation verdict stands even when the report cannot be
// written or the webhook is down.
func (p *Pipeline) escalate(ctx context.Context, offense *core.Offense, analysis *core.Analysis) {
	location, content, err := p.assembler.Build(ctx, offense, analysis)
	analysis.ReportContent = content
	if err != nil {
		analysis.Warnings = append(analysis.Warnings, "incident report could not be persisted: "+err.Error())
	} else {
		analysis.ReportPath = location
	}

	p.buildLogInstructions(ctx, offense, analysis)

	if err := p.notifier.NotifyEscalation(ctx, offense, analysis); err != nil {
		p.logger.Warnw("Escalation notification failed", "offense_id", offense.ID, "error", err)
		analysis.Warnings = append(analysis.Warnings, "escalation notification failed: "+err.Error())
	}
}

func (p *Pipeline) buildLogInstructions(ctx context.Context, offense *core.Offense, analysis *core.Analysis) {
	if p.generator == nil {
		return
	}
	res := p.generator.Complete(ctx, buildLogInstructionsPrompt(offense, analysis))
	if res.Failed() || res.Text == "" {
		p.logger.Warnw("Log investigation instructions unavailable", "offense_id", offense.ID, "error", res.ErrText)
		analysis.Warnings = append(analysis.Warnings, "log investigation instructions unavailable: "+res.ErrText)
		return
	}
	analysis.LogInstructions = res.Text
	if p.reports == nil {
		return
	}
	if _, err := p.reports.WriteInstructions(offense.ID, res.Text); err != nil {
		p.logger.Warnw("Failed to write log investigation instructions", "offense_id", offense.ID, "error", err)
		analysis.Warnings = append(analysis.Warnings, "log investigation instructions could not be persisted: "+err.Error())
	}
}
