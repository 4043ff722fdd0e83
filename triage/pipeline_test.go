package triage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nuvex/core"
	"nuvex/llm"
	"nuvex/notify"
	"nuvex/reputation"
	"nuvex/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	cases []core.SimilarCase
	topK  int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ *core.Offense, topK int) []core.SimilarCase {
	s.topK = topK
	return s.cases
}

type pipelineFixture struct {
	pipeline   *Pipeline
	audit      *store.MockAuditLog
	reputation *reputation.MockService
	retriever  *stubRetriever
	notifier   *notify.MockNotifier
	generator  *llm.MockGenerator
	reportsDir string
}

func newPipelineFixture(t *testing.T, service *reputation.MockService, retriever *stubRetriever, gen *llm.MockGenerator) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()
	reports, err := store.NewReportStore(dir, nil)
	require.NoError(t, err)

	audit := &store.MockAuditLog{}
	notifier := &notify.MockNotifier{}
	engine := NewEngine(audit, gen, false, nil)

	p := NewPipeline(PipelineConfig{
		Reputation: service,
		Retriever:  retriever,
		Engine:     engine,
		Assembler:  NewAssembler(gen, nil, reports, nil),
		Reports:    reports,
		Generator:  gen,
		Notifier:   notifier,
		TopK:       3,
	}, nil)

	return &pipelineFixture{
		pipeline:   p,
		audit:      audit,
		reputation: service,
		retriever:  retriever,
		notifier:   notifier,
		generator:  gen,
		reportsDir: dir,
	}
}

func TestTriageEscalatesOnMaliciousIndicator(t *testing.T) {
	service := &reputation.MockService{Findings: map[string][]core.ReputationFinding{
		"203.0.113.5": {{Indicator: "203.0.113.5", Provider: "virustotal", MaliciousVotes: 6, AbuseConfidence: 80}},
	}}
	retriever := &stubRetriever{}
	gen := &llm.MockGenerator{Response: "1. Block the source address.\n2. Review firewall logs."}
	fx := newPipelineFixture(t, service, retriever, gen)

	offense := &core.Offense{
		ID:             "off-200",
		Description:    "Port Scan: sweeping internal range",
		SourceIPs:      []string{"203.0.113.5"},
		DestinationIPs: []string{"10.0.0.1"},
		EventCount:     50,
		Events:         []core.Event{{Category: "Firewall", Payload: "SYN probe"}},
	}

	analysis := fx.pipeline.Triage(context.Background(), offense)

	assert.Equal(t, core.DecisionEscalate, analysis.Decision)
	assert.Equal(t, RiskHigh, analysis.RiskLevel)
	assert.Equal(t, "off-200", analysis.OffenseID)
	assert.Equal(t, []string{"203.0.113.5", "10.0.0.1"}, fx.reputation.Lookups())
	require.Len(t, analysis.Findings, 1)

	// Report written and returned.
	assert.Equal(t, filepath.Join(fx.reportsDir, "offense_off-200.txt"), analysis.ReportPath)
	assert.Contains(t, analysis.ReportContent, "Hi Team,")
	written, err := os.ReadFile(analysis.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, analysis.ReportContent, string(written))

	// Log-hunt instructions written next to the report.
	assert.NotEmpty(t, analysis.LogInstructions)
	_, err = os.Stat(filepath.Join(fx.reportsDir, "offense_off-200_loghunt.txt"))
	assert.NoError(t, err)

	assert.Equal(t, 1, fx.notifier.CallCount)
	assert.Empty(t, fx.audit.Entries())
	assert.Empty(t, analysis.Warnings)
}

func TestTriageFalsePositiveWritesAuditOnly(t *testing.T) {
	service := &reputation.MockService{Findings: map[string][]core.ReputationFinding{
		"198.51.100.2": {{Indicator: "198.51.100.2", Provider: "abuseipdb", AbuseConfidence: 5}},
	}}
	retriever := &stubRetriever{cases: []core.SimilarCase{
		{Description: "routine maintenance window", Tags: []string{"Benign"}, Similarity: 0.91},
	}}
	gen := &llm.MockGenerator{Response: "unused"}
	fx := newPipelineFixture(t, service, retriever, gen)

	offense := &core.Offense{
		ID:          "off-201",
		Description: "Elevated traffic volume",
		SourceIPs:   []string{"198.51.100.2"},
		EventCount:  12,
	}

	analysis := fx.pipeline.Triage(context.Background(), offense)

	assert.Equal(t, core.DecisionFalsePositive, analysis.Decision)
	assert.Equal(t, []string{StaticFalsePositiveReason}, analysis.Reasons)
	assert.Empty(t, analysis.ReportPath)
	assert.Empty(t, analysis.ReportContent)
	assert.Empty(t, analysis.LogInstructions)
	assert.Zero(t, fx.notifier.CallCount)

	entries := fx.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "off-201", entries[0].OffenseID)

	// No report files appear for auto-closed offenses.
	files, err := os.ReadDir(fx.reportsDir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTriageDegradedCollaboratorsStillEscalate(t *testing.T) {
	// Reputation returns nothing and the generator is down; the critical tag
	// alone carries the escalation, with soft failures surfacing as warnings.
	service := &reputation.MockService{}
	retriever := &stubRetriever{cases: []core.SimilarCase{
		{Description: "staged archive upload", Tags: []string{CriticalTag}, Similarity: 0.77},
	}}
	gen := &llm.MockGenerator{Fail: true}
	fx := newPipelineFixture(t, service, retriever, gen)

	offense := &core.Offense{
		ID:          "off-202",
		Description: "Exfiltration: large outbound transfer",
		SourceIPs:   []string{"10.0.0.4"},
		EventCount:  9,
	}

	analysis := fx.pipeline.Triage(context.Background(), offense)

	assert.Equal(t, core.DecisionEscalate, analysis.Decision)
	assert.Equal(t, RiskMedium, analysis.RiskLevel)
	assert.Empty(t, analysis.Findings)

	// Report still produced, with the labeled narrative fallback and the
	// generic recommendations.
	assert.NotEmpty(t, analysis.ReportPath)
	assert.Contains(t, analysis.ReportContent, "[narrative generation unavailable:")
	assert.Contains(t, analysis.ReportContent, "Investigate related user activity")

	// Instructions could not be generated.
	assert.Empty(t, analysis.LogInstructions)
	require.NotEmpty(t, analysis.Warnings)
	assert.Contains(t, strings.Join(analysis.Warnings, "\n"), "log investigation instructions unavailable")

	assert.Equal(t, 1, fx.notifier.CallCount)
}

func TestTriageAssignsMissingIdentifier(t *testing.T) {
	fx := newPipelineFixture(t, &reputation.MockService{}, &stubRetriever{}, &llm.MockGenerator{Response: "ok"})

	offense := &core.Offense{Description: "Unlabeled offense"}
	analysis := fx.pipeline.Triage(context.Background(), offense)

	assert.NotEmpty(t, offense.ID)
	assert.Equal(t, offense.ID, analysis.OffenseID)
}

func TestTriageNoIndicatorsSkipsReputation(t *testing.T) {
	service := &reputation.MockService{}
	fx := newPipelineFixture(t, service, &stubRetriever{}, &llm.MockGenerator{Response: "ok"})

	analysis := fx.pipeline.Triage(context.Background(), &core.Offense{ID: "off-203", Description: "No indicators"})

	assert.Empty(t, service.Lookups())
	assert.Empty(t, analysis.Findings)
	assert.Equal(t, core.DecisionFalsePositive, analysis.Decision)
}

func TestTriagePassesConfiguredTopK(t *testing.T) {
	retriever := &stubRetriever{}
	fx := newPipelineFixture(t, &reputation.MockService{}, retriever, &llm.MockGenerator{Response: "ok"})

	fx.pipeline.Triage(context.Background(), &core.Offense{ID: "off-204", Description: "anything"})
	assert.Equal(t, 3, retriever.topK)
}

func TestTriageNotifierFailureBecomesWarning(t *testing.T) {
	service := &reputation.MockService{Findings: map[string][]core.ReputationFinding{
		"203.0.113.9": {{Indicator: "203.0.113.9", Provider: "virustotal", MaliciousVotes: 3}},
	}}
	fx := newPipelineFixture(t, service, &stubRetriever{}, &llm.MockGenerator{Response: "ok"})
	fx.notifier.Err = assert.AnError

	analysis := fx.pipeline.Triage(context.Background(), &core.Offense{
		ID:          "off-205",
		Description: "Beaconing host",
		SourceIPs:   []string{"203.0.113.9"},
	})

	assert.Equal(t, core.DecisionEscalate, analysis.Decision)
	assert.Contains(t, strings.Join(analysis.Warnings, "\n"), "escalation notification failed")
}

func TestTriageSummaryFieldsPopulated(t *testing.T) {
	fx := newPipelineFixture(t, &reputation.MockService{}, &stubRetriever{}, &llm.MockGenerator{Response: "ok"})

	offense := &core.Offense{
		ID:             "off-206",
		Description:    "Scan sweep",
		SourceIPs:      []string{"203.0.113.5"},
		DestinationIPs: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"},
		EventCount:     30,
		Events:         []core.Event{{Category: "Firewall"}},
	}
	analysis := fx.pipeline.Triage(context.Background(), offense)

	assert.Equal(t, PatternSingleRemoteToManyLocal, analysis.Pattern)
	assert.Equal(t, BehaviorRemoteScanner, analysis.Behavior)
	assert.Equal(t, []string{"Firewall"}, analysis.LogTypes)
	assert.NotEmpty(t, analysis.Summary)
}
