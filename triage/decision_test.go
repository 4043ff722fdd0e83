package triage

import (
	"context"
	"errors"
	"testing"

	"nuvex/core"
	"nuvex/llm"
	"nuvex/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideMaliciousVotesEscalate(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	findings := []core.ReputationFinding{
		{Indicator: "203.0.113.5", Provider: "virustotal", MaliciousVotes: 2},
	}
	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-1"}, findings, nil)

	assert.Equal(t, core.DecisionEscalate, verdict.Decision)
	assert.Equal(t, RiskHigh, verdict.RiskLevel)
	require.Len(t, verdict.Reasons, 1)
	assert.Contains(t, verdict.Reasons[0], "203.0.113.5")
	assert.Contains(t, verdict.Reasons[0], "virustotal")
	assert.Empty(t, audit.Entries(), "escalations must not write audit notes")
}

func TestDecideThresholdsAreExclusive(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	// Exactly at threshold does not fire.
	findings := []core.ReputationFinding{
		{Indicator: "203.0.113.5", Provider: "virustotal", MaliciousVotes: 1, AbuseConfidence: 50},
	}
	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-2"}, findings, nil)
	assert.Equal(t, core.DecisionFalsePositive, verdict.Decision)
}

func TestDecideAbuseConfidenceEscalate(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	findings := []core.ReputationFinding{
		{Indicator: "198.51.100.9", Provider: "abuseipdb", AbuseConfidence: 51},
	}
	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-3"}, findings, nil)

	assert.Equal(t, core.DecisionEscalate, verdict.Decision)
	assert.Equal(t, RiskHigh, verdict.RiskLevel)
	require.Len(t, verdict.Reasons, 1)
	assert.Contains(t, verdict.Reasons[0], "abuse confidence 51")
}

func TestDecideCriticalTagEscalates(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	similar := []core.SimilarCase{
		{Description: "benign maintenance", Tags: []string{"Routine"}, Similarity: 0.9},
		{Description: "staged archive upload", Tags: []string{CriticalTag}, Similarity: 0.812},
		{Description: "second exfil case", Tags: []string{CriticalTag}, Similarity: 0.7},
	}
	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-4"}, nil, similar)

	assert.Equal(t, core.DecisionEscalate, verdict.Decision)
	assert.Equal(t, RiskMedium, verdict.RiskLevel)
	// The tag rule contributes a single reason even when several cases carry it.
	require.Len(t, verdict.Reasons, 1)
	assert.Contains(t, verdict.Reasons[0], CriticalTag)
	assert.Contains(t, verdict.Reasons[0], "0.812")
}

func TestDecideFindingAndTagCombineReasons(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	findings := []core.ReputationFinding{
		{Indicator: "203.0.113.5", Provider: "virustotal", MaliciousVotes: 4},
	}
	similar := []core.SimilarCase{
		{Description: "staged archive upload", Tags: []string{CriticalTag}, Similarity: 0.6},
	}
	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-5"}, findings, similar)

	assert.Equal(t, core.DecisionEscalate, verdict.Decision)
	assert.Equal(t, RiskHigh, verdict.RiskLevel, "finding risk outranks the tag rule")
	assert.Len(t, verdict.Reasons, 2)
}

func TestDecideFalsePositiveWritesAudit(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-6"}, nil, nil)

	assert.Equal(t, core.DecisionFalsePositive, verdict.Decision)
	assert.Equal(t, []string{StaticFalsePositiveReason}, verdict.Reasons)
	assert.Empty(t, verdict.RiskLevel)

	entries := audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "off-6", entries[0].OffenseID)
	assert.Equal(t, []string{StaticFalsePositiveReason}, entries[0].Reasons)
}

func TestDecideFalsePositiveGeneratedReason(t *testing.T) {
	audit := &store.MockAuditLog{}
	gen := &llm.MockGenerator{Response: "Traffic matches scheduled backup activity."}
	engine := NewEngine(audit, gen, true, nil)

	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-7"}, nil, nil)

	assert.Equal(t, []string{"Traffic matches scheduled backup activity."}, verdict.Reasons)
	assert.Equal(t, 1, gen.CallCount())
}

func TestDecideFalsePositiveGenerationFailureFallsBack(t *testing.T) {
	audit := &store.MockAuditLog{}
	gen := &llm.MockGenerator{Fail: true}
	engine := NewEngine(audit, gen, true, nil)

	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-8"}, nil, nil)

	assert.Equal(t, []string{StaticFalsePositiveReason}, verdict.Reasons)
}

func TestDecideNarrativeDisabledSkipsGenerator(t *testing.T) {
	audit := &store.MockAuditLog{}
	gen := &llm.MockGenerator{Response: "unused"}
	engine := NewEngine(audit, gen, false, nil)

	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-9"}, nil, nil)

	assert.Equal(t, []string{StaticFalsePositiveReason}, verdict.Reasons)
	assert.Zero(t, gen.CallCount())
}

func TestDecideAuditFailureBecomesWarning(t *testing.T) {
	audit := &store.MockAuditLog{Err: errors.New("disk full")}
	engine := NewEngine(audit, nil, false, nil)

	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-10"}, nil, nil)

	assert.Equal(t, core.DecisionFalsePositive, verdict.Decision)
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "disk full")
}

func TestDecideZeroValueFindingsStayQuiet(t *testing.T) {
	audit := &store.MockAuditLog{}
	engine := NewEngine(audit, nil, false, nil)

	findings := []core.ReputationFinding{
		{Indicator: "203.0.113.5", Provider: "abuseipdb"},
		{Indicator: "evil.example.com", Provider: "virustotal"},
	}
	verdict := engine.Decide(context.Background(), &core.Offense{ID: "off-11"}, findings, nil)

	assert.Equal(t, core.DecisionFalsePositive, verdict.Decision)
}
