package triage

import (
	"fmt"
	"strings"

	"nuvex/core"
)

// buildNarrativePrompt asks for the analyst-facing narrative of an escalated
// offense.
func buildNarrativePrompt(o *core.Offense, a *core.Analysis) string {
	var b strings.Builder
	b.WriteString("Write a short incident analysis narrative for a Level-1 SOC escalation.\n\n")
	b.WriteString("Offense details:\n")
	fmt.Fprintf(&b, "- Description: %s\n", o.Description)
	fmt.Fprintf(&b, "- Behavior: %s (%s)\n", a.Behavior, a.Pattern)
	fmt.Fprintf(&b, "- Summary: %s\n", a.Summary)
	writeFindings(&b, a.Findings)
	writeSimilarCases(&b, a.SimilarCases)
	b.WriteString("\nRespond with two or three factual sentences. Do not invent indicators.")
	return b.String()
}

// buildRecommendationsPrompt asks for next steps; the assembler normalizes
// the answer to exactly five lines.
func buildRecommendationsPrompt(o *core.Offense, a *core.Analysis) string {
	var b strings.Builder
	b.WriteString("List five concrete next steps for a Level-1 SOC analyst handling this escalated offense.\n\n")
	fmt.Fprintf(&b, "Offense: %s\n", o.Description)
	fmt.Fprintf(&b, "Behavior: %s\n", a.Behavior)
	for _, r := range a.Reasons {
		fmt.Fprintf(&b, "Escalation reason: %s\n", r)
	}
	b.WriteString("\nRespond with one step per line, no preamble.")
	return b.String()
}

// buildLogInstructionsPrompt asks for log hunting steps an L1 analyst should
// take to gather more evidence.
func buildLogInstructionsPrompt(o *core.Offense, a *core.Analysis) string {
	var b strings.Builder
	b.WriteString("Given the following offense metadata, generate log investigation steps an L1 analyst should take to gather more evidence.\n\n")
	fmt.Fprintf(&b, "Offense ID: %s\n", o.ID)
	fmt.Fprintf(&b, "Description: %s\n", o.Description)
	fmt.Fprintf(&b, "Summary: %s\n", a.Summary)
	fmt.Fprintf(&b, "Log sources: %s\n", strings.Join(o.LogSources, ", "))
	b.WriteString("\nRespond with clear and actionable steps in bullet points.")
	return b.String()
}

// buildFalsePositivePrompt asks for a short justification of an auto-close,
// referencing the specific findings and similar cases that were inspected.
func buildFalsePositivePrompt(findings []core.ReputationFinding, similar []core.SimilarCase) string {
	var b strings.Builder
	b.WriteString("Explain in one or two sentences why this offense is being closed as a false positive.\n\n")
	writeFindings(&b, findings)
	writeSimilarCases(&b, similar)
	b.WriteString("\nBe specific about the scores reviewed. No preamble.")
	return b.String()
}

func writeFindings(b *strings.Builder, findings []core.ReputationFinding) {
	if len(findings) == 0 {
		b.WriteString("- Reputation findings: none\n")
		return
	}
	b.WriteString("- Reputation findings:\n")
	for _, f := range findings {
		fmt.Fprintf(b, "  - %s via %s: abuse confidence %d, malicious votes %d, suspicious votes %d\n",
			f.Indicator, f.Provider, f.AbuseConfidence, f.MaliciousVotes, f.SuspiciousVotes)
	}
}

func writeSimilarCases(b *strings.Builder, similar []core.SimilarCase) {
	if len(similar) == 0 {
		b.WriteString("- Similar past cases: none\n")
		return
	}
	b.WriteString("- Similar past cases:\n")
	for _, c := range similar {
		fmt.Fprintf(b, "  - %.3f similar: %s (tags: %s)\n",
			c.Similarity, c.Description, strings.Join(c.Tags, ", "))
	}
}
