package triage

import (
	"context"
	"fmt"
	"strings"

	"nuvex/core"
	"nuvex/llm"
	"nuvex/store"

	"go.uber.org/zap"
)

// recommendationCount is the exact number of next-step lines every report
// carries. Generated steps are truncated past this count and padded with
// generic steps below it.
const recommendationCount = 5

// genericRecommendations pad out reports when generation fails or returns
// fewer than recommendationCount usable lines.
var genericRecommendations = []string{
	"Investigate related user activity around the offense time window.",
	"Review firewall and endpoint logs for deeper context.",
	"Correlate with threat intelligence to validate indicator severity.",
	"Check for lateral movement from the involved hosts.",
	"Update the incident tracker or ticketing system with findings.",
}

// Assembler turns an escalated offense and its analysis into a structured
// incident report. Missing sub-fields render as "N/A" or "None"; the
// assembler never fails the pipeline.
type Assembler struct {
	generator llm.Generator
	selector  EventSelector
	reports   *store.ReportStore
	logger    *zap.SugaredLogger
}

// NewAssembler creates a report assembler. selector may be nil to use the
// default keyword-based selection.
func NewAssembler(generator llm.Generator, selector EventSelector, reports *store.ReportStore, logger *zap.SugaredLogger) *Assembler {
	if selector == nil {
		selector = DefaultEventSelector
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Assembler{
		generator: generator,
		selector:  selector,
		reports:   reports,
		logger:    logger,
	}
}

// Build generates the narrative and recommendations, renders the report, and
// persists it. The content is always returned; a failed write returns an
// empty location and the write error so the caller can record a soft
// failure.
func (a *Assembler) Build(ctx context.Context, o *core.Offense, analysis *core.Analysis) (location, content string, err error) {
	narrative := a.narrative(ctx, o, analysis)
	analysis.Narrative = narrative

	recommendations := a.recommendations(ctx, o, analysis)
	content = renderReport(o, analysis, narrative, a.selector(o), recommendations)

	location, err = a.reports.WriteReport(o.ID, content)
	if err != nil {
		a.logger.Errorw("Failed to write incident report", "offense_id", o.ID, "error", err)
		return "", content, err
	}
	return location, content, nil
}

func (a *Assembler) narrative(ctx context.Context, o *core.Offense, analysis *core.Analysis) string {
	res := a.generator.Complete(ctx, buildNarrativePrompt(o, analysis))
	if res.Failed() || res.Text == "" {
		a.logger.Warnw("Narrative generation failed", "offense_id", o.ID, "error", res.ErrText)
		return fmt.Sprintf("[narrative generation unavailable: %s] Escalated on rule evidence alone; see reasons below.", res.ErrText)
	}
	return res.Text
}

func (a *Assembler) recommendations(ctx context.Context, o *core.Offense, analysis *core.Analysis) []string {
	res := a.generator.Complete(ctx, buildRecommendationsPrompt(o, analysis))
	if res.Failed() {
		a.logger.Warnw("Recommendation generation failed, using generic steps", "offense_id", o.ID, "error", res.ErrText)
		return genericRecommendations[:recommendationCount]
	}
	return normalizeRecommendations(res.Text)
}

// normalizeRecommendations parses generated text into exactly
// recommendationCount steps: one per non-empty line, bullets and numbering
// stripped, truncated past the count and padded with generic steps below it.
func normalizeRecommendations(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		// Strip "1." / "2)" style numbering.
		if i := strings.IndexAny(line, ".)"); i > 0 && i <= 2 && isDigits(line[:i]) {
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}
		steps = append(steps, line)
		if len(steps) == recommendationCount {
			break
		}
	}
	for i := 0; len(steps) < recommendationCount; i++ {
		steps = append(steps, genericRecommendations[i%len(genericRecommendations)])
	}
	return steps
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// shortSummary is the first segment of the description before a colon, or
// the whole description when none is present.
func shortSummary(description string) string {
	if description == "" {
		return "N/A"
	}
	if i := strings.Index(description, ":"); i > 0 {
		return strings.TrimSpace(description[:i])
	}
	return description
}

func renderReport(o *core.Offense, analysis *core.Analysis, narrative string, sample *core.Event, recommendations []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi Team,\n\nAn offense (ID: %s) has been escalated for further investigation.\n\n", o.ID)

	b.WriteString("=== Offense Summary ===\n")
	fmt.Fprintf(&b, "- Summary: %s\n", shortSummary(o.Description))
	fmt.Fprintf(&b, "- Pattern: %s\n", orNA(analysis.Pattern))
	fmt.Fprintf(&b, "- Behavior: %s\n", orNA(analysis.Behavior))
	fmt.Fprintf(&b, "- Log types involved: %s\n", joinOrNone(analysis.LogTypes))
	fmt.Fprintf(&b, "- Source indicators: %s\n", joinOrNone(o.SourceIPs))
	fmt.Fprintf(&b, "- Destination indicators: %s\n", joinOrNone(o.DestinationIPs))
	fmt.Fprintf(&b, "- Event count: %d\n", o.EventCount)
	fmt.Fprintf(&b, "- Username: %s\n", orNA(o.Username))

	b.WriteString("\n=== Analyst Narrative ===\n")
	b.WriteString(narrative)
	b.WriteString("\n")

	b.WriteString("\n=== Reputation Findings ===\n")
	if len(analysis.Findings) == 0 {
		b.WriteString("None\n")
	} else {
		for _, f := range analysis.Findings {
			fmt.Fprintf(&b, "- %s (%s): abuse confidence %d, malicious votes %d, suspicious votes %d\n",
				f.Indicator, orNA(f.Provider), f.AbuseConfidence, f.MaliciousVotes, f.SuspiciousVotes)
		}
	}

	b.WriteString("\n=== Sample Event ===\n")
	if sample == nil {
		b.WriteString("N/A\n")
	} else {
		fmt.Fprintf(&b, "- Name: %s\n", orNA(sample.Name))
		fmt.Fprintf(&b, "- Category: %s\n", orNA(sample.Category))
		fmt.Fprintf(&b, "- Action: %s\n", orNA(sample.Action))
		fmt.Fprintf(&b, "- Payload: %s\n", orNA(sample.Payload))
		fmt.Fprintf(&b, "- Username: %s\n", orNA(sample.Username))
	}

	b.WriteString("\n=== Decision ===\n")
	fmt.Fprintf(&b, "- Verdict: %s\n", analysis.Decision)
	fmt.Fprintf(&b, "- Risk level: %s\n", orNA(analysis.RiskLevel))
	b.WriteString("Reasons:\n")
	if len(analysis.Reasons) == 0 {
		b.WriteString("- N/A\n")
	} else {
		for _, r := range analysis.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	b.WriteString("\n=== Similar Past Cases ===\n")
	fmt.Fprintf(&b, "- %d similar case(s) retrieved\n", len(analysis.SimilarCases))

	b.WriteString("\n=== Recommended Next Steps ===\n")
	for i, step := range recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
