package core

import "time"

// Decision is the triage verdict for an offense.
type Decision string

const (
	// DecisionEscalate means the offense requires human analyst follow-up.
	DecisionEscalate Decision = "escalate"
	// DecisionFalsePositive means the offense is auto-closed with an audit note.
	DecisionFalsePositive Decision = "false_positive"
)

// MaxSampledEvents bounds how many raw events are inspected during
// summarization and report assembly.
const MaxSampledEvents = 5

// Event is one raw log record inside an offense. Events are read-only once
// the offense enters the pipeline.
type Event struct {
	Name      string    `json:"event_name,omitempty" yaml:"event_name,omitempty"`
	Category  string    `json:"category,omitempty" yaml:"category,omitempty"`
	Protocol  string    `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	SourceIP  string    `json:"source_ip,omitempty" yaml:"source_ip,omitempty"`
	DestIP    string    `json:"destination_ip,omitempty" yaml:"destination_ip,omitempty"`
	Action    string    `json:"action,omitempty" yaml:"action,omitempty"`
	Payload   string    `json:"payload,omitempty" yaml:"payload,omitempty"`
	Username  string    `json:"username,omitempty" yaml:"username,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
}

// Offense is a correlated cluster of security events awaiting triage.
// The indicator lists hold IPs, domains, or URLs; they may be empty, which
// degrades reputation lookup to a no-op. An offense is never mutated by the
// pipeline beyond identifier assignment at ingestion.
type Offense struct {
	ID             string   `json:"offense_id"`
	Description    string   `json:"description"`
	SourceIPs      []string `json:"source_ips"`
	DestinationIPs []string `json:"destination_ips,omitempty"`
	LogSources     []string `json:"log_sources,omitempty"`
	EventCount     int      `json:"event_count,omitempty"`
	Magnitude      float64  `json:"magnitude,omitempty"`
	Username       string   `json:"username,omitempty"`
	StartTime      string   `json:"start_time,omitempty"`
	Events         []Event  `json:"events,omitempty"`
}

// Indicators returns the combined source and destination indicator list in
// a fixed order: sources first, then destinations.
func (o *Offense) Indicators() []string {
	out := make([]string, 0, len(o.SourceIPs)+len(o.DestinationIPs))
	out = append(out, o.SourceIPs...)
	out = append(out, o.DestinationIPs...)
	return out
}

// SampledEvents returns at most MaxSampledEvents events from the offense.
func (o *Offense) SampledEvents() []Event {
	if len(o.Events) <= MaxSampledEvents {
		return o.Events
	}
	return o.Events[:MaxSampledEvents]
}

// ReputationFinding is the result of scoring a single indicator against one
// reputation provider. The decision rules inspect the numeric fields only;
// provider-specific context lives in Metadata.
type ReputationFinding struct {
	Indicator       string            `json:"indicator"`
	Provider        string            `json:"provider"`
	AbuseConfidence int               `json:"abuse_confidence"`
	MaliciousVotes  int               `json:"malicious_votes"`
	SuspiciousVotes int               `json:"suspicious_votes"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// SimilarCase is a historical offense retrieved by semantic similarity.
// Instances handed to the pipeline are deep copies of the corpus entries.
type SimilarCase struct {
	Description    string   `json:"description"`
	SourceIPs      []string `json:"source_ips"`
	DestinationIPs []string `json:"destination_ips"`
	LogSource      string   `json:"log_source"`
	Tags           []string `json:"tags"`
	Similarity     float64  `json:"similarity_score"`
}

// HasTag reports whether the case carries the given tag.
func (c *SimilarCase) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Analysis is the aggregate triage output for one offense. The pipeline owns
// it for the lifetime of a single request.
type Analysis struct {
	OffenseID       string              `json:"offense_id"`
	Pattern         string              `json:"pattern"`
	Behavior        string              `json:"behavior"`
	LogTypes        []string            `json:"log_types"`
	Summary         string              `json:"summary"`
	Findings        []ReputationFinding `json:"reputation"`
	SimilarCases    []SimilarCase       `json:"similar_cases"`
	Decision        Decision            `json:"decision"`
	Reasons         []string            `json:"reasoning"`
	Narrative       string              `json:"narrative,omitempty"`
	RiskLevel       string              `json:"risk_level,omitempty"`
	LogInstructions string              `json:"log_instructions,omitempty"`
	ReportPath      string              `json:"report_path,omitempty"`
	ReportContent   string              `json:"report_content,omitempty"`

	// Warnings records soft failures (for example a report that could not be
	// written). The analysis itself is still valid when warnings are present.
	Warnings []string `json:"warnings,omitempty"`
}
