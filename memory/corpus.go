// Package memory retrieves historical offenses similar to a new offense.
// The corpus is embedded once at startup and is read-only afterwards; it is
// shared safely across concurrent triage requests.
package memory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is one historical offense in the corpus seed file.
type Case struct {
	Description    string   `yaml:"description" json:"description"`
	SourceIPs      []string `yaml:"source_ips" json:"source_ips"`
	DestinationIPs []string `yaml:"destination_ips" json:"destination_ips"`
	LogSource      string   `yaml:"log_source" json:"log_source"`
	Tags           []string `yaml:"tags" json:"tags"`
}

type corpusFile struct {
	Cases []Case `yaml:"cases"`
}

// LoadCorpus reads the YAML corpus seed file. An empty file yields an empty
// corpus, which is valid: retrieval then returns no similar cases.
func LoadCorpus(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}
	return f.Cases, nil
}

// canonicalCaseText renders a corpus entry into the canonical embedding
// string. Field order is fixed: description, sources, destinations, log
// source, tags. Changing this format is a breaking change to similarity
// scores, since stored embeddings depend on it.
func canonicalCaseText(c *Case) string {
	return fmt.Sprintf("%s Source: %s | Dest: %s | LogSource: %s | Tags: %s",
		c.Description,
		strings.Join(c.SourceIPs, ", "),
		strings.Join(c.DestinationIPs, ", "),
		c.LogSource,
		strings.Join(c.Tags, ", "))
}

// canonicalQueryText renders a query offense into the canonical embedding
// string. Same field order as canonicalCaseText minus tags, which a new
// offense does not have yet.
func canonicalQueryText(description string, sourceIPs, destinationIPs, logSources []string) string {
	return fmt.Sprintf("%s Source: %s | Dest: %s | LogSource: %s",
		description,
		strings.Join(sourceIPs, ", "),
		strings.Join(destinationIPs, ", "),
		strings.Join(logSources, ", "))
}
