package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nuvex/metrics"

	"go.uber.org/zap"
)

// ReportStore writes one incident report file per escalated offense, keyed
// by offense identifier. Writes are atomic (temp file plus rename) so a
// crashed write never leaves a half-written report behind.
type ReportStore struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewReportStore creates a report store rooted at dir, creating it as needed.
func NewReportStore(dir string, logger *zap.SugaredLogger) (*ReportStore, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &ReportStore{dir: dir, logger: logger}, nil
}

// WriteReport persists an incident report and returns its path.
func (s *ReportStore) WriteReport(offenseID, content string) (string, error) {
	return s.write(fmt.Sprintf("offense_%s.txt", sanitizeID(offenseID)), content)
}

// WriteInstructions persists generated log investigation steps next to the
// report and returns the path.
func (s *ReportStore) WriteInstructions(offenseID, content string) (string, error) {
	return s.write(fmt.Sprintf("offense_%s_loghunt.txt", sanitizeID(offenseID)), content)
}

func (s *ReportStore) write(name, content string) (string, error) {
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create report temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close report temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize report: %w", err)
	}

	metrics.ReportsWritten.Inc()
	s.logger.Debugw("Report written", "path", path)
	return path, nil
}

// sanitizeID keeps offense identifiers filesystem-safe. Anything outside
// [A-Za-z0-9._-] becomes an underscore, and traversal sequences are squashed.
func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", "_")
	}
	return out
}
