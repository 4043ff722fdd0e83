// Package store persists triage artifacts: incident report files for
// escalated offenses and the append-only audit note log for auto-closed ones.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nuvex/metrics"

	"go.uber.org/zap"
)

// AuditLog records why an offense was auto-closed. It is the only durable
// trace of a false positive verdict, so appends are a hard requirement of the
// decision path, not optional logging.
type AuditLog interface {
	Append(offenseID string, reasons []string) error
}

// FileAuditLog appends timestamped notes to a single log file. Appends are
// serialized by a mutex so concurrent verdicts never interleave lines.
type FileAuditLog struct {
	path   string
	mu     sync.Mutex
	logger *zap.SugaredLogger

	// now is overridable in tests for stable timestamps.
	now func() time.Time
}

// NewFileAuditLog creates an audit log writing to path, creating parent
// directories as needed.
func NewFileAuditLog(path string, logger *zap.SugaredLogger) (*FileAuditLog, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &FileAuditLog{
		path:   path,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Append writes one timestamped, identifier-tagged note.
func (l *FileAuditLog) Append(offenseID string, reasons []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	line := fmt.Sprintf("[%s] offense=%s decision=false_positive reasons=%q\n",
		l.now().UTC().Format(time.RFC3339),
		offenseID,
		strings.Join(reasons, "; "))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append audit note: %w", err)
	}

	metrics.AuditNotesWritten.Inc()
	return nil
}
