package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAuditLog_AppendFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.log")
	l, err := NewFileAuditLog(path, nil)
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, l.Append("off-42", []string{"no significant threat indicators detected"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-08-29T12:00:00Z] offense=off-42 decision=false_positive reasons=\"no significant threat indicators detected\"\n",
		string(data))
}

func TestFileAuditLog_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.log")
	l, err := NewFileAuditLog(path, nil)
	require.NoError(t, err)

	require.NoError(t, l.Append("off-1", []string{"reason one"}))
	require.NoError(t, l.Append("off-2", []string{"reason two", "reason three"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "offense=off-1")
	assert.Contains(t, string(data), "offense=off-2")
	assert.Contains(t, string(data), "reason two; reason three")
}

func TestFileAuditLog_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.log")
	l, err := NewFileAuditLog(path, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Append("off-c", []string{"concurrent reason"})
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 20, lines)
}

func TestReportStore_WriteReport(t *testing.T) {
	dir := t.TempDir()
	s, err := NewReportStore(dir, nil)
	require.NoError(t, err)

	path, err := s.WriteReport("off-7", "incident report body")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "offense_off-7.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "incident report body", string(data))
}

func TestReportStore_WriteInstructions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewReportStore(dir, nil)
	require.NoError(t, err)

	path, err := s.WriteInstructions("off-7", "log hunting steps")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "offense_off-7_loghunt.txt"), path)
}

func TestReportStore_SanitizesOffenseID(t *testing.T) {
	dir := t.TempDir()
	s, err := NewReportStore(dir, nil)
	require.NoError(t, err)

	path, err := s.WriteReport("../../etc/passwd", "body")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.NotContains(t, filepath.Base(path), "..")
}

func TestSanitizeID(t *testing.T) {
	assert.Equal(t, "unknown", sanitizeID(""))
	assert.Equal(t, "off-1.2_x", sanitizeID("off-1.2_x"))
	assert.Equal(t, "a_b_c", sanitizeID("a/b c"))
}
