package store

import "sync"

// MockAuditLog records audit appends in memory for tests.
type MockAuditLog struct {
	// Err, when set, makes every Append fail.
	Err error

	mu      sync.Mutex
	entries []MockAuditEntry
}

// MockAuditEntry is one recorded Append call.
type MockAuditEntry struct {
	OffenseID string
	Reasons   []string
}

// Append records the note and returns the scripted error.
func (m *MockAuditLog) Append(offenseID string, reasons []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.entries = append(m.entries, MockAuditEntry{OffenseID: offenseID, Reasons: append([]string(nil), reasons...)})
	return nil
}

// Entries returns a copy of the recorded notes.
func (m *MockAuditLog) Entries() []MockAuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockAuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
