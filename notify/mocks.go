package notify

import (
	"context"
	"sync"

	"nuvex/core"
)

// MockNotifier records escalation notifications for tests.
type MockNotifier struct {
	mu        sync.Mutex
	Err       error
	CallCount int
	Offenses  []string
}

func (m *MockNotifier) NotifyEscalation(_ context.Context, offense *core.Offense, _ *core.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++
	m.Offenses = append(m.Offenses, offense.ID)
	return m.Err
}
