package reputation

import (
	"context"
	"sync"

	"nuvex/core"
)

// MockService is a scriptable Service for tests.
type MockService struct {
	// Findings maps indicator values to the findings Lookup returns.
	Findings map[string][]core.ReputationFinding

	mu      sync.Mutex
	lookups []string
}

// Lookup records the indicator and returns the scripted findings.
func (m *MockService) Lookup(_ context.Context, indicator string) []core.ReputationFinding {
	m.mu.Lock()
	m.lookups = append(m.lookups, indicator)
	m.mu.Unlock()

	return m.Findings[indicator]
}

// Lookups returns a copy of the indicators seen so far.
func (m *MockService) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lookups))
	copy(out, m.lookups)
	return out
}

// MockProvider is a scriptable Provider for MultiService tests.
type MockProvider struct {
	ProviderName string
	Finding      *core.ReputationFinding
	Err          error

	mu    sync.Mutex
	calls int
}

// Name returns the configured provider name.
func (m *MockProvider) Name() string {
	return m.ProviderName
}

// Check records the call and returns the scripted finding or error.
func (m *MockProvider) Check(_ context.Context, indicator string, _ IndicatorType) (*core.ReputationFinding, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Finding == nil {
		return nil, nil
	}
	f := *m.Finding
	f.Indicator = indicator
	return &f, nil
}

// CallCount returns how many times Check was invoked.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
