package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a scriptable Provider for tests.
type MockProvider struct {
	ProviderName string
	// Response is returned on every call when Err is nil.
	Response string
	// Err, when set, makes every call fail with this error.
	Err error

	mu    sync.Mutex
	calls []string
}

// Name returns the configured provider name.
func (m *MockProvider) Name() string {
	return m.ProviderName
}

// Complete records the prompt and returns the scripted response.
func (m *MockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// CallCount returns how many times Complete was invoked.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the prompts seen so far.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockGenerator is a scriptable Generator for tests of downstream components.
type MockGenerator struct {
	// Response is returned on every call when Fail is false.
	Response string
	// Fail makes every call return a failed Result.
	Fail bool

	mu    sync.Mutex
	calls []string
}

// Complete records the prompt and returns the scripted Result.
func (m *MockGenerator) Complete(_ context.Context, prompt string) Result {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	n := len(m.calls)
	m.mu.Unlock()

	if m.Fail {
		return ErrorResult("mock", fmt.Sprintf("scripted failure on call %d", n))
	}
	return TextResult("mock", m.Response)
}

// CallCount returns how many times Complete was invoked.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
