package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockResult is a canned result for the Mock gateway.
type MockResult struct {
	Response map[string]any
	Err      error
}

// Mock is a deterministic Gateway for testing. It returns canned results in
// FIFO order and records every prompt it receives.
type Mock struct {
	// Unavailable makes the mock behave like a client with no credential.
	Unavailable bool

	mu      sync.Mutex
	results []MockResult

	// Prompts holds every user prompt passed to GenerateJSON, in order.
	Prompts []string
}

// NewMock creates a Mock with the given canned results.
func NewMock(results ...MockResult) *Mock {
	return &Mock{results: results}
}

// Available reports the inverse of Unavailable.
func (m *Mock) Available() bool {
	return !m.Unavailable
}

// GenerateJSON returns the next canned result. An exhausted queue behaves
// like a provider that failed past its retry budget.
func (m *Mock) GenerateJSON(_ context.Context, prompt, _ string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		return nil, ErrUnavailable
	}

	m.Prompts = append(m.Prompts, prompt)

	if len(m.results) == 0 {
		return nil, &RequestFailedError{Attempts: 3, Last: nil}
	}

	res := m.results[0]
	m.results = m.results[1:]

	if res.Err != nil {
		return nil, res.Err
	}
	// Round-trip through encoding/json so canned responses honor the Gateway
	// contract: decoded JSON numbers are always float64.
	raw, err := json.Marshal(res.Response)
	if err != nil {
		return nil, fmt.Errorf("mock: canned response is not JSON-encodable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("mock: canned response round-trip failed: %w", err)
	}
	return out, nil
}

// Add appends a canned result to the queue.
func (m *Mock) Add(res MockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
}

// CallCount returns the number of GenerateJSON calls made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
