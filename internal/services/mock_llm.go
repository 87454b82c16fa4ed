package services

import (
	"context"
	"sync"
)

// MockResponse is the reply MockLLMAPI gives when no CompleteFunc is set.
const MockResponse = `{"sensations":["A faint hum"],"thoughts":["Someone is talking to me"],"memories":"None yet","self_reflection":"I am listening.","response":"Mock response"}`

// MockLLMAPI is a mock implementation of ModelBackend for testing and for
// running the service without a provider key.
type MockLLMAPI struct {
	CompleteFunc func(ctx context.Context, req ModelRequest) (string, error)

	// Track calls for testing
	CompleteCalls []ModelRequest

	mu sync.Mutex // protects all fields above
}

var _ ModelBackend = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		CompleteCalls: make([]ModelRequest, 0),
	}
}

func (m *MockLLMAPI) Name() string { return "mock" }

// Complete records the request and returns MockResponse unless overridden
func (m *MockLLMAPI) Complete(ctx context.Context, req ModelRequest) (string, error) {
	m.mu.Lock()
	m.CompleteCalls = append(m.CompleteCalls, req)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return MockResponse, nil
}

// SetResponse makes every call return text
func (m *MockLLMAPI) SetResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, req ModelRequest) (string, error) {
		return text, nil
	}
}

// SetError makes every call fail with err
func (m *MockLLMAPI) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = func(ctx context.Context, req ModelRequest) (string, error) {
		return "", err
	}
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = make([]ModelRequest, 0)
	m.CompleteFunc = nil
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() []ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ModelRequest, len(m.CompleteCalls))
	copy(calls, m.CompleteCalls)
	return calls
}
