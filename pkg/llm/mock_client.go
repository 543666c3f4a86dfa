package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockLLMClient is a scripted LLMClient for tests. Scripted responses and
// errors are consumed in order, errors first; CallCount, LastRequest, and
// RequestLog expose what the code under test sent.
type MockLLMClient struct {
	mu      sync.Mutex
	script  []CompletionResponse
	nextOut int
	errs    []error
	nextErr int

	CallCount    int
	LastRequest  CompletionRequest
	ModelName    string
	RequestLog   []CompletionRequest
	RecordingOff bool
}

// NewMockLLMClient scripts a mock with the given responses and errors.
func NewMockLLMClient(responses []CompletionResponse, errs []error) *MockLLMClient {
	return &MockLLMClient{script: responses, errs: errs, ModelName: "mock-model"}
}

// Complete records the request and replays the script, scripted errors
// first. A nil entry ends the error script early.
func (m *MockLLMClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastRequest = req
	if !m.RecordingOff {
		m.RequestLog = append(m.RequestLog, req)
	}

	if m.nextErr < len(m.errs) && m.errs[m.nextErr] != nil {
		err := m.errs[m.nextErr]
		m.nextErr++
		return CompletionResponse{}, err
	}

	if m.nextOut >= len(m.script) {
		// Replay the last response so iteration-bound tests can run past the script.
		if n := len(m.script); n > 0 {
			return m.script[n-1], nil
		}
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	out := m.script[m.nextOut]
	m.nextOut++
	return out, nil
}

// Stream replays the next scripted response as a two-chunk stream.
func (m *MockLLMClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk, 2)
	out <- StreamChunk{Content: resp.Content}
	out <- StreamChunk{Done: true}
	close(out)
	return out, nil
}

// GetModelName returns the configured mock model name.
func (m *MockLLMClient) GetModelName() string {
	return m.ModelName
}
