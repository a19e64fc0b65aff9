package ai

import (
	"context"
	"sync"
)

type Call struct {
	Prompt string
	Schema *Schema
}

// Mock returns canned responses. Respond, when set, wins over Response.
type Mock struct {
	Response string
	Respond  func(prompt string, schema *Schema) (string, error)
	Err      error

	mu    sync.Mutex
	calls []Call
}

func (m *Mock) Generate(ctx context.Context, prompt string, schema *Schema) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Prompt: prompt, Schema: schema})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Respond != nil {
		return m.Respond(prompt, schema)
	}
	return m.Response, nil
}

func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]Call, len(m.calls))
	copy(calls, m.calls)
	return calls
}

var _ Generator = (*Mock)(nil)
