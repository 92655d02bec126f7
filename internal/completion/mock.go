package completion

import (
	"context"
	"sync"
)

// MockClient is a scriptable Client for tests.
type MockClient struct {
	mu sync.Mutex

	// Response is returned when Fn is nil.
	Response string
	// Err is returned when non-nil.
	Err error
	// Fn, when set, handles the call.
	Fn func(ctx context.Context, req Request) (string, error)

	// Requests records every call.
	Requests []Request
}

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.Fn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// LastRequest returns the most recent call, if any.
func (m *MockClient) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return Request{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

var _ Client = (*MockClient)(nil)
