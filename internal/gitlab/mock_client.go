package gitlab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// MockCreatePipeline is a callback for the MockClient's `CreatePipeline()`
// function which always succeeds.
var MockCreatePipeline = func(_ context.Context, _, branch string) (*Pipeline, error) {
	return &Pipeline{ID: 1, Ref: branch, Status: "created"}, nil
}

// MockClient is a mock client of the GitLab pipeline API.
type MockClient struct {
	tb             testing.TB
	createPipeline func(context.Context, string, string) (*Pipeline, error)

	// Triggered records the (namespace, branch) pairs CreatePipeline was
	// called with, in order.
	Triggered [][2]string
}

// NewMockClient returns a new mock client for the GitLab pipeline API.
func NewMockClient(tb testing.TB, createPipeline func(context.Context, string, string) (*Pipeline, error)) *MockClient {
	return &MockClient{tb: tb, createPipeline: createPipeline}
}

// CreatePipeline records the call and delegates to the configured callback.
func (m *MockClient) CreatePipeline(ctx context.Context, namespace, branch string) (*Pipeline, error) {
	require.NotNil(m.tb, m.createPipeline, "createPipeline called but not set")
	m.Triggered = append(m.Triggered, [2]string{namespace, branch})
	return m.createPipeline(ctx, namespace, branch)
}
