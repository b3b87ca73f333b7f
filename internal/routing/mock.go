package routing

import (
	"context"

	"github.com/Veraticus/miles-to-go/internal/service"
)

// MockFetcher is a mock implementation of the RouteFetcher interface for
// testing.
type MockFetcher struct {
	// FetchRouteFn can be set by tests to control behavior.
	FetchRouteFn func(ctx context.Context, req service.RouteRequest) error

	// Call tracking
	FetchRouteCalls []service.RouteRequest
}

// NewMockFetcher creates a new mock route fetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		FetchRouteCalls: []service.RouteRequest{},
	}
}

// FetchRoute implements RouteFetcher.FetchRoute.
func (m *MockFetcher) FetchRoute(ctx context.Context, req service.RouteRequest) error {
	m.FetchRouteCalls = append(m.FetchRouteCalls, req)

	if m.FetchRouteFn != nil {
		return m.FetchRouteFn(ctx, req)
	}

	// Default behavior: accept the request
	return nil
}
