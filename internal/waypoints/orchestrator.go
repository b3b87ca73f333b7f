package waypoints

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/service"
)

// Orchestrator issues route-computation requests and manages the local
// loading state around them: isLoading is set optimistically before the
// request goes out and cleared unconditionally on either outcome. Route
// geometry, and any error text on failure, arrive out of band through the
// store's own push channel, never through this component.
//
// There is no retry or cancellation here beyond the caller's context;
// overlapping requests for the same transaction are legal and the last
// write to isLoading wins.
type Orchestrator struct {
	store   service.Store
	fetcher service.RouteFetcher
}

// NewOrchestrator creates an orchestrator writing state through the given
// store and issuing requests through the given fetcher.
func NewOrchestrator(st service.Store, fetcher service.RouteFetcher) *Orchestrator {
	return &Orchestrator{
		store:   st,
		fetcher: fetcher,
	}
}

// RequestRoute requests geometry for a committed transaction's waypoints.
func (o *Orchestrator) RequestRoute(ctx context.Context, transactionID string, waypoints model.WaypointMap) error {
	return o.request(ctx, transactionID, waypoints, TransactionKey(transactionID), false)
}

// RequestDraftRoute requests geometry for a draft transaction's waypoints.
func (o *Orchestrator) RequestDraftRoute(ctx context.Context, transactionID string, waypoints model.WaypointMap) error {
	return o.request(ctx, transactionID, waypoints, DraftTransactionKey(transactionID), true)
}

func (o *Orchestrator) request(ctx context.Context, transactionID string, waypoints model.WaypointMap, key string, draft bool) error {
	serialized, err := json.Marshal(waypoints)
	if err != nil {
		return fmt.Errorf("failed to serialize waypoints for %s: %w", transactionID, err)
	}

	// Optimistic phase: enter loading, drop any stale route error.
	err = o.store.Merge(key, map[string]any{
		"comment": map[string]any{
			"isLoading": true,
		},
		"errorFields": map[string]any{
			"route": nil,
		},
	})
	if err != nil {
		return err
	}

	fetchErr := o.fetcher.FetchRoute(ctx, service.RouteRequest{
		TransactionID: transactionID,
		Waypoints:     string(serialized),
		Draft:         draft,
	})

	// Terminal phase: both outcomes only clear the loading flag.
	err = o.store.Merge(key, map[string]any{
		"comment": map[string]any{
			"isLoading": false,
		},
	})
	if err != nil {
		return err
	}

	if fetchErr != nil {
		return fmt.Errorf("route request for %s: %w", transactionID, fetchErr)
	}
	return nil
}
