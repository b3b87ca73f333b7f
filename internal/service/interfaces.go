// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"
)

// Store defines the contract for the reactive document store the waypoint
// subsystem reads and writes. Values are decoded JSON: objects are
// map[string]any, lists are []any.
//
// Writes apply synchronously and return any persistence error; subscriber
// notification is asynchronous, serialized in write order. Concurrent
// writers are reconciled by structural merge only (last write wins per
// leaf); there is no conflict detection.
type Store interface {
	// Connect subscribes to a single key. The callback fires once with the
	// current value (nil if absent) and again after every subsequent write.
	// The returned function cancels the subscription.
	Connect(key string, fn func(value any)) (unsubscribe func())

	// ConnectCollection subscribes to every key sharing a prefix. The
	// callback fires per matching key, first for existing keys and then
	// after every subsequent write to a matching key.
	ConnectCollection(prefix string, fn func(key string, value any)) (unsubscribe func())

	// Merge deep-merges a partial value into the document at key. A nil
	// leaf in the patch removes the corresponding key; this is the only
	// way to express deletion and it does not survive a later whole-value
	// write that resupplies the key.
	Merge(key string, patch map[string]any) error

	// Set replaces the whole document at key.
	Set(key string, value any) error

	// Get returns the current document at key, or false if absent.
	Get(key string) (any, bool)
}

// RouteRequest carries the flat parameter mapping of a route-computation
// call: the transaction id and the JSON-serialized waypoint mapping.
type RouteRequest struct {
	TransactionID string
	Waypoints     string
	Draft         bool
}

// RouteFetcher defines the contract for issuing a route-computation
// request. The call returns only success or failure; route geometry is
// delivered out of band through the store's own push channel.
type RouteFetcher interface {
	FetchRoute(ctx context.Context, req RouteRequest) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
