package waypoints

import (
	"fmt"

	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/service"
)

// Mutator owns every write to a transaction's waypoint list. All
// operations resolve to merge or set calls against the store and return
// the write's completion; none of them block on notification delivery.
// Concurrent mutation is reconciled by the store's last-write-wins merge
// semantics only.
type Mutator struct {
	store    service.Store
	accessor *Accessor
}

// NewMutator creates a mutator writing through the given store and reading
// snapshots from the given mirror.
func NewMutator(st service.Store, accessor *Accessor) *Mutator {
	return &Mutator{
		store:    st,
		accessor: accessor,
	}
}

// CreateInitialWaypoints sets the two empty placeholder waypoints a new
// distance transaction starts with. Repeated calls overwrite the first two
// slots under the store's merge semantics.
func (m *Mutator) CreateInitialWaypoints(transactionID string) error {
	return m.store.Merge(TransactionKey(transactionID), map[string]any{
		"transactionID": transactionID,
		"comment": map[string]any{
			"waypoints": map[string]any{
				model.WaypointKey(0): model.Waypoint{},
				model.WaypointKey(1): model.Waypoint{},
			},
		},
	})
}

// AddStop appends one empty waypoint after the current last one. The next
// key is derived from the count of existing entries, which is only correct
// while the contiguous-key invariant holds; callers own that invariant, a
// gapped map silently yields a colliding key.
func (m *Mutator) AddStop(transactionID string) error {
	txn, _ := m.accessor.Transaction(transactionID)
	newIndex := len(txn.Comment.Waypoints)

	return m.store.Merge(TransactionKey(transactionID), map[string]any{
		"comment": map[string]any{
			"waypoints": map[string]any{
				model.WaypointKey(newIndex): model.Waypoint{},
			},
		},
	})
}

// SaveWaypoint writes the waypoint at the given index, clears the route
// error and the cached route geometry, and records the address in the
// recent-waypoints list when it is geocoded, not the current-location
// sentinel, and not already present.
//
// TODO: isDraft selects the opposite namespace here (true writes the
// committed key, false the draft key). RemoveWaypoint and UpdateWaypoints
// map the flag straight. Audit the call sites that depend on the inverted
// pairing before straightening this out.
func (m *Mutator) SaveWaypoint(transactionID string, index int, waypoint model.Waypoint, isDraft bool) error {
	if index < 0 {
		return fmt.Errorf("waypoint index %d out of range", index)
	}

	key := DraftTransactionKey(transactionID)
	if isDraft {
		key = TransactionKey(transactionID)
	}

	err := m.store.Merge(key, map[string]any{
		"comment": map[string]any{
			"waypoints": map[string]any{
				model.WaypointKey(index): waypoint,
			},
		},
		"errorFields": map[string]any{
			"route": nil,
		},
		"routes": map[string]any{
			model.RouteID: map[string]any{
				"geometry": map[string]any{
					"coordinates": nil,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	if !waypoint.IsGeocoded() || waypoint.IsCurrentLocation() {
		return nil
	}
	recent := m.accessor.RecentWaypoints()
	if model.RecentContains(recent, waypoint.Address) {
		return nil
	}
	doc, err := model.RecentToDocument(model.PushRecent(recent, waypoint))
	if err != nil {
		return err
	}
	return m.store.Set(RecentWaypointsKey, doc)
}

// RemoveWaypoint removes the waypoint at the given zero-based index from
// the caller-supplied transaction snapshot, re-indexes the rest to a
// contiguous sequence, and writes the rebuilt document wholesale to the
// draft or committed key. Writes race against concurrent mutation of the
// same transaction; the snapshot read here can lose such updates.
//
// A two-stop trip never drops below two slots: removing either endpoint of
// one reinserts an empty waypoint in its place. When the removed waypoint
// had no valid address there is no stale geometry, so the route cache and
// route error are left untouched.
func (m *Mutator) RemoveWaypoint(txn model.Transaction, index int, isDraft bool) error {
	list := txn.Comment.Waypoints.Ordered()
	if index < 0 || index >= len(list) {
		// Already removed by a concurrent or prior operation.
		return nil
	}
	removed := list[index]
	total := len(list)

	rest := make([]model.Waypoint, 0, total)
	rest = append(rest, list[:index]...)
	rest = append(rest, list[index+1:]...)

	if total == 2 && (index == 0 || index == total-1) {
		if index == 0 {
			rest = append([]model.Waypoint{{}}, rest...)
		} else {
			rest = append(rest, model.Waypoint{})
		}
	}

	next := txn.WithDefaults()
	next.Comment.Waypoints = model.EncodeWaypoints(rest)

	if removed.HasValidAddress() {
		if next.Routes == nil {
			next.Routes = make(map[string]model.Route)
		}
		route := next.Routes[model.RouteID]
		route.Geometry.Coordinates = nil
		next.Routes[model.RouteID] = route

		if next.ErrorFields != nil {
			delete(next.ErrorFields, "route")
			if len(next.ErrorFields) == 0 {
				next.ErrorFields = nil
			}
		}
	}

	doc, err := next.ToDocument()
	if err != nil {
		return err
	}

	key := TransactionKey(txn.TransactionID)
	if isDraft {
		key = DraftTransactionKey(txn.TransactionID)
	}
	return m.store.Set(key, doc)
}

// UpdateWaypoints replaces the whole waypoint mapping for a transaction and
// invalidates the cached route and route error. The returned error is the
// completion of the underlying writes.
func (m *Mutator) UpdateWaypoints(transactionID string, waypoints model.WaypointMap, isDraft bool) error {
	key := TransactionKey(transactionID)
	if isDraft {
		key = DraftTransactionKey(transactionID)
	}

	// Replacement needs two writes under merge semantics: drop the old
	// mapping first so stale high-index keys cannot survive, then merge
	// the new one.
	err := m.store.Merge(key, map[string]any{
		"comment": map[string]any{
			"waypoints": nil,
		},
		"errorFields": map[string]any{
			"route": nil,
		},
		"routes": map[string]any{
			model.RouteID: map[string]any{
				"geometry": map[string]any{
					"coordinates": nil,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	return m.store.Merge(key, map[string]any{
		"comment": map[string]any{
			"waypoints": waypoints,
		},
	})
}

// Reindexed rewrites a waypoint mapping with contiguous zero-based keys,
// preserving travel order. It is the offline repair for mappings that have
// drifted from the contiguity invariant the mutation operations assume.
func Reindexed(m model.WaypointMap) model.WaypointMap {
	return model.EncodeWaypoints(m.Ordered())
}
