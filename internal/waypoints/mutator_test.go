package waypoints_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/store"
	"github.com/Veraticus/miles-to-go/internal/testutil"
	"github.com/Veraticus/miles-to-go/internal/waypoints"
)

func float(v float64) *float64 {
	return &v
}

func getTransaction(t *testing.T, st *store.Store, key string) model.Transaction {
	t.Helper()
	doc, ok := st.Get(key)
	require.True(t, ok, "expected a document at %s", key)
	txn, err := model.TransactionFromDocument(doc)
	require.NoError(t, err)
	return txn
}

func setupMutator(t *testing.T) (*store.Store, *waypoints.Accessor, *waypoints.Mutator) {
	t.Helper()
	st := testutil.SetupTestStore(t)
	accessor := waypoints.NewAccessor(st)
	st.Flush()
	return st, accessor, waypoints.NewMutator(st, accessor)
}

func TestCreateInitialWaypoints(t *testing.T) {
	st, _, mutator := setupMutator(t)

	require.NoError(t, mutator.CreateInitialWaypoints("t1"))
	st.Flush()

	txn := getTransaction(t, st, waypoints.TransactionKey("t1"))
	assert.Equal(t, "t1", txn.TransactionID)
	require.Len(t, txn.Comment.Waypoints, 2)

	for _, key := range []string{"waypoint0", "waypoint1"} {
		wp, ok := txn.Comment.Waypoints[key]
		require.True(t, ok, "missing %s", key)
		assert.True(t, wp.IsEmpty())
	}
}

func TestAddStopAppendsAfterLastIndex(t *testing.T) {
	st, _, mutator := setupMutator(t)

	require.NoError(t, mutator.CreateInitialWaypoints("t1"))
	st.Flush()

	require.NoError(t, mutator.SaveWaypoint("t1", 0, model.Waypoint{Address: "A"}, true))
	st.Flush()

	require.NoError(t, mutator.AddStop("t1"))
	st.Flush()

	txn := getTransaction(t, st, waypoints.TransactionKey("t1"))
	require.Len(t, txn.Comment.Waypoints, 3)

	newStop, ok := txn.Comment.Waypoints["waypoint2"]
	require.True(t, ok, "new stop should land at the next contiguous key")
	assert.True(t, newStop.IsEmpty())

	// Prior entries are unchanged.
	assert.Equal(t, "A", txn.Comment.Waypoints["waypoint0"].Address)
	assert.True(t, txn.Comment.Waypoints["waypoint1"].IsEmpty())
}

func TestAddStopOnUnknownTransactionStartsAtZero(t *testing.T) {
	st, _, mutator := setupMutator(t)

	require.NoError(t, mutator.AddStop("ghost"))
	st.Flush()

	txn := getTransaction(t, st, waypoints.TransactionKey("ghost"))
	require.Len(t, txn.Comment.Waypoints, 1)
	_, ok := txn.Comment.Waypoints["waypoint0"]
	assert.True(t, ok)
}

func TestSaveWaypointTargetsOppositeNamespace(t *testing.T) {
	// The draft flag selects the opposite key namespace; these tests pin
	// the current pairing so any future fix is deliberate.
	t.Run("draft true writes the committed key", func(t *testing.T) {
		st, _, mutator := setupMutator(t)

		require.NoError(t, mutator.SaveWaypoint("t1", 0, model.Waypoint{Address: "A"}, true))
		st.Flush()

		_, ok := st.Get(waypoints.TransactionKey("t1"))
		assert.True(t, ok)
		_, ok = st.Get(waypoints.DraftTransactionKey("t1"))
		assert.False(t, ok)
	})

	t.Run("draft false writes the draft key", func(t *testing.T) {
		st, _, mutator := setupMutator(t)

		require.NoError(t, mutator.SaveWaypoint("t1", 0, model.Waypoint{Address: "A"}, false))
		st.Flush()

		_, ok := st.Get(waypoints.DraftTransactionKey("t1"))
		assert.True(t, ok)
		_, ok = st.Get(waypoints.TransactionKey("t1"))
		assert.False(t, ok)
	})
}

func TestSaveWaypointClearsRouteState(t *testing.T) {
	st, _, mutator := setupMutator(t)

	require.NoError(t, st.Set(waypoints.TransactionKey("t1"), map[string]any{
		"transactionID": "t1",
		"routes": map[string]any{
			"route0": map[string]any{
				"geometry": map[string]any{
					"coordinates": []any{[]any{1.0, 2.0}},
					"type":        "LineString",
				},
			},
		},
		"errorFields": map[string]any{
			"route": map[string]any{"ts": "stale failure"},
		},
	}))
	st.Flush()

	require.NoError(t, mutator.SaveWaypoint("t1", 0, model.Waypoint{Address: "A"}, true))
	st.Flush()

	txn := getTransaction(t, st, waypoints.TransactionKey("t1"))
	assert.Nil(t, txn.RouteError(), "route error should be cleared")
	assert.Nil(t, txn.Routes[model.RouteID].Geometry.Coordinates, "route geometry should be invalidated")
}

func TestSaveWaypointRecordsRecentAddress(t *testing.T) {
	geocoded := func(addr string) model.Waypoint {
		return model.Waypoint{Address: addr, Lat: float(37.1), Lng: float(-122.2)}
	}

	t.Run("geocoded waypoint is prepended", func(t *testing.T) {
		st, accessor, mutator := setupMutator(t)

		require.NoError(t, mutator.SaveWaypoint("t1", 0, geocoded("A"), true))
		st.Flush()

		recent := accessor.RecentWaypoints()
		require.Len(t, recent, 1)
		assert.Equal(t, "A", recent[0].Address)
	})

	t.Run("list is capped at five", func(t *testing.T) {
		st, accessor, mutator := setupMutator(t)

		seed := []model.Waypoint{
			geocoded("A"), geocoded("B"), geocoded("C"), geocoded("D"), geocoded("E"),
		}
		doc, err := model.RecentToDocument(seed)
		require.NoError(t, err)
		require.NoError(t, st.Set(waypoints.RecentWaypointsKey, doc))
		st.Flush()

		require.NoError(t, mutator.SaveWaypoint("t1", 0, geocoded("F"), true))
		st.Flush()

		recent := accessor.RecentWaypoints()
		require.Len(t, recent, model.MaxRecentWaypoints)
		assert.Equal(t, "F", recent[0].Address)
		assert.Equal(t, "D", recent[4].Address, "oldest entry should fall off")
	})

	t.Run("duplicate address leaves the list unchanged", func(t *testing.T) {
		st, accessor, mutator := setupMutator(t)

		seed := []model.Waypoint{geocoded("A"), geocoded("B")}
		doc, err := model.RecentToDocument(seed)
		require.NoError(t, err)
		require.NoError(t, st.Set(waypoints.RecentWaypointsKey, doc))
		st.Flush()

		require.NoError(t, mutator.SaveWaypoint("t1", 0, geocoded("B"), true))
		st.Flush()

		recent := accessor.RecentWaypoints()
		require.Len(t, recent, 2)
		assert.Equal(t, "A", recent[0].Address)
	})

	t.Run("ungeocoded waypoint is not recorded", func(t *testing.T) {
		st, accessor, mutator := setupMutator(t)

		require.NoError(t, mutator.SaveWaypoint("t1", 0, model.Waypoint{Address: "A"}, true))
		st.Flush()

		assert.Empty(t, accessor.RecentWaypoints())
	})

	t.Run("current location sentinel is not recorded", func(t *testing.T) {
		st, accessor, mutator := setupMutator(t)

		require.NoError(t, mutator.SaveWaypoint("t1", 0, model.CurrentLocationWaypoint(37.1, -122.2), true))
		st.Flush()

		assert.Empty(t, accessor.RecentWaypoints())
	})
}

func TestRemoveWaypointEndpointOfTwoStopTrip(t *testing.T) {
	t.Run("removing the first stop reinserts an empty one", func(t *testing.T) {
		st, _, mutator := setupMutator(t)

		txn := model.Transaction{
			TransactionID: "t1",
			Comment: model.Comment{
				Waypoints: model.WaypointMap{
					"waypoint0": {Address: "A"},
					"waypoint1": {Address: "B"},
				},
			},
		}

		require.NoError(t, mutator.RemoveWaypoint(txn, 0, false))
		st.Flush()

		got := getTransaction(t, st, waypoints.TransactionKey("t1"))
		require.Len(t, got.Comment.Waypoints, 2)
		assert.True(t, got.Comment.Waypoints["waypoint0"].IsEmpty())
		assert.Equal(t, "B", got.Comment.Waypoints["waypoint1"].Address)
	})

	t.Run("removing the last stop reinserts an empty one", func(t *testing.T) {
		st, _, mutator := setupMutator(t)

		txn := model.Transaction{
			TransactionID: "t1",
			Comment: model.Comment{
				Waypoints: model.WaypointMap{
					"waypoint0": {Address: "A"},
					"waypoint1": {Address: "B"},
				},
			},
		}

		require.NoError(t, mutator.RemoveWaypoint(txn, 1, false))
		st.Flush()

		got := getTransaction(t, st, waypoints.TransactionKey("t1"))
		require.Len(t, got.Comment.Waypoints, 2)
		assert.Equal(t, "A", got.Comment.Waypoints["waypoint0"].Address)
		assert.True(t, got.Comment.Waypoints["waypoint1"].IsEmpty())
	})
}

func TestRemoveWaypointMiddleOfThreeStopTrip(t *testing.T) {
	st, _, mutator := setupMutator(t)

	txn := model.Transaction{
		TransactionID: "t1",
		Comment: model.Comment{
			Waypoints: model.WaypointMap{
				"waypoint0": {Address: "A"},
				"waypoint1": {Address: "B"},
				"waypoint2": {Address: "C"},
			},
		},
		Routes: map[string]model.Route{
			model.RouteID: {
				Geometry: model.Geometry{
					Coordinates: [][]float64{{1, 2}},
					Type:        "LineString",
				},
			},
		},
		ErrorFields: map[string]model.ErrorMessage{
			"route": {"ts": "stale"},
		},
	}

	require.NoError(t, mutator.RemoveWaypoint(txn, 1, false))
	st.Flush()

	got := getTransaction(t, st, waypoints.TransactionKey("t1"))
	require.Len(t, got.Comment.Waypoints, 2)
	assert.Equal(t, "A", got.Comment.Waypoints["waypoint0"].Address)
	assert.Equal(t, "C", got.Comment.Waypoints["waypoint1"].Address)

	// B had a valid address, so the route cache and error are cleared.
	assert.Nil(t, got.Routes[model.RouteID].Geometry.Coordinates)
	assert.Nil(t, got.RouteError())
}

func TestRemoveEmptyWaypointSkipsRouteInvalidation(t *testing.T) {
	st, _, mutator := setupMutator(t)

	txn := model.Transaction{
		TransactionID: "t1",
		Comment: model.Comment{
			Waypoints: model.WaypointMap{
				"waypoint0": {Address: "A"},
				"waypoint1": {},
				"waypoint2": {Address: "C"},
			},
		},
		Routes: map[string]model.Route{
			model.RouteID: {
				Geometry: model.Geometry{
					Coordinates: [][]float64{{1, 2}},
					Type:        "LineString",
				},
			},
		},
	}

	require.NoError(t, mutator.RemoveWaypoint(txn, 1, false))
	st.Flush()

	got := getTransaction(t, st, waypoints.TransactionKey("t1"))
	require.Len(t, got.Comment.Waypoints, 2)
	assert.NotNil(t, got.Routes[model.RouteID].Geometry.Coordinates,
		"removing an empty waypoint leaves the cached route alone")
}

func TestRemoveWaypointAlreadyGoneIsNoOp(t *testing.T) {
	st, _, mutator := setupMutator(t)

	txn := model.Transaction{
		TransactionID: "t1",
		Comment: model.Comment{
			Waypoints: model.WaypointMap{
				"waypoint0": {Address: "A"},
			},
		},
	}

	require.NoError(t, mutator.RemoveWaypoint(txn, 5, false))
	st.Flush()

	_, ok := st.Get(waypoints.TransactionKey("t1"))
	assert.False(t, ok, "nothing to splice means nothing is written")
}

func TestRemoveWaypointWritesDraftKeyWhenAsked(t *testing.T) {
	st, _, mutator := setupMutator(t)

	txn := model.Transaction{
		TransactionID: "t1",
		Comment: model.Comment{
			Waypoints: model.WaypointMap{
				"waypoint0": {Address: "A"},
				"waypoint1": {Address: "B"},
				"waypoint2": {Address: "C"},
			},
		},
	}

	require.NoError(t, mutator.RemoveWaypoint(txn, 1, true))
	st.Flush()

	_, ok := st.Get(waypoints.DraftTransactionKey("t1"))
	assert.True(t, ok)
	_, ok = st.Get(waypoints.TransactionKey("t1"))
	assert.False(t, ok)
}

func TestRemoveWaypointAppliesScalarDefaults(t *testing.T) {
	st, _, mutator := setupMutator(t)

	txn := model.Transaction{
		TransactionID: "t1",
		Comment: model.Comment{
			Waypoints: model.WaypointMap{
				"waypoint0": {Address: "A"},
				"waypoint1": {Address: "B"},
				"waypoint2": {Address: "C"},
			},
		},
	}

	require.NoError(t, mutator.RemoveWaypoint(txn, 1, false))
	st.Flush()

	got := getTransaction(t, st, waypoints.TransactionKey("t1"))
	assert.Equal(t, model.DefaultCurrency, got.Currency)
}

func TestUpdateWaypointsReplacesMappingAndClearsRoute(t *testing.T) {
	st, _, mutator := setupMutator(t)

	require.NoError(t, st.Set(waypoints.TransactionKey("t1"), map[string]any{
		"transactionID": "t1",
		"comment": map[string]any{
			"waypoints": map[string]any{
				"waypoint0": map[string]any{"address": "old0"},
				"waypoint1": map[string]any{"address": "old1"},
				"waypoint2": map[string]any{"address": "old2"},
			},
		},
		"routes": map[string]any{
			"route0": map[string]any{
				"geometry": map[string]any{
					"coordinates": []any{[]any{1.0, 2.0}},
					"type":        "LineString",
				},
			},
		},
		"errorFields": map[string]any{
			"route": map[string]any{"ts": "stale"},
		},
	}))
	st.Flush()

	next := model.WaypointMap{
		"waypoint0": {Address: "new0"},
		"waypoint1": {Address: "new1"},
	}
	require.NoError(t, mutator.UpdateWaypoints("t1", next, false))
	st.Flush()

	got := getTransaction(t, st, waypoints.TransactionKey("t1"))
	require.Len(t, got.Comment.Waypoints, 2, "stale high-index keys must not survive")
	assert.Equal(t, "new0", got.Comment.Waypoints["waypoint0"].Address)
	assert.Equal(t, "new1", got.Comment.Waypoints["waypoint1"].Address)

	assert.Nil(t, got.Routes[model.RouteID].Geometry.Coordinates)
	assert.Nil(t, got.RouteError())
}

func TestUpdateWaypointsTargetsDraftWhenAsked(t *testing.T) {
	st, _, mutator := setupMutator(t)

	next := model.WaypointMap{"waypoint0": {Address: "A"}}
	require.NoError(t, mutator.UpdateWaypoints("t1", next, true))
	st.Flush()

	_, ok := st.Get(waypoints.DraftTransactionKey("t1"))
	assert.True(t, ok)
	_, ok = st.Get(waypoints.TransactionKey("t1"))
	assert.False(t, ok)
}

func TestReindexed(t *testing.T) {
	gapped := model.WaypointMap{
		"waypoint0": {Address: "A"},
		"waypoint2": {Address: "B"},
		"waypoint5": {Address: "C"},
	}

	got := waypoints.Reindexed(gapped)
	require.Len(t, got, 3)
	assert.True(t, got.IsContiguous())
	assert.Equal(t, "A", got["waypoint0"].Address)
	assert.Equal(t, "B", got["waypoint1"].Address)
	assert.Equal(t, "C", got["waypoint2"].Address)
}
