package waypoints

import (
	"sync"

	"github.com/Veraticus/miles-to-go/internal/common"
	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/service"
)

// Accessor keeps a synchronous, best-effort-fresh local mirror of the
// recent-waypoints list and of all committed transaction records, fed by
// the store's asynchronous push notifications. It lives for the whole
// process; there is no teardown.
type Accessor struct {
	mu           sync.RWMutex
	recent       []model.Waypoint
	transactions map[string]model.Transaction
}

// NewAccessor subscribes to the store and returns the mirror. The mirrors
// start empty and settle once the store's initial notifications have been
// delivered.
func NewAccessor(st service.Store) *Accessor {
	a := &Accessor{
		transactions: make(map[string]model.Transaction),
	}

	st.Connect(RecentWaypointsKey, func(value any) {
		recent, err := model.RecentFromDocument(value)
		if err != nil {
			common.LogError(err, "Ignoring malformed recent waypoints value", nil)
			return
		}
		a.mu.Lock()
		a.recent = recent
		a.mu.Unlock()
	})

	st.ConnectCollection(TransactionCollection, func(key string, value any) {
		// An absent value is a no-op, not a deletion. Removing the mirror
		// entry here would drop transactions that arrive as tombstones
		// during sync; live deletion is handled upstream.
		if value == nil {
			return
		}
		txn, err := model.TransactionFromDocument(value)
		if err != nil {
			common.LogError(err, "Ignoring malformed transaction document", common.Fields{"key": key})
			return
		}
		if txn.TransactionID == "" {
			return
		}
		a.mu.Lock()
		a.transactions[txn.TransactionID] = txn
		a.mu.Unlock()
	})

	return a
}

// RecentWaypoints returns a copy of the mirrored recent-waypoints list,
// most recent first.
func (a *Accessor) RecentWaypoints() []model.Waypoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Waypoint, len(a.recent))
	copy(out, a.recent)
	return out
}

// Transaction returns the mirrored transaction for an id, if known.
func (a *Accessor) Transaction(transactionID string) (model.Transaction, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	txn, ok := a.transactions[transactionID]
	return txn, ok
}

// AllTransactions returns a copy of the mirrored transaction set, keyed by
// transaction id.
func (a *Accessor) AllTransactions() map[string]model.Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]model.Transaction, len(a.transactions))
	for id, txn := range a.transactions {
		out[id] = txn
	}
	return out
}
