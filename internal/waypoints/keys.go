// Package waypoints implements the waypoint list management subsystem:
// a local mirror of transaction and recent-waypoint state, the mutation
// operations on a transaction's ordered waypoint list, and the
// orchestration of route-computation requests.
package waypoints

// Store key namespaces. A transaction has two physical copies: a committed
// copy and a draft copy for unsaved edits, under distinct prefixes.
const (
	// TransactionCollection prefixes committed transaction documents.
	TransactionCollection = "transactions_"
	// TransactionDraftCollection prefixes draft transaction documents.
	TransactionDraftCollection = "transactionsDraft_"
	// RecentWaypointsKey is the single global key holding the
	// recent-waypoints suggestion list.
	RecentWaypointsKey = "recentWaypoints"
)

// TransactionKey returns the committed store key for a transaction.
func TransactionKey(transactionID string) string {
	return TransactionCollection + transactionID
}

// DraftTransactionKey returns the draft store key for a transaction.
func DraftTransactionKey(transactionID string) string {
	return TransactionDraftCollection + transactionID
}
