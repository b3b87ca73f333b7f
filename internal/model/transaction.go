package model

import (
	"encoding/json"
	"fmt"
)

// DefaultCurrency is substituted when a transaction document is rebuilt
// without an explicit currency.
const DefaultCurrency = "USD"

// RouteID is the key under which the primary route geometry is cached.
const RouteID = "route0"

// Transaction is a single expense record as stored in the document store.
// Two physical copies of a transaction may exist, a committed copy and a
// draft copy, under distinct key namespaces.
type Transaction struct {
	TransactionID string                  `json:"transactionID"`
	Amount        float64                 `json:"amount"`
	Currency      string                  `json:"currency"`
	Merchant      string                  `json:"merchant,omitempty"`
	Created       string                  `json:"created,omitempty"`
	Comment       Comment                 `json:"comment"`
	Routes        map[string]Route        `json:"routes,omitempty"`
	ErrorFields   map[string]ErrorMessage `json:"errorFields,omitempty"`
}

// Comment holds the free-text note and the distance-request state attached
// to a transaction.
type Comment struct {
	Text      string      `json:"comment,omitempty"`
	Waypoints WaypointMap `json:"waypoints,omitempty"`
	IsLoading bool        `json:"isLoading,omitempty"`
}

// Route is cached geometry for a computed travel path. It is derived data:
// any waypoint mutation invalidates it.
type Route struct {
	Distance *float64 `json:"distance,omitempty"`
	Geometry Geometry `json:"geometry"`
}

// Geometry is a GeoJSON-style line through the route's waypoints.
// Coordinates is nil once invalidated.
type Geometry struct {
	Coordinates [][]float64 `json:"coordinates"`
	Type        string      `json:"type,omitempty"`
}

// ErrorMessage maps a microtime key to a user-visible error string, matching
// the store's errorFields convention.
type ErrorMessage map[string]string

// WithDefaults returns a copy with defaulted scalar fields substituted when
// absent, used when a transaction document is reconstructed wholesale.
func (t Transaction) WithDefaults() Transaction {
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	return t
}

// RouteError returns the route-domain error messages, if any.
func (t Transaction) RouteError() ErrorMessage {
	if t.ErrorFields == nil {
		return nil
	}
	return t.ErrorFields["route"]
}

// ToDocument converts the transaction to the generic document form the
// store operates on.
func (t Transaction) ToDocument() (map[string]any, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction %s: %w", t.TransactionID, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", t.TransactionID, err)
	}
	return doc, nil
}

// TransactionFromDocument decodes a store document into a Transaction.
func TransactionFromDocument(doc any) (Transaction, error) {
	var t Transaction
	raw, err := json.Marshal(doc)
	if err != nil {
		return t, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("failed to decode transaction document: %w", err)
	}
	return t, nil
}
