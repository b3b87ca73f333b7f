package model

import (
	"encoding/json"
	"fmt"
)

// MaxRecentWaypoints caps the recent-waypoints list used for address
// suggestions.
const MaxRecentWaypoints = 5

// RecentContains reports whether a waypoint with the given address is
// already in the recent list.
func RecentContains(recent []Waypoint, address string) bool {
	for _, wp := range recent {
		if wp.Address == address {
			return true
		}
	}
	return false
}

// PushRecent prepends a waypoint to the recent list and truncates it to
// MaxRecentWaypoints entries. The input slice is not modified.
func PushRecent(recent []Waypoint, wp Waypoint) []Waypoint {
	out := make([]Waypoint, 0, len(recent)+1)
	out = append(out, wp)
	out = append(out, recent...)
	if len(out) > MaxRecentWaypoints {
		out = out[:MaxRecentWaypoints]
	}
	return out
}

// RecentFromDocument decodes the recent-waypoints store value. A nil or
// absent value decodes to an empty list.
func RecentFromDocument(doc any) ([]Waypoint, error) {
	if doc == nil {
		return nil, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recent waypoints: %w", err)
	}
	var list []Waypoint
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode recent waypoints: %w", err)
	}
	return list, nil
}

// RecentToDocument converts the recent list to the generic form stored at
// the recent-waypoints key.
func RecentToDocument(recent []Waypoint) (any, error) {
	raw, err := json.Marshal(recent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recent waypoints: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode recent waypoints: %w", err)
	}
	return doc, nil
}
