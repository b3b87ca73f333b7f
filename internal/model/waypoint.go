// Package model defines the core domain types shared across the application.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// currentLocationName marks a waypoint that stands for the device's live
// position rather than a saved address.
const currentLocationName = "current location"

// waypointKeyPrefix is the wire-format prefix for waypoint map keys
// ("waypoint0", "waypoint1", ...).
const waypointKeyPrefix = "waypoint"

// Waypoint is a single stop on a travel route. A waypoint starts empty
// (pending user input) and gains coordinates once geocoded.
type Waypoint struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address string   `json:"address,omitempty"`
	Name    string   `json:"name,omitempty"`
}

// IsEmpty reports whether the waypoint carries no address and no coordinates.
func (w Waypoint) IsEmpty() bool {
	return w.Address == "" && w.Lat == nil && w.Lng == nil
}

// HasValidAddress reports whether the waypoint has a non-empty address.
func (w Waypoint) HasValidAddress() bool {
	return w.Address != ""
}

// IsGeocoded reports whether both latitude and longitude are present.
func (w Waypoint) IsGeocoded() bool {
	return w.Lat != nil && w.Lng != nil
}

// IsCurrentLocation reports whether the waypoint is the "current location"
// sentinel rather than a real saved address.
func (w Waypoint) IsCurrentLocation() bool {
	return strings.EqualFold(w.Name, currentLocationName)
}

// CurrentLocationWaypoint builds the sentinel waypoint for the device's
// live position.
func CurrentLocationWaypoint(lat, lng float64) Waypoint {
	return Waypoint{
		Lat:     &lat,
		Lng:     &lng,
		Name:    currentLocationName,
		Address: currentLocationName,
	}
}

// WaypointMap is the external wire representation of an ordered waypoint
// list: a sparse mapping from "waypoint{N}" keys to waypoints. The key
// sequence is expected to be zero-based and contiguous; order encodes
// travel sequence.
type WaypointMap map[string]Waypoint

// WaypointKey returns the wire key for the waypoint at the given position.
func WaypointKey(index int) string {
	return waypointKeyPrefix + strconv.Itoa(index)
}

// WaypointIndex parses a wire key back into its position. It returns false
// for keys that are not of the "waypoint{N}" form.
func WaypointIndex(key string) (int, bool) {
	if !strings.HasPrefix(key, waypointKeyPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(key[len(waypointKeyPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Ordered flattens the map into a slice sorted by key index, preserving the
// relative order of entries even when the key sequence has gaps. Keys that
// do not parse as waypoint keys are dropped.
func (m WaypointMap) Ordered() []Waypoint {
	indexes := make([]int, 0, len(m))
	byIndex := make(map[int]Waypoint, len(m))
	for key, wp := range m {
		i, ok := WaypointIndex(key)
		if !ok {
			continue
		}
		indexes = append(indexes, i)
		byIndex[i] = wp
	}
	sort.Ints(indexes)

	out := make([]Waypoint, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, byIndex[i])
	}
	return out
}

// IsContiguous reports whether the map's keys form the exact sequence
// waypoint0..waypoint{len-1}.
func (m WaypointMap) IsContiguous() bool {
	for i := 0; i < len(m); i++ {
		if _, ok := m[WaypointKey(i)]; !ok {
			return false
		}
	}
	return true
}

// EncodeWaypoints converts an ordered waypoint slice back into the wire
// mapping with contiguous zero-based keys.
func EncodeWaypoints(list []Waypoint) WaypointMap {
	m := make(WaypointMap, len(list))
	for i, wp := range list {
		m[WaypointKey(i)] = wp
	}
	return m
}

// Describe returns a short human-readable label for the waypoint, for logs
// and CLI output.
func (w Waypoint) Describe() string {
	switch {
	case w.IsCurrentLocation():
		return "(current location)"
	case w.IsEmpty():
		return "(empty)"
	case w.Name != "":
		return fmt.Sprintf("%s (%s)", w.Name, w.Address)
	default:
		return w.Address
	}
}
