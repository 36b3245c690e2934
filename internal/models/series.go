// Package models defines data structures for navboard
package models

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage
const DateLayout = "2006-01-02"

// ValuationPoint is one NAV or benchmark observation for one entity on one day.
// A value that could not be parsed at the storage boundary is carried as NaN.
type ValuationPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Valid reports whether the point carries a usable finite value.
func (p ValuationPoint) Valid() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

// EntitySeries holds the raw NAV and benchmark series for one account/scheme.
// Built fresh per request and never shared between goroutines after construction.
type EntitySeries struct {
	EntityID        string           `json:"entity_id"`
	DisplayName     string           `json:"display_name"`
	SchemeID        string           `json:"scheme_id,omitempty"`
	Points          []ValuationPoint `json:"points"`
	BenchmarkPoints []ValuationPoint `json:"benchmark_points,omitempty"`
}

// Name returns the display name, falling back to the entity id.
func (s *EntitySeries) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.EntityID
}

// Entity is one account/scheme belonging to a user.
type Entity struct {
	EntityID    string `json:"entity_id"`
	DisplayName string `json:"display_name"`
	SchemeID    string `json:"scheme_id,omitempty"`
}

// EntityMetadata lists the entities a user is entitled to see.
type EntityMetadata struct {
	UserID   string   `json:"user_id"`
	Entities []Entity `json:"entities"`
}

// EntityIDs returns the ids in storage order.
func (m *EntityMetadata) EntityIDs() []string {
	ids := make([]string, len(m.Entities))
	for i, e := range m.Entities {
		ids[i] = e.EntityID
	}
	return ids
}

// DisplayNames returns the display names in storage order.
func (m *EntityMetadata) DisplayNames() []string {
	names := make([]string, len(m.Entities))
	for i, e := range m.Entities {
		names[i] = e.DisplayName
	}
	return names
}

// Find returns the entity with the given id, or nil.
func (m *EntityMetadata) Find(entityID string) *Entity {
	for i := range m.Entities {
		if m.Entities[i].EntityID == entityID {
			return &m.Entities[i]
		}
	}
	return nil
}
