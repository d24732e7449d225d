package hotspot

import (
	"errors"
	"strings"
	"time"
)

// AreaType classifies the neighbourhood of a historical pickup location.
type AreaType string

const (
	AreaCommercial  AreaType = "commercial"
	AreaResidential AreaType = "residential"
	AreaUnknown     AreaType = "unknown"
)

var ErrInvalidAreaType = errors.New("invalid area type")

// ParseAreaType normalizes an area classification string. Unrecognized
// values fail closed to AreaUnknown so a new label in the dataset never
// inflates a candidate's score.
func ParseAreaType(s string) AreaType {
	switch AreaType(strings.ToLower(strings.TrimSpace(s))) {
	case AreaCommercial:
		return AreaCommercial
	case AreaResidential:
		return AreaResidential
	default:
		return AreaUnknown
	}
}

// Valid reports whether the area type is one of the closed set.
func (a AreaType) Valid() bool {
	switch a {
	case AreaCommercial, AreaResidential, AreaUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the AreaType.
func (a AreaType) String() string { return string(a) }

// CandidateRecord is one historical order from the candidate dataset.
// Records are an immutable snapshot refreshed out-of-band; the engine
// never mutates them.
type CandidateRecord struct {
	OrderID           string
	PickupLat         float64
	PickupLng         float64
	Area              AreaType
	HourOfDay         int          // 0..23
	Weekday           time.Weekday // historical day of week
	PickupMatchesDrop bool         // pickup coincides with some drop location
	TripSuccesses     int          // times a driver reached this pickup and got a trip
	TripFailures      int          // times a driver reached it and did not
}

// Complete reports whether the record carries every field the scoring model
// needs. Incomplete rows are dropped before ranking, mirroring how the
// dataset's null rows are skipped.
func (c CandidateRecord) Complete() bool {
	if strings.TrimSpace(c.OrderID) == "" {
		return false
	}
	if c.PickupLat == 0 && c.PickupLng == 0 {
		return false
	}
	if !c.Area.Valid() {
		return false
	}
	if c.HourOfDay < 0 || c.HourOfDay > 23 {
		return false
	}
	return true
}

// ScoredCandidate is a CandidateRecord plus the derived score and the
// distance used to compute it. Created transiently per scoring call.
type ScoredCandidate struct {
	CandidateRecord
	DistanceKm float64
	Score      float64
}
