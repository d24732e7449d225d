package service

import (
	"sort"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/config"
)

// Weights holds the scoring coefficients for candidate ranking.
type Weights struct {
	AreaCommercial  float64
	AreaResidential float64
	AreaUnknown     float64
	DropMatch       float64
	Hour            float64
	Day             float64
	Distance        float64
	Success         float64
	Failure         float64
}

// WeightsFromConfig copies the configured coefficients into a Weights value.
func WeightsFromConfig(cfg config.HotspotConfig) Weights {
	return Weights{
		AreaCommercial:  cfg.AreaWeightCommercial,
		AreaResidential: cfg.AreaWeightResidential,
		AreaUnknown:     cfg.AreaWeightUnknown,
		DropMatch:       cfg.DropMatchWeight,
		Hour:            cfg.HourWeight,
		Day:             cfg.DayWeight,
		Distance:        cfg.DistanceWeight,
		Success:         cfg.SuccessWeight,
		Failure:         cfg.FailureWeight,
	}
}

func (w Weights) areaWeight(a hotspot.AreaType) float64 {
	switch a {
	case hotspot.AreaCommercial:
		return w.AreaCommercial
	case hotspot.AreaResidential:
		return w.AreaResidential
	default:
		return w.AreaUnknown
	}
}

// rankQuery collects everything one ranking pass depends on, so repeated
// calls with the same query are deterministic.
type rankQuery struct {
	Lat, Lng    float64
	Now         time.Time
	RadiusKm    float64
	OverloadKm  float64
	ExclusionKm float64 // inner ring lower bound; 0 disables the ring
	Occupied    map[string]struct{}
	Weights     Weights
}

// rank scores and orders the candidate records around the query point.
//
// Filtering happens in two passes: first the distance band
// [ExclusionKm, RadiusKm] (or simply <= RadiusKm when no exclusion ring
// applies); if that leaves nothing, the radius widens to
// RadiusKm+OverloadKm and the lower bound is dropped. Records referencing
// occupied orders or missing scoring fields never participate.
//
// Ties are broken by distance, then order id, so equal-score candidates
// rank the same on every call.
func rank(records []hotspot.CandidateRecord, q rankQuery) []hotspot.ScoredCandidate {
	type measured struct {
		rec  hotspot.CandidateRecord
		dist float64
	}

	usable := make([]measured, 0, len(records))
	for _, rec := range records {
		if !rec.Complete() {
			continue
		}
		if _, taken := q.Occupied[rec.OrderID]; taken {
			continue
		}
		usable = append(usable, measured{
			rec:  rec,
			dist: geo.DistanceKm(q.Lat, q.Lng, rec.PickupLat, rec.PickupLng),
		})
	}

	inBand := make([]measured, 0, len(usable))
	for _, m := range usable {
		if m.dist > q.RadiusKm {
			continue
		}
		if q.ExclusionKm > 0 && m.dist < q.ExclusionKm {
			continue
		}
		inBand = append(inBand, m)
	}

	// widen the search on an empty first pass; the widened pass drops
	// the exclusion ring
	if len(inBand) == 0 {
		widened := q.RadiusKm + q.OverloadKm
		for _, m := range usable {
			if m.dist <= widened {
				inBand = append(inBand, m)
			}
		}
	}
	if len(inBand) == 0 {
		return nil
	}

	scored := make([]hotspot.ScoredCandidate, 0, len(inBand))
	for _, m := range inBand {
		scored = append(scored, hotspot.ScoredCandidate{
			CandidateRecord: m.rec,
			DistanceKm:      m.dist,
			Score:           score(m.rec, m.dist, q),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].DistanceKm != scored[j].DistanceKm {
			return scored[i].DistanceKm < scored[j].DistanceKm
		}
		return scored[i].OrderID < scored[j].OrderID
	})

	return scored
}

// score combines the weighted signals for one candidate. Each signal lives
// in [0,1] before weighting; the success/failure ratios pull the total up or
// down by their configured coefficients.
func score(rec hotspot.CandidateRecord, distKm float64, q rankQuery) float64 {
	w := q.Weights

	s := w.areaWeight(rec.Area)

	if rec.PickupMatchesDrop {
		s += w.DropMatch
	}

	s += timeOfDayProximity(rec.HourOfDay, q.Now) * w.Hour
	s += dayProximity(rec.Weekday, q.Now.Weekday()) * w.Day

	// closer candidates score higher; the gap is scaled by the base radius
	s += 1.0 / (1.0 + distKm/q.RadiusKm) * w.Distance

	total := rec.TripSuccesses + rec.TripFailures
	if total > 0 {
		s += float64(rec.TripSuccesses) / float64(total) * w.Success
		s -= float64(rec.TripFailures) / float64(total) * w.Failure
	}

	return s
}

// timeOfDayProximity maps the minute gap between the candidate's historical
// hour and the current clock time onto [0,1]: an exact match scores 1, a gap
// of a full day scores 0. The gap is clipped, not wrapped.
func timeOfDayProximity(hourOfDay int, now time.Time) float64 {
	nowMinutes := float64(now.Hour()*60 + now.Minute())
	diff := nowMinutes - float64(hourOfDay*60)
	if diff < 0 {
		diff = -diff
	}
	if diff > 1440 {
		diff = 1440
	}
	return 1.0 - diff/1440.0
}

// dayProximity maps the weekday gap onto [0,1] with Monday as day zero:
// same day scores 1, the maximum gap of six days scores 0. The gap is an
// absolute index difference, not the circular distance.
func dayProximity(a, b time.Weekday) float64 {
	diff := mondayIndex(a) - mondayIndex(b)
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - float64(diff)/6.0
}

func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
