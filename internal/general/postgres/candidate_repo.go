package postgres

import (
	"context"
	"fmt"
	"time"

	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/ports"
)

// CandidateRepo reads the historical order snapshot used for hotspot ranking.
// The table is refreshed out-of-band; this repo only ever selects.
type CandidateRepo struct{}

// NewCandidateRepo constructs a new CandidateRepo.
func NewCandidateRepo() ports.CandidateSource {
	return &CandidateRepo{}
}

// Snapshot loads the full candidate dataset. Rows with nulls in scoring
// columns are filtered in SQL; Complete() re-checks on the way out so a
// partially migrated table cannot poison the ranking.
func (repo *CandidateRepo) Snapshot(ctx context.Context) ([]hotspot.CandidateRecord, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT o.order_id, o.pickup_lat, o.pickup_lng, o.area_type,
		       o.order_hour, o.order_weekday, o.pickup_matches_drop,
		       COALESCE(t.successes, 0), COALESCE(t.failures, 0)
		FROM hotspot_candidates o
		LEFT JOIN (
			SELECT order_id,
			       COUNT(*) FILTER (WHERE trip_taken) AS successes,
			       COUNT(*) FILTER (WHERE reached AND NOT trip_taken) AS failures
			FROM hotspot_assignments
			GROUP BY order_id
		) t ON t.order_id = o.order_id
		WHERE o.pickup_lat IS NOT NULL
		  AND o.pickup_lng IS NOT NULL
		  AND o.order_hour IS NOT NULL
		  AND o.order_weekday IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query candidate snapshot: %w", err)
	}
	defer rows.Close()

	var records []hotspot.CandidateRecord
	for rows.Next() {
		var rec hotspot.CandidateRecord
		var area string
		var weekday int

		err := rows.Scan(
			&rec.OrderID, &rec.PickupLat, &rec.PickupLng, &area,
			&rec.HourOfDay, &weekday, &rec.PickupMatchesDrop,
			&rec.TripSuccesses, &rec.TripFailures,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		rec.Area = hotspot.ParseAreaType(area)
		rec.Weekday = time.Weekday(weekday)

		if !rec.Complete() {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}
