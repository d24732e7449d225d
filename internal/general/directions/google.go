package directions

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/config"
	"fleet-track/internal/ports"

	"googlemaps.github.io/maps"
)

// GoogleRoutePlanner plans driving routes through the Google Directions API.
type GoogleRoutePlanner struct {
	client *maps.Client
}

// NewGoogleRoutePlanner creates a planner with a bounded-timeout HTTP client.
func NewGoogleRoutePlanner(cfg *config.Config) (ports.RoutePlanner, error) {
	client, err := maps.NewClient(
		maps.WithAPIKey(cfg.Directions.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleRoutePlanner{client: client}, nil
}

// PlanRoute requests a driving route from origin to destination and converts
// the first returned route into a RoutePlan. An empty route set maps to
// hotspot.ErrRouteUnavailable so callers can distinguish "no road path" from
// transport failures.
func (p *GoogleRoutePlanner) PlanRoute(ctx context.Context, originLat, originLng, destLat, destLng float64) (*hotspot.RoutePlan, error) {
	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", originLat, originLng),
		Destination: fmt.Sprintf("%f,%f", destLat, destLng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := p.client.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, hotspot.ErrRouteUnavailable
	}

	route := routes[0]
	leg := route.Legs[0]

	overview, err := decodePolyline(route.OverviewPolyline.Points)
	if err != nil {
		return nil, fmt.Errorf("decode overview polyline: %w", err)
	}

	plan := &hotspot.RoutePlan{
		Start:            geo.Point{Lat: leg.StartLocation.Lat, Lng: leg.StartLocation.Lng},
		End:              geo.Point{Lat: leg.EndLocation.Lat, Lng: leg.EndLocation.Lng},
		DistanceMeters:   leg.Distance.Meters,
		DistanceText:     leg.Distance.HumanReadable,
		DurationSeconds:  int(leg.Duration.Seconds()),
		DurationText:     durationText(leg.Duration),
		OverviewPolyline: route.OverviewPolyline.Points,
		Overview:         overview,
	}

	for _, step := range leg.Steps {
		path, err := decodePolyline(step.Polyline.Points)
		if err != nil {
			return nil, fmt.Errorf("decode step polyline: %w", err)
		}
		plan.Steps = append(plan.Steps, hotspot.RouteStep{
			Start:           geo.Point{Lat: step.StartLocation.Lat, Lng: step.StartLocation.Lng},
			End:             geo.Point{Lat: step.EndLocation.Lat, Lng: step.EndLocation.Lng},
			DistanceMeters:  step.Distance.Meters,
			DurationSeconds: int(step.Duration.Seconds()),
			Instruction:     step.HTMLInstructions,
			Polyline:        step.Polyline.Points,
			Path:            path,
		})
	}

	return plan, nil
}

// durationText renders a leg duration the way routing UIs expect it,
// e.g. "1 hour 5 mins" or "12 mins".
func durationText(d time.Duration) string {
	mins := int(d.Round(time.Minute).Minutes())
	if mins < 1 {
		mins = 1
	}
	hours := mins / 60
	mins = mins % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d mins", mins)
	case hours == 1:
		return fmt.Sprintf("1 hour %d mins", mins)
	default:
		return fmt.Sprintf("%d hours %d mins", hours, mins)
	}
}

func decodePolyline(encoded string) ([]geo.Point, error) {
	latlngs, err := maps.DecodePolyline(encoded)
	if err != nil {
		return nil, err
	}
	points := make([]geo.Point, 0, len(latlngs))
	for _, ll := range latlngs {
		points = append(points, geo.Point{Lat: ll.Lat, Lng: ll.Lng})
	}
	return points, nil
}
