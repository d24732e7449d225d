package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		want      float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: 28.7041, lng1: 77.1025,
			lat2: 28.7041, lng2: 77.1025,
			want:      0,
			tolerance: 0.001,
		},
		{
			name: "Connaught Place to India Gate (~2.4km)",
			lat1: 28.6315, lng1: 77.2167,
			lat2: 28.6129, lng2: 77.2295,
			want:      2400,
			tolerance: 300,
		},
		{
			name: "Delhi to Mumbai (~1150km)",
			lat1: 28.7041, lng1: 77.1025,
			lat2: 19.0760, lng2: 72.8777,
			want:      1150000,
			tolerance: 20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f, want %f (±%f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceMeters_Symmetry(t *testing.T) {
	d1 := DistanceMeters(28.0, 77.0, 29.0, 78.0)
	d2 := DistanceMeters(29.0, 78.0, 28.0, 77.0)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceKm_ScalesMeters(t *testing.T) {
	m := DistanceMeters(28.0, 77.0, 29.0, 78.0)
	km := DistanceKm(28.0, 77.0, 29.0, 78.0)
	if math.Abs(km-m/1000.0) > 1e-9 {
		t.Errorf("DistanceKm = %f, want %f", km, m/1000.0)
	}
}

func TestNearestVertexMeters(t *testing.T) {
	path := []Point{
		{Lat: 28.7000, Lng: 77.1000},
		{Lat: 28.7050, Lng: 77.1050},
		{Lat: 28.7100, Lng: 77.1100},
	}

	idx, dist := NearestVertexMeters(28.7051, 77.1050, path)
	if idx != 1 {
		t.Fatalf("expected nearest vertex 1, got %d", idx)
	}
	if dist > 20 {
		t.Errorf("expected nearest distance under 20m, got %f", dist)
	}
}

func TestNearestVertexMeters_EmptyPath(t *testing.T) {
	idx, dist := NearestVertexMeters(28.7, 77.1, nil)
	if idx != -1 {
		t.Errorf("expected index -1 for empty path, got %d", idx)
	}
	if !math.IsInf(dist, 1) {
		t.Errorf("expected +Inf distance for empty path, got %f", dist)
	}
}

func TestRemainingDistanceMeters(t *testing.T) {
	path := []Point{
		{Lat: 28.7000, Lng: 77.1000},
		{Lat: 28.7050, Lng: 77.1050},
		{Lat: 28.7100, Lng: 77.1100},
	}

	// standing on the first vertex: full path length remains
	full := RemainingDistanceMeters(28.7000, 77.1000, path)
	want := DistanceMeters(path[0].Lat, path[0].Lng, path[1].Lat, path[1].Lng) +
		DistanceMeters(path[1].Lat, path[1].Lng, path[2].Lat, path[2].Lng)
	if math.Abs(full-want) > 0.001 {
		t.Errorf("remaining from start = %f, want %f", full, want)
	}

	// standing near the middle vertex: only the final segment remains
	half := RemainingDistanceMeters(28.7050, 77.1050, path)
	wantHalf := DistanceMeters(path[1].Lat, path[1].Lng, path[2].Lat, path[2].Lng)
	if math.Abs(half-wantHalf) > 0.001 {
		t.Errorf("remaining from middle = %f, want %f", half, wantHalf)
	}
}

func TestRemainingDistanceMeters_AtFinalVertex(t *testing.T) {
	path := []Point{
		{Lat: 28.7000, Lng: 77.1000},
		{Lat: 28.7100, Lng: 77.1100},
	}
	if got := RemainingDistanceMeters(28.7100, 77.1100, path); got != 0 {
		t.Errorf("expected 0 at final vertex, got %f", got)
	}
}

func TestRemainingDistanceMeters_EmptyPath(t *testing.T) {
	if got := RemainingDistanceMeters(28.7, 77.1, nil); got != 0 {
		t.Errorf("expected 0 for empty path, got %f", got)
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath([]Point{{Lat: 28.7, Lng: 77.1}}); err == nil {
		t.Error("expected error for single-point path")
	}
	if err := ValidatePath([]Point{{Lat: 28.7, Lng: 77.1}, {Lat: 28.8, Lng: 77.2}}); err != nil {
		t.Errorf("unexpected error for valid path: %v", err)
	}
	if err := ValidatePath([]Point{{Lat: 91, Lng: 77.1}, {Lat: 28.8, Lng: 77.2}}); err == nil {
		t.Error("expected error for out-of-range latitude")
	}
}
