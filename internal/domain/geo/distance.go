// Package geo contains pure geographic computation helpers used by the
// scoring engine and the live tracking session.
package geo

import "math"

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance in meters between two
// points specified in decimal degrees, using the haversine formula.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceKm is DistanceMeters scaled to kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceMeters(lat1, lng1, lat2, lng2) / 1000.0
}

// NearestVertexMeters scans every vertex of path and returns the index of the
// closest one and the distance to it in meters. The scan is O(n) over the
// polyline vertices; routing providers return dense polylines so vertex
// proximity is an adequate approximation of distance-to-path.
func NearestVertexMeters(lat, lng float64, path []Point) (int, float64) {
	closestIdx := -1
	closest := math.Inf(1)
	for i, p := range path {
		d := DistanceMeters(lat, lng, p.Lat, p.Lng)
		if d < closest {
			closest = d
			closestIdx = i
		}
	}
	return closestIdx, closest
}

// RemainingDistanceMeters estimates the distance left to travel along path
// from the current position: it snaps the position to the nearest vertex and
// sums the consecutive vertex-to-vertex distances from there to the end of
// the path. Returns 0 when the nearest vertex is the final one or the path
// is empty.
func RemainingDistanceMeters(lat, lng float64, path []Point) float64 {
	closestIdx, _ := NearestVertexMeters(lat, lng, path)
	if closestIdx < 0 {
		return 0
	}

	var remaining float64
	for i := closestIdx; i < len(path)-1; i++ {
		remaining += DistanceMeters(path[i].Lat, path[i].Lng, path[i+1].Lat, path[i+1].Lng)
	}
	return remaining
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
