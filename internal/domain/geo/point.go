package geo

import "errors"

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrPathTooShort     = errors.New("path must contain at least 2 points")
)

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// ValidatePath checks that a path is long enough to track against and that
// every vertex is in range. A route with fewer than two vertices has no
// segments and cannot be followed, so the tracking session treats it as a
// fatal input error.
func ValidatePath(path []Point) error {
	if len(path) < 2 {
		return ErrPathTooShort
	}
	for _, p := range path {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
