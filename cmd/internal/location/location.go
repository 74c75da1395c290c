// Package location supplies the device position to the alert flow.
// The core never computes a position itself; it asks a Source.
package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnavailable is returned when no position is known.
var ErrUnavailable = errors.New("location unavailable")

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether p is finite and within coordinate range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) || math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func (p Point) String() string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

// Source returns the current position.
type Source interface {
	Current(ctx context.Context) (Point, error)
}

// Static always reports the same point.
type Static struct {
	P Point
}

// Current returns the fixed point.
func (s Static) Current(ctx context.Context) (Point, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, err
	}
	return s.P, nil
}

// Unavailable never has a position.
type Unavailable struct{}

// Current always returns ErrUnavailable.
func (Unavailable) Current(context.Context) (Point, error) {
	return Point{}, ErrUnavailable
}

// Parse reads "lat,lon".
func Parse(raw string) (Point, error) {
	lat, lon, ok := strings.Cut(strings.TrimSpace(raw), ",")
	if !ok {
		return Point{}, fmt.Errorf("location %q: want \"lat,lon\"", raw)
	}
	p := Point{}
	var err error
	if p.Latitude, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return Point{}, fmt.Errorf("location %q: latitude: %w", raw, err)
	}
	if p.Longitude, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return Point{}, fmt.Errorf("location %q: longitude: %w", raw, err)
	}
	if !p.Valid() {
		return Point{}, fmt.Errorf("location %q: out of range", raw)
	}
	return p, nil
}

// FromString returns a Static source for raw, or Unavailable when raw is blank.
func FromString(raw string) (Source, error) {
	if strings.TrimSpace(raw) == "" {
		return Unavailable{}, nil
	}
	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return Static{P: p}, nil
}
