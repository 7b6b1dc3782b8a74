package heuristics

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64
	Lng float64
}

// DefaultCoordinate is where markers without usable coordinates are placed
var DefaultCoordinate = Coordinate{Lat: 6.5244, Lng: 3.3792}

// ParseCoordinates reads a "lat,lng" location string
func ParseCoordinates(location string) (Coordinate, error) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return Coordinate{}, &ParseError{Input: location}
	}

	lat, err := ParseNumber(parts[0])
	if err != nil {
		return Coordinate{}, &ParseError{Input: location, Err: err}
	}
	lng, err := ParseNumber(parts[1])
	if err != nil {
		return Coordinate{}, &ParseError{Input: location, Err: err}
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, &ParseError{Input: location, Err: eris.Errorf("(%g, %g) is out of range", lat, lng)}
	}

	return Coordinate{Lat: lat, Lng: lng}, nil
}

// CoordinatesOrDefault parses location and falls back to def when it is not a
// coordinate pair. The second return reports whether parsing succeeded.
func CoordinatesOrDefault(location string, def Coordinate) (Coordinate, bool) {
	c, err := ParseCoordinates(location)
	if err != nil {
		return def, false
	}
	return c, true
}
