package heuristics

import "fmt"

// DecodeError is returned when uploaded bytes cannot be interpreted as an image
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseError is returned when a location string is not a "lat,lng" pair
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("location %q is not a lat,lng pair", e.Input)
	}
	return fmt.Sprintf("location %q is not a lat,lng pair: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
