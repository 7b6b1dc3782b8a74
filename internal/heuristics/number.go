package heuristics

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotANumber is returned by ParseNumber for anything other than a finite
// decimal number
var ErrNotANumber = eris.New("not a finite decimal number")

// ParseNumber parses a decimal float. NaN, infinities and hex floats are
// rejected since they cannot be stored or encoded as JSON.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	digits := strings.ToLower(strings.TrimLeft(s, "+-"))
	if strings.HasPrefix(digits, "0x") {
		return 0, ErrNotANumber
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}
