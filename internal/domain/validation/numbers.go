package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var trailingUnit = regexp.MustCompile(`[\p{L}"'″”\s]+$`)

// CleanNumber parses a numeric cell that may carry a unit suffix or a
// comma decimal: "4,52s" -> 4.52, `22"` -> 22, "3..9" -> 3.9.
func CleanNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = trailingUnit.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", ".")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: %q is not a number", ErrNotNumeric, raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrNotNumeric, raw)
	}
	return v, nil
}

// ParseJersey parses a jersey number cell. Decimal forms like "10.0" are
// accepted when integral.
func ParseJersey(raw string) (int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, raw)
	}
	return int(v), nil
}
