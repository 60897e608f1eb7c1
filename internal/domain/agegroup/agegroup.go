// Package agegroup canonicalises age-group labels used for grouping and
// deduplication.
package agegroup

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalid marks a label that does not canonicalise.
var ErrInvalid = errors.New("invalid age group")

// Ranges are the accepted hyphenated forms.
var Ranges = []string{"7-8", "9-10", "11-12", "13-14", "15-16", "17-18"}

const maxUnder = 99

var (
	underPrefix = regexp.MustCompile(`^U-?(\d{1,2})$`)
	underSuffix = regexp.MustCompile(`^(\d{1,2})-?U$`)
	rangeForm   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)
)

// Canonicalize maps raw to its canonical form: U<n> for "U12", "u 12" and
// "12U"; "<a>-<b>" for one of Ranges. Blank input returns "" and no error.
func Canonicalize(raw string) (string, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if s == "" {
		return "", nil
	}
	s = strings.NewReplacer("–", "-", "—", "-", "_", "-").Replace(s)

	if m := underPrefix.FindStringSubmatch(s); m != nil {
		return under(raw, m[1])
	}
	if m := underSuffix.FindStringSubmatch(s); m != nil {
		return under(raw, m[1])
	}
	if m := rangeForm.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		c := fmt.Sprintf("%d-%d", lo, hi)
		if slices.Contains(Ranges, c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
}

func under(raw, digits string) (string, error) {
	n, _ := strconv.Atoi(digits)
	if n < 1 || n > maxUnder {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return "U" + strconv.Itoa(n), nil
}

// Valid reports whether raw canonicalises to a non-empty label.
func Valid(raw string) bool {
	c, err := Canonicalize(raw)
	return err == nil && c != ""
}
