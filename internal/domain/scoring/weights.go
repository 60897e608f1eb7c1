// Package scoring computes direction-aware composite scores and ranks the
// players of an age group.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/drills"
)

// WeightParamPrefix prefixes drill keys in query parameters.
const WeightParamPrefix = "weight_"

// Weights maps drill key to weight.
type Weights map[string]float64

// Validate checks that w covers every drill of tpl, each weight is in
// [0, 1] and the weights sum to 1 within drills.WeightTolerance.
func (w Weights) Validate(tpl *drills.Template) error {
	const op = "scoring.validate_weights"

	for k := range w {
		if !tpl.Has(k) {
			return apperr.Validation(op, "unknown drill in weights: %s", k)
		}
	}
	sum := 0.0
	for _, key := range tpl.Keys() {
		v, ok := w[key]
		if !ok {
			return apperr.Validation(op, "weights must include all drills or none; missing %s", key)
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return apperr.Validation(op, "weight for %s must be between 0 and 1", key)
		}
		sum += v
	}
	if math.Abs(sum-1) > drills.WeightTolerance {
		return apperr.Validation(op, "weights must sum to 1.0, got %s", strconv.FormatFloat(sum, 'f', -1, 64))
	}
	return nil
}

// Clone returns a copy of w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// String renders w in key order.
func (w Weights) String() string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, w[k])
	}
	return strings.Join(parts, ",")
}

// ParseWeights reads weight_<drill> parameters. It returns nil when none
// are present so callers fall back to defaults; partial sets are rejected.
func ParseWeights(params map[string]string, tpl *drills.Template) (Weights, error) {
	const op = "scoring.parse_weights"

	w := Weights{}
	for k, raw := range params {
		key, ok := strings.CutPrefix(k, WeightParamPrefix)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperr.Validation(op, "%s must be a number", k)
		}
		w[key] = v
	}
	if len(w) == 0 {
		return nil, nil
	}
	if err := w.Validate(tpl); err != nil {
		return nil, err
	}
	return w, nil
}
