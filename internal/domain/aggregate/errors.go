package aggregate

import "errors"

// ErrNoEvaluations is returned by RecomputeStrict when a triple has no
// evaluations left to summarise.
var ErrNoEvaluations = errors.New("no evaluations")
