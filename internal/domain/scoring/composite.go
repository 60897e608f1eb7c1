package scoring

import (
	"math"

	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/types"
)

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Composite is Σ weight × adjusted value over the drills of tpl, rounded
// to two decimals. Missing drills contribute 0.
func Composite(scores map[string]float64, w Weights, tpl *drills.Template) float64 {
	total := 0.0
	for _, d := range tpl.Drills {
		v, ok := scores[d.Key]
		if !ok {
			continue
		}
		total += w[d.Key] * d.Adjusted(v)
	}
	return Round2(total)
}

// Contributions breaks Composite down per drill in template order.
func Contributions(scores map[string]float64, w Weights, tpl *drills.Template) []types.Contribution {
	out := make([]types.Contribution, 0, len(tpl.Drills))
	for _, d := range tpl.Drills {
		c := types.Contribution{Drill: d.Key, Weight: w[d.Key]}
		if v, ok := scores[d.Key]; ok {
			raw := v
			c.Raw = &raw
			c.Adjusted = d.Adjusted(v)
			c.Points = Round2(c.Weight * c.Adjusted)
		}
		out = append(out, c)
	}
	return out
}
