package combinesim

import (
	"context"
	"math"
	"net/url"
	"strconv"
)

// weightParams renders the template's default weights as weight_<drill>
// query parameters so the ranking does not depend on server overrides.
func weightParams(s *schema) url.Values {
	q := url.Values{}
	for _, d := range s.Drills {
		q.Set("weight_"+d.Key, strconv.FormatFloat(d.DefaultWeight, 'f', -1, 64))
	}
	return q
}

// fetchRankings returns the ranking of ageGroup under the default weights.
func (c *client) fetchRankings(ctx context.Context, who identity, eventID, ageGroup string, s *schema) ([]rankedPlayer, error) {
	q := weightParams(s)
	q.Set("age_group", ageGroup)
	var out []rankedPlayer
	if err := c.get(ctx, who, "/events/"+url.PathEscape(eventID)+"/rankings?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// adjusted puts v on a higher-is-better scale.
func (d drill) adjusted(v float64) float64 {
	if d.Direction == "lower" {
		return math.Max(0, d.InversionBound-v)
	}
	return v
}

// expectedComposite is the weighted sum of adjusted drill scores, summed in
// template order and rounded to two decimals. Missing drills count as 0.
func expectedComposite(scores map[string]float64, s *schema) float64 {
	total := 0.0
	for _, d := range s.Drills {
		v, ok := scores[d.Key]
		if !ok {
			continue
		}
		total += d.DefaultWeight * d.adjusted(v)
	}
	return math.Round(total*100) / 100
}

// mean is the arithmetic mean of values, 0 for none.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
