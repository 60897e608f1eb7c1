package combinesim

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

var (
	firstNames = []string{
		"Ana", "Ben", "Chloe", "Dario", "Emeka", "Farah", "Gus", "Hana", "Ivo", "Jade",
		"Kofi", "Lena", "Mateo", "Nia", "Omar", "Priya", "Quinn", "Rosa", "Sami", "Tomas",
	}
	lastNames = []string{
		"Alvarez", "Brooks", "Chen", "Dubois", "Eriksen", "Fofana", "Garcia", "Haddad",
		"Ito", "Jensen", "Kowalski", "Lopez", "Mensah", "Novak", "Okafor", "Park",
	}
)

// generateRoster builds n players with unique jersey numbers so that no two
// rows collide on name and number.
func generateRoster(rng *rand.Rand, n int, ageGroup string) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			FirstName: firstNames[rng.IntN(len(firstNames))],
			LastName:  lastNames[rng.IntN(len(lastNames))],
			Number:    i + 1,
			AgeGroup:  ageGroup,
		}
	}
	return rows
}

// rosterCSV renders rows with a header line.
func rosterCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"first_name", "last_name", "jersey_number", "age_group"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.FirstName, r.LastName, strconv.Itoa(r.Number), r.AgeGroup}); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// generateScores gives every evaluator rounds scores for every player and
// enabled drill. Values stay inside the drill range and carry two decimals.
func generateScores(rng *rand.Rand, evaluators, playerIDs []string, drills []drill, rounds int) []Score {
	var out []Score
	for _, ev := range evaluators {
		for _, id := range playerIDs {
			for _, d := range drills {
				if !d.Enabled {
					continue
				}
				for range rounds {
					out = append(out, Score{
						Evaluator: ev,
						PlayerID:  id,
						Drill:     d.Key,
						Value:     drillValue(rng, d),
					})
				}
			}
		}
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// drillValue draws from the middle of the range so most players land in a
// realistic band while the extremes still appear.
func drillValue(rng *rand.Rand, d drill) float64 {
	span := d.Max - d.Min
	v := d.Min + span/2 + rng.NormFloat64()*span/6
	v = math.Min(d.Max, math.Max(d.Min, v))
	return math.Round(v*100) / 100
}
