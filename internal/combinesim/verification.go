package combinesim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/combine/pkg/logger"
)

// ErrMismatch marks a service answer that disagrees with local expectations.
var ErrMismatch = errors.New("verification mismatch")

// expected groups submitted values by player then drill.
type expected map[string]map[string][]float64

func expectScores(scores []Score) expected {
	out := expected{}
	for _, s := range scores {
		if out[s.PlayerID] == nil {
			out[s.PlayerID] = map[string][]float64{}
		}
		out[s.PlayerID][s.Drill] = append(out[s.PlayerID][s.Drill], s.Value)
	}
	return out
}

// verifySummaries checks, for every player, that each drill summary counts
// the submitted values, averages to their mean, and that the player's score
// snapshot equals the summary's final score.
func verifySummaries(ctx context.Context, c *client, who identity, eventID string, want expected, workers int) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	verified := make(chan int, len(want))

	for playerID, drills := range want {
		g.Go(func() error {
			sums, err := c.summaries(ctx, who, eventID, playerID)
			if err != nil {
				return err
			}
			p, err := c.player(ctx, who, eventID, playerID)
			if err != nil {
				return err
			}
			byDrill := make(map[string]summary, len(sums))
			for _, s := range sums {
				byDrill[s.DrillType] = s
			}
			for drill, values := range drills {
				s, ok := byDrill[drill]
				if !ok {
					return fmt.Errorf("%w: player %s has no %s summary", ErrMismatch, playerID, drill)
				}
				if s.Count != len(values) {
					return fmt.Errorf("%w: player %s %s count %d, submitted %d",
						ErrMismatch, playerID, drill, s.Count, len(values))
				}
				if m := mean(values); math.Abs(s.Average-m) > scoreTolerance {
					return fmt.Errorf("%w: player %s %s average %.6f, mean %.6f",
						ErrMismatch, playerID, drill, s.Average, m)
				}
				if snap, ok := p.Scores[drill]; !ok || snap != s.FinalScore {
					return fmt.Errorf("%w: player %s %s snapshot %.6f, final score %.6f",
						ErrMismatch, playerID, drill, snap, s.FinalScore)
				}
			}
			verified <- len(drills)
			return nil
		})
	}
	err := g.Wait()
	close(verified)
	n := 0
	for v := range verified {
		n += v
	}
	return n, err
}

// verifyRanking checks that ranks run 1..n, composites never increase and
// every composite matches the player's score snapshot under s's weights.
func verifyRanking(ranked []rankedPlayer, players int, s *schema) error {
	if len(ranked) != players {
		return fmt.Errorf("%w: ranking has %d players, roster has %d", ErrMismatch, len(ranked), players)
	}
	for i, rp := range ranked {
		if rp.Rank != i+1 {
			return fmt.Errorf("%w: position %d carries rank %d", ErrMismatch, i+1, rp.Rank)
		}
		if i > 0 && rp.CompositeScore > ranked[i-1].CompositeScore {
			return fmt.Errorf("%w: rank %d scores %.2f above rank %d at %.2f",
				ErrMismatch, rp.Rank, rp.CompositeScore, ranked[i-1].Rank, ranked[i-1].CompositeScore)
		}
		if want := expectedComposite(rp.Scores, s); math.Abs(want-rp.CompositeScore) > 0.005 {
			return fmt.Errorf("%w: player %s composite %.2f, expected %.2f",
				ErrMismatch, rp.PlayerID, rp.CompositeScore, want)
		}
	}
	return nil
}

// verifyReupload checks that a second upload of the same roster creates
// nothing and reports every row as an existing duplicate.
func verifyReupload(res *uploadResult, rows int) error {
	if res.Created != 0 || res.Valid != 0 {
		return fmt.Errorf("%w: re-upload created %d players", ErrMismatch, res.Created)
	}
	if len(res.Errors) != rows {
		return fmt.Errorf("%w: re-upload reported %d errors for %d rows", ErrMismatch, len(res.Errors), rows)
	}
	for _, e := range res.Errors {
		if !strings.Contains(e.Message, "already exists") {
			return fmt.Errorf("%w: row %d rejected for %q", ErrMismatch, e.Row, e.Message)
		}
	}
	return nil
}

// displayTop logs the head of the ranking.
func displayTop(ctx context.Context, ranked []rankedPlayer, n int) {
	n = min(n, len(ranked))
	for _, rp := range ranked[:n] {
		logger.Get().Info(ctx, "ranked",
			logger.Int("rank", rp.Rank),
			logger.String("player_id", rp.PlayerID),
			logger.Float64("composite", rp.CompositeScore))
	}
}
