package combinesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/combine/pkg/logger"
)

// Settling configuration for verification after reconcile.
const (
	settleInterval = 200 * time.Millisecond
	settleTimeout  = 30 * time.Second
)

// Run executes one simulated combine against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting combine simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("evaluators", cfg.Evaluators),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rps", cfg.RPS))

	var throttled atomic.Int64
	c := newClient(cfg.BaseURL, cfg.Timeout, func() { throttled.Add(1) })

	// Step 1: Check service health
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: League, event and evaluators
	organizer := identity{ID: "sim-" + uuid.NewString(), Role: "organizer", Name: "Sim Organizer"}
	lg, err := c.createLeague(ctx, organizer, "Simulated League "+stats.StartTime.Format("20060102-150405"))
	if err != nil {
		return stats, fmt.Errorf("create league: %w", err)
	}
	ev, err := c.createEvent(ctx, organizer, lg.ID, "Simulated Combine", stats.StartTime.Format(time.DateOnly))
	if err != nil {
		return stats, fmt.Errorf("create event: %w", err)
	}
	evaluators := make([]identity, cfg.Evaluators)
	for i := range evaluators {
		evaluators[i] = identity{ID: "sim-" + uuid.NewString(), Role: "evaluator", Name: fmt.Sprintf("Evaluator %d", i+1)}
		if err := c.joinLeague(ctx, evaluators[i], lg.ID); err != nil {
			return stats, fmt.Errorf("join league: %w", err)
		}
	}
	sch, err := c.schema(ctx, ev.ID)
	if err != nil {
		return stats, fmt.Errorf("fetch schema: %w", err)
	}
	log.Info(ctx, "event ready",
		logger.String("league_id", lg.ID),
		logger.String("event_id", ev.ID),
		logger.String("template", sch.Template))

	// Step 3: Upload the roster
	rng := rand.New(rand.NewPCG(uint64(stats.StartTime.UnixNano()), uint64(cfg.Players)))
	rows := generateRoster(rng, cfg.Players, cfg.AgeGroup)
	stats.PlayersGenerated = len(rows)
	roster, err := rosterCSV(rows)
	if err != nil {
		return stats, fmt.Errorf("render roster: %w", err)
	}
	up, err := c.upload(ctx, organizer, ev.ID, roster)
	if err != nil {
		return stats, fmt.Errorf("upload roster: %w", err)
	}
	stats.PlayersCreated = up.Created
	if up.Created != len(rows) {
		return stats, fmt.Errorf("%w: upload created %d of %d players (errors: %v)",
			ErrMismatch, up.Created, len(rows), up.Errors)
	}

	// Step 4: Submit scores concurrently
	ids := make([]string, len(evaluators))
	for i, e := range evaluators {
		ids[i] = e.ID
	}
	scores := generateScores(rng, ids, up.PlayerIDs, sch.Drills, cfg.Rounds)
	stats.ScoresGenerated = len(scores)
	accepted, rejected := submitScores(ctx, c, cfg, ev.ID, evaluators, scores)
	stats.ScoresAccepted, stats.ScoresRejected = accepted, rejected
	if rejected > 0 {
		return stats, fmt.Errorf("%w: %d of %d scores rejected", ErrMismatch, rejected, len(scores))
	}

	// Step 5: Reconcile, then verify once the queue settles
	scheduled, err := c.reconcile(ctx, organizer, ev.ID)
	if err != nil {
		return stats, fmt.Errorf("trigger reconcile: %w", err)
	}
	log.Info(ctx, "reconcile scheduled", logger.Int("jobs", scheduled))

	want := expectScores(scores)
	err = settle(ctx, func() error {
		n, err := verifySummaries(ctx, c, organizer, ev.ID, want, cfg.Workers)
		stats.SummariesVerified = n
		return err
	})
	if err != nil {
		return stats, fmt.Errorf("summary verification failed: %w", err)
	}

	// Step 6: Rankings
	ranked, err := c.fetchRankings(ctx, organizer, ev.ID, cfg.AgeGroup, sch)
	if err != nil {
		return stats, fmt.Errorf("fetch rankings: %w", err)
	}
	if err := verifyRanking(ranked, len(rows), sch); err != nil {
		return stats, fmt.Errorf("ranking verification failed: %w", err)
	}
	stats.RankingsVerified = len(ranked)
	if cfg.Verbose {
		displayTop(ctx, ranked, 10)
	}

	// Step 7: Re-upload must only report duplicates
	again, err := c.upload(ctx, organizer, ev.ID, roster)
	if err != nil {
		return stats, fmt.Errorf("re-upload roster: %w", err)
	}
	if err := verifyReupload(again, len(rows)); err != nil {
		return stats, fmt.Errorf("duplicate verification failed: %w", err)
	}
	stats.ReuploadDuplicates = len(again.Errors)

	// Step 8: Save the generated data
	if cfg.OutputFile != "" {
		if err := saveRun(ctx, cfg.OutputFile, rows, scores); err != nil {
			log.Warn(ctx, "failed to save generated data", logger.Error(err))
		}
	}

	stats.ScoresThrottled = int(throttled.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// submitScores posts scores with at most cfg.Workers in flight, pacing each
// evaluator to cfg.RPS. It returns accepted and rejected counts.
func submitScores(ctx context.Context, c *client, cfg *Config, eventID string, evaluators []identity, scores []Score) (int, int) {
	byID := make(map[string]identity, len(evaluators))
	limiters := make(map[string]*rate.Limiter, len(evaluators))
	for _, e := range evaluators {
		byID[e.ID] = e
		limit := rate.Inf
		if cfg.RPS > 0 {
			limit = rate.Limit(cfg.RPS)
		}
		limiters[e.ID] = rate.NewLimiter(limit, 1)
	}

	var accepted, rejected atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for i, s := range scores {
		g.Go(func() error {
			if err := limiters[s.Evaluator].Wait(gctx); err != nil {
				return err
			}
			if err := c.submit(gctx, byID[s.Evaluator], eventID, s); err != nil {
				rejected.Add(1)
				logger.Get().Warn(gctx, "score rejected",
					logger.String("player_id", s.PlayerID),
					logger.String("drill", s.Drill),
					logger.Error(err))
				return nil
			}
			if n := accepted.Add(1); cfg.Verbose && n%100 == 0 {
				logger.Get().Debug(gctx, "progress", logger.Int("submitted", i+1), logger.Int("accepted", int(n)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Get().Warn(ctx, "submission stopped early", logger.Error(err))
	}
	return int(accepted.Load()), int(rejected.Load())
}

// settle retries check until it passes or settleTimeout elapses. Only
// mismatches are retried; transport errors end the wait.
func settle(ctx context.Context, check func() error) error {
	deadline := time.Now().Add(settleTimeout)
	for {
		err := check()
		if err == nil || !errors.Is(err, ErrMismatch) || time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settleInterval):
		}
	}
}

// saveRun writes the generated roster and scores as JSON.
func saveRun(ctx context.Context, filename string, rows []Row, scores []Score) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(map[string]any{"roster": rows, "scores": scores}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(filename, data, outputFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "generated data saved", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, scoresPerSecond float64
	if stats.ScoresGenerated > 0 {
		acceptRate = float64(stats.ScoresAccepted) / float64(stats.ScoresGenerated) * percentageMultiplier
	}
	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresAccepted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersGenerated", stats.PlayersGenerated),
		logger.Int("playersCreated", stats.PlayersCreated),
		logger.Int("scoresGenerated", stats.ScoresGenerated),
		logger.Int("scoresAccepted", stats.ScoresAccepted),
		logger.Int("scoresRejected", stats.ScoresRejected),
		logger.Int("throttled", stats.ScoresThrottled),
		logger.Int("summariesVerified", stats.SummariesVerified),
		logger.Int("rankingsVerified", stats.RankingsVerified),
		logger.Int("reuploadDuplicates", stats.ReuploadDuplicates),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
