package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/combine/internal/combinesim"
)

// Default configuration constants.
const (
	defaultPlayers    = 40
	defaultEvaluators = 4
	defaultRounds     = 1
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultRPS        = 15
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players    = flag.Int("players", defaultPlayers, "Roster size")
		evaluators = flag.Int("evaluators", defaultEvaluators, "Number of evaluators scoring concurrently")
		rounds     = flag.Int("rounds", defaultRounds, "Scores per evaluator, player and drill")
		ageGroup   = flag.String("age-group", "U12", "Age group of generated players")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submissions in flight")
		rps        = flag.Float64("rps", defaultRPS, "Per-evaluator submission rate, 0 for unpaced")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for the generated roster and scores")
		logFile    = flag.String("log", "", "Log file (default: combine_sim_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		combinesim.ShowHelp()
		return
	}

	if err := combinesim.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	output := *outputFile
	if output == "" {
		output = "combine_sim_" + time.Now().Format("20060102_150405") + ".json"
	}

	cfg := &combinesim.Config{
		BaseURL:    *baseURL,
		Players:    *players,
		Evaluators: *evaluators,
		Rounds:     *rounds,
		AgeGroup:   *ageGroup,
		Workers:    *workers,
		RPS:        *rps,
		Timeout:    *timeout,
		OutputFile: output,
		Verbose:    *verbose,
	}

	if _, err := combinesim.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
