package combinesim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/combine/pkg/logger"
)

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		logFile = "combine_sim_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, outputFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWithFormat("text", io.MultiWriter(os.Stdout, file)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Combine Simulator
=================

Drives a running combine service through a full event: creates a league and
an event, uploads a generated roster, submits drill scores from several
evaluators concurrently, then checks summaries, rankings and duplicate
detection against values computed locally.

Usage:
  go run ./cmd/combine-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -players int
        Roster size (default 40)
  -evaluators int
        Number of evaluators scoring concurrently (default 4)
  -rounds int
        Scores per evaluator, player and drill (default 1)
  -age-group string
        Age group of generated players (default "U12")
  -workers int
        Concurrent submissions in flight (default CPU cores * 2)
  -rps float
        Per-evaluator submission rate, 0 for unpaced (default 15)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the generated roster and scores (default: combine_sim_TIMESTAMP.json)
  -log string
        Log file (default: combine_sim_TIMESTAMP.log)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  go run ./cmd/combine-sim -players 200 -evaluators 8
  go run ./cmd/combine-sim -url http://localhost:8080 -rps 0 -verbose
`)
}
