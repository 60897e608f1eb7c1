package combinesim

import "time"

// Config holds configuration for a simulated combine.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Roster size
	Evaluators int           // Concurrent evaluators, each with its own identity
	Rounds     int           // Scores each evaluator gives per player and drill
	AgeGroup   string        // Age group every generated player belongs to
	Workers    int           // Concurrent submissions in flight
	RPS        float64       // Per-evaluator submission rate; 0 disables pacing
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Where the generated roster and scores are written
	Verbose    bool          // Enable verbose logging
}

// Row is one generated roster line.
type Row struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Number    int    `json:"jersey_number"`
	AgeGroup  string `json:"age_group"`
}

// Score is one evaluation to submit.
type Score struct {
	Evaluator string  `json:"evaluator"`
	PlayerID  string  `json:"player_id"`
	Drill     string  `json:"drill_type"`
	Value     float64 `json:"value"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersGenerated   int
	PlayersCreated     int
	ScoresGenerated    int
	ScoresAccepted     int
	ScoresRejected     int
	ScoresThrottled    int
	SummariesVerified  int
	RankingsVerified   int
	ReuploadDuplicates int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

type league struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

type event struct {
	ID            string `json:"id"`
	DrillTemplate string `json:"drill_template"`
}

type drill struct {
	Key            string  `json:"key"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Direction      string  `json:"direction"`
	InversionBound float64 `json:"inversion_bound"`
	DefaultWeight  float64 `json:"default_weight"`
	Enabled        bool    `json:"enabled"`
}

type schema struct {
	Template string  `json:"template"`
	Drills   []drill `json:"drills"`
}

type rowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type uploadResult struct {
	Created   int        `json:"created"`
	Valid     int        `json:"valid"`
	Errors    []rowError `json:"errors"`
	PlayerIDs []string   `json:"player_ids"`
}

type player struct {
	ID     string             `json:"id"`
	Scores map[string]float64 `json:"scores"`
}

type summary struct {
	PlayerID   string    `json:"player_id"`
	DrillType  string    `json:"drill_type"`
	Count      int       `json:"count"`
	Average    float64   `json:"average"`
	FinalScore float64   `json:"final_score"`
	Values     []float64 `json:"values"`
}

type rankedPlayer struct {
	Rank           int                `json:"rank"`
	PlayerID       string             `json:"player_id"`
	CompositeScore float64            `json:"composite_score"`
	Scores         map[string]float64 `json:"scores"`
}
