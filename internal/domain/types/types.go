// Package types contains read shapes returned by the service.
package types

// RankedPlayer is one entry of an age-group ranking.
type RankedPlayer struct {
	Rank           int                `json:"rank"`
	PlayerID       string             `json:"player_id"`
	Name           string             `json:"name"`
	Number         *int               `json:"number,omitempty"`
	AgeGroup       string             `json:"age_group"`
	CompositeScore float64            `json:"composite_score"`
	Scores         map[string]float64 `json:"scores"`
}

// Contribution is one drill's share of a composite score.
type Contribution struct {
	Drill    string   `json:"drill"`
	Raw      *float64 `json:"raw"`
	Adjusted float64  `json:"adjusted"`
	Weight   float64  `json:"weight"`
	Points   float64  `json:"points"`
}

// Explanation breaks a composite score down by drill.
type Explanation struct {
	PlayerID       string         `json:"player_id"`
	AgeGroup       string         `json:"age_group"`
	CompositeScore float64        `json:"composite_score"`
	Rank           int            `json:"rank,omitempty"`
	Contributions  []Contribution `json:"contributions"`
}

// RowError is a per-row rejection from bulk validation.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// UploadResult reports the outcome of a bulk upload.
type UploadResult struct {
	UploadID      string     `json:"upload_id"`
	DryRun        bool       `json:"dry_run"`
	Created       int        `json:"created"`
	Valid         int        `json:"valid"`
	Errors        []RowError `json:"errors"`
	DetectedSport string     `json:"detected_sport"`
	Confidence    string     `json:"confidence"`
	ArchiveURL    string     `json:"archive_url,omitempty"`
	PlayerIDs     []string   `json:"player_ids,omitempty"`
}

// DrillSchema describes one drill to clients.
type DrillSchema struct {
	Key            string  `json:"key"`
	Label          string  `json:"label"`
	Unit           string  `json:"unit"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Direction      string  `json:"direction"`
	InversionBound float64 `json:"inversion_bound,omitempty"`
	DefaultWeight  float64 `json:"default_weight"`
	Enabled        bool    `json:"enabled"`
}

// Schema is the drill vocabulary and default weights for a template.
type Schema struct {
	Template       string             `json:"template"`
	Sport          string             `json:"sport"`
	Drills         []DrillSchema      `json:"drills"`
	DefaultWeights map[string]float64 `json:"default_weights"`
	AgeGroupRanges []string           `json:"age_group_ranges"`
}
