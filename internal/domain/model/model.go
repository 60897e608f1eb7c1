// Package model contains the persisted entities passed between layers.
// JSON tags are the document field names.
package model

import (
	"time"

	"github.com/okian/combine/internal/domain/dedupe"
)

// Roles a principal may carry.
const (
	RoleOrganizer = "organizer"
	RoleCoach     = "coach"
	RoleEvaluator = "evaluator"
	RoleViewer    = "viewer"
)

// Principal is the authenticated caller supplied by the identity layer.
type Principal struct {
	UserID        string
	Role          string
	Email         string
	Name          string
	EmailVerified bool
}

// CanWrite reports whether p may perform any write.
func (p Principal) CanWrite() bool {
	return p.UserID != "" && p.EmailVerified && p.Role != RoleViewer
}

// CanEvaluate reports whether p may submit drill evaluations.
func (p Principal) CanEvaluate() bool {
	switch p.Role {
	case RoleOrganizer, RoleCoach, RoleEvaluator:
		return p.CanWrite()
	}
	return false
}

// CanOrganize reports whether p may manage leagues, events and rosters.
func (p Principal) CanOrganize() bool {
	return p.Role == RoleOrganizer && p.CanWrite()
}

// UserProfile is stored at users/{id}.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	Name          string    `json:"name,omitempty"`
	Role          string    `json:"role,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// League groups events.
type League struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership is stored at leagues/{league}/members/{user}.
type Membership struct {
	LeagueID string    `json:"league_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Event is a single combine session.
type Event struct {
	ID              string    `json:"id"`
	LeagueID        string    `json:"league_id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Date            string    `json:"date,omitempty"`
	Location        string    `json:"location,omitempty"`
	DrillTemplate   string    `json:"drill_template"`
	LiveEntryActive bool      `json:"live_entry_active"`
	DisabledDrills  []string  `json:"disabled_drills,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventRef is the league-side index entry for an event.
type EventRef struct {
	EventID  string `json:"event_id"`
	LeagueID string `json:"league_id"`
	Name     string `json:"name"`
	Date     string `json:"date,omitempty"`
}

// Player belongs to one event. Scores is the snapshot of final scores per
// drill and is written only by the aggregator.
type Player struct {
	ID         string             `json:"id"`
	EventID    string             `json:"event_id"`
	FirstName  string             `json:"first_name"`
	LastName   string             `json:"last_name"`
	Name       string             `json:"name"`
	Number     *int               `json:"number,omitempty"`
	AgeGroup   string             `json:"age_group,omitempty"`
	Position   string             `json:"position,omitempty"`
	TeamName   string             `json:"team_name,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	ExternalID string             `json:"external_id,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Identity returns the fields used for roster deduplication.
func (p Player) Identity() dedupe.Identity {
	return dedupe.Identity{
		PlayerID:   p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Number:     p.Number,
		AgeGroup:   p.AgeGroup,
		ExternalID: p.ExternalID,
	}
}

// Score returns the snapshot value for drill.
func (p Player) Score(drill string) (float64, bool) {
	v, ok := p.Scores[drill]
	return v, ok
}

// Evaluation is one evaluator's measurement of one drill.
type Evaluation struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	PlayerID      string    `json:"player_id"`
	DrillType     string    `json:"drill_type"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	EvaluatorID   string    `json:"evaluator_id"`
	EvaluatorName string    `json:"evaluator_name,omitempty"`
	EvaluatorRole string    `json:"evaluator_role,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summary is the reduction of all evaluations of one (player, drill).
type Summary struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	PlayerID     string    `json:"player_id"`
	DrillType    string    `json:"drill_type"`
	Count        int       `json:"count"`
	Average      float64   `json:"average"`
	Median       float64   `json:"median"`
	Variance     float64   `json:"variance"`
	FinalScore   float64   `json:"final_score"`
	Values       []float64 `json:"values"`
	EvaluatorIDs []string  `json:"evaluator_ids"`
	LastUpdated  time.Time `json:"last_updated"`
}

// SummaryID is the deterministic summary document id.
func SummaryID(playerID, drill string) string {
	return playerID + "_" + drill
}

// Evaluator is a roster entry kept per event.
type Evaluator struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
