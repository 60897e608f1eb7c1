package validation

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gosimple/unidecode"

	"github.com/okian/combine/internal/domain/drills"
)

// Canonical non-drill column names.
const (
	ColFirstName       = "first_name"
	ColLastName        = "last_name"
	ColFullName        = "name"
	ColJerseyNumber    = "jersey_number"
	ColAgeGroup        = "age_group"
	ColExternalID      = "external_id"
	ColTeamName        = "team_name"
	ColPosition        = "position"
	ColNotes           = "notes"
	ColID              = "id"
	ColDeterministicID = "deterministic_id"
)

var headerAliases = map[string]string{
	"first":            ColFirstName,
	"firstname":        ColFirstName,
	"first_name":       ColFirstName,
	"given_name":       ColFirstName,
	"fname":            ColFirstName,
	"last":             ColLastName,
	"lastname":         ColLastName,
	"last_name":        ColLastName,
	"surname":          ColLastName,
	"family_name":      ColLastName,
	"lname":            ColLastName,
	"name":             ColFullName,
	"full_name":        ColFullName,
	"player_name":      ColFullName,
	"player":           ColFullName,
	"no":               ColJerseyNumber,
	"no.":              ColJerseyNumber,
	"#":                ColJerseyNumber,
	"num":              ColJerseyNumber,
	"number":           ColJerseyNumber,
	"jersey":           ColJerseyNumber,
	"jersey_no":        ColJerseyNumber,
	"jersey_#":         ColJerseyNumber,
	"jersey_number":    ColJerseyNumber,
	"player_number":    ColJerseyNumber,
	"age":              ColAgeGroup,
	"age_group":        ColAgeGroup,
	"agegroup":         ColAgeGroup,
	"division":         ColAgeGroup,
	"group":            ColAgeGroup,
	"external_id":      ColExternalID,
	"ext_id":           ColExternalID,
	"externalid":       ColExternalID,
	"registration_id":  ColExternalID,
	"team":             ColTeamName,
	"team_name":        ColTeamName,
	"pos":              ColPosition,
	"position":         ColPosition,
	"note":             ColNotes,
	"notes":            ColNotes,
	"comments":         ColNotes,
	"id":               ColID,
	"player_id":        ColID,
	"deterministic_id": ColDeterministicID,
	"hash":             ColDeterministicID,
}

var (
	headerSpaces = regexp.MustCompile(`[\s\-]+`)
	headerStrip  = regexp.MustCompile(`[^a-z0-9_#.]`)
)

const fuzzyMinLength = 5

func foldHeader(raw string) string {
	s := strings.ToLower(strings.TrimSpace(unidecode.Unidecode(raw)))
	s = headerSpaces.ReplaceAllString(s, "_")
	s = headerStrip.ReplaceAllString(s, "")
	return strings.Trim(s, "_")
}

// NormalizeHeader maps a raw column header to a canonical column or drill
// key of tpl. The second result is false for headers that should be dropped.
func NormalizeHeader(raw string, tpl *drills.Template) (string, bool) {
	h := foldHeader(raw)
	if h == "" {
		return "", false
	}
	if canon, ok := headerAliases[h]; ok {
		return canon, true
	}
	if trimmed := strings.TrimSuffix(h, "."); trimmed != h {
		if canon, ok := headerAliases[trimmed]; ok {
			return canon, true
		}
	}
	if tpl.Has(h) {
		return h, true
	}
	if key, ok := drillHeuristic(h, tpl); ok {
		return key, true
	}
	if len(h) >= fuzzyMinLength {
		return fuzzyHeader(h, tpl)
	}
	return "", false
}

func drillHeuristic(h string, tpl *drills.Template) (string, bool) {
	var key string
	switch {
	case strings.Contains(h, "40") && strings.Contains(h, "dash"):
		key = drills.Dash40m
	case strings.Contains(h, "vert"):
		key = drills.VerticalJump
	case strings.Contains(h, "catch"):
		key = drills.Catching
	case strings.Contains(h, "throw"):
		key = drills.Throwing
	case strings.Contains(h, "agil"), strings.Contains(h, "l_drill"):
		key = drills.Agility
	default:
		return "", false
	}
	return key, tpl.Has(key)
}

// fuzzyHeader accepts a single-edit typo of a canonical column or drill key.
func fuzzyHeader(h string, tpl *drills.Template) (string, bool) {
	candidates := append(tpl.Keys(),
		ColFirstName, ColLastName, ColJerseyNumber, ColAgeGroup,
		ColExternalID, ColTeamName, ColPosition)
	for _, c := range candidates {
		if levenshtein.ComputeDistance(h, c) <= 1 {
			return c, true
		}
	}
	return "", false
}

// NormalizeHeaders maps every header. Dropped headers become "". When two
// headers map to the same column the first one wins.
func NormalizeHeaders(raw []string, tpl *drills.Template) []string {
	out := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		canon, ok := NormalizeHeader(h, tpl)
		if !ok || taken[canon] {
			continue
		}
		taken[canon] = true
		out[i] = canon
	}
	return out
}
