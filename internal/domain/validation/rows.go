package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/combine/internal/domain/agegroup"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/types"
)

var (
	personName = regexp.MustCompile(`^[\p{L} '\-.]+$`)
	documentID = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,128}$`)
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personName.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("docid", func(fl validator.FieldLevel) bool {
		return documentID.MatchString(fl.Field().String())
	})
	return v
}

// playerInput carries the field contracts of a roster row.
type playerInput struct {
	FirstName  string `json:"first_name" validate:"required,min=2,max=50,personname"`
	LastName   string `json:"last_name" validate:"required,min=2,max=50,personname"`
	Number     *int   `json:"jersey_number" validate:"omitempty,min=1,max=9999"`
	ExternalID string `json:"external_id" validate:"omitempty,max=100"`
	TeamName   string `json:"team_name" validate:"omitempty,max=100"`
	Position   string `json:"position" validate:"omitempty,max=100"`
	Notes      string `json:"notes" validate:"omitempty,max=500"`
	ID         string `json:"id" validate:"omitempty,docid"`
}

// PlayerRecord is a validated roster row.
type PlayerRecord struct {
	Row    int
	Player model.Player
	Drills map[string]float64
	// IDSource is "explicit", "deterministic" or "" when the caller assigns one.
	IDSource string
}

const (
	IDExplicit      = "explicit"
	IDDeterministic = "deterministic"
)

// DeterministicID derives a stable player id from the row identity: the
// jersey number when there is one, otherwise the canonical age group, the
// same pair the roster dedupe keys on.
func DeterministicID(eventID, first, last string, number *int, ageGroup string) string {
	n := "age:" + strings.ToUpper(strings.TrimSpace(ageGroup))
	if number != nil {
		n = strconv.Itoa(*number)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		eventID,
		strings.ToLower(strings.TrimSpace(first)),
		strings.ToLower(strings.TrimSpace(last)),
		n,
	}, "|")))
	return hex.EncodeToString(sum[:16])
}

// ValidatePlayerRow checks one row whose keys are canonical columns. row is
// the 1-based data row used in messages; eventID scopes id checks.
func ValidatePlayerRow(eventID string, row map[string]string, rowNum int, tpl *drills.Template) (PlayerRecord, []types.RowError) {
	var errs []types.RowError
	fail := func(field, format string, args ...any) {
		errs = append(errs, types.RowError{Row: rowNum, Field: field, Message: fmt.Sprintf(format, args...)})
	}
	cell := func(k string) string { return strings.TrimSpace(row[k]) }

	in := playerInput{
		FirstName:  collapse(cell(ColFirstName)),
		LastName:   collapse(cell(ColLastName)),
		ExternalID: cell(ColExternalID),
		TeamName:   cell(ColTeamName),
		Position:   cell(ColPosition),
		Notes:      cell(ColNotes),
		ID:         cell(ColID),
	}
	if in.FirstName == "" && in.LastName == "" {
		in.FirstName, in.LastName = splitFullName(cell(ColFullName))
	}

	jerseyOK := true
	if raw := cell(ColJerseyNumber); raw != "" {
		n, err := ParseJersey(raw)
		if err != nil {
			fail(ColJerseyNumber, "jersey_number must be an integer")
			jerseyOK = false
		} else {
			in.Number = &n
		}
	}

	if err := validate.Struct(in); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				field, msg := fieldMessage(fe)
				fail(field, "%s", msg)
			}
		} else {
			fail("", "%s", err.Error())
		}
	}

	age, err := agegroup.Canonicalize(cell(ColAgeGroup))
	if err != nil {
		fail(ColAgeGroup, "age_group must look like U12, 12U or one of %s", strings.Join(agegroup.Ranges, ", "))
	}

	values := make(map[string]float64)
	for _, d := range tpl.Drills {
		raw := cell(d.Key)
		if raw == "" {
			continue
		}
		v, err := CleanNumber(raw)
		if err != nil {
			fail(d.Key, "%s must be numeric", d.Key)
			continue
		}
		if !d.InRange(v) {
			fail(d.Key, "%s must be between %s and %s %s", d.Key, fmtNum(d.Min), fmtNum(d.Max), d.Unit)
			continue
		}
		values[d.Key] = v
	}

	rec := PlayerRecord{
		Row:    rowNum,
		Drills: values,
		Player: model.Player{
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Name:       strings.TrimSpace(in.FirstName + " " + in.LastName),
			AgeGroup:   age,
			ExternalID: in.ExternalID,
			TeamName:   in.TeamName,
			Position:   in.Position,
			Notes:      in.Notes,
		},
	}
	if jerseyOK {
		rec.Player.Number = in.Number
	}

	if len(errs) == 0 {
		id, source, msg := resolveID(eventID, in, rec.Player.AgeGroup, cell(ColDeterministicID))
		if msg != "" {
			fail(ColID, "%s", msg)
		} else {
			rec.Player.ID, rec.IDSource = id, source
		}
	}
	return rec, errs
}

// resolveID applies the id rules: an explicit id is used as is, a supplied
// deterministic id must match the row, and both together must agree.
func resolveID(eventID string, in playerInput, ageGroup, supplied string) (id, source, msg string) {
	derived := DeterministicID(eventID, in.FirstName, in.LastName, in.Number, ageGroup)
	switch {
	case in.ID != "" && supplied != "" && in.ID != supplied:
		return "", "", "id and deterministic_id are both set and differ"
	case supplied != "" && !strings.EqualFold(supplied, derived):
		return "", "", "deterministic_id does not match first_name, last_name and jersey_number (or age_group)"
	case in.ID != "":
		return in.ID, IDExplicit, ""
	default:
		return derived, IDDeterministic, ""
	}
}

func fieldMessage(fe validator.FieldError) (string, string) {
	field := jsonName(fe.StructField())
	switch fe.Tag() {
	case "required":
		return field, field + " is required"
	case "min", "max":
		if field == ColJerseyNumber {
			return field, "jersey_number must be between 1 and 9999"
		}
		if field == ColFirstName || field == ColLastName {
			return field, field + " must be between 2 and 50 characters"
		}
		return field, fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "personname":
		return field, field + " may only contain letters, spaces, hyphens, apostrophes and periods"
	case "docid":
		return field, "id may only contain letters, digits, '_' and '-'"
	}
	return field, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

func jsonName(structField string) string {
	switch structField {
	case "FirstName":
		return ColFirstName
	case "LastName":
		return ColLastName
	case "Number":
		return ColJerseyNumber
	case "ExternalID":
		return ColExternalID
	case "TeamName":
		return ColTeamName
	case "Position":
		return ColPosition
	case "Notes":
		return ColNotes
	case "ID":
		return ColID
	}
	return strings.ToLower(structField)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func splitFullName(full string) (string, string) {
	full = collapse(full)
	if full == "" {
		return "", ""
	}
	if first, last, ok := strings.Cut(full, ","); ok {
		return strings.TrimSpace(last), strings.TrimSpace(first)
	}
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return full, ""
	}
	return full[:i], full[i+1:]
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
