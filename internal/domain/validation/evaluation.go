package validation

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/types"
)

// EvaluationInput is the body of an evaluation submission.
type EvaluationInput struct {
	PlayerID  string   `json:"player_id" validate:"required,docid"`
	DrillType string   `json:"drill_type" validate:"required"`
	Value     *float64 `json:"value" validate:"required"`
	Notes     string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// ValidateEvaluation checks shape, drill membership and range. It returns
// the drill so callers can attach its unit.
func ValidateEvaluation(in EvaluationInput, tpl *drills.Template, disabled []string) (drills.Drill, error) {
	const op = "validation.validate_evaluation"

	in.DrillType = strings.TrimSpace(in.DrillType)
	if err := validate.Struct(in); err != nil {
		var rowErrs []types.RowError
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				rowErrs = append(rowErrs, types.RowError{Field: evalField(fe.StructField()), Message: evalMessage(fe)})
			}
		}
		if len(rowErrs) == 0 {
			return drills.Drill{}, apperr.Validation(op, "%s", err.Error())
		}
		return drills.Drill{}, &FieldErrors{Op: op, Errors: rowErrs}
	}

	d, ok := tpl.Lookup(in.DrillType)
	if !ok {
		return drills.Drill{}, apperr.Validation(op, "unknown drill_type %q", in.DrillType)
	}
	if slices.Contains(disabled, d.Key) {
		return drills.Drill{}, apperr.Validation(op, "drill %s is disabled for this event", d.Key)
	}
	if !d.InRange(*in.Value) {
		return drills.Drill{}, apperr.Validation(op, "%s must be between %s and %s %s",
			d.Key, fmtNum(d.Min), fmtNum(d.Max), d.Unit)
	}
	return d, nil
}

func evalField(structField string) string {
	switch structField {
	case "PlayerID":
		return "player_id"
	case "DrillType":
		return "drill_type"
	case "Value":
		return "value"
	case "Notes":
		return "notes"
	}
	return strings.ToLower(structField)
}

func evalMessage(fe validator.FieldError) string {
	field := evalField(fe.StructField())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "docid":
		return field + " is not a valid id"
	}
	return field + " is invalid"
}
