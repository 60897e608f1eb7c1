// Package validation turns raw roster input into validated player records.
// Row failures are collected and returned; only structural problems abort.
package validation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/dedupe"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/types"
	"github.com/okian/combine/pkg/logger"
)

// DefaultMaxRows bounds a single upload.
const DefaultMaxRows = 5000

// Confidence levels of sport detection.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// PlayerLister loads the current roster of an event.
type PlayerLister interface {
	ListPlayers(ctx context.Context, eventID string) ([]model.Player, error)
}

// Result is the outcome of ValidateRows.
type Result struct {
	ValidRows     []PlayerRecord
	Errors        []types.RowError
	DetectedSport string
	Confidence    string
	TotalRows     int
}

// Validator validates bulk and single roster input for one event at a time.
type Validator struct {
	players PlayerLister
	catalog *drills.Catalog
	maxRows int
	log     logger.Logger
}

// New creates a Validator reading existing players from players.
func New(players PlayerLister, opts ...Option) *Validator {
	v := &Validator{
		players: players,
		catalog: drills.Builtin(),
		maxRows: DefaultMaxRows,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// MaxRows returns the configured upload row limit.
func (v *Validator) MaxRows() int { return v.maxRows }

// CheckRowCount rejects uploads over the row limit before any row work.
func (v *Validator) CheckRowCount(n int) error {
	const op = "validation.check_row_count"
	if n > v.maxRows {
		return apperr.Wrap(apperr.ErrTooLarge, op,
			fmt.Errorf("%w: upload has %d rows, the limit is %d", ErrTooManyRows, n, v.maxRows))
	}
	return nil
}

// ValidateRows normalises headers, validates every row against tpl and
// checks each row against the event roster and earlier rows.
func (v *Validator) ValidateRows(ctx context.Context, eventID string, tpl *drills.Template, headers []string, rows [][]string) (*Result, error) {
	const op = "validation.validate_rows"

	ctx, span := otel.Tracer("combine/validation").Start(ctx, "Validator.ValidateRows")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.Int("rows", len(rows)),
	)

	if err := v.CheckRowCount(len(rows)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	columns := NormalizeHeaders(headers, tpl)
	if !hasNameColumns(columns) {
		err := apperr.Wrap(apperr.ErrValidation, op,
			fmt.Errorf("%w: need first_name and last_name (or name)", ErrMissingColumns))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	existing, err := v.players.ListPlayers(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	identities := make([]dedupe.Identity, 0, len(existing))
	for _, p := range existing {
		identities = append(identities, p.Identity())
	}
	index := dedupe.NewIndex(dedupe.WithExisting(identities))

	sport, confidence := v.DetectSport(columns)
	res := &Result{DetectedSport: sport, Confidence: confidence}

	for i, cells := range rows {
		if blankRow(cells) {
			continue
		}
		res.TotalRows++
		rowNum := i + 1
		record := make(map[string]string, len(columns))
		for c, name := range columns {
			if name != "" && c < len(cells) {
				record[name] = cells[c]
			}
		}

		rec, rowErrs := ValidatePlayerRow(eventID, record, rowNum, tpl)
		if len(rowErrs) > 0 {
			res.Errors = append(res.Errors, rowErrs...)
			continue
		}
		if c := index.SeenAndRecord(ctx, rec.Player.Identity(), rowNum); c != nil {
			res.Errors = append(res.Errors, types.RowError{Row: rowNum, Message: c.Reason()})
			continue
		}
		res.ValidRows = append(res.ValidRows, rec)
	}

	span.SetAttributes(
		attribute.Int("valid_rows", len(res.ValidRows)),
		attribute.Int("row_errors", len(res.Errors)),
		attribute.String("detected_sport", sport),
	)
	v.log.Debug(ctx, "rows validated",
		logger.String("event_id", eventID),
		logger.Int("valid", len(res.ValidRows)),
		logger.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// ValidatePlayer validates a single create or edit. excludeID leaves the
// edited player out of the duplicate check.
func (v *Validator) ValidatePlayer(ctx context.Context, eventID string, tpl *drills.Template, fields map[string]string, excludeID string) (PlayerRecord, error) {
	const op = "validation.validate_player"

	record := make(map[string]string, len(fields))
	for k, val := range fields {
		if canon, ok := NormalizeHeader(k, tpl); ok {
			record[canon] = val
		}
	}
	rec, rowErrs := ValidatePlayerRow(eventID, record, 0, tpl)
	if len(rowErrs) > 0 {
		return rec, &FieldErrors{Op: op, Errors: rowErrs}
	}

	existing, err := v.players.ListPlayers(ctx, eventID)
	if err != nil {
		return rec, err
	}
	identities := make([]dedupe.Identity, 0, len(existing))
	for _, p := range existing {
		identities = append(identities, p.Identity())
	}
	index := dedupe.NewIndex(dedupe.WithExisting(identities), dedupe.WithExclude(excludeID))
	if c := index.SeenAndRecord(ctx, rec.Player.Identity(), 0); c != nil {
		return rec, apperr.New(apperr.ErrConflict, op, "%s", c.Reason())
	}
	return rec, nil
}

// DetectSport infers the sport from the drill columns present. Two or more
// known drills give high confidence, one gives medium.
func (v *Validator) DetectSport(columns []string) (string, string) {
	best, bestHits := drills.DefaultTemplate, 0
	for _, name := range v.catalog.Names() {
		tpl, err := v.catalog.Template(name)
		if err != nil {
			continue
		}
		hits := 0
		for _, c := range columns {
			if c != "" && tpl.Has(c) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = tpl.Sport, hits
		}
	}
	switch {
	case bestHits >= 2:
		return best, ConfidenceHigh
	case bestHits == 1:
		return best, ConfidenceMedium
	default:
		return drills.DefaultTemplate, ConfidenceLow
	}
}

// FieldErrors is a validation failure carrying per-field messages.
type FieldErrors struct {
	Op     string
	Errors []types.RowError
}

func (e *FieldErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		msgs[i] = re.Message
	}
	return e.Op + ": " + strings.Join(msgs, "; ")
}

// Unwrap marks FieldErrors as a validation error.
func (e *FieldErrors) Unwrap() error { return apperr.ErrValidation }

func hasNameColumns(columns []string) bool {
	var first, last, full bool
	for _, c := range columns {
		switch c {
		case ColFirstName:
			first = true
		case ColLastName:
			last = true
		case ColFullName:
			full = true
		}
	}
	return (first && last) || full
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
