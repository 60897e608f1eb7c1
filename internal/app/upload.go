package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/okian/combine/internal/adapters/archive"
	"github.com/okian/combine/internal/adapters/ingest"
	"github.com/okian/combine/internal/adapters/mq/queue"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/types"
	"github.com/okian/combine/internal/domain/validation"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// UploadInput is one bulk roster upload. Exactly one of Data, Text or
// Rows is used, in that order.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Text        string
	Rows        []map[string]string
	DryRun      bool
}

// UploadPlayers parses, validates and writes a roster. Invalid rows are
// reported and skipped; valid rows are written in chunks.
func (s *Service) UploadPlayers(ctx context.Context, p model.Principal, eventID string, in UploadInput) (*types.UploadResult, error) {
	const op = "service.upload_players"
	if err := requireOrganizer(op, p); err != nil {
		return nil, err
	}
	e, tpl, err := s.eventTemplate(ctx, op, eventID)
	if err != nil {
		return nil, err
	}

	uploadID := s.newID()
	ctx = logger.WithFields(ctx,
		logger.String("upload_id", uploadID),
		logger.String("event_id", eventID))

	headers, rows, format, err := tabulate(in)
	if err != nil {
		var se *ingest.StructuralError
		if errors.As(err, &se) {
			metrics.RecordUploadRejected("structure")
			return nil, &validation.FieldErrors{Op: op, Errors: []types.RowError{{Row: 0, Message: se.Msg}}}
		}
		return nil, err
	}
	if err := s.validator.CheckRowCount(len(rows)); err != nil {
		metrics.RecordUploadRejected("too_many_rows")
		return nil, err
	}

	res, err := s.validator.ValidateRows(ctx, eventID, tpl, headers, rows)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			metrics.RecordUploadRejected("columns")
		}
		return nil, err
	}

	out := &types.UploadResult{
		UploadID:      uploadID,
		DryRun:        in.DryRun,
		Valid:         len(res.ValidRows),
		Errors:        res.Errors,
		DetectedSport: res.DetectedSport,
		Confidence:    res.Confidence,
	}
	if out.Errors == nil {
		out.Errors = []types.RowError{}
	}
	if in.DryRun {
		return out, nil
	}

	now := s.now()
	players := make([]model.Player, len(res.ValidRows))
	for i, rec := range res.ValidRows {
		pl := rec.Player
		pl.EventID = eventID
		pl.CreatedAt, pl.UpdatedAt = now, now
		players[i] = pl
		out.PlayerIDs = append(out.PlayerIDs, pl.ID)
	}
	written, err := s.repo.CreatePlayers(ctx, eventID, players)
	out.Created = written
	if err != nil {
		s.logger.Error(ctx, "roster write stopped", logger.Int("written", written), logger.Error(err))
		return out, err
	}
	if err := s.recordDrills(ctx, e, p, res.ValidRows); err != nil {
		return out, err
	}

	if len(in.Data) > 0 {
		key := archive.Key(eventID, uploadID, ingest.Extension(format))
		url, err := s.archiver.Put(ctx, key, in.ContentType, in.Data)
		if err != nil {
			s.logger.Warn(ctx, "upload archive failed", logger.String("key", key), logger.Error(err))
			metrics.RecordErrorByComponent("archive", "put")
		}
		out.ArchiveURL = url
	}

	metrics.RecordUploadRows(len(res.ValidRows), len(res.Errors))
	s.logger.Info(ctx, "roster uploaded",
		logger.Int("created", out.Created),
		logger.Int("errors", len(out.Errors)),
		logger.String("sport", out.DetectedSport))
	return out, nil
}

// recordDrills turns drill values carried by roster rows into evaluations
// by the uploader and refreshes the affected summaries.
func (s *Service) recordDrills(ctx context.Context, e *model.Event, p model.Principal, recs []validation.PlayerRecord) error {
	tpl, err := s.template("service.record_drills", e.DrillTemplate)
	if err != nil {
		return err
	}
	now := s.now()
	var evals []model.Evaluation
	for _, rec := range recs {
		for _, key := range tpl.Keys() {
			v, ok := rec.Drills[key]
			if !ok || slices.Contains(e.DisabledDrills, key) {
				continue
			}
			unit, _ := tpl.UnitFor(key)
			evals = append(evals, model.Evaluation{
				ID:            s.newID(),
				EventID:       e.ID,
				PlayerID:      rec.Player.ID,
				DrillType:     key,
				Value:         v,
				Unit:          unit,
				EvaluatorID:   p.UserID,
				EvaluatorName: p.Name,
				EvaluatorRole: p.Role,
				Notes:         "roster import",
				CreatedAt:     now,
			})
		}
	}
	if len(evals) == 0 {
		return nil
	}
	if _, err := s.repo.AddEvaluations(ctx, e.ID, evals); err != nil {
		return err
	}
	s.upsertEvaluator(ctx, e.ID, p)

	for _, ev := range evals {
		s.refresh(ctx, queue.Job{EventID: e.ID, PlayerID: ev.PlayerID, Drill: ev.DrillType})
	}
	return nil
}

// tabulate turns the upload input into headers and data rows.
func tabulate(in UploadInput) ([]string, [][]string, string, error) {
	switch {
	case len(in.Data) > 0:
		t, err := ingest.Parse(in.Filename, in.ContentType, in.Data)
		if err != nil {
			return nil, nil, "", err
		}
		return t.Headers, t.Rows, t.Format, nil
	case strings.TrimSpace(in.Text) != "":
		t, err := ingest.ParseText(in.Text)
		if err != nil {
			return nil, nil, "", err
		}
		return t.Headers, t.Rows, t.Format, nil
	case len(in.Rows) > 0:
		headers, rows := rowsTable(in.Rows)
		return headers, rows, "", nil
	default:
		return nil, nil, "", &ingest.StructuralError{Msg: "upload is empty"}
	}
}

// rowsTable flattens JSON row objects into a header row and cells, keeping
// the first-seen column order.
func rowsTable(records []map[string]string) ([]string, [][]string) {
	var headers []string
	col := map[string]int{}
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			if _, ok := col[k]; !ok {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			col[k] = len(headers)
			headers = append(headers, k)
		}
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		cells := make([]string, len(headers))
		for k, v := range r {
			cells[col[k]] = v
		}
		rows[i] = cells
	}
	return headers, rows
}
