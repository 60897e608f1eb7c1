package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/combine/internal/app"
	"github.com/okian/combine/internal/domain/apperr"
)

// PlayersHandler handles roster requests.
type PlayersHandler struct {
	deps           Dependencies
	maxUploadBytes int64
}

type uploadRequest struct {
	Rows []map[string]any `json:"rows"`
	Text string           `json:"text"`
}

// HandleCreate handles POST /events/{event_id}/players.
func (h *PlayersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decode(w, r, "api.create_player", &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.deps.CreatePlayer(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"), stringify(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleUpdate handles PATCH /events/{event_id}/players/{player_id}.
func (h *PlayersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decode(w, r, "api.update_player", &body); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.deps.UpdatePlayer(r.Context(), principalFrom(r.Context()),
		r.PathValue("event_id"), r.PathValue("player_id"), stringify(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGet handles GET /events/{event_id}/players/{player_id}.
func (h *PlayersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetPlayer(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"), r.PathValue("player_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleList handles GET /events/{event_id}/players.
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.ListPlayers(r.Context(), principalFrom(r.Context()),
		r.PathValue("event_id"), r.URL.Query().Get("age_group"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

// HandleUpload handles POST /events/{event_id}/players/upload. The body is
// either a multipart form with a file field or JSON with rows or text.
func (h *PlayersHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_players"
	in, err := h.readUpload(w, r, op)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.DryRun, _ = strconv.ParseBool(r.URL.Query().Get("dry_run"))

	res, err := h.deps.UploadPlayers(r.Context(), principalFrom(r.Context()), r.PathValue("event_id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.DryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *PlayersHandler) readUpload(w http.ResponseWriter, r *http.Request, op string) (service.UploadInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	tooLarge := func(err error) error {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return apperr.New(apperr.ErrTooLarge, op, "upload exceeds %d bytes", h.maxUploadBytes)
		}
		return nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			if e := tooLarge(err); e != nil {
				return service.UploadInput{}, e
			}
			return service.UploadInput{}, apperr.Wrap(apperr.ErrValidation, op, err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			if text := r.FormValue("text"); text != "" {
				return service.UploadInput{Text: text}, nil
			}
			return service.UploadInput{}, apperr.Wrap(apperr.ErrValidation, op, ErrUploadForm)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return service.UploadInput{}, apperr.Wrap(apperr.ErrValidation, op, err)
		}
		return service.UploadInput{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			if e := tooLarge(err); e != nil {
				return service.UploadInput{}, e
			}
			return service.UploadInput{}, apperr.Wrap(apperr.ErrValidation, op, err)
		}
		return service.UploadInput{Filename: "upload.csv", ContentType: r.Header.Get("Content-Type"), Data: data}, nil
	}

	var req uploadRequest
	if err := decodeLimited(r, op, &req); err != nil {
		if e := tooLarge(err); e != nil {
			return service.UploadInput{}, e
		}
		return service.UploadInput{}, err
	}
	if len(req.Rows) == 0 && strings.TrimSpace(req.Text) == "" {
		return service.UploadInput{}, apperr.Wrap(apperr.ErrValidation, op, ErrUploadForm)
	}
	rows := make([]map[string]string, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = stringify(row)
	}
	return service.UploadInput{Rows: rows, Text: req.Text}, nil
}

// stringify renders JSON scalar values as the text a roster cell carries.
func stringify(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	return out
}
