package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/adapters/http/api"
	"github.com/okian/combine/internal/adapters/repository"
	service "github.com/okian/combine/internal/app"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type caller struct {
	id, role string
	verified bool
}

var (
	organizer = caller{"org-1", "organizer", true}
	coach     = caller{"coach-1", "coach", true}
	viewer    = caller{"view-1", "viewer", true}
)

type harness struct {
	mux *http.ServeMux
}

func newHarness(opts ...api.Option) *harness {
	svc := service.New(repository.New(docstore.NewMemoryStore()))
	mux := http.NewServeMux()
	api.NewServer(svc, opts...).Register(context.Background(), mux)
	return &harness{mux: mux}
}

func (h *harness) do(c caller, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	h.sign(req, c)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func (h *harness) sign(req *http.Request, c caller) {
	if c.id == "" {
		return
	}
	req.Header.Set(api.HeaderUserID, c.id)
	req.Header.Set(api.HeaderUserRole, c.role)
	if c.verified {
		req.Header.Set(api.HeaderEmailVerified, "true")
	}
}

func decodeInto[T any](rec *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(rec.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func (h *harness) event() string {
	rec := h.do(organizer, http.MethodPost, "/leagues", map[string]any{"name": "Spring League"})
	So(rec.Code, ShouldEqual, http.StatusCreated)
	league := decodeInto[map[string]any](rec)
	rec = h.do(organizer, http.MethodPost, "/events", map[string]any{
		"league_id": league["id"], "name": "May Combine", "date": "2026-05-02",
	})
	So(rec.Code, ShouldEqual, http.StatusCreated)
	return decodeInto[map[string]any](rec)["id"].(string)
}

const roster = "first_name,last_name,jersey_number,age_group,40m_dash,catching\n" +
	"Ana,Diaz,7,U12,5.0,80\n" +
	"Ben,Okafor,9,U12,6.0,90\n" +
	"Q,Short,10,U12,,\n"

func TestHealthAndSchema(t *testing.T) {
	Convey("Given a server", t, func() {
		h := newHarness()

		Convey("When probing health", func() {
			rec := h.do(caller{}, http.MethodGet, "/healthz", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
			So(decodeInto[map[string]any](rec)["status"], ShouldEqual, "ok")
		})

		Convey("When asking for metrics through healthz", func() {
			rec := h.do(caller{}, http.MethodGet, "/healthz?format=metrics", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "combine_evaluation")
		})

		Convey("When reading the schema", func() {
			rec := h.do(caller{}, http.MethodGet, "/schema", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			schema := decodeInto[map[string]any](rec)
			So(schema["template"], ShouldEqual, "football")
			So(schema["drills"], ShouldHaveLength, 5)
		})

		Convey("When reading stats", func() {
			rec := h.do(caller{}, http.MethodGet, "/stats", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decodeInto[map[string]any](rec), ShouldContainKey, "started")
		})
	})
}

func TestAuthentication(t *testing.T) {
	Convey("Given a server", t, func() {
		h := newHarness()

		Convey("When no identity is sent", func() {
			rec := h.do(caller{}, http.MethodGet, "/leagues", nil)
			So(rec.Code, ShouldEqual, http.StatusForbidden)
			So(decodeInto[map[string]any](rec)["code"], ShouldEqual, "forbidden")
		})

		Convey("When the email is not verified", func() {
			rec := h.do(caller{"org-9", "organizer", false}, http.MethodPost, "/leagues", map[string]any{"name": "X League"})
			So(rec.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the body misses required fields", func() {
			rec := h.do(organizer, http.MethodPost, "/leagues", map[string]any{})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			body := decodeInto[map[string]any](rec)
			So(body["errors"], ShouldHaveLength, 1)
		})

		Convey("When the body is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/leagues", strings.NewReader("{"))
			h.sign(req, organizer)
			rec := httptest.NewRecorder()
			h.mux.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server allowing one request per caller", t, func() {
		h := newHarness(api.WithRateLimit(0.001, 1))

		Convey("When a caller sends two requests", func() {
			first := h.do(viewer, http.MethodGet, "/leagues", nil)
			second := h.do(viewer, http.MethodGet, "/leagues", nil)
			other := h.do(coach, http.MethodGet, "/leagues", nil)

			Convey("Then the second is refused with Retry-After", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(second.Header().Get("Retry-After"), ShouldNotBeEmpty)
				So(other.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestCombineFlow(t *testing.T) {
	Convey("Given an event", t, func() {
		h := newHarness()
		eventID := h.event()
		base := "/events/" + eventID

		Convey("When a CSV roster is uploaded as a dry run", func() {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			fw, _ := mw.CreateFormFile("file", "roster.csv")
			_, _ = fw.Write([]byte(roster))
			_ = mw.Close()
			req := httptest.NewRequest(http.MethodPost, base+"/players/upload?dry_run=true", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			h.sign(req, organizer)
			rec := httptest.NewRecorder()
			h.mux.ServeHTTP(rec, req)

			Convey("Then row errors are reported and nothing is stored", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				res := decodeInto[map[string]any](rec)
				So(res["valid"], ShouldEqual, 2)
				So(res["errors"], ShouldHaveLength, 1)
				list := h.do(viewer, http.MethodGet, base+"/players", nil)
				So(decodeInto[map[string][]any](list)["players"], ShouldBeEmpty)
			})
		})

		Convey("When JSON rows are uploaded and evaluated", func() {
			rec := h.do(organizer, http.MethodPost, base+"/players/upload", map[string]any{"rows": []map[string]any{
				{"first_name": "Ana", "last_name": "Diaz", "jersey_number": 7, "age_group": "U12", "40m_dash": 5.0},
				{"first_name": "Ben", "last_name": "Okafor", "jersey_number": 9, "age_group": "U12", "40m_dash": 6.0},
			}})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			ids := decodeInto[map[string]any](rec)["player_ids"].([]any)
			So(ids, ShouldHaveLength, 2)
			ben := ids[1].(string)

			sub := h.do(coach, http.MethodPost, base+"/evaluations", map[string]any{
				"player_id": ben, "drill_type": "vertical_jump", "value": 30,
			})
			So(sub.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the ranking reflects the snapshot", func() {
				rec := h.do(viewer, http.MethodGet, base+"/rankings?age_group=12U", nil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				ranked := decodeInto[[]map[string]any](rec)
				So(ranked, ShouldHaveLength, 2)
				So(ranked[0]["player_id"], ShouldEqual, ben)
				So(ranked[0]["composite_score"], ShouldEqual, 13.2)
			})

			Convey("Then partial weights are rejected", func() {
				rec := h.do(viewer, http.MethodGet, base+"/rankings?age_group=U12&weight_agility=1", nil)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then summaries and explain are served", func() {
				rec := h.do(viewer, http.MethodGet, base+"/players/"+ben+"/summaries", nil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decodeInto[map[string][]any](rec)["summaries"], ShouldHaveLength, 2)

				rec = h.do(viewer, http.MethodGet, base+"/rankings/explain?player_id="+ben, nil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decodeInto[map[string]any](rec)["rank"], ShouldEqual, 1)
			})

			Convey("Then a viewer cannot evaluate and bad values are refused", func() {
				rec := h.do(viewer, http.MethodPost, base+"/evaluations", map[string]any{
					"player_id": ben, "drill_type": "agility", "value": 50,
				})
				So(rec.Code, ShouldEqual, http.StatusForbidden)
				rec = h.do(coach, http.MethodPost, base+"/evaluations", map[string]any{
					"player_id": ben, "drill_type": "agility",
				})
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then reconcile is accepted and delete cascades", func() {
				rec := h.do(organizer, http.MethodPost, base+"/reconcile", nil)
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(decodeInto[map[string]any](rec)["scheduled"], ShouldEqual, 3)

				rec = h.do(organizer, http.MethodDelete, base, nil)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decodeInto[map[string]any](rec)["players"], ShouldEqual, 2)
				rec = h.do(viewer, http.MethodGet, base, nil)
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a player is created and edited", func() {
			rec := h.do(organizer, http.MethodPost, base+"/players", map[string]any{
				"name": "Cy Lee", "age_group": "u 10",
			})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			id := decodeInto[map[string]any](rec)["id"].(string)

			rec = h.do(organizer, http.MethodPatch, base+"/players/"+id, map[string]any{"position": "WR"})
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decodeInto[map[string]any](rec)["position"], ShouldEqual, "WR")

			dup := h.do(organizer, http.MethodPost, base+"/players", map[string]any{
				"first_name": "Cy", "last_name": "Lee", "age_group": "U10",
			})
			So(dup.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When the event template is patched", func() {
			rec := h.do(organizer, http.MethodPatch, base, map[string]any{"disabled_drills": []string{"throwing"}})
			So(rec.Code, ShouldEqual, http.StatusOK)
			rec = h.do(caller{}, http.MethodGet, "/schema?event_id="+eventID, nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

type slowStore struct{}

func (slowStore) Ping(ctx context.Context) error {
	<-ctx.Done()
	return apperr.Wrap(apperr.ErrTimeout, "ping", ctx.Err())
}

func TestHealthTimeout(t *testing.T) {
	Convey("Given a store that never answers", t, func() {
		hh := api.NewHealthHandler(slowStore{}, 10*time.Millisecond)
		rec := httptest.NewRecorder()
		hh.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

		Convey("Then health answers 504 with Retry-After", func() {
			So(rec.Code, ShouldEqual, http.StatusGatewayTimeout)
			So(rec.Header().Get("Retry-After"), ShouldEqual, "1")
		})
	})
}
