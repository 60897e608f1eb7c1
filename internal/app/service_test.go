package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/adapters/repository"
	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/internal/domain/validation"
	"github.com/okian/combine/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var (
	organizer = model.Principal{UserID: "org-1", Role: model.RoleOrganizer, Name: "Olga Organizer", EmailVerified: true}
	coach     = model.Principal{UserID: "coach-1", Role: model.RoleCoach, Name: "Carl Coach", EmailVerified: true}
	viewer    = model.Principal{UserID: "view-1", Role: model.RoleViewer, EmailVerified: true}
)

func newTestService(opts ...Option) (*Service, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	var seq atomic.Int64
	base := []Option{
		WithClock(func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) }),
	}
	return New(repository.New(store), append(base, opts...)...), store
}

func fv(v float64) *float64 { return &v }

func setupEvent(ctx context.Context, s *Service) *model.Event {
	l, err := s.CreateLeague(ctx, organizer, "Spring Youth League")
	So(err, ShouldBeNil)
	e, err := s.CreateEvent(ctx, organizer, EventInput{LeagueID: l.ID, Name: "May Combine", Date: "2026-05-02"})
	So(err, ShouldBeNil)
	return e
}

const roster = "First Name,Last Name,Jersey,Age Group,40m Dash,Vertical Jump\n" +
	"Ana,Diaz,7,U12,5.0,20\n" +
	"Ben,Okafor,9,12U,6.0,18\n" +
	"Cy,Lee,11,u 12,,\n" +
	"X,Bad,12,U12,,\n"

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		s, _ := newTestService(WithWorkerCount(2), WithReconcileInterval(time.Hour))

		Convey("When started twice and stopped", func() {
			So(s.Start(ctx), ShouldBeNil)
			So(s.Start(ctx), ShouldBeNil)
			stats := s.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats, ShouldContainKey, "queueLength")
			s.Stop(ctx)

			Convey("Then it reports stopped and stop is idempotent", func() {
				So(s.GetStats()["started"], ShouldBeFalse)
				So(func() { s.Stop(ctx) }, ShouldNotPanic)
			})
		})

		Convey("Then the store answers pings", func() {
			So(s.Ping(ctx), ShouldBeNil)
		})
	})
}

func TestLeaguesAndEvents(t *testing.T) {
	Convey("Given a service with one league", t, func() {
		ctx := context.Background()
		s, _ := newTestService()
		l, err := s.CreateLeague(ctx, organizer, "Spring Youth League")
		So(err, ShouldBeNil)
		So(l.Slug, ShouldEqual, "spring-youth-league")

		Convey("When a coach joins", func() {
			m, err := s.JoinLeague(ctx, coach, l.ID)
			So(err, ShouldBeNil)
			So(m.Role, ShouldEqual, model.RoleCoach)

			Convey("Then joining again conflicts", func() {
				_, err := s.JoinLeague(ctx, coach, l.ID)
				So(errors.Is(err, apperr.ErrConflict), ShouldBeTrue)
			})

			Convey("Then the league is listed for the coach", func() {
				leagues, err := s.ListLeagues(ctx, coach)
				So(err, ShouldBeNil)
				So(leagues, ShouldHaveLength, 1)
			})
		})

		Convey("When callers lack rights", func() {
			unverified := organizer
			unverified.EmailVerified = false
			_, err := s.CreateLeague(ctx, unverified, "Other")
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)
			_, err = s.CreateLeague(ctx, coach, "Other")
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)
			_, err = s.CreateLeague(ctx, model.Principal{}, "Other")
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)

			outsider := model.Principal{UserID: "org-2", Role: model.RoleOrganizer, EmailVerified: true}
			_, err = s.CreateEvent(ctx, outsider, EventInput{LeagueID: l.ID, Name: "Nope"})
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)
		})

		Convey("When an event is created", func() {
			e, err := s.CreateEvent(ctx, organizer, EventInput{
				LeagueID: l.ID, Name: "May Combine", Date: "2026-05-02",
				DisabledDrills: []string{drills.Throwing},
			})
			So(err, ShouldBeNil)
			So(e.DrillTemplate, ShouldEqual, drills.DefaultTemplate)

			Convey("Then it is listed under the league", func() {
				events, err := s.ListEvents(ctx, viewer, l.ID)
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 1)
				So(events[0].ID, ShouldEqual, e.ID)
			})

			Convey("Then the schema marks the disabled drill", func() {
				schema, err := s.Schema(ctx, e.ID, "")
				So(err, ShouldBeNil)
				So(schema.Drills, ShouldHaveLength, 5)
				for _, d := range schema.Drills {
					So(d.Enabled, ShouldEqual, d.Key != drills.Throwing)
				}
				So(schema.DefaultWeights[drills.Dash40m], ShouldEqual, 0.30)
			})

			Convey("Then bad input is rejected", func() {
				_, err := s.CreateEvent(ctx, organizer, EventInput{LeagueID: l.ID, Name: "X", Date: "05/02/2026"})
				So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
				_, err = s.CreateEvent(ctx, organizer, EventInput{LeagueID: l.ID, Name: "X", DrillTemplate: "curling"})
				So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
				_, err = s.CreateEvent(ctx, organizer, EventInput{LeagueID: l.ID, Name: "X", DisabledDrills: []string{"bench"}})
				So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
				_, err = s.CreateEvent(ctx, organizer, EventInput{LeagueID: "missing", Name: "X"})
				So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then editable fields change while live", func() {
				pl, err := s.CreatePlayer(ctx, organizer, e.ID, map[string]string{
					"first_name": "Ana", "last_name": "Diaz", "age_group": "U12",
				})
				So(err, ShouldBeNil)
				_, err = s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
					PlayerID: pl.ID, DrillType: drills.Agility, Value: fv(70),
				})
				So(err, ShouldBeNil)

				name := "Renamed"
				_, err = s.UpdateEvent(ctx, organizer, e.ID, EventPatch{Name: &name})
				So(err, ShouldBeNil)

				live, err := s.GetEvent(ctx, viewer, e.ID)
				So(err, ShouldBeNil)
				So(live.LiveEntryActive, ShouldBeTrue)
				So(live.Name, ShouldEqual, "Renamed")

				enabled := []string{}
				updated, err := s.UpdateEvent(ctx, organizer, e.ID, EventPatch{DisabledDrills: &enabled})
				So(err, ShouldBeNil)
				So(updated.DisabledDrills, ShouldBeEmpty)
			})

			Convey("Then deleting it cascades", func() {
				_, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Filename: "r.csv", Data: []byte(roster)})
				So(err, ShouldBeNil)
				report, err := s.DeleteEvent(ctx, organizer, e.ID)
				So(err, ShouldBeNil)
				So(report.Players, ShouldEqual, 3)
				So(report.Evaluations, ShouldEqual, 4)
				_, err = s.GetEvent(ctx, viewer, e.ID)
				So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

const twoTemplates = `
templates:
  - name: football
    sport: football
    drills:
      - {key: agility, unit: points, min: 0, max: 100, direction: higher, default_weight: 1}
  - name: sprint
    sport: track
    drills:
      - {key: dash, unit: seconds, min: 1, max: 20, direction: lower, inversion_bound: 20, default_weight: 1}
`

func TestTemplateFreeze(t *testing.T) {
	Convey("Given an event on a catalog with two templates", t, func() {
		ctx := context.Background()
		catalog, err := drills.Parse([]byte(twoTemplates))
		So(err, ShouldBeNil)
		s, _ := newTestService(WithCatalog(catalog))
		e := setupEvent(ctx, s)
		sprint := "sprint"

		Convey("When no evaluation exists yet", func() {
			updated, err := s.UpdateEvent(ctx, organizer, e.ID, EventPatch{DrillTemplate: &sprint})

			Convey("Then the template can change", func() {
				So(err, ShouldBeNil)
				So(updated.DrillTemplate, ShouldEqual, "sprint")
			})
		})

		Convey("When live entry has started", func() {
			pl, err := s.CreatePlayer(ctx, organizer, e.ID, map[string]string{"first_name": "Ana", "last_name": "Diaz"})
			So(err, ShouldBeNil)
			_, err = s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
				PlayerID: pl.ID, DrillType: "agility", Value: fv(50),
			})
			So(err, ShouldBeNil)
			_, err = s.UpdateEvent(ctx, organizer, e.ID, EventPatch{DrillTemplate: &sprint})

			Convey("Then the template change conflicts", func() {
				So(errors.Is(err, apperr.ErrConflict), ShouldBeTrue)
				So(errors.Is(err, ErrLiveTemplate), ShouldBeTrue)
			})
		})
	})
}

func TestPlayers(t *testing.T) {
	Convey("Given an event", t, func() {
		ctx := context.Background()
		s, _ := newTestService()
		e := setupEvent(ctx, s)

		Convey("When a player is created with a drill value", func() {
			pl, err := s.CreatePlayer(ctx, organizer, e.ID, map[string]string{
				"First Name": "Ana", "Last Name": "Diaz", "Jersey": "7", "Age": "12U", "40m dash": "5.2s",
			})
			So(err, ShouldBeNil)

			Convey("Then the id is deterministic and the snapshot is filled", func() {
				n := 7
				So(pl.ID, ShouldEqual, validation.DeterministicID(e.ID, "Ana", "Diaz", &n, "U12"))
				So(pl.AgeGroup, ShouldEqual, "U12")
				So(pl.Scores[drills.Dash40m], ShouldEqual, 5.2)
			})

			Convey("Then the same identity conflicts", func() {
				_, err := s.CreatePlayer(ctx, organizer, e.ID, map[string]string{
					"first_name": "ana", "last_name": "DIAZ", "jersey_number": "7",
				})
				So(errors.Is(err, apperr.ErrConflict), ShouldBeTrue)
			})

			Convey("Then an edit keeps id and scores", func() {
				updated, err := s.UpdatePlayer(ctx, organizer, e.ID, pl.ID, map[string]string{
					"position": "QB", "age_group": "u-13",
				})
				So(err, ShouldBeNil)
				So(updated.ID, ShouldEqual, pl.ID)
				So(updated.AgeGroup, ShouldEqual, "U13")
				So(updated.Position, ShouldEqual, "QB")

				stored, err := s.GetPlayer(ctx, viewer, e.ID, pl.ID)
				So(err, ShouldBeNil)
				So(stored.Scores[drills.Dash40m], ShouldEqual, 5.2)
				So(stored.Position, ShouldEqual, "QB")

				u13, err := s.ListPlayers(ctx, viewer, e.ID, "13U")
				So(err, ShouldBeNil)
				So(u13, ShouldHaveLength, 1)
			})

			Convey("Then drill columns cannot be edited", func() {
				_, err := s.UpdatePlayer(ctx, organizer, e.ID, pl.ID, map[string]string{"40m_dash": "4.0"})
				So(errors.Is(err, ErrDrillField), ShouldBeTrue)
			})
		})

		Convey("When field contracts fail", func() {
			_, err := s.CreatePlayer(ctx, organizer, e.ID, map[string]string{"first_name": "A", "last_name": "Diaz"})
			var fe *validation.FieldErrors
			So(errors.As(err, &fe), ShouldBeTrue)
			So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
		})

		Convey("When a coach tries to add a player", func() {
			_, err := s.CreatePlayer(ctx, coach, e.ID, map[string]string{"first_name": "Ana", "last_name": "Diaz"})
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)
		})
	})
}

func TestUploadPlayers(t *testing.T) {
	Convey("Given an event", t, func() {
		ctx := context.Background()
		s, store := newTestService()
		e := setupEvent(ctx, s)

		Convey("When a dry run is uploaded", func() {
			res, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Filename: "r.csv", Data: []byte(roster), DryRun: true})
			So(err, ShouldBeNil)

			Convey("Then rows are validated but nothing is written", func() {
				So(res.DryRun, ShouldBeTrue)
				So(res.Valid, ShouldEqual, 3)
				So(res.Created, ShouldEqual, 0)
				So(res.Errors, ShouldHaveLength, 1)
				So(res.Errors[0].Row, ShouldEqual, 4)
				So(store.Count(docstore.Join("events", e.ID, "players")), ShouldEqual, 0)
			})
		})

		Convey("When the roster is uploaded", func() {
			res, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Filename: "r.csv", Data: []byte(roster)})
			So(err, ShouldBeNil)
			So(res.Created, ShouldEqual, 3)
			So(res.DetectedSport, ShouldEqual, "football")
			So(res.Confidence, ShouldEqual, validation.ConfidenceHigh)

			Convey("Then drill values become summaries and snapshots", func() {
				players, err := s.ListPlayers(ctx, viewer, e.ID, "U12")
				So(err, ShouldBeNil)
				So(players, ShouldHaveLength, 3)
				for _, pl := range players {
					sums, err := s.ListSummaries(ctx, viewer, e.ID, pl.ID)
					So(err, ShouldBeNil)
					for _, sum := range sums {
						So(pl.Scores[sum.DrillType], ShouldEqual, sum.FinalScore)
					}
				}
			})

			Convey("Then uploading it again reports only duplicates", func() {
				again, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Text: strings.ReplaceAll(roster, ",", "\t")})
				So(err, ShouldBeNil)
				So(again.Created, ShouldEqual, 0)
				So(again.Errors, ShouldHaveLength, 4)
				for _, re := range again.Errors[:3] {
					So(re.Message, ShouldContainSubstring, "already exists")
				}
			})

			Convey("Then rankings order by composite score", func() {
				ranked, err := s.Rankings(ctx, viewer, e.ID, "U12", nil)
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 3)
				So(ranked[0].Name, ShouldEqual, "Ana Diaz")
				So(ranked[0].Rank, ShouldEqual, 1)
				So(ranked[2].CompositeScore, ShouldEqual, 0)

				custom, err := s.Rankings(ctx, viewer, e.ID, "U12", map[string]string{
					"weight_40m_dash": "0", "weight_vertical_jump": "1", "weight_catching": "0",
					"weight_throwing": "0", "weight_agility": "0",
				})
				So(err, ShouldBeNil)
				So(custom[0].CompositeScore, ShouldEqual, 20)

				_, err = s.Rankings(ctx, viewer, e.ID, "U12", map[string]string{"weight_agility": "1"})
				So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
			})

			Convey("Then a row reusing a stored player's id is rejected", func() {
				id := res.PlayerIDs[0]
				again, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{
					Filename: "r.csv",
					Data:     []byte("id,first_name,last_name,jersey_number\n" + id + ",Bob,Ray,5\n"),
				})
				So(err, ShouldBeNil)
				So(again.Created, ShouldEqual, 0)
				So(again.Errors, ShouldHaveLength, 1)
				So(again.Errors[0].Message, ShouldEqual, "player with the same id already exists in event")

				kept, err := s.GetPlayer(ctx, viewer, e.ID, id)
				So(err, ShouldBeNil)
				So(kept.Name, ShouldEqual, "Ana Diaz")
				So(kept.AgeGroup, ShouldEqual, "U12")
				players, err := s.ListPlayers(ctx, viewer, e.ID, "")
				So(err, ShouldBeNil)
				So(players, ShouldHaveLength, 3)
			})

			Convey("Then explain breaks the score down", func() {
				exp, err := s.Explain(ctx, viewer, e.ID, res.PlayerIDs[0], nil)
				So(err, ShouldBeNil)
				So(exp.Rank, ShouldEqual, 1)
				So(exp.Contributions, ShouldHaveLength, 5)
			})
		})

		Convey("When JSON rows are uploaded", func() {
			res, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Rows: []map[string]string{
				{"first_name": "Dee", "last_name": "Moss", "age_group": "U10"},
				{"name": "Eli Park", "age_group": "9-10"},
			}})
			So(err, ShouldBeNil)
			So(res.Created, ShouldEqual, 2)
		})

		Convey("When namesakes without jerseys sit in different age groups", func() {
			res, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{
				Filename: "r.csv",
				Data:     []byte("first_name,last_name,age_group\nJohn,Smith,U10\nJohn,Smith,U12\n"),
			})
			So(err, ShouldBeNil)
			So(res.Created, ShouldEqual, 2)
			So(res.Errors, ShouldBeEmpty)
			So(res.PlayerIDs[0], ShouldNotEqual, res.PlayerIDs[1])

			Convey("Then both are stored as separate players", func() {
				players, err := s.ListPlayers(ctx, viewer, e.ID, "")
				So(err, ShouldBeNil)
				So(players, ShouldHaveLength, 2)
				ages := []string{players[0].AgeGroup, players[1].AgeGroup}
				So(ages, ShouldContain, "U10")
				So(ages, ShouldContain, "U12")
			})
		})

		Convey("When the upload is structurally broken", func() {
			_, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Filename: "r.xls", Data: []byte("junk")})
			var fe *validation.FieldErrors
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Errors[0].Row, ShouldEqual, 0)

			_, err = s.UploadPlayers(ctx, organizer, e.ID, UploadInput{})
			So(errors.As(err, &fe), ShouldBeTrue)
		})

		Convey("When the upload has too many rows", func() {
			small, _ := newTestService(WithMaxUploadRows(2))
			e2 := setupEvent(ctx, small)
			_, err := small.UploadPlayers(ctx, organizer, e2.ID, UploadInput{Filename: "r.csv", Data: []byte(roster)})
			So(errors.Is(err, apperr.ErrTooLarge), ShouldBeTrue)
		})
	})
}

func TestEvaluations(t *testing.T) {
	Convey("Given an event with one player", t, func() {
		ctx := context.Background()
		s, _ := newTestService()
		e := setupEvent(ctx, s)
		pl, err := s.CreatePlayer(ctx, organizer, e.ID, map[string]string{
			"first_name": "Ana", "last_name": "Diaz", "age_group": "U12",
		})
		So(err, ShouldBeNil)

		Convey("When several evaluators score the same drill", func() {
			evaluator := model.Principal{UserID: "ev-1", Role: model.RoleEvaluator, EmailVerified: true}
			for _, v := range []float64{60, 70, 80} {
				_, err := s.SubmitEvaluation(ctx, evaluator, e.ID, validation.EvaluationInput{
					PlayerID: pl.ID, DrillType: drills.Catching, Value: fv(v),
				})
				So(err, ShouldBeNil)
			}
			sub, err := s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
				PlayerID: pl.ID, DrillType: drills.Catching, Value: fv(90), Notes: " clean hands ",
			})
			So(err, ShouldBeNil)

			Convey("Then the summary is the mean and the snapshot follows it", func() {
				So(sub.Evaluation.Unit, ShouldEqual, "points")
				So(sub.Evaluation.EvaluatorName, ShouldEqual, "Carl Coach")
				So(sub.Evaluation.Notes, ShouldEqual, "clean hands")
				So(sub.Summary, ShouldNotBeNil)
				So(sub.Summary.Count, ShouldEqual, 4)
				So(sub.Summary.Average, ShouldEqual, 75)
				So(sub.Summary.Median, ShouldEqual, 75)
				So(sub.Summary.FinalScore, ShouldEqual, 75)

				stored, err := s.GetPlayer(ctx, viewer, e.ID, pl.ID)
				So(err, ShouldBeNil)
				So(stored.Scores[drills.Catching], ShouldEqual, 75)

				one, err := s.GetSummary(ctx, viewer, e.ID, pl.ID, drills.Catching)
				So(err, ShouldBeNil)
				So(one.Count, ShouldEqual, 4)
			})

			Convey("Then the evaluator roster and history are kept", func() {
				evals, err := s.ListEvaluations(ctx, viewer, e.ID, pl.ID)
				So(err, ShouldBeNil)
				So(evals, ShouldHaveLength, 4)
				roster, err := s.ListEvaluators(ctx, viewer, e.ID)
				So(err, ShouldBeNil)
				So(roster, ShouldHaveLength, 2)
			})
		})

		Convey("When the submission is invalid", func() {
			_, err := s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
				PlayerID: pl.ID, DrillType: drills.Dash40m, Value: fv(2.5),
			})
			So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)

			_, err = s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
				PlayerID: pl.ID, DrillType: "bench_press", Value: fv(10),
			})
			So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)

			_, err = s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
				PlayerID: "ghost", DrillType: drills.Agility, Value: fv(50),
			})
			So(errors.Is(err, apperr.ErrNotFound), ShouldBeTrue)

			_, err = s.SubmitEvaluation(ctx, viewer, e.ID, validation.EvaluationInput{
				PlayerID: pl.ID, DrillType: drills.Agility, Value: fv(50),
			})
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)
		})

		Convey("When a drill is disabled for the event", func() {
			disabled := []string{drills.Throwing}
			_, err := s.UpdateEvent(ctx, organizer, e.ID, EventPatch{DisabledDrills: &disabled})
			So(err, ShouldBeNil)
			_, err = s.SubmitEvaluation(ctx, coach, e.ID, validation.EvaluationInput{
				PlayerID: pl.ID, DrillType: drills.Throwing, Value: fv(50),
			})
			So(errors.Is(err, apperr.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestReconcile(t *testing.T) {
	Convey("Given a running service with an uploaded roster", t, func() {
		ctx := context.Background()
		s, _ := newTestService(WithWorkerCount(2))
		e := setupEvent(ctx, s)
		So(s.Start(ctx), ShouldBeNil)
		_, err := s.UploadPlayers(ctx, organizer, e.ID, UploadInput{Filename: "r.csv", Data: []byte(roster)})
		So(err, ShouldBeNil)

		Convey("When the organizer triggers a reconcile", func() {
			n, err := s.TriggerReconcile(ctx, organizer, e.ID)
			So(err, ShouldBeNil)
			s.Stop(ctx)

			Convey("Then one job per player and drill is scheduled and summaries exist", func() {
				So(n, ShouldEqual, 4)
				ranked, err := s.Rankings(ctx, viewer, e.ID, "U12", nil)
				So(err, ShouldBeNil)
				So(ranked[0].Scores[drills.Dash40m], ShouldEqual, 5.0)
			})
		})

		Convey("When a coach triggers a reconcile", func() {
			_, err := s.TriggerReconcile(ctx, coach, e.ID)
			s.Stop(ctx)
			So(errors.Is(err, apperr.ErrForbidden), ShouldBeTrue)
		})

		Convey("When the sweep runs", func() {
			s.sweep(ctx)
			s.Stop(ctx)
			So(s.GetStats()["started"], ShouldBeFalse)
		})
	})
}
