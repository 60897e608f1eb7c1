package drills_test

import (
	"errors"
	"testing"

	"github.com/okian/combine/internal/domain/drills"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuiltinFootball(t *testing.T) {
	Convey("Given the builtin football template", t, func() {
		tpl := drills.Football()

		Convey("Then it carries the five standard drills in order", func() {
			So(tpl.Keys(), ShouldResemble, []string{
				drills.Dash40m, drills.VerticalJump, drills.Catching, drills.Throwing, drills.Agility,
			})
		})

		Convey("Then units are fixed per key", func() {
			for key, unit := range map[string]string{
				drills.Dash40m:      "seconds",
				drills.VerticalJump: "inches",
				drills.Catching:     "points",
				drills.Throwing:     "points",
				drills.Agility:      "points",
			} {
				got, err := tpl.UnitFor(key)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, unit)
			}
			_, err := tpl.UnitFor("bench_press")
			So(errors.Is(err, drills.ErrUnknownDrill), ShouldBeTrue)
		})

		Convey("Then default weights match the published vector", func() {
			So(tpl.DefaultWeights(), ShouldResemble, map[string]float64{
				drills.Dash40m: 0.30, drills.VerticalJump: 0.20, drills.Catching: 0.15,
				drills.Throwing: 0.15, drills.Agility: 0.20,
			})
		})

		Convey("Then ranges are enforced", func() {
			dash, _ := tpl.Lookup(drills.Dash40m)
			So(dash.InRange(3.0), ShouldBeTrue)
			So(dash.InRange(30.0), ShouldBeTrue)
			So(dash.InRange(2.99), ShouldBeFalse)
			vj, _ := tpl.Lookup(drills.VerticalJump)
			So(vj.InRange(60.1), ShouldBeFalse)
		})

		Convey("Then the dash is inverted against 30 and others pass through", func() {
			dash, _ := tpl.Lookup(drills.Dash40m)
			So(dash.Adjusted(5.0), ShouldEqual, 25.0)
			So(dash.Adjusted(30.0), ShouldEqual, 0.0)
			So(dash.Adjusted(31.0), ShouldEqual, 0.0)
			catching, _ := tpl.Lookup(drills.Catching)
			So(catching.Adjusted(80), ShouldEqual, 80.0)
		})

		Convey("Then disabled drills are filtered out", func() {
			So(tpl.Active([]string{drills.Throwing}), ShouldResemble, []string{
				drills.Dash40m, drills.VerticalJump, drills.Catching, drills.Agility,
			})
		})
	})
}

func TestCatalogParse(t *testing.T) {
	Convey("Given template YAML", t, func() {
		Convey("When weights do not sum to one", func() {
			_, err := drills.Parse([]byte(`
templates:
  - name: broken
    sport: x
    drills:
      - {key: a, unit: s, min: 0, max: 1, direction: higher, default_weight: 0.4}
`))
			So(errors.Is(err, drills.ErrInvalidTemplate), ShouldBeTrue)
		})

		Convey("When a lower-is-better drill lacks a bound", func() {
			_, err := drills.Parse([]byte(`
templates:
  - name: broken
    sport: x
    drills:
      - {key: a, unit: s, min: 0, max: 1, direction: lower, default_weight: 1}
`))
			So(errors.Is(err, drills.ErrInvalidTemplate), ShouldBeTrue)
		})

		Convey("When the template is well formed", func() {
			c, err := drills.Parse([]byte(`
templates:
  - name: sprint
    sport: track
    drills:
      - {key: dash, unit: seconds, min: 1, max: 20, direction: lower, inversion_bound: 20, default_weight: 1}
`))
			So(err, ShouldBeNil)
			tpl, err := c.Template("sprint")
			So(err, ShouldBeNil)
			So(tpl.Has("dash"), ShouldBeTrue)
			_, err = c.Template("football")
			So(errors.Is(err, drills.ErrUnknownTemplate), ShouldBeTrue)
		})

		Convey("When asking the builtin catalog for the empty name", func() {
			tpl, err := drills.Builtin().Template("")
			So(err, ShouldBeNil)
			So(tpl.Name, ShouldEqual, drills.DefaultTemplate)
			So(drills.Builtin().Names(), ShouldContain, "football")
		})
	})
}
