package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/combine/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRankedPlayerJSON(t *testing.T) {
	Convey("Given a ranked player without a jersey number", t, func() {
		entry := types.RankedPlayer{
			Rank: 1, PlayerID: "p1", Name: "Ana Diaz", AgeGroup: "U12",
			CompositeScore: 42.5, Scores: map[string]float64{"agility": 70},
		}

		Convey("When encoded", func() {
			raw, err := json.Marshal(entry)
			So(err, ShouldBeNil)

			Convey("Then the number is omitted and the score keeps its name", func() {
				So(string(raw), ShouldNotContainSubstring, "number")
				So(string(raw), ShouldContainSubstring, `"composite_score":42.5`)
			})
		})
	})
}

func TestContributionNullRaw(t *testing.T) {
	Convey("Given a contribution for a missing drill", t, func() {
		c := types.Contribution{Drill: "catching", Weight: 0.15}
		raw, err := json.Marshal(c)
		So(err, ShouldBeNil)
		So(string(raw), ShouldContainSubstring, `"raw":null`)
	})
}
