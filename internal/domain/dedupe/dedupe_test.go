package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/combine/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func num(n int) *int { return &n }

func TestIndex(t *testing.T) {
	ctx := context.Background()

	Convey("Given an index seeded with the event roster", t, func() {
		idx := dedupe.NewIndex(dedupe.WithExisting([]dedupe.Identity{
			{PlayerID: "p1", FirstName: "Alex", LastName: "Brown", Number: num(10), AgeGroup: "U12"},
			{PlayerID: "p2", FirstName: "Sam", LastName: "Lee", AgeGroup: "U10", ExternalID: "EXT-9"},
		}))

		Convey("Then both players are recorded", func() {
			So(idx.Size(), ShouldEqual, 2)
		})

		Convey("When a row repeats name and number in another case", func() {
			c := idx.SeenAndRecord(ctx, dedupe.Identity{FirstName: "ALEX", LastName: " brown ", Number: num(10)}, 1)

			Convey("Then it collides with the stored player", func() {
				So(c, ShouldNotBeNil)
				So(c.Source, ShouldEqual, dedupe.FromEvent)
				So(c.PlayerID, ShouldEqual, "p1")
				So(c.Reason(), ShouldContainSubstring, "jersey_number")
			})
		})

		Convey("When a row without number repeats name and age group", func() {
			c := idx.SeenAndRecord(ctx, dedupe.Identity{FirstName: "sam", LastName: "lee", AgeGroup: "u10"}, 1)
			So(c, ShouldNotBeNil)
			So(c.Reason(), ShouldContainSubstring, "age_group")
		})

		Convey("When a row reuses an external id", func() {
			c := idx.SeenAndRecord(ctx, dedupe.Identity{FirstName: "Other", LastName: "Kid", Number: num(3), ExternalID: "ext-9"}, 4)
			So(c, ShouldNotBeNil)
			So(c.Reason(), ShouldContainSubstring, "external_id")
		})

		Convey("When the same name has a different number", func() {
			c := idx.SeenAndRecord(ctx, dedupe.Identity{FirstName: "Alex", LastName: "Brown", Number: num(11)}, 1)
			So(c, ShouldBeNil)
			So(idx.Size(), ShouldEqual, 3)
		})

		Convey("When two upload rows repeat each other", func() {
			first := idx.SeenAndRecord(ctx, dedupe.Identity{FirstName: "Jo", LastName: "Park", Number: num(7)}, 2)
			second := idx.SeenAndRecord(ctx, dedupe.Identity{FirstName: "Jo", LastName: "Park", Number: num(7)}, 5)

			Convey("Then the second names the first row", func() {
				So(first, ShouldBeNil)
				So(second, ShouldNotBeNil)
				So(second.Source, ShouldEqual, dedupe.FromUpload)
				So(second.Row, ShouldEqual, 2)
				So(second.Reason(), ShouldEqual, "duplicate first_name, last_name and jersey_number within upload (row 2)")
			})
		})

		Convey("When a new identity reuses a stored player's id", func() {
			c := idx.SeenAndRecord(ctx, dedupe.Identity{PlayerID: "p1", FirstName: "Bob", LastName: "Ray", Number: num(5)}, 1)

			Convey("Then it collides on the id", func() {
				So(c, ShouldNotBeNil)
				So(c.Source, ShouldEqual, dedupe.FromEvent)
				So(c.Reason(), ShouldEqual, "player with the same id already exists in event")
			})
		})

		Convey("When two upload rows resolve to one id", func() {
			So(idx.SeenAndRecord(ctx, dedupe.Identity{PlayerID: "h1", FirstName: "John", LastName: "Smith", AgeGroup: "U10"}, 1), ShouldBeNil)
			c := idx.SeenAndRecord(ctx, dedupe.Identity{PlayerID: "h1", FirstName: "John", LastName: "Smith", AgeGroup: "U12"}, 2)
			So(c, ShouldNotBeNil)
			So(c.Reason(), ShouldEqual, "duplicate id within upload (row 1)")
		})

		Convey("When an identity is unrecorded", func() {
			id := dedupe.Identity{PlayerID: "p1", FirstName: "Alex", LastName: "Brown", Number: num(10)}
			idx.Unrecord(ctx, id)

			Convey("Then it can be recorded again", func() {
				So(idx.Size(), ShouldEqual, 1)
				So(idx.SeenAndRecord(ctx, id, 0), ShouldBeNil)
			})
		})
	})

	Convey("Given an index that excludes the player being edited", t, func() {
		idx := dedupe.NewIndex(
			dedupe.WithExisting([]dedupe.Identity{
				{PlayerID: "p1", FirstName: "Alex", LastName: "Brown", Number: num(10)},
			}),
			dedupe.WithExclude("p1"),
		)

		Convey("Then saving the same identity does not collide with itself", func() {
			So(idx.SeenAndRecord(ctx, dedupe.Identity{PlayerID: "p1", FirstName: "Alex", LastName: "Brown", Number: num(10)}, 0), ShouldBeNil)
		})
	})
}

func TestIndexConcurrency(t *testing.T) {
	Convey("Given an empty index shared by goroutines", t, func() {
		idx := dedupe.NewIndex()
		const workers, perWorker = 8, 50

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					idx.SeenAndRecord(context.Background(), dedupe.Identity{
						FirstName: fmt.Sprintf("First%d", w), LastName: "Last", Number: num(i + 1),
					}, i+1)
				}
			}(w)
		}
		wg.Wait()

		So(idx.Size(), ShouldEqual, workers*perWorker)
	})
}
