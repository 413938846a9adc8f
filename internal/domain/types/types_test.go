package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/hiscore/internal/domain/model"
	types "github.com/okian/hiscore/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntryJSON(t *testing.T) {
	Convey("Given a domain entry", t, func() {
		created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
		e := model.ScoreEntry{ID: 7, Name: "alice", Score: 42, CreatedAt: created}

		Convey("When converted and encoded", func() {
			raw, err := json.Marshal(types.FromModel(e))
			So(err, ShouldBeNil)

			Convey("Then it carries id, name, score and a UTC created_at", func() {
				So(string(raw), ShouldEqual, `{"id":7,"name":"alice","score":42,"created_at":"2025-03-01T11:00:00Z"}`)
			})
		})

		Convey("When the creation time is unknown", func() {
			raw, err := json.Marshal(types.FromModel(model.ScoreEntry{ID: 1, Name: "bob", Score: 3}))
			So(err, ShouldBeNil)

			Convey("Then created_at is omitted", func() {
				So(string(raw), ShouldEqual, `{"id":1,"name":"bob","score":3}`)
			})
		})
	})
}

func TestFromModels(t *testing.T) {
	Convey("Given an empty ranking", t, func() {
		raw, err := json.Marshal(types.FromModels(nil))

		Convey("Then it encodes as an empty array, not null", func() {
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, "[]")
		})
	})

	Convey("Given a ranking", t, func() {
		out := types.FromModels([]model.ScoreEntry{{ID: 2, Name: "B", Score: 9}, {ID: 1, Name: "A", Score: 5}})

		Convey("Then order is preserved", func() {
			So(len(out), ShouldEqual, 2)
			So(out[0].Name, ShouldEqual, "B")
			So(out[1].Name, ShouldEqual, "A")
		})
	})
}
