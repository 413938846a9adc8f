package model_test

import (
	"errors"
	"sort"
	"testing"
	"time"

	model "github.com/okian/hiscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestValidateName(t *testing.T) {
	convey.Convey("Given submitted names", t, func() {
		convey.Convey("When the name is empty or blank", func() {
			for _, name := range []string{"", " ", "\t\n"} {
				err := model.ValidateName(name)
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When the name has content", func() {
			convey.So(model.ValidateName("A"), convey.ShouldBeNil)
			convey.So(model.ValidateName("a"), convey.ShouldBeNil)
			convey.So(model.ValidateName(" padded "), convey.ShouldBeNil)
		})
	})
}

func TestRanks(t *testing.T) {
	convey.Convey("Given entries to order", t, func() {
		t0 := time.Unix(1_700_000_000, 0)
		entries := []model.ScoreEntry{
			{ID: 3, Name: "C", Score: 3, CreatedAt: t0},
			{ID: 4, Name: "late", Score: 9, CreatedAt: t0.Add(2 * time.Second)},
			{ID: 2, Name: "B", Score: 9, CreatedAt: t0.Add(time.Second)},
			{ID: 1, Name: "A", Score: 5, CreatedAt: t0},
			{ID: 6, Name: "same-time-high-id", Score: 9, CreatedAt: t0.Add(2 * time.Second)},
			{ID: 5, Name: "clock-skewed", Score: 9, CreatedAt: t0.Add(-time.Hour)},
		}

		sort.SliceStable(entries, func(i, j int) bool { return model.Ranks(entries[i], entries[j]) })

		convey.Convey("Then higher scores come first and ties go to the lower id", func() {
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Name
			}
			convey.So(names, convey.ShouldResemble, []string{"B", "late", "clock-skewed", "same-time-high-id", "A", "C"})
		})
	})
}
