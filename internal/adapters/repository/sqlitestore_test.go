package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
)

func TestSQLiteStore(t *testing.T) {
	Convey("Given a sqlite store in a temp file", t, func() {
		dir := t.TempDir()
		n := 0
		storeContract(func() Store {
			n++
			s, err := NewSQLiteStore(context.Background(), filepath.Join(dir, "scores"+string(rune('a'+n))+".sqlite"))
			So(err, ShouldBeNil)
			return s
		})
	})
}

func TestSQLiteStoreReopen(t *testing.T) {
	Convey("Given a sqlite file written by a previous store", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "data.sqlite")

		s, err := Open(ctx, BackendSQLite, WithSQLitePath(path))
		So(err, ShouldBeNil)
		_, err = s.UpsertMax(ctx, "alice", 40)
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			s2, err := NewSQLiteStore(ctx, path)
			So(err, ShouldBeNil)
			defer s2.Close()

			Convey("Then the entries survive", func() {
				top, err := s2.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].Name, ShouldEqual, "alice")
				So(top[0].Score, ShouldEqual, 40)
			})
		})
	})
}

func TestSQLiteStoreLegacyFile(t *testing.T) {
	Convey("Given a sqlite file with repeated names and no unique index", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "data.sqlite")

		legacy, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		So(err, ShouldBeNil)
		So(legacy.Exec(`CREATE TABLE scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			score INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`).Error, ShouldBeNil)
		So(legacy.Exec(`INSERT INTO scores (name, score) VALUES ('A', 5), ('A', 9), ('B', 3), ('A', 9)`).Error, ShouldBeNil)
		legacyDB, err := legacy.DB()
		So(err, ShouldBeNil)
		So(legacyDB.Close(), ShouldBeNil)

		Convey("When a store opens it", func() {
			s, err := NewSQLiteStore(ctx, path)
			So(err, ShouldBeNil)
			defer s.Close()

			Convey("Then each name keeps its best row", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].Name, ShouldEqual, "A")
				So(top[0].Score, ShouldEqual, 9)
				So(top[0].ID, ShouldEqual, 2)
				So(top[1].Name, ShouldEqual, "B")
				So(top[1].Score, ShouldEqual, 3)
			})

			Convey("Then merges work on the folded rows", func() {
				res, err := s.UpsertMax(ctx, "A", 7)
				So(err, ShouldBeNil)
				So(res.Updated, ShouldBeFalse)
				So(res.Entry.Score, ShouldEqual, 9)

				res, err = s.UpsertMax(ctx, "C", 1)
				So(err, ShouldBeNil)
				So(res.Created, ShouldBeTrue)

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})
	})
}
