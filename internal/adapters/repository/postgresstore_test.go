package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hiscore/internal/domain/model"
)

// Postgres tests run only against a database named by
// HISCORE_TEST_POSTGRES_DSN; the scores table there is dropped.
func postgresDSN(t *testing.T) string {
	dsn := os.Getenv("HISCORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HISCORE_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := postgresDSN(t)
	Convey("Given a postgres store", t, func() {
		ctx := context.Background()
		storeContract(func() Store {
			s, err := NewPostgresStore(ctx, dsn)
			So(err, ShouldBeNil)
			_, err = s.db.ExecContext(ctx, `TRUNCATE scores RESTART IDENTITY`)
			So(err, ShouldBeNil)
			return s
		})
	})
}

func TestPostgresLegacyUpgrade(t *testing.T) {
	dsn := postgresDSN(t)
	Convey("Given a legacy scores table with duplicate names", t, func() {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, dsn)
		So(err, ShouldBeNil)
		for _, stmt := range []string{
			`DROP TABLE IF EXISTS scores`,
			`CREATE TABLE scores (id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL, score BIGINT NOT NULL)`,
			`INSERT INTO scores (name, score) VALUES ('a', 3), ('a', 8), ('b', 1)`,
		} {
			_, err := s.db.ExecContext(ctx, stmt)
			So(err, ShouldBeNil)
		}
		So(s.Close(), ShouldBeNil)

		Convey("When the store is opened", func() {
			s, err := NewPostgresStore(ctx, dsn)
			So(err, ShouldBeNil)
			defer s.Close()

			Convey("Then each name keeps its best row", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(names(top), ShouldResemble, []string{"a", "b"})
				So(top[0].Score, ShouldEqual, 8)
			})
		})
	})
}

func TestPostgresMissingDSN(t *testing.T) {
	Convey("Given no dsn and no DATABASE_URL", t, func() {
		t.Setenv("DATABASE_URL", "")
		_, err := NewPostgresStore(context.Background(), "")

		Convey("Then opening fails as a storage failure", func() {
			So(errors.Is(err, ErrMissingDSN), ShouldBeTrue)
			So(errors.Is(err, model.ErrStorageFailure), ShouldBeTrue)
			So(fmt.Sprint(err), ShouldContainSubstring, "connect postgres")
		})
	})
}
