package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hiscore/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":4000")
			convey.So(cfg.StorageBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.SQLitePath, convey.ShouldEqual, "data.sqlite")
			convey.So(cfg.DefaultLimit, convey.ShouldEqual, 10)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.BroadcastPolicy, convey.ShouldEqual, "interval")
			convey.So(cfg.BroadcastInterval(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.StreamWriteTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefresh(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"unknown level":      func(c *config.Config) { c.LogLevel = "loud" },
			"unknown format":     func(c *config.Config) { c.LogFormat = "xml" },
			"unknown backend":    func(c *config.Config) { c.StorageBackend = "redis" },
			"empty sqlite path":  func(c *config.Config) { c.StorageBackend = "sqlite"; c.SQLitePath = "" },
			"unknown policy":     func(c *config.Config) { c.BroadcastPolicy = "push" },
			"zero max limit":     func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"default above max":  func(c *config.Config) { c.DefaultLimit = 500 },
			"zero interval":      func(c *config.Config) { c.BroadcastIntervalMS = 0 },
			"zero queue":         func(c *config.Config) { c.QueueSize = 0 },
			"zero write timeout": func(c *config.Config) { c.StreamWriteTimeoutMS = 0 },
			"zero refresh":       func(c *config.Config) { c.MetricsRefreshMS = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New(context.Background())
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When enumerations differ only by case", func() {
			cfg := config.New(context.Background())
			cfg.StorageBackend = "SQLite"
			cfg.BroadcastPolicy = "Event"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
