package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hiscore/internal/config"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.BroadcastPolicy = "event"
	return cfg
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given the main wiring", t, func() {
		ctx := context.Background()
		log := logger.Nop()

		convey.Convey("When the memory backend is configured", func() {
			svc, err := buildService(ctx, testConfig(), log)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the service reports it", func() {
				stats := svc.GetStats()
				convey.So(stats["backend"], convey.ShouldEqual, "memory")
				convey.So(stats["policy"], convey.ShouldEqual, "event")
			})
		})

		convey.Convey("When the sqlite backend is configured", func() {
			cfg := testConfig()
			cfg.StorageBackend = "sqlite"
			cfg.SQLitePath = filepath.Join(t.TempDir(), "data.sqlite")
			svc, err := buildService(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			_, err = svc.Submit(ctx, "alice", 3)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.GetStats()["players"], convey.ShouldEqual, 1)
		})

		convey.Convey("When the policy is unknown", func() {
			cfg := testConfig()
			cfg.BroadcastPolicy = "push"
			_, err := buildService(ctx, cfg, log)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the full handler", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		svc, err := buildService(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h, err := newHandler(ctx, cfg, svc, logger.Nop())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When a score is submitted and the leaderboard read", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/score", strings.NewReader(`{"name":"alice","score":12}`)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			w = httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))

			convey.Convey("Then the entry is listed", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"name":"alice"`)
			})
		})

		convey.Convey("When the docs and metrics are requested", func() {
			for _, path := range []string{"/api-docs", "/openapi.yaml", "/healthz", "/stats"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When updating system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When metrics are configured from config", func() {
			cfg := testConfig()
			cfg.MetricsEnabled = false
			cfg.MetricsRefreshMS = 250
			configureMetrics(cfg)
			defer configureMetrics(config.New(context.Background()))

			convey.Convey("Then the global manager follows it", func() {
				convey.So(metrics.Enabled(), convey.ShouldBeFalse)
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 250*time.Millisecond)
			})
		})

		convey.Convey("When the metrics updaters run until canceled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			svc, err := buildService(context.Background(), testConfig(), logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()

			convey.Convey("Then they return", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					convey.So("updaters still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}
