package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get and Named return usable loggers", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("test"), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When it is initialized with a nil writer", func() {
			So(InitWithWriter(nil), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(SetFormat(FormatText), ShouldBeNil)
		So(InitWithWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging at info with fields", func() {
			Get().Info(ctx, "saved score", String("name", "alice"), Int64("score", 42), Duration("took", time.Millisecond))

			Convey("Then the message, fields and caller source are written", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "saved score")
				So(out, ShouldContainSubstring, "name=alice")
				So(out, ShouldContainSubstring, "score=42")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When debug is below the configured level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(ctx, "visible")
			So(SetLevelString("info"), ShouldBeNil)

			Convey("Then debug lines are written", func() {
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When a named logger logs an error", func() {
			Named("store").Error(ctx, "write failed", Error(errors.New("disk full")))

			Convey("Then the logger name and error are included", func() {
				So(buf.String(), ShouldContainSubstring, "logger=store")
				So(buf.String(), ShouldContainSubstring, "disk full")
			})
		})
	})
}

func TestLoggerJSONFormat(t *testing.T) {
	Convey("Given a json formatted logger", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		So(SetFormat("JSON"), ShouldBeNil)
		defer func() { _ = SetFormat(FormatText) }()

		Get().Warn(context.Background(), "slow observer", Bool("dropped", true))

		Convey("Then each line is a json object", func() {
			line := strings.TrimSpace(buf.String())
			var decoded map[string]any
			So(json.Unmarshal([]byte(line), &decoded), ShouldBeNil)
			So(decoded["msg"], ShouldEqual, "slow observer")
			So(decoded["dropped"], ShouldEqual, true)
		})
	})

	Convey("Given an unknown format", t, func() {
		So(SetFormat("xml"), ShouldNotBeNil)
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", "", "warn", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		_ = SetLevelString("info")
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() {
			l.Info(context.Background(), "ignored")
			l.Named("x").Error(context.Background(), "ignored")
		}, ShouldNotPanic)
	})
}
