package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithCustomLabels(map[string]string{"assignment": "a1"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the custom names", func() {
				manager.RecordTeam(false)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_run_teams_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When recording team and file outcomes", func() {
			m.RecordTeam(true)
			m.RecordTeam(false)
			m.RecordTeam(false)
			m.RecordFile(FileScored)
			m.RecordFile(FileParseError)
			m.RecordFile(FileParseError)
			m.RecordSentinel()

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(m.teams.WithLabelValues("missing")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.teams.WithLabelValues("submitted")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.files.WithLabelValues(FileParseError)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.sentinels), ShouldEqual, 1)
			})
		})

		Convey("When recording entries and rows", func() {
			m.RecordEntries("leaderboard_sst2", 3)
			m.RecordEntries("leaderboard_sst2", 0)
			m.UpdateLeaderboardRows("leaderboard_sst2", 2)

			Convey("Then zero-sized additions are ignored", func() {
				So(testutil.ToFloat64(m.entries.WithLabelValues("leaderboard_sst2")), ShouldEqual, 3)
				So(testutil.ToFloat64(m.leaderboardRows.WithLabelValues("leaderboard_sst2")), ShouldEqual, 2)
			})
		})

		Convey("When the run finishes", func() {
			at := time.Unix(1_700_000_000, 0)
			m.MarkRunFinished(at, true)

			Convey("Then the timestamp and status gauges are set", func() {
				So(testutil.ToFloat64(m.lastRunUnix), ShouldEqual, 1_700_000_000)
				So(testutil.ToFloat64(m.runSuccess), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("Then nothing is recorded", func() {
			m.RecordPublish("local", PublishWritten)
			m.RecordFetchError()
			So(testutil.ToFloat64(m.publishes.WithLabelValues("local", PublishWritten)), ShouldEqual, 0)
			So(testutil.ToFloat64(m.fetchErrors), ShouldEqual, 0)
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the package-level helpers", t, func() {
		Convey("Then they never panic", func() {
			So(func() {
				RecordTeam(false)
				RecordFile(FileIgnored)
				RecordSentinel()
				RecordEntries("leaderboard_hub", 1)
				UpdateLeaderboardRows("leaderboard_hub", 1)
				RecordPublish("github", PublishCreated)
				RecordFetchError()
				ObserveStage("score", 10*time.Millisecond)
				MarkRunFinished(time.Now(), false)
			}, ShouldNotPanic)
		})

		Convey("When writing the textfile", func() {
			path := filepath.Join(t.TempDir(), "gradeboard.prom")
			RecordPublish("local", PublishWritten)
			err := WriteTextfile(path)

			Convey("Then the exposition contains our metrics", func() {
				So(err, ShouldBeNil)
				body, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(body), ShouldContainSubstring, "gradeboard_run_publish_total")
			})
		})

		Convey("When the textfile directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))

			Convey("Then a wrapped error is returned", func() {
				So(errors.Is(err, ErrWriteTextfile), ShouldBeTrue)
			})
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global manager is rebuilt with an assignment label", t, func() {
		Init(WithCustomLabels(map[string]string{"assignment": "wer"}))
		Reset(func() { Init() })

		RecordTeam(true)
		path := filepath.Join(t.TempDir(), "gradeboard.prom")

		Convey("Then exported series carry the label", func() {
			So(WriteTextfile(path), ShouldBeNil)
			body, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(body), ShouldContainSubstring, `assignment="wer"`)
			So(string(body), ShouldContainSubstring, "gradeboard_run_teams_total")
		})
	})

	Convey("Given the global manager is rebuilt with a namespace and recording off", t, func() {
		Init(WithNamespace("course"), WithMetricsEnabled(false))
		Reset(func() { Init() })

		RecordTeam(true)
		path := filepath.Join(t.TempDir(), "course.prom")

		Convey("Then nothing is recorded under the new prefix", func() {
			So(WriteTextfile(path), ShouldBeNil)
			body, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(body), ShouldNotContainSubstring, "gradeboard_")
			So(string(body), ShouldNotContainSubstring, `course_run_teams_total{status="missing"}`)
		})
	})
}
