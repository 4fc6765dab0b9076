package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradeboard/internal/adapters/archive"
	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func write(path, data string) {
	convey.So(os.MkdirAll(filepath.Dir(path), 0o755), convey.ShouldBeNil)
	convey.So(os.WriteFile(path, []byte(data), 0o600), convey.ShouldBeNil)
}

type workspace struct {
	dir, teams, testData, out, metrics, history string
}

func newWorkspace(t *testing.T) workspace {
	dir := t.TempDir()
	w := workspace{
		dir:      dir,
		teams:    filepath.Join(dir, "teams"),
		testData: filepath.Join(dir, "test_data"),
		out:      filepath.Join(dir, "out"),
		metrics:  filepath.Join(dir, "gradeboard.prom"),
		history:  filepath.Join(dir, "history.db"),
	}
	write(filepath.Join(w.testData, "a1", "sst2_test_labels.csv"), "label\n1\n0\n1\n1\n")
	write(filepath.Join(w.testData, "a1", "newsgroups_test_labels.csv"), "newsgroup\nsci\nrec\n")
	write(filepath.Join(w.teams, "a1-alice", "MEMBERS"), "alice\n")
	write(filepath.Join(w.teams, "a1-alice", "results", "mlp_sst2_test_predictions.csv"), "label\n1\n0\n1\n0\n")
	write(filepath.Join(w.teams, "a1-bob", "MEMBERS"), "bob\n")
	return w
}

func (w workspace) config(scorer string) string {
	path := filepath.Join(w.dir, "gradeboard.yaml")
	write(path, fmt.Sprintf(`local_source: %q
output_dir: %q
scorer: %s
results_files: ["_test_predictions.csv"]
staff: [prof]
github:
  assignment_prefix: a1-
test_data:
  directory: %q
  assignment_test_data: a1
metrics_file: %q
archive:
  driver: sqlite
  dsn: %q
`, w.teams, w.out, scorer, w.testData, w.metrics, w.history))
	return path
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a local classroom and a dry run", t, func() {
		w := newWorkspace(t)
		var stdout bytes.Buffer

		err := run(ctx, []string{"-config", w.config("accuracy"), "-dry-run"}, &stdout)

		convey.Convey("Then every board is written", func() {
			convey.So(err, convey.ShouldBeNil)
			data, err := os.ReadFile(filepath.Join(w.out, "leaderboard_sst2.csv"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldEqual, "Score,Method,Member,Comment\n"+
				"0.75,mlp,alice,\n"+
				"-inf,N/A,bob,Missing results files\n")
			_, err = os.Stat(filepath.Join(w.out, "leaderboard_newsgroups.csv"))
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("Then the summary names each board", func() {
			convey.So(stdout.String(), convey.ShouldContainSubstring, "leaderboard_sst2")
			convey.So(stdout.String(), convey.ShouldContainSubstring, "Published 2 leaderboards")
		})

		convey.Convey("Then the metrics file and archive are written", func() {
			body, err := os.ReadFile(w.metrics)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(body), convey.ShouldContainSubstring, `gradeboard_run_teams_total{assignment="accuracy",status="missing"} 1`)

			arc, err := archive.Open(ctx, archive.DriverSQLite, w.history)
			convey.So(err, convey.ShouldBeNil)
			defer arc.Close()
			records, err := arc.History(ctx, "leaderboard_sst2")
			convey.So(err, convey.ShouldBeNil)
			convey.So(records, convey.ShouldHaveLength, 1)
			convey.So(records[0].Content, convey.ShouldContainSubstring, "0.75,mlp,alice,")
		})
	})

	convey.Convey("Given an unknown scorer", t, func() {
		w := newWorkspace(t)

		err := run(ctx, []string{"-config", w.config("bleu"), "-dry-run"}, &bytes.Buffer{})

		convey.Convey("Then the run fails before scoring", func() {
			convey.So(errors.Is(err, metric.ErrUnknownAssignment), convey.ShouldBeTrue)
			_, statErr := os.Stat(w.out)
			convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given test data that does not exist", t, func() {
		w := newWorkspace(t)

		err := run(ctx, []string{"-config", w.config("wer"), "-dry-run"}, &bytes.Buffer{})

		convey.Convey("Then the run fails with a ground truth error", func() {
			convey.So(errors.Is(err, metric.ErrGroundTruth), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unknown flag", t, func() {
		err := run(ctx, []string{"-verbose"}, &bytes.Buffer{})

		convey.Convey("Then parsing fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
