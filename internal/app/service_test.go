package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/gradeboard/internal/app"
	"github.com/okian/gradeboard/internal/adapters/local"
	"github.com/okian/gradeboard/internal/adapters/publish"
	"github.com/okian/gradeboard/internal/adapters/source"
	"github.com/okian/gradeboard/internal/domain/metric/accuracy"
	"github.com/okian/gradeboard/internal/domain/model"
	"github.com/okian/gradeboard/internal/domain/scoring"
	"github.com/okian/gradeboard/pkg/logger"
)

func writeFile(path, data string) {
	So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
	So(os.WriteFile(path, []byte(data), 0o600), ShouldBeNil)
}

func newScorer() *scoring.Scorer {
	truth := accuracy.Labels{
		"sst2":       {"1", "0", "1", "1"},
		"newsgroups": {"a", "b"},
	}
	return scoring.New(accuracy.Assignment(), truth,
		scoring.WithSuffixes("_test_predictions.csv"),
	)
}

// classroom lays out two student teams and one staff team.
func classroom(root string) {
	writeFile(filepath.Join(root, "a1-alice", local.MembersFile), "alice\nprof\n")
	writeFile(filepath.Join(root, "a1-alice", "results", "mlp_sst2_test_predictions.csv"), "label\n1\n0\n1\n1\n")
	writeFile(filepath.Join(root, "a1-alice", "results", "perceptron_sst2_test_predictions.csv"), "label\n1\n0\n0\n1\n")
	writeFile(filepath.Join(root, "a1-alice", "results", "notes.txt"), "ignored")
	writeFile(filepath.Join(root, "a1-bob", local.MembersFile), "bob\n")
	writeFile(filepath.Join(root, "a1-prof", "results", "mlp_sst2_test_predictions.csv"), "label\n1\n1\n1\n1\n")
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()

	Convey("Given a local classroom and a dry-run publisher", t, func() {
		root := t.TempDir()
		out := t.TempDir()
		classroom(root)

		src := local.New(root, local.WithPrefix("a1-"), local.WithStaff([]string{"prof"}))
		svc := service.New(src, newScorer(), publish.NewLocal(out, nil),
			service.WithLogger(logger.Nop()),
			service.WithRunID("run-1"),
			service.WithConcurrency(2),
		)

		Convey("When the run completes", func() {
			summary, err := svc.Run(ctx)
			So(err, ShouldBeNil)

			Convey("Then the summary describes every board", func() {
				So(summary.RunID, ShouldEqual, "run-1")
				So(summary.Teams, ShouldEqual, 2)
				So(summary.Boards, ShouldHaveLength, 2)
				So(summary.Boards[0].Name, ShouldEqual, "leaderboard_newsgroups")
				So(summary.Boards[0].Missing, ShouldEqual, 1)
				So(summary.Boards[1].Name, ShouldEqual, "leaderboard_sst2")
				So(summary.Boards[1].Rows, ShouldEqual, 3)
				So(summary.Boards[1].Top.Method, ShouldEqual, "mlp")
			})

			Convey("Then the board CSV is sorted with the sentinel last", func() {
				data, err := os.ReadFile(filepath.Join(out, "leaderboard_sst2.csv"))
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "Score,Method,Member,Comment\n"+
					"1,mlp,alice,\n"+
					"0.75,perceptron,alice,\n"+
					"-inf,N/A,bob,Missing results files\n")
			})

			Convey("Then staff teams are not published", func() {
				data, err := os.ReadFile(filepath.Join(out, "leaderboard_newsgroups.csv"))
				So(err, ShouldBeNil)
				So(string(data), ShouldNotContainSubstring, "prof")
			})
		})
	})

	Convey("Given a publisher that rejects a board", t, func() {
		root := t.TempDir()
		classroom(root)
		boom := errors.New("boom")
		pub := publish.Func(func(_ context.Context, board string, _ []byte) error {
			if board == "leaderboard_sst2" {
				return boom
			}
			return nil
		})
		svc := service.New(local.New(root, local.WithPrefix("a1-"), local.WithStaff([]string{"prof"})),
			newScorer(), pub, service.WithLogger(logger.Nop()))

		Convey("Then the run fails and names the cause", func() {
			summary, err := svc.Run(ctx)
			So(errors.Is(err, boom), ShouldBeTrue)
			So(summary.Boards, ShouldHaveLength, 1)
			So(summary.RunID, ShouldNotBeEmpty)
		})
	})

	Convey("Given a missing classroom directory", t, func() {
		svc := service.New(local.New(filepath.Join(t.TempDir(), "nope")), newScorer(),
			publish.NewLocal(t.TempDir(), nil), service.WithLogger(logger.Nop()))

		Convey("Then discovery fails before anything is published", func() {
			summary, err := svc.Run(ctx)
			So(err, ShouldNotBeNil)
			So(summary.Boards, ShouldBeEmpty)
		})
	})

	Convey("Given a team whose file listing fails", t, func() {
		src := &flakySource{
			teams: []model.Team{
				model.NewTeam("a1-alice", "a1-alice", []string{"alice"}, nil),
				model.NewTeam("a1-bob", "a1-bob", []string{"bob"}, nil),
			},
			failing: "a1-bob",
		}
		var published []string
		pub := publish.Func(func(_ context.Context, board string, data []byte) error {
			published = append(published, string(data))
			return nil
		})
		svc := service.New(src, newScorer(), pub, service.WithLogger(logger.Nop()))

		Convey("Then the team is reported as missing and the run succeeds", func() {
			_, err := svc.Run(ctx)
			So(err, ShouldBeNil)
			So(published, ShouldHaveLength, 2)
			So(published[1], ShouldContainSubstring, "1,mlp,alice,")
			So(published[1], ShouldContainSubstring, "-inf,N/A,bob,Missing results files")
		})
	})
}

func TestService_New(t *testing.T) {
	Convey("Given a service built with its own logger", t, func() {
		build := func() {
			service.New(local.New(t.TempDir()), newScorer(), publish.NewLocal(t.TempDir(), nil),
				service.WithLogger(logger.Nop()))
		}

		Convey("Then construction does not need the global logger", func() {
			So(build, ShouldNotPanic)
		})
	})
}

func TestService_RunCancelled(t *testing.T) {
	Convey("Given a run cancelled while submissions are downloaded", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src := &flakySource{
			teams:   []model.Team{model.NewTeam("a1-alice", "a1-alice", []string{"alice"}, nil)},
			onFetch: cancel,
		}
		var published int
		pub := publish.Func(func(context.Context, string, []byte) error {
			published++
			return nil
		})
		svc := service.New(src, newScorer(), pub, service.WithLogger(logger.Nop()))

		Convey("Then the run stops before anything is published", func() {
			_, err := svc.Run(ctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(published, ShouldEqual, 0)
		})
	})
}

type flakySource struct {
	teams   []model.Team
	failing string
	onFetch func()
}

var _ source.Source = (*flakySource)(nil)

func (f *flakySource) Teams(context.Context) ([]model.Team, error) { return f.teams, nil }

func (f *flakySource) Files(_ context.Context, team model.Team) ([]model.FileRef, error) {
	if team.Name == f.failing {
		return nil, errors.New("listing failed")
	}
	return []model.FileRef{{Name: "mlp_sst2_test_predictions.csv"}}, nil
}

func (f *flakySource) Fetch(context.Context, model.Team, model.FileRef) ([]byte, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	return []byte("label\n1\n0\n1\n1\n"), nil
}
