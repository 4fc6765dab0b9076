package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/internal/domain/metric/accuracy"
	"github.com/okian/gradeboard/internal/domain/model"
	scoring "github.com/okian/gradeboard/internal/domain/scoring"
	"github.com/okian/gradeboard/internal/domain/table"
	. "github.com/smartystreets/goconvey/convey"
)

func sst2Truth() metric.GroundTruth {
	return accuracy.Labels{
		"sst2":       {"1", "0", "1", "1"},
		"newsgroups": {"a", "b"},
	}
}

func file(name, data string) model.SubmissionFile {
	return model.SubmissionFile{Name: name, Data: []byte(data)}
}

func TestScorer_ScoreTeam(t *testing.T) {
	ctx := context.Background()

	Convey("Given an accuracy scorer with an allow-list", t, func() {
		s := scoring.New(accuracy.Assignment(), sst2Truth(),
			scoring.WithSuffixes("_test_predictions.csv"),
		)
		team := model.NewTeam("a1-alice", "a1-alice", []string{"alice", "prof"}, []string{"prof"})

		Convey("When the team submitted two methods", func() {
			entries := s.ScoreTeam(ctx, team, []model.SubmissionFile{
				file("perceptron_sst2_test_predictions.csv", "label\n1\n0\n0\n1\n"),
				file("mlp_sst2_test_predictions.csv", "label\n1\n0\n1\n1\n"),
				file("notes.md", "hello"),
			})

			Convey("Then one entry per scored file is produced in name order", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Method, ShouldEqual, "mlp")
				So(*entries[0].Score, ShouldEqual, 1.0)
				So(entries[1].Method, ShouldEqual, "perceptron")
				So(*entries[1].Score, ShouldEqual, 0.75)
				So(entries[0].Leaderboard, ShouldEqual, "leaderboard_sst2")
			})

			Convey("Then staff are not attributed", func() {
				So(entries[0].Member, ShouldEqual, "alice")
			})
		})

		Convey("When the team has no allow-listed files", func() {
			entries := s.ScoreTeam(ctx, team, []model.SubmissionFile{file("README.md", "# hi")})

			Convey("Then one sentinel per default leaderboard is produced", func() {
				So(entries, ShouldHaveLength, 2)
				for _, e := range entries {
					So(math.IsInf(*e.Score, -1), ShouldBeTrue)
					So(e.Method, ShouldEqual, model.MissingMethod)
					So(e.Comment, ShouldEqual, model.MissingComment)
					So(e.Member, ShouldEqual, "alice")
				}
				So(entries[0].Leaderboard, ShouldEqual, "leaderboard_newsgroups")
				So(entries[1].Leaderboard, ShouldEqual, "leaderboard_sst2")
			})
		})

		Convey("When a file could not be fetched", func() {
			entries := s.ScoreTeam(ctx, team, []model.SubmissionFile{
				{Name: "mlp_sst2_test_predictions.csv", Err: errors.New("blob not found")},
			})

			Convey("Then it becomes a no-score entry on its own board", func() {
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Score, ShouldBeNil)
				So(entries[0].Leaderboard, ShouldEqual, "leaderboard_sst2")
				So(entries[0].Method, ShouldEqual, "mlp")
				So(entries[0].Comment, ShouldEqual, "Error fetching file: blob not found")
			})
		})

		Convey("When a file is a Git LFS pointer", func() {
			entries := s.ScoreTeam(ctx, team, []model.SubmissionFile{
				file("mlp_sst2_test_predictions.csv", "version https://git-lfs.github.com/spec/v1\noid sha256:x\n"),
			})

			Convey("Then the comment names the cause", func() {
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Score, ShouldBeNil)
				So(entries[0].Comment, ShouldContainSubstring, "Git LFS pointer")
			})
		})

		Convey("When one file is malformed and another is fine", func() {
			entries := s.ScoreTeam(ctx, team, []model.SubmissionFile{
				file("mlp_sst2_test_predictions.csv", "label\n1\n0,1\n"),
				file("svm_sst2_test_predictions.csv", "label\n1\n0\n1\n1\n"),
			})

			Convey("Then only the malformed file loses its score", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Score, ShouldBeNil)
				So(entries[0].Comment, ShouldStartWith, "Error reading file: ")
				So(*entries[1].Score, ShouldEqual, 1.0)
			})
		})
	})

	Convey("Given a team with several members", t, func() {
		team := model.NewTeam("a1-pair", "a1-pair", []string{"bob", "alice"}, nil)
		files := []model.SubmissionFile{file("mlp_sst2_test_predictions.csv", "label\n1\n0\n1\n1\n")}

		Convey("When members are joined", func() {
			entries := scoring.New(accuracy.Assignment(), sst2Truth()).ScoreTeam(ctx, team, files)

			Convey("Then one entry carries the space-joined label", func() {
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Member, ShouldEqual, "alice bob")
			})
		})

		Convey("When members are listed individually", func() {
			s := scoring.New(accuracy.Assignment(), sst2Truth(), scoring.WithMemberPolicy(scoring.MemberPerMember))
			entries := s.ScoreTeam(ctx, team, files)

			Convey("Then each member gets an entry", func() {
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Member, ShouldEqual, "alice")
				So(entries[1].Member, ShouldEqual, "bob")
			})
		})

		Convey("When a per-member team has no members left", func() {
			s := scoring.New(accuracy.Assignment(), sst2Truth(), scoring.WithMemberPolicy(scoring.MemberPerMember))
			entries := s.ScoreTeam(ctx, model.NewTeam("a1-ghost", "", nil, nil), files)

			Convey("Then a single entry with an empty label is produced", func() {
				So(entries, ShouldHaveLength, 1)
				So(entries[0].Member, ShouldEqual, "")
			})

			Convey("Then a missing submission also yields one empty-label sentinel per board", func() {
				sentinels := s.ScoreTeam(ctx, model.NewTeam("a1-ghost", "", nil, nil), nil)
				So(sentinels, ShouldHaveLength, 2)
				So(sentinels[0].Member, ShouldEqual, "")
			})
		})

		Convey("When a per-member team submitted nothing", func() {
			s := scoring.New(accuracy.Assignment(), sst2Truth(), scoring.WithMemberPolicy(scoring.MemberPerMember))
			entries := s.ScoreTeam(ctx, team, nil)

			Convey("Then each member gets a sentinel on every default board", func() {
				So(entries, ShouldHaveLength, 4)
				So(entries[0].Leaderboard, ShouldEqual, "leaderboard_newsgroups")
				So(entries[0].Member, ShouldEqual, "alice")
				So(entries[1].Member, ShouldEqual, "bob")
				So(entries[2].Leaderboard, ShouldEqual, "leaderboard_sst2")
				for _, e := range entries {
					So(e.Method, ShouldEqual, model.MissingMethod)
					So(math.IsInf(*e.Score, -1), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given configured default leaderboards", t, func() {
		s := scoring.New(accuracy.Assignment(), sst2Truth(), scoring.WithDefaultLeaderboards("leaderboard_default"))

		Convey("Then sentinels go to those boards", func() {
			entries := s.ScoreTeam(ctx, model.NewTeam("a1-x", "", []string{"x"}, nil), nil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Leaderboard, ShouldEqual, "leaderboard_default")
			So(s.Leaderboards(), ShouldResemble, []string{"leaderboard_default"})
		})
	})

	Convey("Given an adapter that panics", t, func() {
		a := accuracy.Assignment()
		a.Adapter = metric.AdapterFunc(func(name string, tbl *table.Table, _ metric.GroundTruth) []metric.Result {
			if tbl != nil && tbl.Len() > 1 {
				panic("index out of range")
			}
			return []metric.Result{metric.Scored("leaderboard_sst2", "ok", 0.5)}
		})
		s := scoring.New(a, nil)
		team := model.NewTeam("a1-t", "", []string{"t"}, nil)

		Convey("When one of two files triggers it", func() {
			entries := s.ScoreTeam(ctx, team, []model.SubmissionFile{
				file("bad_sst2_x.csv", "label\n1\n2\n"),
				file("good_sst2_x.csv", "label\n1\n"),
			})

			Convey("Then the panic is contained to that file", func() {
				So(entries, ShouldHaveLength, 3)
				So(entries[0].Score, ShouldBeNil)
				So(entries[0].Method, ShouldEqual, "bad")
				So(entries[0].Comment, ShouldEqual, scoring.CommentInternal)
				So(entries[1].Comment, ShouldEqual, scoring.CommentInternal)
				So(*entries[2].Score, ShouldEqual, 0.5)
			})
		})
	})

	Convey("Given an adapter that returns a null without a comment", t, func() {
		a := accuracy.Assignment()
		a.Adapter = metric.AdapterFunc(func(string, *table.Table, metric.GroundTruth) []metric.Result {
			return []metric.Result{{Leaderboard: "leaderboard_sst2", Method: "mlp"}}
		})
		entries := scoring.New(a, nil).ScoreTeam(ctx, model.NewTeam("t", "", []string{"t"}, nil),
			[]model.SubmissionFile{file("mlp_sst2_x.csv", "label\n1\n")})

		Convey("Then a default comment keeps the invariant", func() {
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Score, ShouldBeNil)
			So(entries[0].Comment, ShouldEqual, scoring.CommentNoScore)
		})
	})
}

func TestScorer_Accepts(t *testing.T) {
	Convey("Given an allow-list with a suffix and a full name", t, func() {
		s := scoring.New(accuracy.Assignment(), nil,
			scoring.WithSuffixes("_predictions.csv", "test_ground_truths.csv", ""))

		Convey("Then matching names are accepted", func() {
			So(s.Accepts("mlp_sst2_test_predictions.csv"), ShouldBeTrue)
			So(s.Accepts("test_ground_truths.csv"), ShouldBeTrue)
			So(s.Accepts("README.md"), ShouldBeFalse)
		})
	})

	Convey("Given no allow-list", t, func() {
		s := scoring.New(accuracy.Assignment(), nil)

		Convey("Then every file is accepted", func() {
			So(s.Accepts("anything"), ShouldBeTrue)
		})
	})
}

func TestScorer_Sort(t *testing.T) {
	Convey("Given rows out of order", t, func() {
		s := scoring.New(accuracy.Assignment(), nil)
		rows := []model.Row{
			{Method: model.MissingMethod, Member: "bob", Comment: model.MissingComment},
			{Score: model.Float(0.5), Method: "mlp", Member: "amir"},
		}

		s.Sort(rows)

		Convey("Then the assignment's order applies", func() {
			So(rows[0].Member, ShouldEqual, "amir")
			So(rows[1].Member, ShouldEqual, "bob")
		})
	})
}
