// Package scoring turns one team's submission files into leaderboard entries.
//
// The Scorer filters files by the configured allow-list, parses and scores
// each file through the assignment's metric adapter, attributes results to
// the team's members and emits a sentinel row for teams that submitted
// nothing recognizable. A failure in one file never affects another.
package scoring

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/internal/domain/model"
	"github.com/okian/gradeboard/internal/domain/table"
	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

// Comments the scorer attaches itself.
const (
	CommentNoScore      = "No score computed"
	CommentInternal     = "Error scoring file: internal error"
	commentFetchPrefix  = "Error fetching file: "
	commentReadPrefix   = "Error reading file: "
	commentNoResultsFmt = "File %s produced no results"
)

// MemberPolicy controls how a team's members appear on the board.
type MemberPolicy string

// Supported member policies.
const (
	// MemberJoined emits one row per result labelled with all members.
	MemberJoined MemberPolicy = "joined"
	// MemberPerMember emits one row per member per result.
	MemberPerMember MemberPolicy = "per_member"
)

// Valid reports whether p is a known policy.
func (p MemberPolicy) Valid() bool {
	return p == MemberJoined || p == MemberPerMember
}

// Scorer scores teams for one assignment.
type Scorer struct {
	assignment metric.Assignment
	truth      metric.GroundTruth
	suffixes   []string
	policy     MemberPolicy
	defaults   []string
	log        logger.Logger
}

// New creates a scorer for an assignment and its loaded ground truth.
func New(a metric.Assignment, gt metric.GroundTruth, opts ...Option) *Scorer {
	s := &Scorer{
		assignment: a,
		truth:      gt,
		policy:     MemberJoined,
		defaults:   a.Leaderboards,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accepts reports whether a file name is allow-listed. An empty allow-list
// accepts every file.
func (s *Scorer) Accepts(name string) bool {
	if len(s.suffixes) == 0 {
		return true
	}
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Leaderboards returns the boards sentinel rows are written to.
func (s *Scorer) Leaderboards() []string {
	return slices.Clone(s.defaults)
}

// Sort orders one leaderboard's rows the way the assignment ranks them.
func (s *Scorer) Sort(rows []model.Row) {
	s.assignment.SortRows(rows)
}

// ScoreTeam scores every allow-listed file of a team in name order. A team
// without allow-listed files yields one sentinel entry per default
// leaderboard.
func (s *Scorer) ScoreTeam(ctx context.Context, team model.Team, files []model.SubmissionFile) []model.Entry {
	log := s.log.With(logger.String("team", team.Name))

	accepted := make([]model.SubmissionFile, 0, len(files))
	for _, f := range files {
		if s.Accepts(f.Name) {
			accepted = append(accepted, f)
			continue
		}
		metrics.RecordFile(metrics.FileIgnored)
		log.Debug(ctx, "ignoring file", logger.String("file", f.Name))
	}
	slices.SortStableFunc(accepted, func(a, b model.SubmissionFile) int {
		return strings.Compare(a.Name, b.Name)
	})

	if len(accepted) == 0 {
		log.Info(ctx, "no results files", logger.Strings("members", team.Members))
		metrics.RecordTeam(true)
		return s.sentinels(team)
	}
	metrics.RecordTeam(false)

	var out []model.Entry
	for _, f := range accepted {
		results, outcome := s.scoreFile(ctx, log, f)
		metrics.RecordFile(outcome)
		out = append(out, s.entries(team, results)...)
	}
	return out
}

// sentinels returns the missing-submission rows for a team, labelled the
// same way as its scored rows would be.
func (s *Scorer) sentinels(team model.Team) []model.Entry {
	labels := s.labels(team)
	out := make([]model.Entry, 0, len(s.defaults)*len(labels))
	for _, board := range s.defaults {
		for _, label := range labels {
			metrics.RecordSentinel()
			out = append(out, model.Entry{
				Leaderboard: board,
				Score:       model.Float(math.Inf(-1)),
				Method:      model.MissingMethod,
				Member:      label,
				Comment:     model.MissingComment,
			})
		}
	}
	return out
}

// scoreFile isolates one file: panics become a no-score result on every
// default leaderboard.
func (s *Scorer) scoreFile(ctx context.Context, log logger.Logger, f model.SubmissionFile) (results []metric.Result, outcome string) {
	log = log.With(logger.String("file", f.Name))
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "scoring panicked", logger.Any("panic", r))
			results = s.failEverywhere(f.Name, CommentInternal)
			outcome = metrics.FilePanic
		}
	}()

	if f.Err != nil {
		log.Warn(ctx, "file could not be fetched", logger.Error(f.Err))
		return s.override(f.Name, commentFetchPrefix+f.Err.Error()), metrics.FileFetchError
	}

	t, err := table.Parse(f.Name, f.Data)
	if err != nil {
		log.Warn(ctx, "file could not be parsed", logger.Error(err))
		return s.override(f.Name, commentReadPrefix+err.Error()), metrics.FileParseError
	}

	results = s.assignment.Adapter.Score(f.Name, t, s.truth)
	if len(results) == 0 {
		return s.failEverywhere(f.Name, fmt.Sprintf(commentNoResultsFmt, f.Name)), metrics.FileNoScore
	}
	outcome = metrics.FileScored
	for _, r := range results {
		if r.Value == nil {
			outcome = metrics.FileNoScore
			log.Info(ctx, "no score", logger.String("leaderboard", r.Leaderboard), logger.String("comment", r.Comment))
		}
	}
	return results, outcome
}

// override asks the adapter where an unreadable file belongs and replaces
// its comment with the read failure.
func (s *Scorer) override(name, comment string) []metric.Result {
	results := s.assignment.Adapter.Score(name, nil, s.truth)
	if len(results) == 0 {
		return s.failEverywhere(name, comment)
	}
	out := make([]metric.Result, len(results))
	for i, r := range results {
		out[i] = metric.Result{Leaderboard: r.Leaderboard, Method: r.Method, Comment: comment}
	}
	return out
}

func (s *Scorer) failEverywhere(name, comment string) []metric.Result {
	method := ""
	if fn, ok := metric.ParseFileName(name); ok {
		method = fn.Method
	}
	out := make([]metric.Result, len(s.defaults))
	for i, board := range s.defaults {
		out[i] = metric.Failed(board, method, comment)
	}
	return out
}

// labels returns the member column values for a team's rows. A
// per-member team without members keeps the empty joined label.
func (s *Scorer) labels(team model.Team) []string {
	if s.policy == MemberPerMember && len(team.Members) > 0 {
		return team.Members
	}
	return []string{team.Label()}
}

// entries attributes results to members per the member policy.
func (s *Scorer) entries(team model.Team, results []metric.Result) []model.Entry {
	labels := s.labels(team)

	out := make([]model.Entry, 0, len(results)*len(labels))
	for _, r := range results {
		comment := r.Comment
		if r.Value == nil && comment == "" {
			comment = CommentNoScore
		}
		for _, label := range labels {
			out = append(out, model.Entry{
				Leaderboard: r.Leaderboard,
				Score:       r.Value,
				Method:      r.Method,
				Member:      label,
				Comment:     comment,
			})
		}
	}
	return out
}
