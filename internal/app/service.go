// Package service runs one leaderboard update: discover teams, fetch and
// score their submissions, aggregate per leaderboard and publish.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gradeboard/internal/adapters/publish"
	"github.com/okian/gradeboard/internal/adapters/source"
	"github.com/okian/gradeboard/internal/domain/aggregate"
	"github.com/okian/gradeboard/internal/domain/model"
	"github.com/okian/gradeboard/internal/domain/scoring"
	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

// Default configuration values.
const (
	DefaultConcurrency = 8
	tracerName         = "github.com/okian/gradeboard/internal/app"
)

// Pipeline stages, used for span names and stage timing.
const (
	StageDiscover  = "discover"
	StageCollect   = "collect"
	StageScore     = "score"
	StageAggregate = "aggregate"
	StagePublish   = "publish"
)

// Service wires a team source, a scorer and a publisher into a run.
type Service struct {
	source    source.Source
	scorer    *scoring.Scorer
	publisher publish.Publisher
	sortFn    aggregate.SortFunc

	concurrency int
	runID       string
	logger      logger.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// New creates a Service. Boards are sorted the way the scorer's assignment
// ranks them. The global logger is used unless WithLogger is given.
func New(src source.Source, scorer *scoring.Scorer, pub publish.Publisher, opts ...Option) *Service {
	s := &Service{
		source:      src,
		scorer:      scorer,
		publisher:   pub,
		concurrency: DefaultConcurrency,
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if scorer != nil {
		s.sortFn = scorer.Sort
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.logger = s.logger.With(logger.String("run", s.runID))
	return s
}

// RunID identifies this run in logs, commit messages and archive rows.
func (s *Service) RunID() string { return s.runID }

// Board summarizes one published leaderboard.
type Board struct {
	Name    string
	Rows    int
	Missing int
	// Top is the first row after sorting, if any.
	Top *model.Row
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Teams    int
	Entries  int
	Boards   []Board
	Duration time.Duration
}

// Run executes the pipeline once. Per-team listing failures and per-file
// download failures become leaderboard rows; discovery, rendering and
// publishing failures abort the run.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "gradeboard.run",
		trace.WithAttributes(attribute.String("run.id", s.runID)),
	)
	defer span.End()

	summary, err := s.run(ctx)
	summary.RunID = s.runID
	summary.Duration = s.now().Sub(start)
	metrics.MarkRunFinished(s.now(), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(ctx, "run failed", logger.Error(err))
		return summary, err
	}
	span.SetAttributes(
		attribute.Int("run.teams", summary.Teams),
		attribute.Int("run.entries", summary.Entries),
		attribute.Int("run.boards", len(summary.Boards)),
	)
	s.logger.Info(ctx, "run finished",
		logger.Int("teams", summary.Teams),
		logger.Int("entries", summary.Entries),
		logger.Int("boards", len(summary.Boards)),
		logger.String("duration", summary.Duration.String()),
	)
	return summary, nil
}

func (s *Service) run(ctx context.Context) (Summary, error) {
	var summary Summary

	var teams []model.Team
	err := s.stage(ctx, StageDiscover, func(ctx context.Context) error {
		var err error
		teams, err = s.source.Teams(ctx)
		if err != nil {
			return fmt.Errorf("discover teams: %w", err)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	summary.Teams = len(teams)
	s.logger.Info(ctx, "discovered teams", logger.Int("teams", len(teams)))

	var files [][]model.SubmissionFile
	err = s.stage(ctx, StageCollect, func(ctx context.Context) error {
		var err error
		files, err = s.collect(ctx, teams)
		return err
	})
	if err != nil {
		return summary, err
	}

	var entries []model.Entry
	err = s.stage(ctx, StageScore, func(ctx context.Context) error {
		for i, team := range teams {
			entries = append(entries, s.scorer.ScoreTeam(ctx, team, files[i])...)
		}
		return ctx.Err()
	})
	if err != nil {
		return summary, err
	}
	summary.Entries = len(entries)

	var tables []model.Table
	err = s.stage(ctx, StageAggregate, func(context.Context) error {
		counts := make(map[string]int)
		for _, e := range entries {
			counts[e.Leaderboard]++
		}
		for board, n := range counts {
			metrics.RecordEntries(board, n)
		}
		tables = aggregate.Aggregate(entries, s.sortFn)
		return nil
	})
	if err != nil {
		return summary, err
	}

	err = s.stage(ctx, StagePublish, func(ctx context.Context) error {
		for _, t := range tables {
			data, err := aggregate.RenderCSV(t)
			if err != nil {
				return fmt.Errorf("render %s: %w", t.Name, err)
			}
			if err := s.publisher.Publish(ctx, t.Name, data); err != nil {
				return err
			}
			metrics.UpdateLeaderboardRows(t.Name, len(t.Rows))
			summary.Boards = append(summary.Boards, summarize(t))
			s.logger.Info(ctx, "published leaderboard",
				logger.String("leaderboard", t.Name),
				logger.Int("rows", len(t.Rows)),
			)
		}
		return nil
	})
	return summary, err
}

// collect lists and downloads every team's files with bounded
// concurrency. Results keep the team order.
func (s *Service) collect(ctx context.Context, teams []model.Team) ([][]model.SubmissionFile, error) {
	out := make([][]model.SubmissionFile, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, team := range teams {
		i, team := i, team
		g.Go(func() error {
			files, err := source.Collect(gctx, s.source, team, s.scorer.Accepts)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// The team still gets its sentinel row.
				metrics.RecordFetchError()
				s.logger.Warn(gctx, "listing team files failed",
					logger.String("team", team.Name),
					logger.Error(err),
				)
				return nil
			}
			out[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect submissions: %w", err)
	}
	return out, nil
}

// stage runs fn inside a child span and records its duration.
func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "gradeboard."+name)
	defer span.End()

	start := s.now()
	err := fn(ctx)
	metrics.ObserveStage(name, s.now().Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func summarize(t model.Table) Board {
	b := Board{Name: t.Name, Rows: len(t.Rows)}
	for _, r := range t.Rows {
		if r.Method == model.MissingMethod {
			b.Missing++
		}
	}
	if len(t.Rows) > 0 {
		top := t.Rows[0]
		b.Top = &top
	}
	return b
}
