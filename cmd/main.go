package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	gh "github.com/google/go-github/v66/github"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/okian/gradeboard/internal/adapters/archive"
	"github.com/okian/gradeboard/internal/adapters/github"
	"github.com/okian/gradeboard/internal/adapters/local"
	"github.com/okian/gradeboard/internal/adapters/publish"
	"github.com/okian/gradeboard/internal/adapters/source"
	service "github.com/okian/gradeboard/internal/app"
	"github.com/okian/gradeboard/internal/config"
	"github.com/okian/gradeboard/internal/domain/aggregate"
	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/internal/domain/metric/accuracy"
	"github.com/okian/gradeboard/internal/domain/metric/embedding"
	"github.com/okian/gradeboard/internal/domain/metric/wer"
	"github.com/okian/gradeboard/internal/domain/scoring"
	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

const exitFailure = 1

func main() {
	if err := logger.Init(); err != nil {
		// Use stderr directly since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(exitFailure)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(exitFailure)
	}
}

// run performs one leaderboard update. Every error it returns has already
// been logged.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gradeboard", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file (or "+config.EnvConfigPath+")")
	dryRun := fs.Bool("dry-run", false, "write leaderboards to output_dir instead of publishing them")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.Get()

	// Load configuration (defaults -> file -> env -> flags)
	cfg, err := config.Load(ctx, *configPath, func(c *config.Config) {
		if *dryRun {
			c.DryRun = true
		}
	})
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return err
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		log.Warn(ctx, "invalid log_format; keeping text", logger.String("log_format", cfg.LogFormat), logger.Error(err))
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	runID := uuid.NewString()
	log = logger.Get().With(logger.String("run", runID))

	registry, err := metric.NewRegistry(accuracy.Assignment(), wer.Assignment(), embedding.Assignment())
	if err != nil {
		log.Error(ctx, "failed to build scorer registry", logger.Error(err))
		return err
	}
	assignment, err := registry.Lookup(cfg.ScorerName())
	if err != nil {
		log.Error(ctx, "unknown scorer", logger.String("scorer", cfg.ScorerName()), logger.Error(err))
		return err
	}
	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithMetricsEnabled(cfg.MetricsFile != ""),
		metrics.WithCustomLabels(map[string]string{"assignment": assignment.Name}),
	)

	truth, err := assignment.LoadGroundTruth(cfg.TestDataDir())
	if err != nil {
		log.Error(ctx, "failed to load test data", logger.String("dir", cfg.TestDataDir()), logger.Error(err))
		return err
	}

	var client *gh.Client
	if cfg.UsesGitHub() {
		creds, err := config.LoadCredentials()
		if err != nil {
			log.Error(ctx, "failed to load credentials", logger.Error(err))
			return err
		}
		client = github.NewClient(creds.Token, nil)
		log.Debug(ctx, "authenticated", logger.String("user", creds.Username))
	}

	pub, closePub, err := newPublisher(ctx, cfg, client, runID, log)
	if err != nil {
		log.Error(ctx, "failed to set up publishing", logger.Error(err))
		return err
	}
	defer closePub()

	scorer := scoring.New(assignment, truth,
		scoring.WithSuffixes(cfg.ResultsFiles...),
		scoring.WithMemberPolicy(scoring.MemberPolicy(cfg.MemberLabel)),
		scoring.WithDefaultLeaderboards(cfg.DefaultLeaderboards...),
		scoring.WithLogger(log.Named("scoring")),
	)
	svc := service.New(newSource(cfg, client, runID, log), scorer, pub,
		service.WithRunID(runID),
		service.WithConcurrency(cfg.GitHub.Concurrency),
		service.WithLogger(log.Named("service")),
	)

	log.Info(ctx, "starting leaderboard run",
		logger.String("scorer", assignment.Name),
		logger.Bool("dry_run", cfg.DryRun),
	)
	summary, runErr := svc.Run(ctx)
	printSummary(stdout, summary, runErr)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "failed to write metrics file", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	return runErr
}

// newSource reads teams from local_source when set, GitHub otherwise.
func newSource(cfg *config.Config, client *gh.Client, runID string, log logger.Logger) source.Source {
	if cfg.LocalSource != "" {
		return local.New(cfg.LocalSource,
			local.WithPrefix(cfg.GitHub.AssignmentPrefix),
			local.WithResultsDir(cfg.GitHub.ResultsDir),
			local.WithStaff(cfg.Staff),
			local.WithLogger(log.Named("local")),
		)
	}
	return github.NewSource(client, cfg.GitHub.Organization,
		github.WithPrefix(cfg.GitHub.AssignmentPrefix),
		github.WithResultsDir(cfg.GitHub.ResultsDir),
		github.WithStaff(cfg.Staff),
		github.WithConcurrency(cfg.GitHub.Concurrency),
		github.WithRateLimit(cfg.GitHub.RequestsPerSecond),
		github.WithRunID(runID),
		github.WithLogger(log.Named("github")),
	)
}

// newPublisher writes locally on dry runs and to the leaderboard repository
// otherwise, plus the archive when one is configured.
func newPublisher(ctx context.Context, cfg *config.Config, client *gh.Client, runID string, log logger.Logger) (publish.Publisher, func(), error) {
	var pub publish.Publisher
	if cfg.DryRun {
		pub = publish.NewLocal(cfg.OutputDir, log.Named("publish"))
	} else {
		pub = github.NewPublisher(client, cfg.GitHub.Organization, cfg.GitHub.LeaderboardRepo, cfg.LeaderboardDir(),
			github.WithRunID(runID),
			github.WithRateLimit(cfg.GitHub.RequestsPerSecond),
			github.WithLogger(log.Named("publish")),
		)
	}
	if cfg.Archive.Driver == "" {
		return pub, func() {}, nil
	}

	arc, err := archive.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN,
		archive.WithRunID(runID),
		archive.WithLogger(log.Named("archive")),
	)
	if err != nil {
		return nil, nil, err
	}
	closeArchive := func() {
		if err := arc.Close(); err != nil {
			log.Warn(ctx, "failed to close archive", logger.Error(err))
		}
	}
	return publish.Multi{pub, arc}, closeArchive, nil
}

// printSummary renders one line per published leaderboard.
func printSummary(w io.Writer, s service.Summary, runErr error) {
	color.New(color.FgCyan).Fprintf(w, "\nRun %s: %d teams, %d entries\n", s.RunID, s.Teams, s.Entries)

	if len(s.Boards) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Leaderboard", "Rows", "Missing", "Top Score", "Top Method", "Top Member"})
		for _, b := range s.Boards {
			row := []string{b.Name, strconv.Itoa(b.Rows), strconv.Itoa(b.Missing), "", "", ""}
			if b.Top != nil {
				row[3] = aggregate.FormatScore(b.Top.Score)
				row[4] = b.Top.Method
				row[5] = b.Top.Member
			}
			table.Append(row)
		}
		table.Render()
	}

	if runErr != nil {
		color.New(color.FgRed).Fprintf(w, "Run failed after %s: %v\n", s.Duration, runErr)
		return
	}
	color.New(color.FgGreen).Fprintf(w, "Published %d leaderboards in %s\n", len(s.Boards), s.Duration)
}
