// Package config defines run configuration and its loading.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and GRADEBOARD_* env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"path/filepath"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" yaml:"log_format" validate:"oneof=text json"`

	// DryRun writes leaderboards to OutputDir instead of GitHub.
	DryRun    bool   `koanf:"dry_run" yaml:"dry_run"`
	OutputDir string `koanf:"output_dir" yaml:"output_dir" validate:"required"`

	GitHub GitHub `koanf:"github" yaml:"github"`

	// Staff logins are never listed as members; repositories whose name
	// contains one are skipped.
	Staff []string `koanf:"staff" yaml:"staff"`

	TestData TestData `koanf:"test_data" yaml:"test_data"`

	// ResultsFiles is the allow-list of file name suffixes to score.
	ResultsFiles []string `koanf:"results_files" yaml:"results_files"`

	// Scorer selects the assignment from the registry.
	Scorer string `koanf:"scorer" yaml:"scorer"`
	// UtilsModule is the legacy name of Scorer, e.g. "assignment_1_utils".
	UtilsModule string `koanf:"utils_module" yaml:"utils_module"`

	// MemberLabel is the member policy: joined or per_member.
	MemberLabel string `koanf:"member_label" yaml:"member_label" validate:"oneof=joined per_member"`
	// DefaultLeaderboards receive sentinel rows; empty uses the assignment's.
	DefaultLeaderboards []string `koanf:"default_leaderboards" yaml:"default_leaderboards"`

	// LocalSource reads teams from a directory instead of GitHub.
	LocalSource string `koanf:"local_source" yaml:"local_source"`
	// MetricsFile receives a Prometheus textfile at the end of the run.
	MetricsFile string `koanf:"metrics_file" yaml:"metrics_file"`
	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace" yaml:"metrics_namespace" validate:"metricname"`

	Archive Archive `koanf:"archive" yaml:"archive"`
}

// GitHub configures the organization holding team repositories and the
// repository receiving leaderboards.
type GitHub struct {
	Organization     string `koanf:"organization" yaml:"organization"`
	LeaderboardRepo  string `koanf:"leaderboard_repo" yaml:"leaderboard_repo"`
	AssignmentPrefix string `koanf:"assignment_prefix" yaml:"assignment_prefix"`
	AssignmentName   string `koanf:"assignment_name" yaml:"assignment_name"`
	ResultsDir       string `koanf:"results_dir" yaml:"results_dir" validate:"required"`
	// RequestsPerSecond caps API calls; 0 disables limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Concurrency       int     `koanf:"concurrency" yaml:"concurrency" validate:"gte=1,lte=64"`
}

// TestData locates the held-out ground truth.
type TestData struct {
	Directory          string `koanf:"directory" yaml:"directory"`
	AssignmentTestData string `koanf:"assignment_test_data" yaml:"assignment_test_data"`
}

// Archive configures the optional SQL history of published leaderboards.
type Archive struct {
	Driver string `koanf:"driver" yaml:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" yaml:"dsn" validate:"required_with=Driver"`
}

// legacyScorers maps module names of older configuration files.
var legacyScorers = map[string]string{
	"assignment_1_utils": "accuracy",
	"assignment_2_utils": "wer",
	"assignment_3_utils": "embedding",
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		OutputDir:        "dry_run",
		MemberLabel:      "joined",
		MetricsNamespace: "gradeboard",
		GitHub: GitHub{
			ResultsDir:        "results",
			RequestsPerSecond: 10,
			Concurrency:       8,
		},
	}
}

// ScorerName returns the registry key, resolving the legacy module name.
func (c *Config) ScorerName() string {
	if c.Scorer != "" {
		return c.Scorer
	}
	if name, ok := legacyScorers[c.UtilsModule]; ok {
		return name
	}
	return c.UtilsModule
}

// TestDataDir is the directory holding this assignment's ground truth.
func (c *Config) TestDataDir() string {
	return filepath.Join(c.TestData.Directory, c.TestData.AssignmentTestData)
}

// LeaderboardDir is the folder in the leaderboard repository that receives
// this assignment's boards.
func (c *Config) LeaderboardDir() string {
	return c.GitHub.AssignmentName + "-leaderboard"
}

// UsesGitHub reports whether the run talks to GitHub at all.
func (c *Config) UsesGitHub() bool {
	return c.LocalSource == "" || !c.DryRun
}
