package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvPrefix     = "GRADEBOARD_"
	EnvConfigPath = "GRADEBOARD_CONFIG"
	EnvUsername   = "GITHUB_USERNAME"
	EnvToken      = "GITHUB_TOKEN"
)

var validate = newValidator()

// metricName matches a valid Prometheus name prefix.
var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("metricname", validateMetricName); err != nil {
		panic(fmt.Sprintf("register metricname validator: %v", err))
	}
	return v
}

func validateMetricName(fl validator.FieldLevel) bool {
	return metricName.MatchString(fl.Field().String())
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) at path, or at GRADEBOARD_CONFIG when path is empty
//  3. env (prefix GRADEBOARD_, "__" separates nested keys)
//  4. overrides, e.g. command line flags
func Load(ctx context.Context, path string, overrides ...func(*Config)) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := checkKnownFields(path); err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GRADEBOARD_GITHUB__ORGANIZATION -> github.organization
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkKnownFields rejects YAML keys that do not map to a Config field, so
// a misspelled key fails the run instead of silently using a default.
func checkKnownFields(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var strict Config
	if err := dec.Decode(&strict); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks field constraints and the combinations a run needs.
func (c *Config) Validate(_ context.Context) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var problems []string
	if c.ScorerName() == "" {
		problems = append(problems, "scorer must be set")
	}
	if c.LocalSource == "" && c.GitHub.Organization == "" {
		problems = append(problems, "github.organization is required unless local_source is set")
	}
	if !c.DryRun {
		if c.GitHub.Organization == "" {
			problems = append(problems, "github.organization is required to publish")
		}
		if c.GitHub.LeaderboardRepo == "" {
			problems = append(problems, "github.leaderboard_repo is required to publish")
		}
		if c.GitHub.AssignmentName == "" {
			problems = append(problems, "github.assignment_name is required to publish")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Credentials authenticate against GitHub.
type Credentials struct {
	Username string
	Token    string
}

// LoadCredentials reads GITHUB_USERNAME and GITHUB_TOKEN after loading the
// given dotenv files (".env" when none are given). Missing dotenv files are
// not an error; existing variables are never overwritten.
func LoadCredentials(files ...string) (Credentials, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w: dotenv: %w", ErrLoadConfig, err)
	}
	c := Credentials{
		Username: strings.TrimSpace(os.Getenv(EnvUsername)),
		Token:    strings.TrimSpace(os.Getenv(EnvToken)),
	}
	if c.Username == "" || c.Token == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return c, nil
}
