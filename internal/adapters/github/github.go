// Package github talks to a GitHub organization: it discovers assignment
// repositories as teams, downloads their results files and publishes
// leaderboards to a shared repository.
package github

import (
	"context"
	"errors"
	"net/http"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"github.com/okian/gradeboard/pkg/logger"
)

// Defaults for API access.
const (
	defaultResultsDir        = "results"
	defaultConcurrency       = 8
	defaultRequestsPerSecond = 10
	pageSize                 = 100
)

// NewClient creates an API client authenticated with a personal access
// token. httpClient may be nil.
func NewClient(token string, httpClient *http.Client) *gh.Client {
	return gh.NewClient(httpClient).WithAuthToken(token)
}

type settings struct {
	prefix      string
	resultsDir  string
	staff       []string
	concurrency int
	limiter     *rate.Limiter
	log         logger.Logger
	runID       string
}

func newSettings(opts []Option) settings {
	s := settings{
		resultsDir:  defaultResultsDir,
		concurrency: defaultConcurrency,
		limiter:     rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// wait blocks until the rate limiter admits one more request.
func (s settings) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func isNotFound(err error) bool {
	var er *gh.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}
