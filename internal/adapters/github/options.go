package github

import (
	"golang.org/x/time/rate"

	"github.com/okian/gradeboard/pkg/logger"
)

// Option applies a configuration option to a Source or Publisher.
type Option func(*settings)

// WithPrefix keeps only repositories whose name starts with prefix.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithStaff drops staff collaborators and staff-named repositories.
func WithStaff(staff []string) Option {
	return func(s *settings) {
		s.staff = staff
	}
}

// WithResultsDir sets the folder holding submissions in each repository.
func WithResultsDir(dir string) Option {
	return func(s *settings) {
		if dir != "" {
			s.resultsDir = dir
		}
	}
}

// WithConcurrency bounds parallel API calls.
func WithConcurrency(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(s *settings) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRunID tags commit messages with the run identifier.
func WithRunID(id string) Option {
	return func(s *settings) {
		s.runID = id
	}
}
