package local

import "github.com/okian/gradeboard/pkg/logger"

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithPrefix keeps only team directories starting with prefix.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// WithResultsDir sets the per-team folder holding submissions.
func WithResultsDir(dir string) Option {
	return func(s *Source) {
		if dir != "" {
			s.resultsDir = dir
		}
	}
}

// WithStaff excludes staff members and staff-named teams.
func WithStaff(staff []string) Option {
	return func(s *Source) {
		s.staff = staff
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l
		}
	}
}
