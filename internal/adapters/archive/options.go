package archive

import (
	"time"

	"github.com/okian/gradeboard/pkg/logger"
)

// Option applies a configuration option to the Archive.
type Option func(*Archive)

// WithRunID tags every record with the run identifier.
func WithRunID(id string) Option {
	return func(a *Archive) {
		a.runID = id
	}
}

// WithClock overrides the publication timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.log = l
		}
	}
}
