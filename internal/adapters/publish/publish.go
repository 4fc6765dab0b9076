// Package publish delivers rendered leaderboards to their destination.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

// Extension is appended to leaderboard names to form file names.
const Extension = ".csv"

// Publisher stores one rendered leaderboard.
type Publisher interface {
	Publish(ctx context.Context, leaderboard string, csv []byte) error
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, leaderboard string, csv []byte) error

// Publish calls f.
func (f Func) Publish(ctx context.Context, leaderboard string, csv []byte) error {
	return f(ctx, leaderboard, csv)
}

// Local writes leaderboards to <dir>/<leaderboard>.csv. It is the dry-run
// target.
type Local struct {
	dir string
	log logger.Logger
}

// NewLocal creates a Local publisher. The directory is created on first
// publish.
func NewLocal(dir string, l logger.Logger) *Local {
	if l == nil {
		l = logger.Nop()
	}
	return &Local{dir: dir, log: l}
}

// Publish writes the file, replacing any previous version.
func (p *Local) Publish(ctx context.Context, leaderboard string, csv []byte) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil { //nolint:gosec // output directory is meant to be readable
		metrics.RecordPublish("local", metrics.PublishFailed)
		return fmt.Errorf("%w: %s: %w", ErrPublish, leaderboard, err)
	}
	path := filepath.Join(p.dir, leaderboard+Extension)
	if err := os.WriteFile(path, csv, 0o644); err != nil { //nolint:gosec // published boards are public
		metrics.RecordPublish("local", metrics.PublishFailed)
		return fmt.Errorf("%w: %s: %w", ErrPublish, leaderboard, err)
	}
	metrics.RecordPublish("local", metrics.PublishWritten)
	p.log.Info(ctx, "wrote leaderboard", logger.String("leaderboard", leaderboard), logger.String("path", path))
	return nil
}

// Multi fans every leaderboard out to several publishers in order. All
// publishers are attempted; their errors are joined.
type Multi []Publisher

// Publish delivers to each publisher.
func (m Multi) Publish(ctx context.Context, leaderboard string, csv []byte) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, leaderboard, csv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
