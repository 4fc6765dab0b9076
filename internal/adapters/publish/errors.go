package publish

import "errors"

// Sentinel kinds for publish failures.
var (
	// ErrPublish marks a failure that must abort the run.
	ErrPublish = errors.New("publish leaderboard")
)
