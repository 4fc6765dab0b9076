package metric

import "errors"

// Sentinel kinds for assignment selection and loading.
var (
	ErrUnknownAssignment = errors.New("unknown assignment scorer")
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrGroundTruth       = errors.New("ground truth unavailable")
)
