package archive

import "errors"

// Sentinel kinds for archive failures.
var (
	ErrUnsupportedDriver = errors.New("unsupported archive driver")
	ErrMigrate           = errors.New("prepare archive schema")
)
