package github

import "errors"

// Sentinel kinds for GitHub access failures.
var (
	ErrListRepositories = errors.New("list organization repositories")
	ErrCollaborators    = errors.New("list collaborators")
	ErrDownload         = errors.New("download file")
)
