// Package source defines where teams and their submission files come from.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/gradeboard/internal/domain/model"
)

// ErrNoResults is returned by Files when a team has no results folder.
// Callers treat it as zero files, not as a failure.
var ErrNoResults = errors.New("results folder not found")

// Source lists teams and resolves their submission files.
type Source interface {
	// Teams returns every team taking part in the assignment, staff teams
	// excluded, in a stable order.
	Teams(ctx context.Context) ([]model.Team, error)
	// Files lists the team's results folder.
	Files(ctx context.Context, team model.Team) ([]model.FileRef, error)
	// Fetch downloads one file.
	Fetch(ctx context.Context, team model.Team, ref model.FileRef) ([]byte, error)
}

// Collect lists and downloads the files of one team that accept allows.
// Listing failures other than ErrNoResults are returned; a download
// failure is recorded on the file so the scorer can report it.
func Collect(ctx context.Context, src Source, team model.Team, accept func(string) bool) ([]model.SubmissionFile, error) {
	refs, err := src.Files(ctx, team)
	if errors.Is(err, ErrNoResults) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", team.Name, err)
	}

	out := make([]model.SubmissionFile, 0, len(refs))
	for _, ref := range refs {
		if accept != nil && !accept(ref.Name) {
			out = append(out, model.SubmissionFile{Name: ref.Name})
			continue
		}
		data, err := src.Fetch(ctx, team, ref)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			out = append(out, model.SubmissionFile{Name: ref.Name, Err: err})
			continue
		}
		out = append(out, model.SubmissionFile{Name: ref.Name, Data: data})
	}
	return out, nil
}
