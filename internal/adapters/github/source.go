package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"

	"github.com/okian/gradeboard/internal/adapters/source"
	"github.com/okian/gradeboard/internal/domain/model"
	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

// Source lists an organization's assignment repositories as teams.
type Source struct {
	client *gh.Client
	org    string
	settings
}

var _ source.Source = (*Source)(nil)

// NewSource creates a team source over org.
func NewSource(client *gh.Client, org string, opts ...Option) *Source {
	return &Source{client: client, org: org, settings: newSettings(opts)}
}

// Teams returns every repository carrying the assignment prefix, minus
// staff-named ones, with their non-staff collaborators as members. A
// repository whose collaborators cannot be listed becomes a team without
// members.
func (s *Source) Teams(ctx context.Context) ([]model.Team, error) {
	names, err := s.repositories(ctx)
	if err != nil {
		return nil, err
	}

	teams := make([]model.Team, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			logins, err := s.collaborators(gctx, name)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// The team stays on the board with an empty label.
				metrics.RecordFetchError()
				s.log.Warn(gctx, "listing collaborators failed",
					logger.String("repo", name),
					logger.Error(err),
				)
				logins = nil
			}
			teams[i] = model.NewTeam(name, name, logins, s.staff)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	s.log.Info(ctx, "loaded teams", logger.Int("count", len(teams)))
	return teams, nil
}

func (s *Source) repositories(ctx context.Context) ([]string, error) {
	opts := &gh.RepositoryListByOrgOptions{ListOptions: gh.ListOptions{PerPage: pageSize}}
	var names []string
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := s.client.Repositories.ListByOrg(ctx, s.org, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrListRepositories, s.org, err)
		}
		for _, r := range repos {
			name := r.GetName()
			if !strings.HasPrefix(name, s.prefix) {
				continue
			}
			if model.IsStaffTeam(name, s.staff) {
				s.log.Debug(ctx, "skipping staff repository", logger.String("repo", name))
				continue
			}
			names = append(names, name)
		}
		if resp == nil || resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

func (s *Source) collaborators(ctx context.Context, repo string) ([]string, error) {
	opts := &gh.ListCollaboratorsOptions{ListOptions: gh.ListOptions{PerPage: pageSize}}
	var logins []string
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		users, resp, err := s.client.Repositories.ListCollaborators(ctx, s.org, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCollaborators, repo, err)
		}
		for _, u := range users {
			logins = append(logins, u.GetLogin())
		}
		if resp == nil || resp.NextPage == 0 {
			return logins, nil
		}
		opts.Page = resp.NextPage
	}
}

// Files lists the results folder of a team repository. A missing folder
// yields source.ErrNoResults.
func (s *Source) Files(ctx context.Context, team model.Team) ([]model.FileRef, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	file, dir, _, err := s.client.Repositories.GetContents(ctx, s.org, team.Handle, s.resultsDir, nil)
	if isNotFound(err) || (err == nil && file != nil) {
		s.log.Info(ctx, "results folder not found", logger.String("team", team.Name))
		return nil, source.ErrNoResults
	}
	if err != nil {
		metrics.RecordFetchError()
		return nil, fmt.Errorf("list %s/%s: %w", team.Handle, s.resultsDir, err)
	}

	refs := make([]model.FileRef, 0, len(dir))
	for _, c := range dir {
		if c.GetType() != "file" {
			continue
		}
		refs = append(refs, model.FileRef{Name: c.GetName(), Handle: c.GetSHA()})
	}
	return refs, nil
}

// Fetch downloads a file through the blob API, which also serves files too
// large for the contents API.
func (s *Source) Fetch(ctx context.Context, team model.Team, ref model.FileRef) ([]byte, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	blob, _, err := s.client.Git.GetBlob(ctx, s.org, team.Handle, ref.Handle)
	if err != nil {
		metrics.RecordFetchError()
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, ref.Name, err)
	}
	data, err := decodeBlob(blob)
	if err != nil {
		metrics.RecordFetchError()
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, ref.Name, err)
	}
	return data, nil
}

func decodeBlob(b *gh.Blob) ([]byte, error) {
	content := b.GetContent()
	switch b.GetEncoding() {
	case "base64":
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
	case "utf-8", "":
		return []byte(content), nil
	default:
		return nil, fmt.Errorf("unsupported blob encoding %q", b.GetEncoding())
	}
}
