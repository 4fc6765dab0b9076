package github

import (
	"context"
	"crypto/sha1" //nolint:gosec // git object ids are SHA-1
	"encoding/hex"
	"fmt"
	"path"

	gh "github.com/google/go-github/v66/github"

	"github.com/okian/gradeboard/internal/adapters/publish"
	"github.com/okian/gradeboard/pkg/logger"
	"github.com/okian/gradeboard/pkg/metrics"
)

// Commit messages.
const (
	createMessage = "Create leaderboard"
	updateMessage = "Leaderboard Update"
	metricsTarget = "github"
)

// Publisher creates or updates <dir>/<leaderboard>.csv in a repository.
type Publisher struct {
	client *gh.Client
	owner  string
	repo   string
	dir    string
	settings
}

var _ publish.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher writing into owner/repo under dir.
func NewPublisher(client *gh.Client, owner, repo, dir string, opts ...Option) *Publisher {
	return &Publisher{client: client, owner: owner, repo: repo, dir: dir, settings: newSettings(opts)}
}

// Publish creates the file when it does not exist, updates it when its
// content differs and leaves it alone otherwise.
func (p *Publisher) Publish(ctx context.Context, leaderboard string, csv []byte) error {
	filePath := path.Join(p.dir, leaderboard+publish.Extension)
	log := p.log.With(logger.String("leaderboard", leaderboard), logger.String("path", filePath))

	if err := p.wait(ctx); err != nil {
		return p.fail(leaderboard, err)
	}
	existing, _, _, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, filePath, nil)
	switch {
	case isNotFound(err):
		if err := p.wait(ctx); err != nil {
			return p.fail(leaderboard, err)
		}
		_, _, err = p.client.Repositories.CreateFile(ctx, p.owner, p.repo, filePath, &gh.RepositoryContentFileOptions{
			Message: gh.String(p.message(createMessage)),
			Content: csv,
		})
		if err != nil {
			return p.fail(leaderboard, err)
		}
		metrics.RecordPublish(metricsTarget, metrics.PublishCreated)
		log.Info(ctx, "created leaderboard")
		return nil
	case err != nil:
		return p.fail(leaderboard, err)
	case existing == nil:
		return p.fail(leaderboard, fmt.Errorf("%s is a directory", filePath))
	}

	if existing.GetSHA() == BlobSHA(csv) {
		metrics.RecordPublish(metricsTarget, metrics.PublishUnchanged)
		log.Info(ctx, "leaderboard unchanged")
		return nil
	}

	if err := p.wait(ctx); err != nil {
		return p.fail(leaderboard, err)
	}
	_, _, err = p.client.Repositories.UpdateFile(ctx, p.owner, p.repo, filePath, &gh.RepositoryContentFileOptions{
		Message: gh.String(p.message(updateMessage)),
		Content: csv,
		SHA:     gh.String(existing.GetSHA()),
	})
	if err != nil {
		return p.fail(leaderboard, err)
	}
	metrics.RecordPublish(metricsTarget, metrics.PublishUpdated)
	log.Info(ctx, "updated leaderboard")
	return nil
}

func (p *Publisher) message(base string) string {
	if p.runID == "" {
		return base
	}
	return fmt.Sprintf("%s (run %s)", base, p.runID)
}

func (p *Publisher) fail(leaderboard string, err error) error {
	metrics.RecordPublish(metricsTarget, metrics.PublishFailed)
	return fmt.Errorf("%w: %s: %w", publish.ErrPublish, leaderboard, err)
}

// BlobSHA returns the git object id of content stored as a blob.
func BlobSHA(content []byte) string {
	h := sha1.New() //nolint:gosec // git object ids are SHA-1
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
