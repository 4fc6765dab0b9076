// Package local reads team submissions from a directory tree, for offline
// rehearsal of a run:
//
//	<root>/<team>/MEMBERS          one login per line (optional)
//	<root>/<team>/<results>/<file> submission files
package local

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/gradeboard/internal/adapters/source"
	"github.com/okian/gradeboard/internal/domain/model"
	"github.com/okian/gradeboard/pkg/logger"
)

// MembersFile lists a team's members inside its directory.
const MembersFile = "MEMBERS"

const defaultResultsDir = "results"

// Source implements source.Source over the local filesystem.
type Source struct {
	root       string
	prefix     string
	resultsDir string
	staff      []string
	log        logger.Logger
}

var _ source.Source = (*Source)(nil)

// New creates a source rooted at dir.
func New(root string, opts ...Option) *Source {
	s := &Source{
		root:       root,
		resultsDir: defaultResultsDir,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Teams returns one team per directory under root whose name carries the
// configured prefix and no staff identifier.
func (s *Source) Teams(ctx context.Context) ([]model.Team, error) {
	dirs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read teams from %s: %w", s.root, err)
	}

	var teams []model.Team
	for _, d := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := d.Name()
		if !d.IsDir() || !strings.HasPrefix(name, s.prefix) {
			continue
		}
		if model.IsStaffTeam(name, s.staff) {
			s.log.Debug(ctx, "skipping staff team", logger.String("team", name))
			continue
		}
		dir := filepath.Join(s.root, name)
		members, err := readMembers(filepath.Join(dir, MembersFile))
		if err != nil {
			return nil, fmt.Errorf("members of %s: %w", name, err)
		}
		teams = append(teams, model.NewTeam(name, dir, members, s.staff))
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func readMembers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var members []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		members = append(members, line)
	}
	return members, sc.Err()
}

// Files lists regular files in the team's results directory.
func (s *Source) Files(ctx context.Context, team model.Team) ([]model.FileRef, error) {
	dir := filepath.Join(team.Handle, s.resultsDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info(ctx, "results folder not found", logger.String("team", team.Name))
		return nil, source.ErrNoResults
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	refs := make([]model.FileRef, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		refs = append(refs, model.FileRef{Name: e.Name(), Handle: filepath.Join(dir, e.Name())})
	}
	return refs, nil
}

// Fetch reads one file.
func (s *Source) Fetch(_ context.Context, _ model.Team, ref model.FileRef) ([]byte, error) {
	data, err := os.ReadFile(ref.Handle)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.Name, err)
	}
	return data, nil
}
