// Package model contains domain models passed between pipeline stages.
//
// Values are treated as immutable once built: every stage receives records
// and returns new ones (Team -> []Entry -> []Table).
package model

import (
	"slices"
	"strings"
)

// Team is one group of collaborators owning a submission repository.
type Team struct {
	// Name is the unique team (repository) name.
	Name string
	// Members are the non-staff logins, deduplicated and sorted.
	Members []string
	// Handle is an opaque reference the source adapter uses to list files.
	Handle string
}

// NewTeam builds a Team, dropping staff accounts from members and
// normalizing the member set for reproducible output.
func NewTeam(name, handle string, members []string, staff []string) Team {
	kept := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" || slices.Contains(staff, m) {
			continue
		}
		kept = append(kept, m)
	}
	slices.Sort(kept)
	kept = slices.Compact(kept)
	return Team{Name: name, Members: kept, Handle: handle}
}

// Label joins the members into the single team label used on boards.
// A team without members gets an empty label.
func (t Team) Label() string {
	return strings.Join(t.Members, " ")
}

// IsStaffTeam reports whether the team name contains any staff identifier.
// Such teams are excluded from the run entirely.
func IsStaffTeam(name string, staff []string) bool {
	for _, s := range staff {
		if s != "" && strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// FileRef is one entry of a team's remote file listing.
type FileRef struct {
	Name string
	// Handle is a blob SHA or a path, depending on the source.
	Handle string
}

// SubmissionFile is the resolved content of one team file. Err is set when
// the file could not be transported; Data is then nil.
type SubmissionFile struct {
	Name string
	Data []byte
	Err  error
}
