package model

import "math"

// Sentinel row values for teams without any recognized submission.
const (
	MissingMethod  = "N/A"
	MissingComment = "Missing results files"
)

// Entry is one scored row destined for a named leaderboard.
// A nil Score is null and must carry a non-empty Comment.
type Entry struct {
	Leaderboard string
	Score       *float64
	Method      string
	Member      string
	Comment     string
}

// Row returns the published projection of the entry (no leaderboard name).
func (e Entry) Row() Row {
	return Row{Score: e.Score, Method: e.Method, Member: e.Member, Comment: e.Comment}
}

// Row is a published leaderboard line.
type Row struct {
	Score   *float64
	Method  string
	Member  string
	Comment string
}

// RankScore is the value used for comparisons: null ranks as -Inf.
func (r Row) RankScore() float64 {
	if r.Score == nil {
		return math.Inf(-1)
	}
	return *r.Score
}

// Table is an aggregated, sorted leaderboard.
type Table struct {
	Name string
	Rows []Row
}

// Entries expands the table back into entries, e.g. to feed it through
// aggregation again.
func (t Table) Entries() []Entry {
	out := make([]Entry, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = Entry{
			Leaderboard: t.Name,
			Score:       r.Score,
			Method:      r.Method,
			Member:      r.Member,
			Comment:     r.Comment,
		}
	}
	return out
}

// Float returns a pointer to v, for building non-null scores.
func Float(v float64) *float64 { return &v }
