// Package metric defines the per-assignment scoring contract.
//
// An Adapter scores one parsed submission against ground truth and
// returns one Result per target leaderboard. Adapters are pure: no I/O,
// no panics on malformed input, and every failure is reported as a
// Result without a value plus a comment explaining why.
package metric

import (
	"math"
	"slices"
	"strings"

	"github.com/okian/gradeboard/internal/domain/model"
	"github.com/okian/gradeboard/internal/domain/table"
)

// Precision is the number of decimal digits published scores keep.
const Precision = 5

// FileNameDelimiter separates method and dataset tokens in file names.
const FileNameDelimiter = "_"

// GroundTruth is assignment-specific reference data. Each adapter knows the
// concrete type its own loader returns.
type GroundTruth any

// Result is the outcome of scoring one submission for one leaderboard.
type Result struct {
	Leaderboard string
	// Value is nil when no score could be computed.
	Value *float64
	// Method is empty when it could not be recognized.
	Method  string
	Comment string
}

// Adapter scores a submission. t is nil when the file could not be read.
type Adapter interface {
	Score(fileName string, t *table.Table, gt GroundTruth) []Result
}

// AdapterFunc lets ordinary functions act as adapters.
type AdapterFunc func(fileName string, t *table.Table, gt GroundTruth) []Result

// Score calls f.
func (f AdapterFunc) Score(fileName string, t *table.Table, gt GroundTruth) []Result {
	return f(fileName, t, gt)
}

// Assignment is the capability set one assignment plugs into the pipeline.
type Assignment struct {
	// Name is the registry key selected by configuration.
	Name string
	// Leaderboards are the default boards, used for missing-submission rows.
	Leaderboards []string
	Adapter      Adapter
	// Sort orders the rows of one leaderboard. Nil means SortDescending.
	Sort func(rows []model.Row)
	// LoadGroundTruth reads reference data from a directory.
	LoadGroundTruth func(dir string) (GroundTruth, error)
}

// SortRows applies the assignment's ordering, falling back to the default.
func (a Assignment) SortRows(rows []model.Row) {
	if a.Sort != nil {
		a.Sort(rows)
		return
	}
	SortDescending(rows)
}

// SortDescending orders rows by (Score, Member, Method) descending with
// null scores ranking as -Inf. The sort is stable.
func SortDescending(rows []model.Row) {
	slices.SortStableFunc(rows, func(a, b model.Row) int {
		as, bs := a.RankScore(), b.RankScore()
		switch {
		case as > bs:
			return -1
		case as < bs:
			return 1
		}
		if c := strings.Compare(b.Member, a.Member); c != 0 {
			return c
		}
		return strings.Compare(b.Method, a.Method)
	})
}

// Round rounds v half away from zero to Precision digits.
func Round(v float64) float64 {
	return RoundTo(v, Precision)
}

// RoundTo rounds v half away from zero to the given number of digits.
// NaN and infinities are returned unchanged.
func RoundTo(v float64, digits int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}

// Scored builds a successful result with the value rounded.
func Scored(leaderboard, method string, v float64) Result {
	r := Round(v)
	return Result{Leaderboard: leaderboard, Value: &r, Method: method}
}

// Failed builds a result without a value.
func Failed(leaderboard, method, comment string) Result {
	return Result{Leaderboard: leaderboard, Method: method, Comment: comment}
}
