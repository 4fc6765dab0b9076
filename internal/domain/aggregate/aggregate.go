// Package aggregate turns the flat entry list of a run into one sorted,
// deduplicated table per leaderboard.
package aggregate

import (
	"slices"

	"github.com/okian/gradeboard/internal/domain/dedupe"
	"github.com/okian/gradeboard/internal/domain/model"
)

// SortFunc orders the rows of one leaderboard in place.
type SortFunc func(rows []model.Row)

// Aggregate partitions entries by leaderboard, keeps the worst row per
// (member, method) and sorts each board with sortFn. Tables are returned
// ordered by name. Input entries are not modified.
func Aggregate(entries []model.Entry, sortFn SortFunc) []model.Table {
	counts := make(map[string]int)
	var names []string
	for _, e := range entries {
		if counts[e.Leaderboard] == 0 {
			names = append(names, e.Leaderboard)
		}
		counts[e.Leaderboard]++
	}

	keepers := make(map[string]*dedupe.WorstKeeper, len(names))
	for _, name := range names {
		keepers[name] = dedupe.NewWorstKeeper(dedupe.WithCapacity(counts[name]))
	}
	for _, e := range entries {
		keepers[e.Leaderboard].Offer(e.Row())
	}
	slices.Sort(names)

	tables := make([]model.Table, 0, len(names))
	for _, name := range names {
		rows := keepers[name].Rows()
		if sortFn != nil {
			sortFn(rows)
		}
		tables = append(tables, model.Table{Name: name, Rows: rows})
	}
	return tables
}

// Entries flattens tables back into entries.
func Entries(tables []model.Table) []model.Entry {
	var out []model.Entry
	for _, t := range tables {
		out = append(out, t.Entries()...)
	}
	return out
}
