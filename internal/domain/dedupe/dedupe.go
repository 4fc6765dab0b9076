// Package dedupe collapses repeated leaderboard rows to one row per key.
package dedupe

import (
	"math"

	"github.com/okian/gradeboard/internal/domain/model"
)

// Key identifies the rows that compete for a single leaderboard slot:
// one per (member, method).
type Key struct {
	Member string
	Method string
}

func keyOf(r model.Row) Key {
	return Key{Member: r.Member, Method: r.Method}
}

type slot struct {
	row   model.Row
	count int
}

// WorstKeeper keeps, for every key, the row with the lowest score. Null
// scores rank as -Inf. On equal scores the first row offered wins.
//
// A WorstKeeper is not safe for concurrent use; aggregation runs on a
// single goroutine.
type WorstKeeper struct {
	index map[Key]int
	slots []slot
}

// NewWorstKeeper creates an empty keeper.
func NewWorstKeeper(opts ...Option) *WorstKeeper {
	k := &WorstKeeper{}
	for _, opt := range opts {
		opt(k)
	}
	if k.index == nil {
		k.index = make(map[Key]int)
	}
	return k
}

// Offer records a row. It returns true when the row now occupies its
// key's slot.
func (k *WorstKeeper) Offer(r model.Row) bool {
	key := keyOf(r)
	i, exists := k.index[key]
	if !exists {
		k.index[key] = len(k.slots)
		k.slots = append(k.slots, slot{row: r, count: 1})
		return true
	}

	s := &k.slots[i]
	s.count++
	if r.RankScore() < s.row.RankScore() {
		s.row = r
		return true
	}
	return false
}

// Rows returns the kept rows in first-seen key order. When a key saw more
// than one row and the kept one is null, its score becomes -Inf; a null
// row without competitors stays null.
func (k *WorstKeeper) Rows() []model.Row {
	out := make([]model.Row, len(k.slots))
	for i, s := range k.slots {
		r := s.row
		if r.Score == nil && s.count > 1 {
			r.Score = model.Float(math.Inf(-1))
		}
		out[i] = r
	}
	return out
}

// Size returns the number of distinct keys seen.
func (k *WorstKeeper) Size() int {
	return len(k.slots)
}
