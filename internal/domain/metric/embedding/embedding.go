// Package embedding scores word embedding submissions by the Spearman
// correlation between embedding similarity and human similarity judgments.
package embedding

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/internal/domain/table"
)

// Name is the registry identifier.
const Name = "embedding"

// MaxDimensions bounds the size of every submitted vector.
const MaxDimensions = 1024

// AllDatasets is the dataset token that targets every dataset at once.
const AllDatasets = "all"

// similarityDigits is the precision of each pairwise similarity.
const similarityDigits = 6

// Comments attached to rejected submissions.
const (
	CommentReadError    = "Error reading result embeddings!"
	CommentTooLarge     = "Embedding size exceeds limit of 1024!"
	CommentNaN          = "Error computing correlation: the score is nan"
	commentComputeError = "Error computing correlation: "
)

// Dataset is one word-similarity benchmark.
type Dataset struct {
	Name string
	// PairsFile lists the word pairs, ScoresFile the human judgments in
	// the same row order.
	PairsFile  string
	ScoresFile string
}

// Leaderboard is the board this dataset publishes to.
func (d Dataset) Leaderboard() string { return "leaderboard_" + d.Name }

// Datasets are the built-in benchmarks.
var Datasets = []Dataset{
	{Name: "cont", PairsFile: "contextual_test_x.csv", ScoresFile: "contextual_test_y.csv"},
	{Name: "isol", PairsFile: "isolated_test_x.csv", ScoresFile: "isolated_test_y.csv"},
}

// Pairs holds one benchmark's word pairs and human scores.
type Pairs struct {
	Words1 []string
	Words2 []string
	Human  []float64
}

// Benchmarks maps dataset names to their pairs.
type Benchmarks map[string]Pairs

// Adapter implements metric.Adapter for embedding similarity.
type Adapter struct {
	datasets []Dataset
}

// New creates an adapter for the given datasets, Datasets when none given.
func New(datasets ...Dataset) *Adapter {
	if len(datasets) == 0 {
		datasets = Datasets
	}
	return &Adapter{datasets: datasets}
}

// Assignment returns the capability set registered under Name.
func Assignment() metric.Assignment {
	a := New()
	return metric.Assignment{
		Name:            Name,
		Leaderboards:    a.Leaderboards(),
		Adapter:         a,
		Sort:            metric.SortDescending,
		LoadGroundTruth: a.Load,
	}
}

// Leaderboards lists one board per dataset.
func (a *Adapter) Leaderboards() []string {
	out := make([]string, len(a.datasets))
	for i, d := range a.datasets {
		out[i] = d.Leaderboard()
	}
	return out
}

// Load reads every benchmark from dir. Pairs come from the "word1" and
// "word2" columns, or the first two columns when those are absent; human
// scores come from the first column of the scores file.
func (a *Adapter) Load(dir string) (metric.GroundTruth, error) {
	out := make(Benchmarks, len(a.datasets))
	for _, d := range a.datasets {
		p, err := loadPairs(dir, d)
		if err != nil {
			return nil, err
		}
		out[d.Name] = p
	}
	return out, nil
}

func loadPairs(dir string, d Dataset) (Pairs, error) {
	x, err := metric.ReadTable(dir, d.PairsFile)
	if err != nil {
		return Pairs{}, err
	}
	y, err := metric.ReadTable(dir, d.ScoresFile)
	if err != nil {
		return Pairs{}, err
	}

	c1, c2 := "word1", "word2"
	if !x.Has(c1) || !x.Has(c2) {
		cols := x.Columns()
		if len(cols) < 2 {
			return Pairs{}, fmt.Errorf("%w: %s needs two word columns", metric.ErrGroundTruth, d.PairsFile)
		}
		c1, c2 = cols[0], cols[1]
	}
	w1, _ := x.Column(c1)
	w2, _ := x.Column(c2)

	scoreCol, _ := y.Column(y.Columns()[0])
	human := make([]float64, len(scoreCol))
	for i, s := range scoreCol {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Pairs{}, fmt.Errorf("%w: %s row %d: %w", metric.ErrGroundTruth, d.ScoresFile, i+1, err)
		}
		human[i] = v
	}
	if len(human) != len(w1) {
		return Pairs{}, fmt.Errorf("%w: %s has %d scores for %d pairs", metric.ErrGroundTruth, d.ScoresFile, len(human), len(w1))
	}
	return Pairs{Words1: w1, Words2: w2, Human: human}, nil
}

// Score computes the correlation for one embeddings file. The dataset
// token "all" scores the file against every benchmark.
func (a *Adapter) Score(fileName string, t *table.Table, gt metric.GroundTruth) []metric.Result {
	fn, ok := metric.ParseFileName(fileName)
	targets := a.targets(fn.Dataset)
	if !ok || len(targets) == 0 {
		comment := fmt.Sprintf("Dataset in file %s not recognized", fileName)
		out := make([]metric.Result, 0, len(a.datasets))
		for _, board := range a.Leaderboards() {
			out = append(out, metric.Failed(board, fn.Method, comment))
		}
		return out
	}

	failAll := func(comment string) []metric.Result {
		out := make([]metric.Result, len(targets))
		for i, d := range targets {
			out[i] = metric.Failed(d.Leaderboard(), fn.Method, comment)
		}
		return out
	}

	if t == nil || !t.Has(table.WordColumn) || !t.Has(table.VectorColumn) {
		return failAll(CommentReadError)
	}
	words, _ := t.Column(table.WordColumn)
	raw, _ := t.Column(table.VectorColumn)
	if !WithinLimit(raw, MaxDimensions) {
		return failAll(CommentTooLarge)
	}
	vectors, err := readVectors(words, raw)
	if err != nil {
		return failAll(CommentReadError + " " + err.Error())
	}

	bench, _ := gt.(Benchmarks)
	out := make([]metric.Result, 0, len(targets))
	for _, d := range targets {
		pairs, ok := bench[d.Name]
		if !ok {
			out = append(out, metric.Failed(d.Leaderboard(), fn.Method, commentComputeError+"no reference pairs loaded"))
			continue
		}
		rho, err := Correlate(vectors, pairs)
		switch {
		case err != nil:
			out = append(out, metric.Failed(d.Leaderboard(), fn.Method, commentComputeError+err.Error()))
		case math.IsNaN(rho):
			out = append(out, metric.Failed(d.Leaderboard(), fn.Method, CommentNaN))
		default:
			out = append(out, metric.Scored(d.Leaderboard(), fn.Method, metric.RoundTo(rho, similarityDigits)))
		}
	}
	return out
}

func (a *Adapter) targets(dataset string) []Dataset {
	if dataset == AllDatasets {
		return a.datasets
	}
	i := slices.IndexFunc(a.datasets, func(d Dataset) bool { return d.Name == dataset })
	if i < 0 {
		return nil
	}
	return a.datasets[i : i+1]
}

// WithinLimit reports whether every whitespace separated vector has at
// most limit values.
func WithinLimit(vectors []string, limit int) bool {
	for _, v := range vectors {
		if len(strings.Fields(v)) > limit {
			return false
		}
	}
	return true
}

// readVectors decodes vectors keyed by word. The first occurrence of a
// word wins. Every component must be finite.
func readVectors(words, raw []string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(words))
	for i, w := range words {
		if _, seen := out[w]; seen {
			continue
		}
		fields := strings.Fields(raw[i])
		vec := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("word %q: %w", w, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("word %q: non-finite value %q", w, f)
			}
			vec[j] = v
		}
		out[w] = vec
	}
	return out, nil
}

// Correlate computes the Spearman correlation between the dot-product
// similarity of each pair and the human scores. Similarities are rounded
// to six digits first. An undefined similarity makes the result NaN.
func Correlate(vectors map[string][]float64, pairs Pairs) (float64, error) {
	sims := make([]float64, len(pairs.Words1))
	for i := range pairs.Words1 {
		a, ok := vectors[pairs.Words1[i]]
		if !ok {
			return 0, fmt.Errorf("missing embedding for %q", pairs.Words1[i])
		}
		b, ok := vectors[pairs.Words2[i]]
		if !ok {
			return 0, fmt.Errorf("missing embedding for %q", pairs.Words2[i])
		}
		if len(a) != len(b) {
			return 0, fmt.Errorf("dimension mismatch between %q (%d) and %q (%d)",
				pairs.Words1[i], len(a), pairs.Words2[i], len(b))
		}
		sims[i] = metric.RoundTo(floats.Dot(a, b), similarityDigits)
		if math.IsNaN(sims[i]) {
			return math.NaN(), nil
		}
	}
	return Spearman(sims, pairs.Human), nil
}

// Spearman returns the rank correlation of x and y with tied values
// sharing their average rank. It is NaN when either input is constant or
// has fewer than two values.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(Ranks(x), Ranks(y), nil)
}

// Ranks assigns 1-based ranks, averaging over ties.
func Ranks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		switch {
		case x[a] < x[b]:
			return -1
		case x[a] > x[b]:
			return 1
		}
		return 0
	})

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}
