// Package accuracy scores text classification submissions by the fraction
// of rows whose predicted label equals the reference label.
package accuracy

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/internal/domain/table"
)

// Name is the registry identifier.
const Name = "accuracy"

// ErrorComment prefixes every failed computation.
const ErrorComment = "Error computing accuracy!"

// Dataset describes one classification task.
type Dataset struct {
	// Name is the file-name token, e.g. "sst2".
	Name string
	// LabelColumn holds the class in both submission and reference.
	LabelColumn string
	// File is the reference file inside the test data directory.
	File string
}

// Leaderboard is the board this dataset publishes to.
func (d Dataset) Leaderboard() string { return "leaderboard_" + d.Name }

// Datasets are the built-in classification tasks.
var Datasets = []Dataset{
	{Name: "newsgroups", LabelColumn: "newsgroup", File: "newsgroups_test_labels.csv"},
	{Name: "sst2", LabelColumn: "label", File: "sst2_test_labels.csv"},
}

// Labels maps a dataset name to its reference labels in row order.
type Labels map[string][]string

// Adapter implements metric.Adapter for classification accuracy.
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

// Load reads every dataset's reference labels from dir.
func (a *Adapter) Load(dir string) (metric.GroundTruth, error) {
	labels := make(Labels, len(a.datasets))
	for _, d := range a.datasets {
		t, err := metric.ReadTable(dir, d.File)
		if err != nil {
			return nil, err
		}
		col, err := metric.RequireColumn(t, d.File, d.LabelColumn)
		if err != nil {
			return nil, err
		}
		labels[d.Name] = col
	}
	return labels, nil
}

func (a *Adapter) dataset(name string) (Dataset, bool) {
	i := slices.IndexFunc(a.datasets, func(d Dataset) bool { return d.Name == name })
	if i < 0 {
		return Dataset{}, false
	}
	return a.datasets[i], true
}

// Score computes accuracy for one predictions file.
func (a *Adapter) Score(fileName string, t *table.Table, gt metric.GroundTruth) []metric.Result {
	fn, ok := metric.ParseFileName(fileName)
	d, known := a.dataset(fn.Dataset)
	if !ok || !known {
		comment := fmt.Sprintf("Dataset in file %s not recognized", fileName)
		out := make([]metric.Result, 0, len(a.datasets))
		for _, board := range a.Leaderboards() {
			out = append(out, metric.Failed(board, fn.Method, comment))
		}
		return out
	}

	board := d.Leaderboard()
	if t == nil {
		return []metric.Result{metric.Failed(board, fn.Method, "Error reading CSV!")}
	}

	labels, ok := gt.(Labels)
	if !ok {
		return []metric.Result{metric.Failed(board, fn.Method, ErrorComment+" no reference labels loaded")}
	}
	acc, err := Compute(labels[d.Name], t, d.LabelColumn)
	if err != nil {
		return []metric.Result{metric.Failed(board, fn.Method, fmt.Sprintf("%s %v", ErrorComment, err))}
	}
	return []metric.Result{metric.Scored(board, fn.Method, acc)}
}

// Compute returns the fraction of rows in t whose column value equals the
// reference at the same position.
func Compute(want []string, t *table.Table, column string) (float64, error) {
	got, ok := t.Column(column)
	if !ok {
		return 0, fmt.Errorf("missing column %q", column)
	}
	if len(want) == 0 {
		return 0, errors.New("no reference labels")
	}
	if len(got) != len(want) {
		return 0, fmt.Errorf("found %d predictions, expected %d", len(got), len(want))
	}
	correct := 0
	for i := range want {
		if sameLabel(got[i], want[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(want)), nil
}

// sameLabel compares labels as text, or numerically when both are numbers
// so that "1" and "1.0" agree.
func sameLabel(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && x == y
}
