// Package wer scores speech recognition transcripts by word error rate.
package wer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/okian/gradeboard/internal/domain/metric"
	"github.com/okian/gradeboard/internal/domain/table"
)

// Name is the registry identifier.
const Name = "wer"

// Leaderboard is the single board this assignment publishes to.
const Leaderboard = "leaderboard_hub"

// Ground truth layout.
const (
	GroundTruthFile = "test_ground_truths.csv"
	IDColumn        = "id"
	SentenceColumn  = "sentences"
)

// Comments attached to rejected submissions.
const (
	CommentReadError      = "Error reading CSV!"
	CommentMissingID      = "Error: Missing required 'id' column in predictions DataFrame"
	CommentContentColumns = "Error: Predictions DataFrame should have exactly one non-'id' column"
	commentComputePrefix  = "Error computing WER score: "
)

// Methods are the recognized model names, matched as file name prefixes.
var Methods = []string{"character_n_gram", "subword_n_gram", "transformer"}

// Word codes live above the BMP, clear of the surrogate range.
const (
	firstWordRune = 0x10000
	lastWordRune  = 0x10FFFF
)

var errVocabulary = errors.New("too many distinct words")

// References are the ground-truth transcripts keyed by id, in file order.
type References struct {
	IDs       []string
	Sentences map[string]string
}

// NewReferences builds references from parallel id and sentence columns.
func NewReferences(ids, sentences []string) (References, error) {
	if len(ids) != len(sentences) {
		return References{}, fmt.Errorf("%d ids for %d sentences", len(ids), len(sentences))
	}
	refs := References{IDs: make([]string, 0, len(ids)), Sentences: make(map[string]string, len(ids))}
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := refs.Sentences[id]; dup {
			return References{}, fmt.Errorf("duplicate id %q", id)
		}
		refs.IDs = append(refs.IDs, id)
		refs.Sentences[id] = sentences[i]
	}
	return refs, nil
}

// Adapter implements metric.Adapter for word error rate.
type Adapter struct{}

// Assignment returns the capability set registered under Name.
func Assignment() metric.Assignment {
	a := Adapter{}
	return metric.Assignment{
		Name:            Name,
		Leaderboards:    []string{Leaderboard},
		Adapter:         a,
		Sort:            metric.SortDescending,
		LoadGroundTruth: a.Load,
	}
}

// Load reads the reference transcripts from dir.
func (Adapter) Load(dir string) (metric.GroundTruth, error) {
	t, err := metric.ReadTable(dir, GroundTruthFile)
	if err != nil {
		return nil, err
	}
	ids, err := metric.RequireColumn(t, GroundTruthFile, IDColumn)
	if err != nil {
		return nil, err
	}
	sentences, err := metric.RequireColumn(t, GroundTruthFile, SentenceColumn)
	if err != nil {
		return nil, err
	}
	refs, err := NewReferences(ids, sentences)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", metric.ErrGroundTruth, GroundTruthFile, err)
	}
	return refs, nil
}

// Score computes WER for one predictions file.
func (Adapter) Score(fileName string, t *table.Table, gt metric.GroundTruth) []metric.Result {
	method := metric.MatchPrefix(fileName, Methods)
	fail := func(comment string) []metric.Result {
		return []metric.Result{metric.Failed(Leaderboard, method, comment)}
	}

	switch {
	case method == "":
		return fail(fmt.Sprintf("Model name in file %s not recognized", fileName))
	case t == nil:
		return fail(CommentReadError)
	case !t.Has(IDColumn):
		return fail(CommentMissingID)
	}

	var content []string
	for _, c := range t.Columns() {
		if c != IDColumn {
			content = append(content, c)
		}
	}
	if len(content) != 1 {
		return fail(CommentContentColumns)
	}

	refs, ok := gt.(References)
	if !ok {
		return fail(commentComputePrefix + "no references loaded")
	}
	ids, _ := t.Column(IDColumn)
	hyps, _ := t.Column(content[0])
	predictions, references, err := align(ids, hyps, refs)
	if err != nil {
		return fail(commentComputePrefix + err.Error())
	}
	score, err := Compute(predictions, references)
	if err != nil {
		return fail(commentComputePrefix + err.Error())
	}
	return []metric.Result{metric.Scored(Leaderboard, method, score)}
}

// align orders predictions to match the reference id order.
func align(ids, hyps []string, refs References) (predictions, references []string, err error) {
	if len(ids) != len(refs.IDs) {
		return nil, nil, fmt.Errorf("expected %d predictions, found %d", len(refs.IDs), len(ids))
	}
	byID := make(map[string]string, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := byID[id]; dup {
			return nil, nil, fmt.Errorf("duplicate prediction for id %s", id)
		}
		byID[id] = hyps[i]
	}
	predictions = make([]string, len(refs.IDs))
	references = make([]string, len(refs.IDs))
	for i, id := range refs.IDs {
		p, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("missing prediction for id %s", id)
		}
		predictions[i] = p
		references[i] = refs.Sentences[id]
	}
	return predictions, references, nil
}

// Compute returns the corpus word error rate: the total number of word
// substitutions, insertions and deletions divided by the number of
// reference words. Text is NFC normalized and split on whitespace.
func Compute(predictions, references []string) (float64, error) {
	if len(predictions) != len(references) {
		return 0, fmt.Errorf("%d predictions for %d references", len(predictions), len(references))
	}

	enc := newEncoder()
	edits, words := 0, 0
	for i := range references {
		ref := strings.Fields(norm.NFC.String(references[i]))
		hyp := strings.Fields(norm.NFC.String(predictions[i]))
		r, err := enc.encode(ref)
		if err != nil {
			return 0, err
		}
		h, err := enc.encode(hyp)
		if err != nil {
			return 0, err
		}
		edits += levenshtein.ComputeDistance(r, h)
		words += len(ref)
	}
	if words == 0 {
		return 0, errors.New("references contain no words")
	}
	return float64(edits) / float64(words), nil
}

// encoder maps each distinct word to one rune so that the character level
// edit distance over the encoded string equals the word level distance.
type encoder struct {
	runes map[string]rune
	next  rune
}

func newEncoder() *encoder {
	return &encoder{runes: make(map[string]rune), next: firstWordRune}
}

func (e *encoder) encode(words []string) (string, error) {
	out := make([]rune, len(words))
	for i, w := range words {
		r, ok := e.runes[w]
		if !ok {
			if e.next > lastWordRune {
				return "", errVocabulary
			}
			r = e.next
			e.runes[w] = r
			e.next++
		}
		out[i] = r
	}
	return string(out), nil
}
