package metric

import (
	"path"
	"strings"
)

// FileName is a submission file name split on FileNameDelimiter, e.g.
// "mlp_newsgroups_test_predictions.csv" -> Method "mlp", Dataset
// "newsgroups", Rest ["test", "predictions"].
type FileName struct {
	Raw     string
	Method  string
	Dataset string
	Rest    []string
}

// ParseFileName splits name into tokens. ok is false when the name does
// not carry at least a method and a dataset token.
func ParseFileName(name string) (FileName, bool) {
	base := strings.TrimSuffix(name, path.Ext(name))
	tokens := strings.Split(base, FileNameDelimiter)
	fn := FileName{Raw: name}
	if len(tokens) < 2 || tokens[0] == "" || tokens[1] == "" {
		if len(tokens) > 0 {
			fn.Method = tokens[0]
		}
		return fn, false
	}
	fn.Method = tokens[0]
	fn.Dataset = tokens[1]
	fn.Rest = tokens[2:]
	return fn, true
}

// MatchPrefix returns the longest candidate that name starts with, or "".
// Used where method names themselves contain the delimiter.
func MatchPrefix(name string, candidates []string) string {
	best := ""
	for _, c := range candidates {
		if strings.HasPrefix(name, c) && len(c) > len(best) {
			best = c
		}
	}
	return best
}
