package aggregate

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/gradeboard/internal/domain/model"
)

// Header is the published column order.
var Header = []string{"Score", "Method", "Member", "Comment"}

// RenderCSV serializes a table. Null scores are empty cells, -Inf is
// written as "-inf" and finite scores use the shortest representation
// that round-trips.
func RenderCSV(t model.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Name, err)
	}
	for _, r := range t.Rows {
		if err := w.Write([]string{FormatScore(r.Score), r.Method, r.Member, r.Comment}); err != nil {
			return nil, fmt.Errorf("render %s: %w", t.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render %s: %w", t.Name, err)
	}
	return buf.Bytes(), nil
}

// FormatScore renders one score cell.
func FormatScore(s *float64) string {
	switch {
	case s == nil:
		return ""
	case math.IsInf(*s, -1):
		return "-inf"
	case math.IsInf(*s, 1):
		return "inf"
	case math.IsNaN(*s):
		return ""
	}
	return strconv.FormatFloat(*s, 'f', -1, 64)
}
