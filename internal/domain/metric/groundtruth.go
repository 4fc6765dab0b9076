package metric

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/gradeboard/internal/domain/table"
)

// ReadTable loads and parses one ground-truth file from dir.
func ReadTable(dir, name string) (*table.Table, error) {
	p := filepath.Join(dir, name)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: test data file not found: %s", ErrGroundTruth, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrGroundTruth, p, err)
	}
	t, err := table.Parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGroundTruth, err)
	}
	return t, nil
}

// RequireColumn returns the named column or a ground-truth error.
func RequireColumn(t *table.Table, file, column string) ([]string, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %q column", ErrGroundTruth, file, column)
	}
	return col, nil
}
