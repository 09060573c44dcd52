package contenttype

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Dataset is a table of exported rows, first the column names then one string per cell.
// Empty cells stand for NULL.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

func (ds Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(ds.Rows); err != nil { // flushes
		return err
	}
	return cw.Error()
}

func ReadCSV(r io.Reader) (Dataset, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return Dataset{}, core.NewValidationError(errors.Wrap(err, "invalid CSV"))
	}
	if len(records) == 0 {
		return Dataset{}, core.NewValidationError(errors.New("CSV file is empty"))
	}
	return Dataset{Headers: records[0], Rows: records[1:]}, nil
}

// Validate checks that every header is a registered column of m.
func (ds Dataset) Validate(m Model) error {
	if len(ds.Headers) == 0 {
		return core.NewValidationError(errors.New("no columns"))
	}
	seen := make(map[string]bool, len(ds.Headers))
	for _, h := range ds.Headers {
		if !m.HasColumn(h) {
			return core.NewValidationError(errors.Errorf("unknown column %q for %s", h, m.Key()))
		}
		if seen[h] {
			return core.NewValidationError(errors.Errorf("duplicate column %q", h))
		}
		seen[h] = true
	}
	for i, row := range ds.Rows {
		if len(row) != len(ds.Headers) {
			return core.NewValidationError(errors.Errorf("row %d: expected %d values, got %d", i+1, len(ds.Headers), len(row)))
		}
	}
	return nil
}

// ExportFilter restricts an export to rows with From <= DateField < To. A zero filter exports everything.
type ExportFilter struct {
	DateField string
	From, To  time.Time
}

func (f ExportFilter) IsEmpty() bool { return f.DateField == "" }

// DataIO exports and imports model rows generically.
type DataIO interface {
	Export(ctx context.Context, m Model, filter ExportFilter) (Dataset, error)
	// Import upserts rows by id (inserts when there is no id column) in a single transaction.
	Import(ctx context.Context, m Model, ds Dataset) (int, error)
}
