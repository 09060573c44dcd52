// Package boiledrepos exports and imports rows of any registered model, building its queries with sqlboiler.
package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

// postgres
var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

func quote(ident string) string { return strmangle.IdentQuote(dialect.LQ, dialect.RQ, ident) }

func quoteAll(idents []string) []string {
	quoted := make([]string, 0, len(idents))
	for _, id := range idents {
		quoted = append(quoted, quote(id))
	}
	return quoted
}

type dataIO struct {
	db core.DB
}

var _ contenttype.DataIO = (*dataIO)(nil)

func NewDataIO(db core.DB) *dataIO {
	return &dataIO{db: db}
}

// exportQuery selects the registered columns of m, cast to text so any column type exports the same way.
func exportQuery(m contenttype.Model, filter contenttype.ExportFilter) *queries.Query {
	cols := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		cols = append(cols, quote(c)+"::text")
	}
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	mods := []qm.QueryMod{
		qm.Select(cols...),
		qm.From(quote(m.Table)),
	}
	if !filter.IsEmpty() {
		mods = append(mods,
			qm.Where(quote(filter.DateField)+" >= ?", filter.From.UTC()),
			qm.Where(quote(filter.DateField)+" < ?", filter.To.UTC()),
		)
	}
	mods = append(mods, qm.OrderBy(quote(m.Columns[0])))
	qm.Apply(q, mods...)
	return q
}

func (dio *dataIO) Export(ctx context.Context, m contenttype.Model, filter contenttype.ExportFilter) (contenttype.Dataset, error) {
	if !filter.IsEmpty() && !m.HasColumn(filter.DateField) {
		return contenttype.Dataset{}, errors.Errorf("%s has no column %s", m.Key(), filter.DateField)
	}
	rows, err := exportQuery(m, filter).QueryContext(ctx, dio.db)
	if err != nil {
		return contenttype.Dataset{}, errors.Wrapf(err, "querying %s", m.Table)
	}
	defer func() { _ = rows.Close() }()

	ds := contenttype.Dataset{Headers: m.Columns, Rows: make([][]string, 0)}
	for rows.Next() {
		cells := make([]sql.NullString, len(m.Columns))
		dest := make([]interface{}, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return contenttype.Dataset{}, errors.Wrapf(err, "scanning %s", m.Table)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = c.String // NULL exports as an empty cell
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, errors.Wrapf(rows.Err(), "reading %s", m.Table)
}

// upsertStatement inserts a row, updating it when its key (the first registered column) already exists.
func upsertStatement(m contenttype.Model, headers []string) string {
	if len(headers) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(m.Table))
	}
	key := m.Columns[0]
	hasKey := false
	updates := make([]string, 0, len(headers))
	for _, h := range headers {
		if h == key {
			hasKey = true
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quote(h), quote(h)))
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(m.Table),
		strings.Join(quoteAll(headers), ", "),
		strmangle.Placeholders(dialect.UseIndexPlaceholders, len(headers), 1, 1),
	)
	if hasKey {
		if len(updates) == 0 {
			stmt += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", quote(key))
		} else {
			stmt += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", quote(key), strings.Join(updates, ", "))
		}
	}
	return stmt
}

// upsertRow builds the statement and arguments importing one row.
// A blank key cell leaves the key column out so that its default (the sequence) applies.
func upsertRow(m contenttype.Model, headers, row []string) (stmt string, args []interface{}, keyed bool) {
	key := m.Columns[0]
	cols := make([]string, 0, len(headers))
	args = make([]interface{}, 0, len(headers))
	for j, h := range headers {
		cell := row[j]
		if h == key {
			if cell == "" {
				continue
			}
			keyed = true
		}
		cols = append(cols, h)
		if cell == "" {
			args = append(args, nil) // NULL
		} else {
			args = append(args, cell)
		}
	}
	return upsertStatement(m, cols), args, keyed
}

// resyncSequence keeps the id sequence ahead of imported ids.
func resyncSequence(ctx context.Context, exec boil.ContextExecutor, m contenttype.Model) error {
	stmt := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST(COALESCE(MAX(id), 0), 1)) FROM %s",
		m.Table, quote(m.Table))
	_, err := queries.Raw(stmt).ExecContext(ctx, exec)
	return errors.Wrap(err, "resetting id sequence")
}

func (dio *dataIO) Import(ctx context.Context, m contenttype.Model, ds contenttype.Dataset) (int, error) {
	if err := ds.Validate(m); err != nil {
		return 0, err
	}
	if len(ds.Rows) == 0 {
		return 0, nil
	}

	tx, err := dio.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	serial := m.Columns[0] == "id"
	stale := false // explicit ids were written since the last resync
	for i, row := range ds.Rows {
		stmt, args, keyed := upsertRow(m, ds.Headers, row)
		if serial && !keyed && stale {
			if err := resyncSequence(ctx, tx, m); err != nil {
				_ = tx.Rollback()
				return 0, err
			}
			stale = false
		}
		if _, err := queries.Raw(stmt, args...).ExecContext(ctx, tx); err != nil {
			_ = tx.Rollback()
			return 0, core.NewValidationError(errors.Wrapf(err, "importing row %d", i+1))
		}
		stale = stale || keyed
	}
	if serial && stale {
		if err := resyncSequence(ctx, tx, m); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing import")
	}
	return len(ds.Rows), nil
}
