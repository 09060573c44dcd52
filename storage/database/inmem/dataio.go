package inmemdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"reflect"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	nullTimeType = reflect.TypeOf(null.Time{})
	dateType     = reflect.TypeOf(core.Date{})
	valuerType   = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType  = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

type dataIO struct {
	db *DB
}

var _ contenttype.DataIO = (*dataIO)(nil)

// NewDataIO exports and imports rows of the in-memory tables, mapping columns to `db` struct tags.
func NewDataIO(db *DB) *dataIO {
	return &dataIO{db: db}
}

func (dio *dataIO) Export(_ context.Context, m contenttype.Model, filter contenttype.ExportFilter) (contenttype.Dataset, error) {
	dio.db.mutex.Lock()
	defer dio.db.mutex.Unlock()

	tbl, ok := dio.db.dataTable(m.Table)
	if !ok {
		return contenttype.Dataset{}, errors.Errorf("unknown table %s", m.Table)
	}
	ds := contenttype.Dataset{Headers: m.Columns, Rows: make([][]string, 0)}
	for _, obj := range tbl.objects() {
		fields := columnFields(obj)
		if !filter.IsEmpty() {
			fld, ok := fields[filter.DateField]
			if !ok {
				return contenttype.Dataset{}, errors.Errorf("%s has no column %s", m.Key(), filter.DateField)
			}
			t, ok := timeOf(fld)
			if !ok || t.Before(filter.From) || !t.Before(filter.To) {
				continue
			}
		}
		row := make([]string, 0, len(m.Columns))
		for _, col := range m.Columns {
			cell, err := formatCell(fields[col])
			if err != nil {
				return contenttype.Dataset{}, errors.Wrapf(err, "formatting %s.%s", m.Key(), col)
			}
			row = append(row, cell)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func (dio *dataIO) Import(_ context.Context, m contenttype.Model, ds contenttype.Dataset) (int, error) {
	if err := ds.Validate(m); err != nil {
		return 0, err
	}
	dio.db.mutex.Lock()
	defer dio.db.mutex.Unlock()

	tbl, ok := dio.db.dataTable(m.Table)
	if !ok {
		return 0, errors.Errorf("unknown table %s", m.Table)
	}
	keyIdx := -1
	for i, h := range ds.Headers {
		if h == m.Columns[0] {
			keyIdx = i
		}
	}

	objs := make([]interface{}, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		obj := tbl.newObject()
		if keyIdx >= 0 && row[keyIdx] != "" {
			if existing, ok := tbl.find(row[keyIdx]); ok {
				obj = existing
			}
		}
		fields := columnFields(obj)
		for j, col := range ds.Headers {
			if j == keyIdx && row[j] == "" {
				continue // new row, the key comes from the sequence
			}
			if err := parseCell(fields[col], row[j]); err != nil {
				return 0, core.NewValidationError(errors.Wrapf(err, "row %d, column %s", i+1, col))
			}
		}
		objs = append(objs, obj)
	}
	// all rows parsed: write them at once
	for _, obj := range objs {
		tbl.put(obj)
	}
	return len(objs), nil
}

// columnFields maps the column names of obj (a struct pointer) to its settable fields.
func columnFields(obj interface{}) map[string]reflect.Value {
	v := reflect.ValueOf(obj).Elem()
	t := v.Type()
	fields := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		col := t.Field(i).Tag.Get("db")
		if col == "" || col == "-" {
			continue
		}
		fields[col] = v.Field(i)
	}
	return fields
}

func timeOf(fld reflect.Value) (time.Time, bool) {
	switch fld.Type() {
	case timeType:
		return fld.Interface().(time.Time), true
	case nullTimeType:
		nt := fld.Interface().(null.Time)
		return nt.Time, nt.Valid
	case dateType:
		return fld.Interface().(core.Date).Time, true
	}
	return time.Time{}, false
}

func formatCell(fld reflect.Value) (string, error) {
	if !fld.IsValid() {
		return "", nil
	}
	if fld.Type() == timeType {
		return fld.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	}
	val := fld.Interface()
	if fld.Type().Implements(valuerType) {
		dv, err := val.(driver.Valuer).Value()
		if err != nil {
			return "", err
		}
		val = dv
	}
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	}
	return "", errors.Errorf("unsupported value %T", val)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", core.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid time %q", s)
}

// parseCell sets fld from a CSV cell; empty cells leave nullable fields NULL.
func parseCell(fld reflect.Value, s string) error {
	switch fld.Type() {
	case timeType:
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		fld.Set(reflect.ValueOf(t))
		return nil
	case nullTimeType:
		if s == "" {
			fld.Set(reflect.ValueOf(null.Time{}))
			return nil
		}
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		fld.Set(reflect.ValueOf(null.TimeFrom(t)))
		return nil
	}

	if reflect.PtrTo(fld.Type()).Implements(scannerType) {
		var src interface{}
		if s != "" {
			src = s
		}
		fld.Set(reflect.Zero(fld.Type()))
		return fld.Addr().Interface().(sql.Scanner).Scan(src)
	}

	switch fld.Kind() {
	case reflect.String:
		fld.SetString(s)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		fld.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		fld.SetBool(b)
	default:
		return errors.Errorf("unsupported field type %s", fld.Type())
	}
	return nil
}
