package db

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Row is a fully read result row. It holds no reference to the connection
// it came from, so it stays valid after the statement or connection is closed.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a Row from column names and driver values.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.values)
}

// Value returns the raw driver value of the named column.
func (r Row) Value(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Scan copies the row's values into dest, converting driver values the same
// way *sql.Rows does. The number of destinations must match the column count.
func (r Row) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: expected %d destination arguments, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return fmt.Errorf("scan column %d (%s): %w", i, r.columnName(i), err)
		}
	}
	return nil
}

func (r Row) columnName(i int) string {
	if i < len(r.columns) {
		return r.columns[i]
	}
	return "?"
}

func readRows(rows *sql.Rows, limit int) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, Row{columns: columns, values: values})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func assign(dest, src any) error {
	if scanner, ok := dest.(sql.Scanner); ok {
		return scanner.Scan(src)
	}

	switch d := dest.(type) {
	case *any:
		*d = src
		return nil
	case *string:
		switch s := src.(type) {
		case string:
			*d = s
			return nil
		case []byte:
			*d = string(s)
			return nil
		case int64:
			*d = strconv.FormatInt(s, 10)
			return nil
		}
	case *[]byte:
		switch s := src.(type) {
		case []byte:
			*d = append([]byte(nil), s...)
			return nil
		case string:
			*d = []byte(s)
			return nil
		case nil:
			*d = nil
			return nil
		}
	case *int64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		*d = n
		return nil
	case *int:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		*d = int(n)
		return nil
	case *uint64:
		n, err := toInt64(src)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("cannot store negative %d in uint64", n)
		}
		*d = uint64(n)
		return nil
	case *bool:
		switch s := src.(type) {
		case bool:
			*d = s
			return nil
		case []byte:
			b, err := strconv.ParseBool(string(s))
			if err != nil {
				return err
			}
			*d = b
			return nil
		}
	case *float64:
		switch s := src.(type) {
		case float64:
			*d = s
			return nil
		case int64:
			*d = float64(s)
			return nil
		case []byte:
			f, err := strconv.ParseFloat(string(s), 64)
			if err != nil {
				return err
			}
			*d = f
			return nil
		}
	case *time.Time:
		if t, ok := src.(time.Time); ok {
			*d = t
			return nil
		}
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() == reflect.Pointer && !dv.IsNil() && src != nil {
		sv := reflect.ValueOf(src)
		if sv.Type().AssignableTo(dv.Elem().Type()) {
			dv.Elem().Set(sv)
			return nil
		}
	}
	return fmt.Errorf("unsupported conversion from %T to %T", src, dest)
}

func toInt64(src any) (int64, error) {
	switch s := src.(type) {
	case int64:
		return s, nil
	case int32:
		return int64(s), nil
	case int:
		return int64(s), nil
	case []byte:
		return strconv.ParseInt(string(s), 10, 64)
	case string:
		return strconv.ParseInt(s, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported conversion from %T to integer", src)
	}
}
