package postgresql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

// field binds one exported struct field to a result column and its codec.
type field struct {
	name  string
	index int
	codec Codec
}

// structFields maps the exported fields of a struct type to columns.
// Column names come from the `db` tag when present, otherwise the
// lower-cased field name. Fields tagged `db:"-"` are skipped.
func structFields(t reflect.Type) ([]field, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("postgresql: result prototype must be a struct, got %v", t)
	}
	var fields []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := columnName(sf)
		if name == "" {
			continue
		}
		codec, err := GetCodec(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("postgresql: field %s.%s: %w", t.Name(), sf.Name, err)
		}
		fields = append(fields, field{name: name, index: i, codec: codec})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("postgresql: struct %s has no mappable fields", t.Name())
	}
	return fields, nil
}

func columnName(sf reflect.StructField) string {
	tag := sf.Tag.Get("db")
	if tag == "-" {
		return ""
	}
	if tag != "" {
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	}
	return strings.ToLower(sf.Name)
}

// Rows is a cursor over statement results, decoding each column through the
// codec for the corresponding result field.
type Rows struct {
	rows    pgx.Rows
	typ     reflect.Type
	fields  []field
	columns map[string]int // column name -> row value index
}

func newRows(rows pgx.Rows, typ reflect.Type) (*Rows, error) {
	fields, err := structFields(typ)
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &Rows{rows: rows, typ: typ, fields: fields}, nil
}

// Next advances the cursor. It returns false when no rows remain; check Err
// afterwards.
func (r *Rows) Next() bool {
	return r.rows.Next()
}

// Scan decodes the current row into dest, which must be a pointer to the
// result struct type.
func (r *Rows) Scan(dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.IsNil() || dv.Elem().Type() != r.typ {
		return fmt.Errorf("postgresql: Scan requires *%s, got %T", r.typ, dest)
	}

	if r.columns == nil {
		fds := r.rows.FieldDescriptions()
		r.columns = make(map[string]int, len(fds))
		for i, fd := range fds {
			r.columns[fd.Name] = i
		}
	}

	values, err := r.rows.Values()
	if err != nil {
		return MapError(err)
	}

	out := dv.Elem()
	for _, f := range r.fields {
		idx, ok := r.columns[f.name]
		if !ok {
			return fmt.Errorf("postgresql: result is missing column %q", f.name)
		}
		decoded, err := f.codec.Decode(values[idx])
		if err != nil {
			return fmt.Errorf("postgresql: column %q: %w", f.name, err)
		}
		cv, err := convertValue(decoded, out.Field(f.index).Type())
		if err != nil {
			return fmt.Errorf("postgresql: column %q: %w", f.name, err)
		}
		out.Field(f.index).Set(cv)
	}
	return nil
}

// Err returns any error encountered during iteration.
func (r *Rows) Err() error {
	return MapError(r.rows.Err())
}

// Close releases the underlying cursor. Safe to call multiple times.
func (r *Rows) Close() {
	r.rows.Close()
}

// ScanAll drains the cursor into a slice and closes it.
func ScanAll[T any](r *Rows) ([]T, error) {
	defer r.Close()
	var out []T
	for r.Next() {
		var item T
		if err := r.Scan(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
