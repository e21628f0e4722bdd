package postgresql

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// psql is the statement builder configured for PostgreSQL placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Table manages rows of a single table whose schema is derived from the
// exported fields of T. Column names come from `db` tags or lower-cased
// field names; column types come from each field's codec.
//
// All operations require a transaction context established with
// Database.Transaction.
type Table[T any] struct {
	db     *Database
	name   string
	pk     string
	typ    reflect.Type
	fields []field
	byName map[string]field
}

// NewTable binds a table name and primary-key column to the schema type T.
func NewTable[T any](db *Database, name, pk string) (*Table[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	fields, err := structFields(typ)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]field, len(fields))
	for _, f := range fields {
		byName[f.name] = f
	}
	if _, ok := byName[pk]; !ok {
		return nil, fmt.Errorf("postgresql: table %s: primary key column %q not in schema %s", name, pk, typ.Name())
	}
	return &Table[T]{db: db, name: name, pk: pk, typ: typ, fields: fields, byName: byName}, nil
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// PrimaryKey returns the primary-key column name.
func (t *Table[T]) PrimaryKey() string { return t.pk }

// Columns returns the column names in schema order.
func (t *Table[T]) Columns() []string {
	cols := make([]string, len(t.fields))
	for i, f := range t.fields {
		cols[i] = f.name
	}
	return cols
}

// Database returns the database the table operates on.
func (t *Table[T]) Database() *Database { return t.db }

// Create creates the table.
func (t *Table[T]) Create(ctx context.Context) error {
	defs := make([]string, 0, len(t.fields))
	for _, f := range t.fields {
		def := f.name + " " + f.codec.SQLType()
		if f.name == t.pk {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)", t.name, strings.Join(defs, ", "))
	_, err := t.db.Exec(ctx, sql)
	return err
}

// Drop drops the table.
func (t *Table[T]) Drop(ctx context.Context) error {
	_, err := t.db.Exec(ctx, fmt.Sprintf("DROP TABLE %s", t.name))
	return err
}

// Insert adds a row.
func (t *Table[T]) Insert(ctx context.Context, value T) error {
	cols, vals, err := t.encodeRow(value)
	if err != nil {
		return err
	}
	sql, args, err := psql.Insert(t.name).Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return fmt.Errorf("postgresql: building insert for %s: %w", t.name, err)
	}
	_, err = t.db.Exec(ctx, sql, args...)
	return err
}

// Upsert adds a row, replacing an existing row with the same key.
func (t *Table[T]) Upsert(ctx context.Context, value T) error {
	cols, vals, err := t.encodeRow(value)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if col == t.pk {
			continue
		}
		sets = append(sets, col+" = EXCLUDED."+col)
	}
	suffix := fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", t.pk, strings.Join(sets, ", "))
	sql, args, err := psql.Insert(t.name).Columns(cols...).Values(vals...).Suffix(suffix).ToSql()
	if err != nil {
		return fmt.Errorf("postgresql: building upsert for %s: %w", t.name, err)
	}
	_, err = t.db.Exec(ctx, sql, args...)
	return err
}

// Read returns the row with the given key, or ErrNotFound.
func (t *Table[T]) Read(ctx context.Context, key any) (T, error) {
	var zero T
	encodedKey, err := t.encodeKey(key)
	if err != nil {
		return zero, err
	}
	sql, args, err := psql.Select(t.Columns()...).From(t.name).Where(squirrel.Eq{t.pk: encodedKey}).ToSql()
	if err != nil {
		return zero, fmt.Errorf("postgresql: building select for %s: %w", t.name, err)
	}

	pgxRows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	rows, err := newRows(pgxRows, t.typ)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, ErrNotFound
	}
	var out T
	if err := rows.Scan(&out); err != nil {
		return zero, err
	}
	return out, nil
}

// Update replaces the row whose key matches the value's key column, or
// returns ErrNotFound when no such row exists.
func (t *Table[T]) Update(ctx context.Context, value T) error {
	cols, vals, err := t.encodeRow(value)
	if err != nil {
		return err
	}
	builder := psql.Update(t.name)
	var key any
	for i, col := range cols {
		if col == t.pk {
			key = vals[i]
			continue
		}
		builder = builder.Set(col, vals[i])
	}
	sql, args, err := builder.Where(squirrel.Eq{t.pk: key}).ToSql()
	if err != nil {
		return fmt.Errorf("postgresql: building update for %s: %w", t.name, err)
	}
	tag, err := t.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row with the given key, or returns ErrNotFound.
func (t *Table[T]) Delete(ctx context.Context, key any) error {
	encodedKey, err := t.encodeKey(key)
	if err != nil {
		return err
	}
	sql, args, err := psql.Delete(t.name).Where(squirrel.Eq{t.pk: encodedKey}).ToSql()
	if err != nil {
		return fmt.Errorf("postgresql: building delete for %s: %w", t.name, err)
	}
	tag, err := t.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SelectOption narrows or orders a Select, Keys or Count query.
type SelectOption func(*selectQuery)

type selectQuery struct {
	where   []squirrel.Sqlizer
	orderBy []string
	limit   uint64
	offset  uint64
}

// Where adds a condition; multiple conditions are ANDed. Both squirrel
// expressions (squirrel.Lt{"qty": 10}) and *Expression values are accepted.
func Where(cond squirrel.Sqlizer) SelectOption {
	return func(q *selectQuery) {
		q.where = append(q.where, cond)
	}
}

// OrderBy adds ORDER BY clauses.
func OrderBy(clauses ...string) SelectOption {
	return func(q *selectQuery) {
		q.orderBy = append(q.orderBy, clauses...)
	}
}

// Limit caps the number of rows returned.
func Limit(n uint64) SelectOption {
	return func(q *selectQuery) {
		q.limit = n
	}
}

// Offset skips the first n rows.
func Offset(n uint64) SelectOption {
	return func(q *selectQuery) {
		q.offset = n
	}
}

func applySelectOptions(builder squirrel.SelectBuilder, opts []SelectOption) squirrel.SelectBuilder {
	var q selectQuery
	for _, opt := range opts {
		opt(&q)
	}
	for _, w := range q.where {
		builder = builder.Where(w)
	}
	if len(q.orderBy) > 0 {
		builder = builder.OrderBy(q.orderBy...)
	}
	if q.limit > 0 {
		builder = builder.Limit(q.limit)
	}
	if q.offset > 0 {
		builder = builder.Offset(q.offset)
	}
	return builder
}

// Select returns the rows matching the options.
func (t *Table[T]) Select(ctx context.Context, opts ...SelectOption) ([]T, error) {
	builder := applySelectOptions(psql.Select(t.Columns()...).From(t.name), opts)
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgresql: building select for %s: %w", t.name, err)
	}
	pgxRows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	rows, err := newRows(pgxRows, t.typ)
	if err != nil {
		return nil, err
	}
	return ScanAll[T](rows)
}

// Keys returns the primary keys of the rows matching the options, decoded
// through the key column's codec.
func (t *Table[T]) Keys(ctx context.Context, opts ...SelectOption) ([]any, error) {
	builder := applySelectOptions(psql.Select(t.pk).From(t.name), opts)
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgresql: building key select for %s: %w", t.name, err)
	}
	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codec := t.byName[t.pk].codec
	var keys []any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, MapError(err)
		}
		key, err := codec.Decode(values[0])
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return keys, nil
}

// Count returns the number of rows matching the options.
func (t *Table[T]) Count(ctx context.Context, opts ...SelectOption) (int64, error) {
	builder := applySelectOptions(psql.Select("COUNT(*)").From(t.name), opts)
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("postgresql: building count for %s: %w", t.name, err)
	}
	var count int64
	if err := pgxscan.Get(ctx, t.db, &count, sql, args...); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

func (t *Table[T]) encodeRow(value T) ([]string, []any, error) {
	rv := reflect.ValueOf(value)
	cols := make([]string, len(t.fields))
	vals := make([]any, len(t.fields))
	for i, f := range t.fields {
		encoded, err := f.codec.Encode(rv.Field(f.index).Interface())
		if err != nil {
			return nil, nil, fmt.Errorf("postgresql: column %q: %w", f.name, err)
		}
		cols[i] = f.name
		vals[i] = encoded
	}
	return cols, vals, nil
}

func (t *Table[T]) encodeKey(key any) (any, error) {
	encoded, err := t.byName[t.pk].codec.Encode(key)
	if err != nil {
		return nil, fmt.Errorf("postgresql: key column %q: %w", t.pk, err)
	}
	return encoded, nil
}
