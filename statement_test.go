package postgresql

import (
	"reflect"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatement_RenderNumbersParams(t *testing.T) {
	t.Parallel()

	stmt := Stmt("SELECT * FROM foo WHERE a = ", Arg(1), " AND b = ", Arg("x"))
	text, args, err := stmt.Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM foo WHERE a = $1 AND b = $2", text)
	assert.Equal(t, []any{1, "x"}, args)
}

func TestStatement_RenderWithoutParams(t *testing.T) {
	t.Parallel()

	stmt := Stmt("SELECT 1;")
	text, args, err := stmt.Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", text)
	assert.Empty(t, args)
}

func TestStatement_BareValuesBecomeParams(t *testing.T) {
	t.Parallel()

	stmt := Stmt("SELECT * FROM foo WHERE n < ", 10)
	text, args, err := stmt.Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM foo WHERE n < $1", text)
	assert.Equal(t, []any{10}, args)
}

func TestStatement_NestedExpressionsSplice(t *testing.T) {
	t.Parallel()

	where := Expr("qty < ", Arg(10))
	stmt := Stmt("SELECT key FROM foo WHERE ", where, " AND active = ", Arg(true))
	text, args, err := stmt.Render()
	require.NoError(t, err)
	assert.Equal(t, "SELECT key FROM foo WHERE qty < $1 AND active = $2", text)
	assert.Equal(t, []any{10, true}, args)
}

func TestStatement_ParamsEncodeThroughCodecs(t *testing.T) {
	t.Parallel()

	type payload struct {
		A int `json:"a"`
	}
	stmt := Stmt("UPDATE foo SET doc = ", Arg(payload{A: 1}))
	text, args, err := stmt.Render()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE foo SET doc = $1", text)
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"a":1}`, args[0].(string))
}

func TestStatement_TypedArgCarriesNilValues(t *testing.T) {
	t.Parallel()

	stmt := Stmt("UPDATE foo SET note = ", TypedArg((*string)(nil), reflect.TypeOf((*string)(nil))))
	text, args, err := stmt.Render()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE foo SET note = $1", text)
	require.Len(t, args, 1)
	assert.Nil(t, args[0])
}

func TestStatement_Returning(t *testing.T) {
	t.Parallel()

	type row struct {
		Foo int `db:"foo"`
	}
	stmt := Stmt("SELECT 1 AS foo;").Returning(row{})
	assert.Equal(t, reflect.TypeOf(row{}), stmt.Result())

	ptr := Stmt("SELECT 1 AS foo;").Returning(&row{})
	assert.Equal(t, reflect.TypeOf(row{}), ptr.Result())
}

func TestExpression_ToSqlForSquirrel(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	query, args, err := psql.Select("key").From("foo").
		Where(Expr("key = ", Arg(id))).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT key FROM foo WHERE key = $1", query)
	assert.Equal(t, []any{id}, args)
}

func TestExpression_ComposesWithSquirrelConjunctions(t *testing.T) {
	t.Parallel()

	query, args, err := psql.Select("key").From("foo").
		Where(squirrel.And{
			Expr("qty < ", Arg(10)),
			squirrel.Eq{"active": true},
		}).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT key FROM foo WHERE (qty < $1 AND active = $2)", query)
	assert.Equal(t, []any{10, true}, args)
}
