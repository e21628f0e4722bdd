package postgresql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Param is a typed statement parameter. Its value is encoded through the
// codec for Type when the statement is rendered.
type Param struct {
	Value any
	Type  reflect.Type
}

// Arg returns a Param whose type is inferred from the value.
func Arg(value any) Param {
	return Param{Value: value, Type: reflect.TypeOf(value)}
}

// TypedArg returns a Param with an explicit type, for nullable or interface
// values whose dynamic type is insufficient.
func TypedArg(value any, t reflect.Type) Param {
	return Param{Value: value, Type: t}
}

// Expression is an ordered sequence of SQL text fragments and typed
// parameters, composable into statements and WHERE clauses.
type Expression struct {
	fragments []any // string or Param
}

// Expr builds an expression from raw SQL strings, Params and nested
// *Expression values.
func Expr(fragments ...any) *Expression {
	e := &Expression{}
	for _, f := range fragments {
		e.append(f)
	}
	return e
}

func (e *Expression) append(fragment any) {
	switch f := fragment.(type) {
	case string:
		e.fragments = append(e.fragments, f)
	case Param:
		e.fragments = append(e.fragments, f)
	case *Expression:
		e.fragments = append(e.fragments, f.fragments...)
	default:
		// Bare values are a common slip; treat them as inferred params.
		e.fragments = append(e.fragments, Arg(fragment))
	}
}

// Statement is an expression with an optional result prototype describing
// the rows the statement produces.
type Statement struct {
	Expression
	result reflect.Type
}

// Stmt builds a statement from raw SQL strings, Params and *Expression
// values.
func Stmt(fragments ...any) *Statement {
	s := &Statement{}
	for _, f := range fragments {
		s.append(f)
	}
	return s
}

// Returning declares the struct type rows are decoded into. The prototype
// must be a struct value (or pointer to one); its exported fields name the
// result columns via `db` tags or lower-cased field names.
func (s *Statement) Returning(prototype any) *Statement {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.result = t
	return s
}

// Result returns the declared result prototype type, or nil.
func (s *Statement) Result() reflect.Type {
	return s.result
}

// Render produces the SQL text with $N placeholders and the codec-encoded
// argument list.
func (s *Statement) Render() (string, []any, error) {
	return renderFragments(s.fragments)
}

// Render produces the SQL text with $N placeholders and the codec-encoded
// argument list.
func (e *Expression) Render() (string, []any, error) {
	return renderFragments(e.fragments)
}

// ToSql implements squirrel.Sqlizer, with ? placeholders so expressions can
// participate in squirrel WHERE clauses.
func (e *Expression) ToSql() (string, []any, error) {
	var text strings.Builder
	var args []any
	for _, fragment := range e.fragments {
		switch f := fragment.(type) {
		case string:
			text.WriteString(f)
		case Param:
			encoded, err := encodeParam(f)
			if err != nil {
				return "", nil, err
			}
			args = append(args, encoded)
			text.WriteString("?")
		}
	}
	return text.String(), args, nil
}

func renderFragments(fragments []any) (string, []any, error) {
	var text strings.Builder
	var args []any
	for _, fragment := range fragments {
		switch f := fragment.(type) {
		case string:
			text.WriteString(f)
		case Param:
			encoded, err := encodeParam(f)
			if err != nil {
				return "", nil, err
			}
			args = append(args, encoded)
			text.WriteString("$")
			text.WriteString(strconv.Itoa(len(args)))
		default:
			return "", nil, fmt.Errorf("postgresql: unsupported statement fragment %T", fragment)
		}
	}
	return text.String(), args, nil
}

func encodeParam(p Param) (any, error) {
	t := p.Type
	if t == nil {
		t = reflect.TypeOf(p.Value)
	}
	codec, err := GetCodec(t)
	if err != nil {
		return nil, err
	}
	return codec.Encode(p.Value)
}
