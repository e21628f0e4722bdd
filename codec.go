package postgresql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Codec translates values of a single Go type to and from their PostgreSQL
// representation, and names the column type used in generated DDL.
type Codec interface {
	// SQLType is the PostgreSQL column type (e.g. "text", "jsonb").
	SQLType() string

	// Encode converts a Go value into a value suitable as a query argument.
	Encode(v any) (any, error)

	// Decode converts a scanned row value back into the Go type.
	Decode(v any) (any, error)
}

// A codecProvider returns a codec for the given type, or nil to let the
// next provider try. Provider order is significant; the jsonb provider is
// the catch-all and must remain last.
type codecProvider func(t reflect.Type) (Codec, error)

var codecProviders []codecProvider

func init() {
	codecProviders = []codecProvider{
		decimalProvider,
		dateProvider,
		passProvider,
		sliceProvider,
		pointerProvider,
		jsonbProvider,
	}
}

var codecCache sync.Map // reflect.Type -> Codec

// GetCodec returns a codec compatible with the specified Go type.
func GetCodec(t reflect.Type) (Codec, error) {
	if t == nil {
		return nil, fmt.Errorf("postgresql: failed to provide codec for nil type")
	}
	if c, ok := codecCache.Load(t); ok {
		return c.(Codec), nil
	}
	for _, provider := range codecProviders {
		c, err := provider(t)
		if err != nil {
			return nil, err
		}
		if c != nil {
			codecCache.Store(t, c)
			return c, nil
		}
	}
	return nil, fmt.Errorf("postgresql: failed to provide codec for %s", t)
}

// CodecFor returns the codec for the type parameter T.
func CodecFor[T any]() (Codec, error) {
	return GetCodec(reflect.TypeOf((*T)(nil)).Elem())
}

// passCodec passes values through unchanged on encode, converting scanned
// values back to the declared Go type on decode.
type passCodec struct {
	goType  reflect.Type
	sqlType string
}

func (c *passCodec) SQLType() string { return c.sqlType }

func (c *passCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.goType && !rv.Type().ConvertibleTo(c.goType) {
		return nil, fmt.Errorf("postgresql: cannot encode %T as %s", v, c.sqlType)
	}
	return v, nil
}

func (c *passCodec) Decode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	out, err := convertValue(v, c.goType)
	if err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// Pass codec registrations. Order is significant: []byte must be claimed
// here before the slice provider sees it.
var passCodecs = []struct {
	goType  reflect.Type
	sqlType string
}{
	{reflect.TypeOf(""), "text"},
	{reflect.TypeOf(false), "boolean"},
	{reflect.TypeOf(int(0)), "bigint"},
	{reflect.TypeOf(int8(0)), "bigint"},
	{reflect.TypeOf(int16(0)), "bigint"},
	{reflect.TypeOf(int32(0)), "bigint"},
	{reflect.TypeOf(int64(0)), "bigint"},
	{reflect.TypeOf(uint(0)), "bigint"},
	{reflect.TypeOf(uint16(0)), "bigint"},
	{reflect.TypeOf(uint32(0)), "bigint"},
	{reflect.TypeOf(float32(0)), "double precision"},
	{reflect.TypeOf(float64(0)), "double precision"},
	{reflect.TypeOf([]byte(nil)), "bytea"},
	{reflect.TypeOf(uuid.UUID{}), "uuid"},
	{reflect.TypeOf(time.Time{}), "timestamp with time zone"},
}

func passProvider(t reflect.Type) (Codec, error) {
	for _, pc := range passCodecs {
		if t == pc.goType {
			return &passCodec{goType: pc.goType, sqlType: pc.sqlType}, nil
		}
	}
	return nil, nil
}

// decimalCodec maps decimal.Decimal onto numeric. Values are sent as text
// (pgx has no native shopspring codec) and scanned back from whatever shape
// the driver produced.
type decimalCodec struct{}

func (c *decimalCodec) SQLType() string { return "numeric" }

func (c *decimalCodec) Encode(v any) (any, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return nil, fmt.Errorf("postgresql: cannot encode %T as numeric", v)
	}
	return d.String(), nil
}

func (c *decimalCodec) Decode(v any) (any, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return tv, nil
	case string:
		return decimal.NewFromString(tv)
	case []byte:
		return decimal.NewFromString(string(tv))
	case float64:
		return decimal.NewFromFloat(tv), nil
	case int64:
		return decimal.NewFromInt(tv), nil
	case pgtype.Numeric:
		dv, err := tv.Value()
		if err != nil {
			return nil, fmt.Errorf("postgresql: decoding numeric: %w", err)
		}
		s, ok := dv.(string)
		if !ok {
			return nil, fmt.Errorf("postgresql: decoding numeric: unexpected driver value %T", dv)
		}
		return decimal.NewFromString(s)
	default:
		return nil, fmt.Errorf("postgresql: cannot decode %T as numeric", v)
	}
}

func decimalProvider(t reflect.Type) (Codec, error) {
	if t != reflect.TypeOf(decimal.Decimal{}) {
		return nil, nil
	}
	return &decimalCodec{}, nil
}

// dateCodec maps pgtype.Date onto date. Date columns scan as time.Time.
type dateCodec struct{}

func (c *dateCodec) SQLType() string { return "date" }

func (c *dateCodec) Encode(v any) (any, error) {
	d, ok := v.(pgtype.Date)
	if !ok {
		return nil, fmt.Errorf("postgresql: cannot encode %T as date", v)
	}
	if !d.Valid {
		return nil, nil
	}
	return d, nil
}

func (c *dateCodec) Decode(v any) (any, error) {
	switch tv := v.(type) {
	case nil:
		return pgtype.Date{}, nil
	case pgtype.Date:
		return tv, nil
	case time.Time:
		return pgtype.Date{Time: tv, Valid: true}, nil
	default:
		return nil, fmt.Errorf("postgresql: cannot decode %T as date", v)
	}
}

func dateProvider(t reflect.Type) (Codec, error) {
	if t != reflect.TypeOf(pgtype.Date{}) {
		return nil, nil
	}
	return &dateCodec{}, nil
}

// sliceCodec maps a Go slice or array onto a PostgreSQL array column.
type sliceCodec struct {
	goType  reflect.Type
	elem    Codec
	sqlType string
}

func (c *sliceCodec) SQLType() string { return c.sqlType }

func (c *sliceCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("postgresql: cannot encode %T as %s", v, c.sqlType)
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		enc, err := c.elem.Encode(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

func (c *sliceCodec) Decode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("postgresql: cannot decode %T as %s", v, c.goType)
	}
	out := reflect.MakeSlice(c.goType, rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		dec, err := c.elem.Decode(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		cv, err := convertValue(dec, c.goType.Elem())
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(cv)
	}
	return out.Interface(), nil
}

func sliceProvider(t reflect.Type) (Codec, error) {
	if t.Kind() != reflect.Slice {
		return nil, nil
	}
	elem, err := GetCodec(t.Elem())
	if err != nil {
		return nil, err
	}
	return &sliceCodec{goType: t, elem: elem, sqlType: elem.SQLType() + "[]"}, nil
}

// pointerCodec makes the element codec nullable: nil encodes to SQL NULL
// and NULL decodes to a nil pointer.
type pointerCodec struct {
	goType reflect.Type
	elem   Codec
}

func (c *pointerCodec) SQLType() string { return c.elem.SQLType() }

func (c *pointerCodec) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	return c.elem.Encode(rv.Interface())
}

func (c *pointerCodec) Decode(v any) (any, error) {
	if v == nil {
		return reflect.Zero(c.goType).Interface(), nil
	}
	dec, err := c.elem.Decode(v)
	if err != nil {
		return nil, err
	}
	cv, err := convertValue(dec, c.goType.Elem())
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(c.goType.Elem())
	ptr.Elem().Set(cv)
	return ptr.Interface(), nil
}

func pointerProvider(t reflect.Type) (Codec, error) {
	if t.Kind() != reflect.Ptr {
		return nil, nil
	}
	elem, err := GetCodec(t.Elem())
	if err != nil {
		return nil, err
	}
	return &pointerCodec{goType: t, elem: elem}, nil
}

// jsonbCodec round-trips any JSON-marshalable value through a jsonb column.
// It is the catch-all and must remain the last provider.
type jsonbCodec struct {
	goType reflect.Type
}

func (c *jsonbCodec) SQLType() string { return "jsonb" }

func (c *jsonbCodec) Encode(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("postgresql: encoding %T as jsonb: %w", v, err)
	}
	return string(b), nil
}

func (c *jsonbCodec) Decode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var raw []byte
	switch tv := v.(type) {
	case []byte:
		raw = tv
	case string:
		raw = []byte(tv)
	default:
		// pgx may have already decoded jsonb into maps/slices; re-marshal.
		b, err := json.Marshal(tv)
		if err != nil {
			return nil, fmt.Errorf("postgresql: decoding jsonb value %T: %w", v, err)
		}
		raw = b
	}
	out := reflect.New(c.goType)
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return nil, fmt.Errorf("postgresql: decoding jsonb into %s: %w", c.goType, err)
	}
	return out.Elem().Interface(), nil
}

func jsonbProvider(t reflect.Type) (Codec, error) {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("postgresql: failed to provide codec for %s", t)
	}
	return &jsonbCodec{goType: t}, nil
}

// convertValue coerces a scanned value into the target Go type, tolerating
// the width differences pgx introduces (e.g. bigint scans as int64).
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("postgresql: cannot convert %T to %s", v, t)
}
