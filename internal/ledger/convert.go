package ledger

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paarshan4800/fin-advisor/internal/domain"
)

// Converter turns a store-native value into a JSON-safe one. It reports false
// for values it does not recognise.
type Converter func(v any) (any, bool)

// JSONSafe converts v into strings, float64, bool, nil, []any and
// map[string]any. Store-specific types are handled by native first.
func JSONSafe(v any, native Converter) any {
	if native != nil {
		if out, ok := native(v); ok {
			return out
		}
	}

	switch x := v.(type) {
	case nil:
		return nil
	case string, bool:
		return x
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return finite(f)
	case time.Time:
		return FormatTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return FormatTime(*x)
	case decimal.Decimal:
		return x.InexactFloat64()
	case *big.Rat:
		if x == nil {
			return nil
		}
		return RatToFloat(x)
	case []byte:
		return string(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = JSONSafe(e, native)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = JSONSafe(e, native)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return JSONSafe(rv.Elem().Interface(), native)
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = JSONSafe(rv.Index(i).Interface(), native)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[toKey(iter.Key())] = JSONSafe(iter.Value().Interface(), native)
		}
		return out
	}

	// Structs and anything else go through encoding/json.
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil
	}
	return generic
}

// FormatTime renders a timestamp in UTC with microsecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(domain.TimestampLayout)
}

// RatToFloat converts a NUMERIC value to float64 through a decimal.
func RatToFloat(r *big.Rat) float64 {
	return decimal.NewFromBigRat(r, 9).InexactFloat64()
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func toKey(v reflect.Value) string {
	if v.Kind() == reflect.String {
		return v.String()
	}
	b, _ := json.Marshal(v.Interface())
	return string(b)
}

// ConvertRecord converts every field of a raw document.
func ConvertRecord(raw map[string]any, native Converter) Record {
	out := make(Record, len(raw))
	for k, v := range raw {
		out[k] = JSONSafe(v, native)
	}
	return out
}
