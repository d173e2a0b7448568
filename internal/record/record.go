// Package record holds helpers for the shape-agnostic resource records returned by the API.
// Records are decoded from JSON with UseNumber, so numbers arrive as json.Number.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
)

// UnknownName is displayed for records without a name field
const UnknownName = "Unknown"

// collectionKeys are the envelope keys checked, in order, for a wrapped list
var collectionKeys = []string{"results", "items", "data"}

// Record is one entity returned by the API
type Record map[string]any

// AsRecord returns v as a Record when it is a JSON object
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	default:
		return nil, false
	}
}

// Items extracts the list of records from a collection response. The response may be
// a list, or an object holding the list under "results", "items" or "data". Anything
// else yields an empty, non-nil list.
func Items(response any) []any {
	if list, ok := response.([]any); ok {
		return list
	}
	if obj, ok := AsRecord(response); ok {
		for _, key := range collectionKeys {
			if list, ok := obj[key].([]any); ok {
				return list
			}
		}
	}
	return []any{}
}

// ID returns the unique identifier of a record, preferring "uuid" over "id".
// Missing, null and empty-string values do not count as identifiers.
func (r Record) ID() (any, bool) {
	for _, key := range []string{"uuid", "id"} {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Name returns the display name of a record, or UnknownName
func Name(v any) string {
	r, ok := AsRecord(v)
	if !ok {
		return UnknownName
	}
	name, ok := r["name"]
	if !ok || name == nil {
		return UnknownName
	}
	return fmt.Sprint(name)
}

// FormatID renders an identifier for use as a URL path segment
func FormatID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// Find returns the first record in items whose field key equals value
func Find(items []any, key string, value any) (Record, bool) {
	for _, item := range items {
		r, ok := AsRecord(item)
		if !ok {
			continue
		}
		if Equal(r[key], value) {
			return r, true
		}
	}
	return nil, false
}

// Contains reports whether every field of subset is present in r with an equal value
func (r Record) Contains(subset map[string]any) bool {
	for k, want := range subset {
		got, ok := r[k]
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}

// Equal compares two values exactly. Numbers compare by value whatever their Go type
// (YAML ints, JSON numbers, floats), but never equal strings or booleans. Integral
// numbers compare exactly at any magnitude; a fraction on either side compares as
// float64. Lists and objects compare element by element.
func Equal(a, b any) bool {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		return ok && an.equal(bn)
	}
	if _, ok := toNumber(b); ok {
		return false
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	if am, ok := AsRecord(a); ok {
		bm, ok := AsRecord(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, v := range am {
			other, ok := bm[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// number is a numeric value. integer is set when the value has no fractional part.
type number struct {
	integer *big.Int
	float   float64
}

func (n number) equal(other number) bool {
	if n.integer != nil && other.integer != nil {
		return n.integer.Cmp(other.integer) == 0
	}
	return n.float == other.float
}

func fromInt64(v int64) number {
	return number{integer: big.NewInt(v), float: float64(v)}
}

func fromUint64(v uint64) number {
	return number{integer: new(big.Int).SetUint64(v), float: float64(v)}
}

func fromFloat64(v float64) number {
	n := number{float: v}
	if !math.IsInf(v, 0) && !math.IsNaN(v) && v == math.Trunc(v) {
		n.integer, _ = big.NewFloat(v).Int(nil)
	}
	return n
}

func fromJSON(v json.Number) (number, bool) {
	f, err := v.Float64()
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return number{}, false
		}
	}

	n := number{float: f}
	if i, ok := new(big.Int).SetString(v.String(), 10); ok {
		n.integer = i
	} else if r, ok := new(big.Rat).SetString(v.String()); ok && r.IsInt() {
		n.integer = r.Num()
	}
	return n, true
}

func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case json.Number:
		return fromJSON(n)
	case float64:
		return fromFloat64(n), true
	case float32:
		return fromFloat64(float64(n)), true
	case int:
		return fromInt64(int64(n)), true
	case int8:
		return fromInt64(int64(n)), true
	case int16:
		return fromInt64(int64(n)), true
	case int32:
		return fromInt64(int64(n)), true
	case int64:
		return fromInt64(n), true
	case uint:
		return fromUint64(uint64(n)), true
	case uint8:
		return fromUint64(uint64(n)), true
	case uint16:
		return fromUint64(uint64(n)), true
	case uint32:
		return fromUint64(uint64(n)), true
	case uint64:
		return fromUint64(n), true
	default:
		return number{}, false
	}
}
