// Package json provides a dynamic JSON value for handlers that want to
// build or inspect a response body without declaring a Go struct for
// it, mirroring the original core's crow::json::wvalue/rvalue duality
// with a single mutable Value type.
package json

import (
	"encoding/json"
	"sort"

	"github.com/crowgo/crow"
)

// Kind identifies the JSON type a Value currently holds.
type Kind int

const (
	Null Kind = iota
	False
	True
	Number
	String
	List
	Object
)

// Value is a dynamic JSON value, built up via the Set*/Append helpers
// and read back via Get/Index/Len/String/Number/Bool/Has, matching the read/write
// split of the original core's rvalue (read) and wvalue (write) by
// folding both into one type a handler can use either way.
type Value struct {
	kind   Kind
	num    float64
	str    string
	list   []*Value
	fields map[string]*Value
	order  []string
}

// NewObject returns an empty JSON object value.
func NewObject() *Value { return &Value{kind: Object, fields: make(map[string]*Value)} }

// NewList returns an empty JSON array value.
func NewList() *Value { return &Value{kind: List} }

// Of converts a Go value (string, bool, int, int64, float64, nil, or
// another *Value) into a *Value for use as a field or list element. Any
// other type, including other numeric types and slices, becomes Null;
// build lists with NewList/Append.
func Of(v any) *Value {
	switch t := v.(type) {
	case nil:
		return &Value{kind: Null}
	case *Value:
		return t
	case bool:
		if t {
			return &Value{kind: True}
		}
		return &Value{kind: False}
	case string:
		return &Value{kind: String, str: t}
	case int:
		return &Value{kind: Number, num: float64(t)}
	case int64:
		return &Value{kind: Number, num: float64(t)}
	case float64:
		return &Value{kind: Number, num: t}
	default:
		return &Value{kind: Null}
	}
}

// Kind reports the value's JSON type.
func (v *Value) Kind() Kind { return v.kind }

// Set adds or replaces a field on an object value. If v is not an
// object, it is first turned into an empty object, discarding its
// previous content.
func (v *Value) Set(key string, val any) *Value {
	if v.kind != Object {
		v.kind = Object
		v.fields = make(map[string]*Value)
	}
	if _, exists := v.fields[key]; !exists {
		v.order = append(v.order, key)
	}
	v.fields[key] = Of(val)
	return v
}

// Append adds an element to a list value.
func (v *Value) Append(val any) *Value {
	if v.kind != List {
		v.kind = List
	}
	v.list = append(v.list, Of(val))
	return v
}

// Has reports whether an object value has key.
func (v *Value) Has(key string) bool {
	if v.kind != Object {
		return false
	}
	_, ok := v.fields[key]
	return ok
}

// Get returns the field named key, or a Null value if absent.
func (v *Value) Get(key string) *Value {
	if v.kind == Object {
		if f, ok := v.fields[key]; ok {
			return f
		}
	}
	return &Value{kind: Null}
}

// Index returns the i'th list element, or a Null value if out of range.
func (v *Value) Index(i int) *Value {
	if v.kind == List && i >= 0 && i < len(v.list) {
		return v.list[i]
	}
	return &Value{kind: Null}
}

// Len returns the number of list elements or object fields.
func (v *Value) Len() int {
	switch v.kind {
	case List:
		return len(v.list)
	case Object:
		return len(v.order)
	default:
		return 0
	}
}

// String returns a String value's string, or "" otherwise.
func (v *Value) String() string {
	if v.kind == String {
		return v.str
	}
	return ""
}

// Number returns a Number value's float64, or 0 otherwise.
func (v *Value) Number() float64 {
	if v.kind == Number {
		return v.num
	}
	return 0
}

// Bool reports whether v is a truthy JSON value: True, a non-zero
// Number, a non-empty String, or a non-empty List/Object. Used by
// contrib/mustache's section tags.
func (v *Value) Bool() bool {
	switch v.kind {
	case True:
		return true
	case False, Null:
		return false
	case Number:
		return v.num != 0
	case String:
		return v.str != ""
	case List:
		return len(v.list) > 0
	case Object:
		return len(v.order) > 0
	}
	return false
}

// MarshalJSON implements json.Marshaler, writing object fields in
// insertion order to match the predictability the header multimap
// gives headers elsewhere in this module.
func (v *Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	case Number:
		return json.Marshal(v.num)
	case String:
		return json.Marshal(v.str)
	case List:
		return json.Marshal(v.list)
	case Object:
		buf := []byte{'{'}
		for i, k := range v.order {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, _ := json.Marshal(k)
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := v.fields[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	}
	return []byte("null"), nil
}

// Parse decodes raw JSON into a Value tree.
func Parse(raw []byte) (*Value, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return fromAny(decoded), nil
}

func fromAny(a any) *Value {
	switch t := a.(type) {
	case nil:
		return &Value{kind: Null}
	case bool:
		return Of(t)
	case float64:
		return &Value{kind: Number, num: t}
	case string:
		return &Value{kind: String, str: t}
	case []any:
		v := NewList()
		for _, e := range t {
			v.list = append(v.list, fromAny(e))
		}
		return v
	case map[string]any:
		v := NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v.Set(k, fromAny(t[k]))
		}
		return v
	}
	return &Value{kind: Null}
}

// Write marshals v and sends it as the response body with a JSON
// Content-Type, matching the original core's implicit json::wvalue
// response conversion in a route handler's return value.
func Write(w crow.ResponseWriter, status int, v *Value) error {
	body, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
