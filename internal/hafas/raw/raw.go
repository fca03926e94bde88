// Package raw holds undecoded HAFAS response trees.
//
// encoding/json decodes objects into Go maps, which lose key order. The
// reference scanner must visit nodes in document order, so objects are
// decoded into *Object, which remembers the order its keys appeared in.
// Numbers stay json.Number until an accessor asks for a concrete type.
package raw

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Object is a decoded JSON object with its key order preserved.
// Pointer identity is meaningful: the resolver keys its link table by *Object.
type Object struct {
	keys   []string
	fields map[string]any
}

// New creates an empty object.
func New() *Object {
	return &Object{fields: map[string]any{}}
}

// Decode parses a JSON document whose top level is an object.
func Decode(data []byte) (*Object, error) {
	v, err := DecodeValue(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("raw: top level is %T, not an object", v)
	}
	return o, nil
}

// DecodeValue parses any JSON value. Objects become *Object, arrays []any,
// numbers json.Number.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("raw: trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("raw: unexpected delimiter %q", t)
		}
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder) (*Object, error) {
	o := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("raw: object key is %T", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		o.set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	arr := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// set stores a field; a duplicate key keeps its first position.
func (o *Object) set(key string, v any) {
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// UnmarshalJSON lets *Object sit inside ordinary structs, e.g. a response envelope.
func (o *Object) UnmarshalJSON(data []byte) error {
	parsed, err := Decode(data)
	if err != nil {
		return err
	}
	*o = *parsed
	return nil
}

// MarshalJSON writes the fields back in their original order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// With returns a shallow copy of o with key set to v. o itself is untouched.
func (o *Object) With(key string, v any) *Object {
	c := New()
	if o != nil {
		c.keys = append(c.keys, o.keys...)
		for k, fv := range o.fields {
			c.fields[k] = fv
		}
	}
	c.set(key, v)
	return c
}

// Keys returns the field names in document order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Get returns the raw value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key is present and not null.
func (o *Object) Has(key string) bool {
	v, ok := o.Get(key)
	return ok && v != nil
}

// Str returns the string under key.
func (o *Object) Str(key string) (string, bool) {
	v, _ := o.Get(key)
	s, ok := v.(string)
	return s, ok
}

// String returns the string under key or "".
func (o *Object) String(key string) string {
	s, _ := o.Str(key)
	return s
}

// Int returns the integer under key. Floats with no fractional part count.
func (o *Object) Int(key string) (int, bool) {
	v, _ := o.Get(key)
	return AsInt(v)
}

// Float returns the number under key.
func (o *Object) Float(key string) (float64, bool) {
	v, _ := o.Get(key)
	return AsFloat(v)
}

// Bool returns the boolean under key.
func (o *Object) Bool(key string) (bool, bool) {
	v, _ := o.Get(key)
	b, ok := v.(bool)
	return b, ok
}

// Truthy reports whether key holds true.
func (o *Object) Truthy(key string) bool {
	b, _ := o.Bool(key)
	return b
}

// Obj returns the nested object under key, or nil.
func (o *Object) Obj(key string) *Object {
	v, _ := o.Get(key)
	c, _ := v.(*Object)
	return c
}

// Arr returns the array under key.
func (o *Object) Arr(key string) ([]any, bool) {
	v, _ := o.Get(key)
	a, ok := v.([]any)
	return a, ok
}

// Objs returns the object elements of the array under key, skipping anything else.
func (o *Object) Objs(key string) []*Object {
	arr, _ := o.Arr(key)
	out := make([]*Object, 0, len(arr))
	for _, v := range arr {
		if c, ok := v.(*Object); ok {
			out = append(out, c)
		}
	}
	return out
}

// Strs returns the string elements of the array under key.
func (o *Object) Strs(key string) []string {
	arr, _ := o.Arr(key)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AsInt converts a decoded JSON number to int. Anything else reports false.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// AsFloat converts a decoded JSON number to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Plain converts a tree into maps and slices for callers that pass data
// through untouched. Key order is lost.
func Plain(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
		m := make(map[string]any, len(t.keys))
		for _, k := range t.keys {
			m[k] = Plain(t.fields[k])
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	case json.Number:
		if i, ok := AsInt(t); ok {
			return i
		}
		f, _ := t.Float64()
		return f
	}
	return v
}
