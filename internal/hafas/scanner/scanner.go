// Package scanner finds reference fields in a raw HAFAS response.
//
// Patterns are dot-separated segments. A literal segment matches a key,
// "*" matches exactly one key and "**" matches zero or more keys. Arrays
// are transparent: walking into an array does not add a path segment.
package scanner

import (
	"strings"

	"github.com/samirrijal/hafasgo/internal/hafas/raw"
)

// Pattern is a compiled path expression.
type Pattern struct {
	src    string
	tokens []string
}

// Compile parses a dot-separated pattern such as "**.ani.fLocX".
func Compile(expr string) Pattern {
	return Pattern{src: expr, tokens: strings.Split(expr, ".")}
}

func (p Pattern) String() string { return p.src }

// Match is a field whose path matched a pattern.
type Match struct {
	Value any
	// Parents holds the enclosing objects, nearest first. Parents[0] owns the field.
	Parents []*raw.Object
}

// Owner returns the object that holds the matched field.
func (m Match) Owner() *raw.Object {
	return m.Ancestor(0)
}

// Ancestor returns the n-th enclosing object, or nil when there is none.
func (m Match) Ancestor(n int) *raw.Object {
	if n < 0 || n >= len(m.Parents) {
		return nil
	}
	return m.Parents[n]
}

// Index returns the value as an integer index.
func (m Match) Index() (int, bool) {
	return raw.AsInt(m.Value)
}

// Indices returns the value as a list of indices. Elements that are not
// integers become -1 so positions stay aligned.
func (m Match) Indices() ([]int, bool) {
	arr, ok := m.Value.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		idx, ok := raw.AsInt(v)
		if !ok {
			idx = -1
		}
		out[i] = idx
	}
	return out, true
}

// Result groups matches by pattern source, each list in document order.
type Result map[string][]Match

// Of returns the matches for p.
func (r Result) Of(p Pattern) []Match {
	return r[p.src]
}

// Scan walks root once in document order and collects matches for every pattern.
// The root object itself is never matched.
func Scan(root *raw.Object, patterns ...Pattern) Result {
	w := &walker{patterns: patterns, res: make(Result, len(patterns))}
	if root != nil {
		w.object(root, nil, nil)
	}
	return w.res
}

type walker struct {
	patterns []Pattern
	res      Result
}

func (w *walker) object(o *raw.Object, path []string, parents []*raw.Object) {
	own := make([]*raw.Object, 0, len(parents)+1)
	own = append(own, o)
	own = append(own, parents...)

	for _, k := range o.Keys() {
		v, _ := o.Get(k)
		p := append(path[:len(path):len(path)], k)
		for _, pat := range w.patterns {
			if match(pat.tokens, p) {
				w.res[pat.src] = append(w.res[pat.src], Match{Value: v, Parents: own})
			}
		}
		w.value(v, p, own)
	}
}

func (w *walker) value(v any, path []string, parents []*raw.Object) {
	switch t := v.(type) {
	case *raw.Object:
		w.object(t, path, parents)
	case []any:
		for _, e := range t {
			w.value(e, path, parents)
		}
	}
}

func match(tokens, path []string) bool {
	for len(tokens) > 0 {
		switch tokens[0] {
		case "**":
			rest := tokens[1:]
			for i := 0; i <= len(path); i++ {
				if match(rest, path[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(path) == 0 {
				return false
			}
		default:
			if len(path) == 0 || path[0] != tokens[0] {
				return false
			}
		}
		tokens, path = tokens[1:], path[1:]
	}
	return len(path) == 0
}
