// Package object implements the dynamic object model that the spyglass
// collectors and instrumentation layer traverse. Values are tagged
// variants (null, bool, int, float, string, object, func). Objects
// carry an ordered own-property table, a prototype link, and optional
// accessor properties whose getters and setters may fail. A Realm ties
// a graph together: it owns the global object, the two terminal
// prototypes every chain converges to, and the microtask queue used
// for deferred (thenable) settlement.
package object

import (
	"fmt"
	"strconv"
)

// Value is the interface implemented by every runtime value.
type Value interface {
	Kind() Kind
	Inspect() string
}

// KeySource enumerates the own property names of a value. Either list
// may fail independently; traversal treats a failure as an empty list
// for that source rather than aborting.
type KeySource interface {
	OwnEnumerableKeys() ([]string, error)
	OwnPropertyNames() ([]string, error)
}

// PropertySource is what the collectors traverse: an enumerable value
// whose properties can be read. Reads may fail per key (throwing
// accessors) without poisoning the rest of the traversal.
type PropertySource interface {
	Value
	KeySource
	Get(key string) (Value, error)
}

type Null struct{}

func (n *Null) Kind() Kind      { return KindNull }
func (n *Null) Inspect() string { return "null" }

type Bool struct {
	Value bool
}

func (b *Bool) Kind() Kind      { return KindBool }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.Value) }

type Int struct {
	Value int64
}

func (i *Int) Kind() Kind      { return KindInt }
func (i *Int) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Float struct {
	Value float64
}

func (f *Float) Kind() Kind      { return KindFloat }
func (f *Float) Inspect() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

type String struct {
	Value string
}

func (s *String) Kind() Kind      { return KindString }
func (s *String) Inspect() string { return s.Value }

// NULL is the shared null value.
var NULL = &Null{}

// Thrown adapts a runtime Value into a Go error so functions in the
// object world can fail with arbitrary values. Wrappers re-raise a
// *Thrown unchanged, preserving the original failure for callers.
type Thrown struct {
	Value Value
}

func (t *Thrown) Error() string {
	if t.Value == nil {
		return "thrown: null"
	}
	return fmt.Sprintf("thrown: %s", t.Value.Inspect())
}

// Throw wraps v as an error.
func Throw(v Value) error {
	return &Thrown{Value: v}
}

// ThrowString is shorthand for throwing a string value.
func ThrowString(msg string) error {
	return &Thrown{Value: &String{Value: msg}}
}

// AsObject extracts the underlying *Object from a value, if it has
// one. Funcs expose their embedded object so property scans and
// identity checks see a stable reference.
func AsObject(v Value) (*Object, bool) {
	switch t := v.(type) {
	case *Object:
		return t, true
	case *Func:
		return &t.Object, true
	default:
		return nil, false
	}
}

// IsCallable reports whether v can be invoked.
func IsCallable(v Value) bool {
	_, ok := v.(*Func)
	return ok
}
