package object

import "fmt"

// NativeFn is the Go call target behind a Func. this is the receiver
// the caller bound (may be NULL); the returned error is the function
// "throwing" — wrap arbitrary values with Throw.
type NativeFn func(this Value, args []Value) (Value, error)

// Func is a callable object. It embeds Object so functions carry own
// properties (name, prototype) and participate in property scans like
// any other object.
type Func struct {
	Object
	name string
	fn   NativeFn
}

// NewFunc creates a bare function with the given prototype link.
// Realms normally create funcs via Realm.NewFunc so the link points at
// the realm's function prototype.
func NewFunc(name string, proto *Object, fn NativeFn) *Func {
	f := &Func{
		Object: Object{
			class: "Function",
			proto: proto,
			props: make(map[string]*Property),
		},
		name: name,
		fn:   fn,
	}
	f.Define("name", Property{Value: &String{Value: name}, Configurable: true})
	return f
}

func (f *Func) Kind() Kind { return KindFunc }

func (f *Func) Inspect() string {
	if f.name == "" {
		return "[function]"
	}
	return fmt.Sprintf("[function %s]", f.name)
}

// Name returns the function's declared name, "" for anonymous funcs.
func (f *Func) Name() string { return f.name }

// Call invokes the function. A nil call target yields an error rather
// than a panic so hostile graphs cannot crash traversal.
func (f *Func) Call(this Value, args ...Value) (Value, error) {
	if f.fn == nil {
		return nil, fmt.Errorf("function %q has no call target", f.name)
	}
	if this == nil {
		this = NULL
	}
	out, err := f.fn(this, args)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = NULL
	}
	return out, nil
}
