package object

import (
	"fmt"
)

// Property is an own-property slot. A slot is either a data property
// (Value) or an accessor property (Getter/Setter); accessor slots with
// a nil Setter are read-only and the instrumentation layer refuses to
// replace them.
type Property struct {
	Value        Value
	Getter       *Func
	Setter       *Func
	Enumerable   bool
	Writable     bool
	Configurable bool
}

// IsAccessor reports whether the slot is accessor-backed.
func (p *Property) IsAccessor() bool {
	return p.Getter != nil || p.Setter != nil
}

// Object is a mutable property bag with a prototype link. Own
// properties preserve insertion order. Objects are not safe for
// concurrent mutation; callers serialize access (the collectors and
// the instrumentation layer are synchronous by design).
type Object struct {
	class string
	proto *Object
	props map[string]*Property
	order []string
}

// New creates an object with the given prototype. A nil prototype
// terminates the chain.
func New(proto *Object) *Object {
	return &Object{
		class: "Object",
		proto: proto,
		props: make(map[string]*Property),
	}
}

func (o *Object) Kind() Kind { return KindObject }

func (o *Object) Inspect() string {
	return fmt.Sprintf("[object %s]", o.class)
}

// Class returns the object's class tag (for Inspect output).
func (o *Object) Class() string { return o.class }

// SetClass sets the class tag and returns the object for chaining.
func (o *Object) SetClass(class string) *Object {
	o.class = class
	return o
}

// Proto returns the prototype link, nil at the end of the chain.
func (o *Object) Proto() *Object { return o.proto }

// SetProto replaces the prototype link.
func (o *Object) SetProto(proto *Object) { o.proto = proto }

// Define installs an own property, replacing any existing slot under
// the same key regardless of its flags. This is the low-level hook the
// realm and tests use to shape graphs; guarded mutation goes through
// Set and DefineChecked.
func (o *Object) Define(key string, p Property) {
	if _, ok := o.props[key]; !ok {
		o.order = append(o.order, key)
	}
	cp := p
	o.props[key] = &cp
}

// DefineValue installs an enumerable, writable, configurable data
// property holding v.
func (o *Object) DefineValue(key string, v Value) {
	o.Define(key, Property{Value: v, Enumerable: true, Writable: true, Configurable: true})
}

// DefineHidden installs a non-enumerable but otherwise ordinary data
// property, the shape built-in method tables take.
func (o *Object) DefineHidden(key string, v Value) {
	o.Define(key, Property{Value: v, Writable: true, Configurable: true})
}

// DefineChecked replaces an existing own slot only if its flags allow
// it: data slots must be writable or configurable, accessor slots must
// have a setter. Missing keys are created. The existing slot's flags
// are preserved on replacement.
func (o *Object) DefineChecked(key string, v Value) error {
	existing, ok := o.props[key]
	if !ok {
		o.DefineValue(key, v)
		return nil
	}
	if existing.IsAccessor() {
		if existing.Setter == nil {
			return fmt.Errorf("cannot replace accessor property %q: no setter", key)
		}
		_, err := existing.Setter.Call(o, v)
		return err
	}
	if !existing.Writable && !existing.Configurable {
		return fmt.Errorf("cannot replace property %q: not writable", key)
	}
	existing.Value = v
	return nil
}

// Set assigns a value through the normal write path: an own accessor's
// setter wins, a read-only own data slot rejects the write, otherwise
// the own slot is created or updated.
func (o *Object) Set(key string, v Value) error {
	return o.DefineChecked(key, v)
}

// GetOwn returns the own property slot for key without consulting the
// prototype chain and without invoking getters.
func (o *Object) GetOwn(key string) (*Property, bool) {
	p, ok := o.props[key]
	return p, ok
}

// HasOwn reports whether key is an own property.
func (o *Object) HasOwn(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Has reports whether key resolves anywhere on the prototype chain.
func (o *Object) Has(key string) bool {
	for cur := o; cur != nil; cur = cur.proto {
		if cur.HasOwn(key) {
			return true
		}
	}
	return false
}

// Get resolves key along the prototype chain. Accessor getters run
// with the receiving object as this; a getter failure is returned to
// the caller, which the collectors treat as a skippable access
// failure. A missing key yields NULL without error.
func (o *Object) Get(key string) (Value, error) {
	for cur := o; cur != nil; cur = cur.proto {
		p, ok := cur.props[key]
		if !ok {
			continue
		}
		if p.Getter != nil {
			return p.Getter.Call(o)
		}
		if p.IsAccessor() {
			// Setter-only slot reads as null.
			return NULL, nil
		}
		if p.Value == nil {
			return NULL, nil
		}
		return p.Value, nil
	}
	return NULL, nil
}

// Delete removes an own property if its slot is configurable.
func (o *Object) Delete(key string) bool {
	p, ok := o.props[key]
	if !ok {
		return true
	}
	if !p.Configurable {
		return false
	}
	delete(o.props, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// OwnEnumerableKeys lists own enumerable property names in insertion
// order. Plain objects cannot fail here; the error return exists for
// the KeySource contract so host-specific sources may degrade.
func (o *Object) OwnEnumerableKeys() ([]string, error) {
	keys := make([]string, 0, len(o.order))
	for _, k := range o.order {
		if p, ok := o.props[k]; ok && p.Enumerable {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// OwnPropertyNames lists every own property name, enumerable or not,
// in insertion order.
func (o *Object) OwnPropertyNames() ([]string, error) {
	names := make([]string, len(o.order))
	copy(names, o.order)
	return names, nil
}
