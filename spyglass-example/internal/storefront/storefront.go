// Package storefront builds the example application's business logic
// as a spyglass object graph: a cart service whose operations live as
// function-valued properties inside a realm, so instrumentation can
// observe every call without the HTTP layer knowing.
//
// The graph looks like:
//
//	cart (instance of Cart)
//	  addItem(name, price)   -> item count
//	  removeItem(name)       -> item count
//	  total()                -> current total
//	  checkout()             -> thenable settling with the total
//
// Checkout returns a deferred so the example exercises async
// observation (phase resolved/rejected) end to end.
package storefront

import (
	"sync"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// Store owns the realm and the cart graph. Operations go through the
// object world; the mutex serializes realm access across HTTP
// handlers, since realms are not self-locking.
type Store struct {
	mu    sync.Mutex
	realm *object.Realm
	cart  *object.Object

	items map[string]float64
}

// New builds the storefront graph inside a fresh realm.
func New() *Store {
	s := &Store{
		realm: object.NewRealm(),
		items: make(map[string]float64),
	}

	ctor, proto := s.realm.NewConstructor("Cart", nil)
	proto.DefineHidden("total", s.realm.NewFunc("total", s.total))
	s.realm.Global.DefineValue("Cart", ctor)
	s.realm.Global.DefineValue("globalThis", s.realm.Global)

	cart := s.realm.NewInstance(ctor)
	cart.DefineValue("addItem", s.realm.NewFunc("addItem", s.addItem))
	cart.DefineValue("removeItem", s.realm.NewFunc("removeItem", s.removeItem))
	cart.DefineValue("checkout", s.realm.NewFunc("checkout", s.checkout))
	s.cart = cart
	return s
}

// Realm exposes the store's realm for instrumentation and draining.
func (s *Store) Realm() *object.Realm { return s.realm }

// Cart exposes the instrumentation target.
func (s *Store) Cart() *object.Object { return s.cart }

// AddItem drives the object-world addItem through whatever wrapper
// instrumentation installed.
func (s *Store) AddItem(name string, price float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.call("addItem", &object.String{Value: name}, &object.Float{Value: price})
	if err != nil {
		return 0, err
	}
	return intOf(res), nil
}

// RemoveItem removes an item by name.
func (s *Store) RemoveItem(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.call("removeItem", &object.String{Value: name})
	if err != nil {
		return 0, err
	}
	return intOf(res), nil
}

// Total returns the current cart total via the prototype method.
func (s *Store) Total() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.call("total")
	if err != nil {
		return 0, err
	}
	if f, ok := res.(*object.Float); ok {
		return f.Value, nil
	}
	return 0, nil
}

// Checkout runs the async checkout and drains the microtask queue so
// settlement observations fire before returning.
func (s *Store) Checkout() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.call("checkout")
	if err != nil {
		return 0, err
	}
	total := 0.0
	if object.IsThenable(res) {
		then := object.ThenOf(res)
		then.Call(res, s.realm.NewFunc("", func(_ object.Value, args []object.Value) (object.Value, error) {
			if len(args) > 0 {
				if f, ok := args[0].(*object.Float); ok {
					total = f.Value
				}
			}
			return nil, nil
		}))
	}
	s.realm.DrainMicrotasks()
	return total, nil
}

func (s *Store) call(key string, args ...object.Value) (object.Value, error) {
	v, err := s.cart.Get(key)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(*object.Func)
	if !ok {
		return nil, object.ThrowString(key + " is not callable")
	}
	return fn.Call(s.cart, args...)
}

func (s *Store) addItem(_ object.Value, args []object.Value) (object.Value, error) {
	if len(args) < 2 {
		return nil, object.ThrowString("addItem needs a name and a price")
	}
	name, ok := args[0].(*object.String)
	if !ok {
		return nil, object.ThrowString("item name must be a string")
	}
	price := 0.0
	switch p := args[1].(type) {
	case *object.Float:
		price = p.Value
	case *object.Int:
		price = float64(p.Value)
	default:
		return nil, object.ThrowString("item price must be a number")
	}
	if price < 0 {
		return nil, object.ThrowString("item price must not be negative")
	}
	s.items[name.Value] = price
	return &object.Int{Value: int64(len(s.items))}, nil
}

func (s *Store) removeItem(_ object.Value, args []object.Value) (object.Value, error) {
	if len(args) < 1 {
		return nil, object.ThrowString("removeItem needs a name")
	}
	if name, ok := args[0].(*object.String); ok {
		delete(s.items, name.Value)
	}
	return &object.Int{Value: int64(len(s.items))}, nil
}

func (s *Store) total(_ object.Value, _ []object.Value) (object.Value, error) {
	sum := 0.0
	for _, p := range s.items {
		sum += p
	}
	return &object.Float{Value: sum}, nil
}

func (s *Store) checkout(_ object.Value, _ []object.Value) (object.Value, error) {
	d := object.NewDeferred(s.realm)
	sum := 0.0
	for _, p := range s.items {
		sum += p
	}
	if len(s.items) == 0 {
		d.Reject(&object.String{Value: "cart is empty"})
	} else {
		s.items = make(map[string]float64)
		d.Resolve(&object.Float{Value: sum})
	}
	return d.Promise(), nil
}

func intOf(v object.Value) int {
	if i, ok := v.(*object.Int); ok {
		return int(i.Value)
	}
	return 0
}
