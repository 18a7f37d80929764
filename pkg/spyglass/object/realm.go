package object

import (
	"sync"

	"github.com/eapache/queue"
)

// Realm owns one object graph: the global object, the two terminal
// prototypes every chain converges to, and the microtask queue used
// for deferred settlement. Realms are not self-locking; callers must
// not mutate one realm's graph from multiple goroutines.
type Realm struct {
	// Global is the realm's top-level namespace. Hosts bind their
	// ambient roots here (globalThis, window, global).
	Global *Object

	// ObjectProto and FuncProto are the universal terminal
	// prototypes. Wide collection walks prototype chains up to, and
	// excluding, these two.
	ObjectProto *Object
	FuncProto   *Object

	mu         sync.Mutex
	microtasks *queue.Queue
}

// NewRealm creates an empty realm with fresh terminal prototypes and a
// global object. Nothing is bound on the global: ambient names are the
// host's decision.
func NewRealm() *Realm {
	objectProto := New(nil).SetClass("Object")
	funcProto := New(objectProto).SetClass("Function")

	r := &Realm{
		Global:      New(objectProto).SetClass("global"),
		ObjectProto: objectProto,
		FuncProto:   funcProto,
		microtasks:  queue.New(),
	}
	return r
}

// NewObject creates an object whose prototype is the realm's object
// prototype.
func (r *Realm) NewObject() *Object {
	return New(r.ObjectProto)
}

// NewFunc creates a function whose prototype link is the realm's
// function prototype.
func (r *Realm) NewFunc(name string, fn NativeFn) *Func {
	return NewFunc(name, r.FuncProto, fn)
}

// NewConstructor creates a constructor-shaped function: it carries an
// own non-enumerable "prototype" object, and that object's
// "constructor" points back at the function. Instances should use the
// returned prototype object as their proto link.
func (r *Realm) NewConstructor(name string, fn NativeFn) (*Func, *Object) {
	ctor := r.NewFunc(name, fn)
	proto := r.NewObject().SetClass(name)
	proto.DefineHidden("constructor", ctor)
	ctor.DefineHidden("prototype", proto)
	return ctor, proto
}

// NewInstance creates an object wired to a constructor's prototype.
func (r *Realm) NewInstance(ctor *Func) *Object {
	v, err := ctor.Get("prototype")
	if err == nil {
		if proto, ok := v.(*Object); ok {
			return New(proto)
		}
	}
	return r.NewObject()
}

// IsTerminalProto reports whether o is one of the realm's two terminal
// prototypes.
func (r *Realm) IsTerminalProto(o *Object) bool {
	return o == r.ObjectProto || o == r.FuncProto
}

// EnqueueMicrotask schedules fn on the realm's FIFO microtask queue.
// Scheduled tasks always run when drained; there is no cancellation.
func (r *Realm) EnqueueMicrotask(fn func()) {
	r.mu.Lock()
	r.microtasks.Add(fn)
	r.mu.Unlock()
}

// DrainMicrotasks runs queued microtasks, including ones enqueued
// while draining, and returns how many ran. The host calls this at its
// checkpoint of choice; nothing in the core blocks on it.
func (r *Realm) DrainMicrotasks() int {
	ran := 0
	for {
		r.mu.Lock()
		if r.microtasks.Length() == 0 {
			r.mu.Unlock()
			return ran
		}
		fn := r.microtasks.Remove().(func())
		r.mu.Unlock()
		fn()
		ran++
	}
}

var (
	defaultRealm     *Realm
	defaultRealmOnce sync.Once
)

// DefaultRealm returns the shared fallback realm used when an
// operation is given none. It starts empty; hosts that want ambient
// resolution bind globals on it.
func DefaultRealm() *Realm {
	defaultRealmOnce.Do(func() {
		defaultRealm = NewRealm()
	})
	return defaultRealm
}
