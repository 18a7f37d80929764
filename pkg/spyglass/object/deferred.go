package object

import "sync"

type deferredState uint8

const (
	statePending deferredState = iota
	stateResolved
	stateRejected
)

type settleHandler struct {
	onResolved *Func
	onRejected *Func
}

// Deferred is a minimal thenable: a promise-like object exposing a
// callable "then" property. Settlement callbacks run as realm
// microtasks, never inline with Resolve/Reject, so observation order
// matches the host's drain points.
type Deferred struct {
	realm *Realm

	mu       sync.Mutex
	state    deferredState
	value    Value
	handlers []settleHandler
	promise  *Object
}

// NewDeferred creates a pending deferred bound to realm.
func NewDeferred(realm *Realm) *Deferred {
	d := &Deferred{realm: realm}
	p := realm.NewObject().SetClass("Promise")
	p.DefineHidden("then", realm.NewFunc("then", d.then))
	d.promise = p
	return d
}

// Promise returns the thenable object callers hand around.
func (d *Deferred) Promise() *Object { return d.promise }

func (d *Deferred) then(_ Value, args []Value) (Value, error) {
	var h settleHandler
	if len(args) > 0 {
		if f, ok := args[0].(*Func); ok {
			h.onResolved = f
		}
	}
	if len(args) > 1 {
		if f, ok := args[1].(*Func); ok {
			h.onRejected = f
		}
	}

	d.mu.Lock()
	if d.state == statePending {
		d.handlers = append(d.handlers, h)
		d.mu.Unlock()
		return d.promise, nil
	}
	state, value := d.state, d.value
	d.mu.Unlock()

	d.schedule(h, state, value)
	return d.promise, nil
}

// Resolve settles the deferred with v. Later calls to Resolve or
// Reject are ignored.
func (d *Deferred) Resolve(v Value) {
	d.settle(stateResolved, v)
}

// Reject settles the deferred with reason.
func (d *Deferred) Reject(reason Value) {
	d.settle(stateRejected, reason)
}

func (d *Deferred) settle(state deferredState, v Value) {
	if v == nil {
		v = NULL
	}
	d.mu.Lock()
	if d.state != statePending {
		d.mu.Unlock()
		return
	}
	d.state = state
	d.value = v
	handlers := d.handlers
	d.handlers = nil
	d.mu.Unlock()

	for _, h := range handlers {
		d.schedule(h, state, v)
	}
}

func (d *Deferred) schedule(h settleHandler, state deferredState, v Value) {
	fn := h.onResolved
	if state == stateRejected {
		fn = h.onRejected
	}
	if fn == nil {
		return
	}
	d.realm.EnqueueMicrotask(func() {
		// Handler failures are the handler's problem; settlement
		// itself cannot fail.
		_, _ = fn.Call(NULL, v)
	})
}

// IsThenable reports whether v exposes a callable "then" property.
// Property access failures read as "not thenable".
func IsThenable(v Value) bool {
	obj, ok := AsObject(v)
	if !ok {
		return false
	}
	then, err := obj.Get("then")
	if err != nil {
		return false
	}
	return IsCallable(then)
}

// ThenOf returns the callable "then" of a thenable, or nil.
func ThenOf(v Value) *Func {
	obj, ok := AsObject(v)
	if !ok {
		return nil
	}
	then, err := obj.Get("then")
	if err != nil {
		return nil
	}
	f, ok := then.(*Func)
	if !ok {
		return nil
	}
	return f
}
