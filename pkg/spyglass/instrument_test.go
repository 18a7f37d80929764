package spyglass

import (
	"testing"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

type recordingSink struct {
	observations []CallObservation
}

func (r *recordingSink) sink() Sink {
	return func(obs CallObservation) {
		r.observations = append(r.observations, obs)
	}
}

func (r *recordingSink) byPhase(phase Phase) []CallObservation {
	var out []CallObservation
	for _, o := range r.observations {
		if o.Phase == phase {
			out = append(out, o)
		}
	}
	return out
}

func newCountingTarget(realm *object.Realm) (*object.Object, *int) {
	calls := new(int)
	target := realm.NewObject()
	target.DefineValue("onPing", realm.NewFunc("onPing", func(this object.Value, args []object.Value) (object.Value, error) {
		*calls++
		return &object.String{Value: "pong"}, nil
	}))
	return target, calls
}

func TestInstrumentObservesCalls(t *testing.T) {
	realm := object.NewRealm()
	target, calls := newCountingTarget(realm)
	rec := &recordingSink{}

	Instrument(target, InstrumentOptions{
		Realm:  realm,
		Rules:  []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger: rec.sink(),
		Label:  "[test]",
	})

	wrapped, err := target.Get("onPing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	fn, ok := wrapped.(*object.Func)
	if !ok {
		t.Fatalf("onPing is %T after instrumentation", wrapped)
	}

	res, err := fn.Call(target, &object.Int{Value: 5})
	if err != nil {
		t.Fatalf("wrapped call: %v", err)
	}
	if s, ok := res.(*object.String); !ok || s.Value != "pong" {
		t.Errorf("wrapped call returned %v, want pong", res)
	}
	if *calls != 1 {
		t.Errorf("original ran %d times, want 1", *calls)
	}

	if len(rec.observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(rec.observations))
	}
	obs := rec.observations[0]
	if obs.Phase != PhaseCall || obs.Key != "onPing" || obs.Label != "[test]" {
		t.Errorf("observation = %+v", obs)
	}
	if len(obs.Args) != 1 {
		t.Errorf("observation args = %v", obs.Args)
	}
	if obs.This != object.Value(target) {
		t.Errorf("observation this = %v", obs.This)
	}
}

func TestInstrumentIsIdempotentAcrossCalls(t *testing.T) {
	realm := object.NewRealm()
	target, calls := newCountingTarget(realm)
	rec := &recordingSink{}
	opts := InstrumentOptions{
		Realm:  realm,
		Rules:  []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger: rec.sink(),
	}

	Instrument(target, opts)
	Instrument(target, opts)

	fn, _ := mustFunc(t, target, "onPing")
	if _, err := fn.Call(target); err != nil {
		t.Fatalf("call: %v", err)
	}

	if *calls != 1 {
		t.Errorf("original ran %d times, want 1", *calls)
	}
	if len(rec.observations) != 1 {
		t.Errorf("single call produced %d observations, want 1 (double wrap?)", len(rec.observations))
	}
}

func TestInstrumentSessionReusePreventsRewrap(t *testing.T) {
	realm := object.NewRealm()
	target, _ := newCountingTarget(realm)
	rec := &recordingSink{}
	session := NewSession()
	opts := InstrumentOptions{
		Realm:   realm,
		Rules:   []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger:  rec.sink(),
		Session: session,
	}

	Instrument(target, opts)
	Instrument(target, opts)

	fn, _ := mustFunc(t, target, "onPing")
	fn.Call(target)
	if len(rec.observations) != 1 {
		t.Errorf("got %d observations, want 1", len(rec.observations))
	}
}

func TestInstrumentTransparencyOnError(t *testing.T) {
	realm := object.NewRealm()
	target := realm.NewObject()
	boom := object.ThrowString("E")
	target.DefineValue("explode", realm.NewFunc("explode", func(this object.Value, args []object.Value) (object.Value, error) {
		return nil, boom
	}))
	rec := &recordingSink{}

	Instrument(target, InstrumentOptions{Realm: realm, Logger: rec.sink()})

	fn, _ := mustFunc(t, target, "explode")
	_, err := fn.Call(target)
	if err != boom {
		t.Errorf("wrapped call error = %v, want the original error identity", err)
	}

	calls := rec.byPhase(PhaseCall)
	if len(calls) != 1 {
		t.Fatalf("got %d call observations, want 1", len(calls))
	}
	if calls[0].Err != boom {
		t.Errorf("observed error = %v, want original", calls[0].Err)
	}
}

func TestInstrumentAwaitPromises(t *testing.T) {
	realm := object.NewRealm()
	target := realm.NewObject()
	d := object.NewDeferred(realm)
	target.DefineValue("load", realm.NewFunc("load", func(this object.Value, args []object.Value) (object.Value, error) {
		return d.Promise(), nil
	}))
	rec := &recordingSink{}

	Instrument(target, InstrumentOptions{
		Realm:         realm,
		Logger:        rec.sink(),
		AwaitPromises: true,
		Rules:         []Rule{{Kind: MatchPrefix, Pattern: "load"}},
	})

	fn, _ := mustFunc(t, target, "load")
	res, err := fn.Call(target)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res != object.Value(d.Promise()) {
		t.Error("wrapper did not return the original thenable synchronously")
	}
	if len(rec.byPhase(PhaseResolved)) != 0 {
		t.Fatal("resolution observed before settlement")
	}

	d.Resolve(&object.Int{Value: 42})
	realm.DrainMicrotasks()

	resolved := rec.byPhase(PhaseResolved)
	if len(resolved) != 1 {
		t.Fatalf("got %d resolved observations, want 1", len(resolved))
	}
	if i, ok := resolved[0].Result.(*object.Int); !ok || i.Value != 42 {
		t.Errorf("resolved result = %v, want 42", resolved[0].Result)
	}
}

func TestInstrumentAwaitPromisesRejection(t *testing.T) {
	realm := object.NewRealm()
	target := realm.NewObject()
	d := object.NewDeferred(realm)
	target.DefineValue("load", realm.NewFunc("load", func(this object.Value, args []object.Value) (object.Value, error) {
		return d.Promise(), nil
	}))
	rec := &recordingSink{}

	Instrument(target, InstrumentOptions{Realm: realm, Logger: rec.sink(), AwaitPromises: true})

	fn, _ := mustFunc(t, target, "load")
	fn.Call(target)
	d.Reject(&object.String{Value: "denied"})
	realm.DrainMicrotasks()

	rejected := rec.byPhase(PhaseRejected)
	if len(rejected) != 1 {
		t.Fatalf("got %d rejected observations, want 1", len(rejected))
	}
	thrown, ok := rejected[0].Err.(*object.Thrown)
	if !ok {
		t.Fatalf("rejected err = %T", rejected[0].Err)
	}
	if s, ok := thrown.Value.(*object.String); !ok || s.Value != "denied" {
		t.Errorf("rejection reason = %v", thrown.Value)
	}
}

func TestInstrumentLeavesNonWritablePropertyAlone(t *testing.T) {
	realm := object.NewRealm()
	target := realm.NewObject()
	frozen := realm.NewFunc("frozen", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.NULL, nil
	})
	target.Define("frozen", object.Property{Value: frozen, Enumerable: true})
	rec := &recordingSink{}

	Instrument(target, InstrumentOptions{Realm: realm, Logger: rec.sink()})

	v, err := target.Get("frozen")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != object.Value(frozen) {
		t.Error("non-writable property was replaced")
	}
	if fn, ok := v.(*object.Func); ok {
		fn.Call(target)
	}
	if len(rec.observations) != 0 {
		t.Errorf("unwrapped function produced %d observations", len(rec.observations))
	}
}

func TestInstrumentSkipsReadOnlyAccessor(t *testing.T) {
	realm := object.NewRealm()
	target := realm.NewObject()
	backing := realm.NewFunc("computed", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.NULL, nil
	})
	target.Define("computed", object.Property{
		Getter: realm.NewFunc("", func(this object.Value, args []object.Value) (object.Value, error) {
			return backing, nil
		}),
		Enumerable:   true,
		Configurable: true,
	})
	rec := &recordingSink{}

	Instrument(target, InstrumentOptions{Realm: realm, Logger: rec.sink()})

	v, _ := target.Get("computed")
	if v != object.Value(backing) {
		t.Error("read-only accessor was replaced")
	}
}

func TestInstrumentWrapOwnerPatchesPrototype(t *testing.T) {
	realm := object.NewRealm()
	ctor, proto := realm.NewConstructor("Thing", nil)
	var calls int
	proto.DefineHidden("poke", realm.NewFunc("poke", func(this object.Value, args []object.Value) (object.Value, error) {
		calls++
		return object.NULL, nil
	}))
	inst := realm.NewInstance(ctor)
	rec := &recordingSink{}

	Instrument(inst, InstrumentOptions{
		Realm:      realm,
		Rules:      []Rule{{Kind: MatchPrefix, Pattern: "poke"}},
		Logger:     rec.sink(),
		WrapTarget: WrapOwner,
	})

	if inst.HasOwn("poke") {
		t.Error("WrapOwner installed on the root instead of the owner")
	}
	wrapped, _ := proto.Get("poke")
	fn, ok := wrapped.(*object.Func)
	if !ok {
		t.Fatalf("prototype poke is %T", wrapped)
	}
	fn.Call(inst)
	if calls != 1 || len(rec.observations) != 1 {
		t.Errorf("calls=%d observations=%d, want 1/1", calls, len(rec.observations))
	}
}

func TestInstrumentWrapPrototypeOwnPropertyWins(t *testing.T) {
	realm := object.NewRealm()
	ctor, proto := realm.NewConstructor("Thing", nil)
	ctor.DefineValue("onMake", realm.NewFunc("onMake", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.NULL, nil
	}))
	rec := &recordingSink{}

	Instrument(ctor, InstrumentOptions{
		Realm:      realm,
		Rules:      []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger:     rec.sink(),
		WrapTarget: WrapPrototype,
	})

	// The constructor's own prototype object receives the wrapper, not
	// the constructor itself and not its proto link.
	if ctor.HasOwn("onMake") {
		if v, _ := ctor.GetOwn("onMake"); v != nil {
			if fn, ok := v.Value.(*object.Func); ok && fn.HasOwn(wrapMarkerKey) {
				t.Error("wrapper installed on the constructor instead of its prototype")
			}
		}
	}
	if !proto.HasOwn("onMake") {
		t.Fatal("wrapper not installed on the own prototype object")
	}
	wrapped, _ := proto.Get("onMake")
	fn, ok := wrapped.(*object.Func)
	if !ok {
		t.Fatalf("prototype onMake is %T", wrapped)
	}
	fn.Call(ctor)
	if len(rec.observations) != 1 {
		t.Errorf("got %d observations, want 1", len(rec.observations))
	}
}

func TestInstrumentWrapPrototypeNeverPatchesTerminalProto(t *testing.T) {
	realm := object.NewRealm()
	target, calls := newCountingTarget(realm)
	rec := &recordingSink{}

	// A plain object's proto link is the realm's shared ObjectProto;
	// falling back to it would leak the wrapper to every object.
	Instrument(target, InstrumentOptions{
		Realm:      realm,
		Rules:      []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger:     rec.sink(),
		WrapTarget: WrapPrototype,
	})

	if realm.ObjectProto.HasOwn("onPing") {
		t.Fatal("terminal ObjectProto was patched")
	}
	bystander := realm.NewObject()
	if bystander.Has("onPing") {
		t.Error("unrelated object inherits the wrapper")
	}

	fn, _ := mustFunc(t, target, "onPing")
	fn.Call(target)
	if *calls != 1 {
		t.Errorf("original ran %d times, want 1", *calls)
	}
	if len(rec.observations) != 0 {
		t.Errorf("skipped install still produced %d observations", len(rec.observations))
	}
}

func TestInstrumentWrapPrototypeUsesNonTerminalProtoLink(t *testing.T) {
	realm := object.NewRealm()
	ctor, proto := realm.NewConstructor("Thing", nil)
	inst := realm.NewInstance(ctor)
	inst.DefineValue("onTick", realm.NewFunc("onTick", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.NULL, nil
	}))
	rec := &recordingSink{}

	Instrument(inst, InstrumentOptions{
		Realm:      realm,
		Rules:      []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger:     rec.sink(),
		WrapTarget: WrapPrototype,
	})

	// The instance has no own "prototype" property, so the wrapper
	// lands on its proto link, which is not terminal here.
	if inst.HasOwn("onTick") {
		if p, _ := inst.GetOwn("onTick"); p != nil {
			if fn, ok := p.Value.(*object.Func); ok && fn.HasOwn(wrapMarkerKey) {
				t.Error("wrapper installed on the root instead of the proto link")
			}
		}
	}
	if !proto.HasOwn("onTick") {
		t.Fatal("wrapper not installed on the proto link")
	}
	wrapped, _ := proto.Get("onTick")
	fn, ok := wrapped.(*object.Func)
	if !ok {
		t.Fatalf("proto onTick is %T", wrapped)
	}
	fn.Call(inst)
	if len(rec.observations) != 1 {
		t.Errorf("got %d observations, want 1", len(rec.observations))
	}
}

func TestInstrumentWrapRootShadowsInheritedFunctions(t *testing.T) {
	realm := object.NewRealm()
	ctor, proto := realm.NewConstructor("Thing", nil)
	orig := realm.NewFunc("poke", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.NULL, nil
	})
	proto.DefineHidden("poke", orig)
	inst := realm.NewInstance(ctor)
	rec := &recordingSink{}

	Instrument(inst, InstrumentOptions{
		Realm:      realm,
		Rules:      []Rule{{Kind: MatchPrefix, Pattern: "poke"}},
		Logger:     rec.sink(),
		WrapTarget: WrapRoot,
	})

	if !inst.HasOwn("poke") {
		t.Fatal("WrapRoot did not install on the root")
	}
	protoVal, _ := proto.Get("poke")
	if protoVal != object.Value(orig) {
		t.Error("WrapRoot modified the owner")
	}
}

func TestInstrumentSinkPanicSwallowed(t *testing.T) {
	realm := object.NewRealm()
	target, calls := newCountingTarget(realm)

	Instrument(target, InstrumentOptions{
		Realm: realm,
		Logger: func(CallObservation) {
			panic("hostile sink")
		},
	})

	fn, _ := mustFunc(t, target, "onPing")
	res, err := fn.Call(target)
	if err != nil {
		t.Fatalf("sink panic leaked into the call: %v", err)
	}
	if s, ok := res.(*object.String); !ok || s.Value != "pong" {
		t.Errorf("result = %v", res)
	}
	if *calls != 1 {
		t.Errorf("calls = %d", *calls)
	}
}

func TestInstrumentReturnsCollectedNames(t *testing.T) {
	realm := object.NewRealm()
	target, _ := newCountingTarget(realm)
	target.DefineValue("data", object.NULL)

	got := Instrument(target, InstrumentOptions{
		Realm:  realm,
		Rules:  []Rule{{Kind: MatchPrefix, Pattern: "on"}},
		Logger: func(CallObservation) {},
	})
	sameSet(t, got, []string{"onPing"})
}

func mustFunc(t *testing.T, o *object.Object, key string) (*object.Func, object.Value) {
	t.Helper()
	v, err := o.Get(key)
	if err != nil {
		t.Fatalf("Get(%s): %v", key, err)
	}
	fn, ok := v.(*object.Func)
	if !ok {
		t.Fatalf("%s is %T, want func", key, v)
	}
	return fn, v
}
