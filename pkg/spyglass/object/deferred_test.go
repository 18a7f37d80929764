package object

import "testing"

func TestDeferredResolveRunsHandlersOnDrain(t *testing.T) {
	realm := NewRealm()
	d := NewDeferred(realm)

	var got Value
	then := ThenOf(d.Promise())
	if then == nil {
		t.Fatal("promise is not thenable")
	}
	_, err := then.Call(d.Promise(), realm.NewFunc("", func(_ Value, args []Value) (Value, error) {
		got = args[0]
		return nil, nil
	}))
	if err != nil {
		t.Fatalf("then: %v", err)
	}

	d.Resolve(&Int{Value: 42})
	if got != nil {
		t.Fatal("handler ran before drain")
	}
	if ran := realm.DrainMicrotasks(); ran != 1 {
		t.Fatalf("DrainMicrotasks ran %d tasks, want 1", ran)
	}
	if i, ok := got.(*Int); !ok || i.Value != 42 {
		t.Errorf("handler got %v, want 42", got)
	}
}

func TestDeferredRejectSelectsSecondHandler(t *testing.T) {
	realm := NewRealm()
	d := NewDeferred(realm)

	var resolved, rejected Value
	then := ThenOf(d.Promise())
	then.Call(d.Promise(),
		realm.NewFunc("", func(_ Value, args []Value) (Value, error) {
			resolved = args[0]
			return nil, nil
		}),
		realm.NewFunc("", func(_ Value, args []Value) (Value, error) {
			rejected = args[0]
			return nil, nil
		}))

	d.Reject(&String{Value: "nope"})
	realm.DrainMicrotasks()

	if resolved != nil {
		t.Error("resolve handler ran on rejection")
	}
	if s, ok := rejected.(*String); !ok || s.Value != "nope" {
		t.Errorf("reject handler got %v", rejected)
	}
}

func TestDeferredSettleOnce(t *testing.T) {
	realm := NewRealm()
	d := NewDeferred(realm)

	var calls int
	ThenOf(d.Promise()).Call(d.Promise(), realm.NewFunc("", func(_ Value, args []Value) (Value, error) {
		calls++
		return nil, nil
	}))

	d.Resolve(&Int{Value: 1})
	d.Resolve(&Int{Value: 2})
	d.Reject(&String{Value: "late"})
	realm.DrainMicrotasks()

	if calls != 1 {
		t.Errorf("handler ran %d times, want 1", calls)
	}
}

func TestThenAfterSettlement(t *testing.T) {
	realm := NewRealm()
	d := NewDeferred(realm)
	d.Resolve(&Int{Value: 9})

	var got Value
	ThenOf(d.Promise()).Call(d.Promise(), realm.NewFunc("", func(_ Value, args []Value) (Value, error) {
		got = args[0]
		return nil, nil
	}))
	realm.DrainMicrotasks()

	if i, ok := got.(*Int); !ok || i.Value != 9 {
		t.Errorf("late then got %v, want 9", got)
	}
}

func TestIsThenable(t *testing.T) {
	realm := NewRealm()
	if IsThenable(&Int{Value: 1}) {
		t.Error("int counted as thenable")
	}
	plain := realm.NewObject()
	if IsThenable(plain) {
		t.Error("plain object counted as thenable")
	}
	plain.DefineValue("then", &String{Value: "not callable"})
	if IsThenable(plain) {
		t.Error("non-callable then counted as thenable")
	}
	if !IsThenable(NewDeferred(realm).Promise()) {
		t.Error("deferred promise not thenable")
	}
}
