package spyglass

import (
	"testing"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

func attachNS(t *testing.T) (*object.Realm, *object.Object) {
	t.Helper()
	realm := object.NewRealm()
	ns := Attach(realm)
	return realm, ns
}

func TestAttachBindsNamespaceGlobally(t *testing.T) {
	realm, ns := attachNS(t)

	v, err := realm.Global.Get(NamespaceName)
	if err != nil {
		t.Fatalf("Get(%s): %v", NamespaceName, err)
	}
	if v != object.Value(ns) {
		t.Error("global binding is not the returned namespace")
	}
	for _, key := range []string{"collect", "collectWide", "instrument", "presets"} {
		if !ns.HasOwn(key) {
			t.Errorf("namespace missing %q", key)
		}
	}
}

func TestNamespacePresetsMirrorTable(t *testing.T) {
	_, ns := attachNS(t)
	v, _ := ns.Get("presets")
	presets, ok := v.(*object.Object)
	if !ok {
		t.Fatalf("presets is %T", v)
	}
	for _, name := range PresetNames() {
		if !presets.HasOwn(name) {
			t.Errorf("presets object missing %q", name)
		}
	}
}

func TestNamespaceCollectFromInside(t *testing.T) {
	realm, ns := attachNS(t)

	src := realm.NewObject()
	src.DefineValue("onClick", object.NULL)
	src.DefineValue("other", object.NULL)

	collectV, _ := ns.Get("collect")
	collect := collectV.(*object.Func)

	res, err := collect.Call(ns, src, &object.String{Value: "domEvents"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	names, ok := res.(*object.Object)
	if !ok {
		t.Fatalf("collect returned %T", res)
	}
	if !names.HasOwn("onClick") || names.HasOwn("other") {
		keys, _ := names.OwnEnumerableKeys()
		t.Errorf("collect result keys = %v", keys)
	}
}

func TestNamespaceInstrumentFromInside(t *testing.T) {
	realm, ns := attachNS(t)

	target := realm.NewObject()
	var calls int
	target.DefineValue("onTap", realm.NewFunc("onTap", func(this object.Value, args []object.Value) (object.Value, error) {
		calls++
		return object.NULL, nil
	}))

	instV, _ := ns.Get("instrument")
	instrument := instV.(*object.Func)
	if _, err := instrument.Call(ns, target, &object.String{Value: "domEvents"}, &object.String{Value: "[ns]"}); err != nil {
		t.Fatalf("instrument: %v", err)
	}

	fn, _ := mustFunc(t, target, "onTap")
	fn.Call(target)
	if calls != 1 {
		t.Errorf("original ran %d times", calls)
	}
}
