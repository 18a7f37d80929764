package spyglass

import (
	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// NamespaceName is the stable global binding Attach installs.
const NamespaceName = "Spyglass"

// Attach builds the engine's namespace object and binds it on the
// realm's global under NamespaceName, so code living inside the object
// world can reach collect, collectWide, instrument, and the preset
// table. The same surface is reachable from Go by importing this
// package. The preset table itself lives on the Go side: the in-realm
// "presets" object mirrors pack names and rule counts only, and
// realm-side callers select a pack by passing its name to collect,
// collectWide, or instrument. Attach returns the namespace object;
// calling it again replaces the binding with a fresh namespace.
func Attach(realm *object.Realm) *object.Object {
	ns := realm.NewObject().SetClass(NamespaceName)

	presets := realm.NewObject().SetClass("Presets")
	for _, name := range PresetNames() {
		rules := MustPreset(name)
		presets.DefineValue(name, &object.Int{Value: int64(len(rules))})
	}
	ns.DefineValue("presets", presets)

	ns.DefineValue("collect", realm.NewFunc("collect", func(_ object.Value, args []object.Value) (object.Value, error) {
		opts := CollectOptions{Realm: realm, Rules: rulesArg(args, 1)}
		if len(args) > 0 {
			opts.Source = args[0]
		}
		return namesObject(realm, Collect(opts)), nil
	}))

	ns.DefineValue("collectWide", realm.NewFunc("collectWide", func(_ object.Value, args []object.Value) (object.Value, error) {
		opts := WideOptions{CollectOptions: CollectOptions{Realm: realm, Rules: rulesArg(args, 1)}}
		if len(args) > 0 {
			opts.Root = args[0]
		}
		return namesObject(realm, CollectWide(opts)), nil
	}))

	ns.DefineValue("instrument", realm.NewFunc("instrument", func(_ object.Value, args []object.Value) (object.Value, error) {
		if len(args) == 0 {
			return object.NULL, nil
		}
		opts := InstrumentOptions{Realm: realm, Rules: rulesArg(args, 1)}
		if len(args) > 2 {
			if s, ok := args[2].(*object.String); ok {
				opts.Label = s.Value
			}
		}
		names := Instrument(args[0], opts)
		return namesObject(realm, names), nil
	}))

	realm.Global.DefineValue(NamespaceName, ns)
	return ns
}

// rulesArg resolves an optional preset-name argument to a rule list.
// Anything else falls back to match-everything.
func rulesArg(args []object.Value, idx int) []Rule {
	if len(args) > idx {
		if s, ok := args[idx].(*object.String); ok {
			if rules, ok := Preset(s.Value); ok {
				return rules
			}
		}
	}
	return []Rule{MatchAll()}
}

// namesObject renders a collected name set as an object whose keys are
// the names, the closest thing the object model has to a string list.
func namesObject(realm *object.Realm, names []string) *object.Object {
	out := realm.NewObject().SetClass("Names")
	for _, name := range names {
		out.DefineValue(name, &object.Bool{Value: true})
	}
	return out
}
