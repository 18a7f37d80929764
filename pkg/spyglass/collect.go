package spyglass

import (
	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// ambientBindings is the fixed probe order for resolving the ambient
// root when no explicit source is given. The order is an observable
// contract.
var ambientBindings = [3]string{"globalThis", "window", "global"}

// ambientRoot resolves the best-effort ambient global-like object:
// the first of the well-known bindings present on the realm global,
// falling back to a fresh empty object.
func ambientRoot(realm *object.Realm) object.Value {
	for _, name := range ambientBindings {
		if !realm.Global.HasOwn(name) {
			continue
		}
		v, err := realm.Global.Get(name)
		if err != nil {
			continue
		}
		if _, ok := object.AsObject(v); ok {
			return v
		}
	}
	return realm.NewObject()
}

// CollectOptions configures a single-object collection pass.
type CollectOptions struct {
	// Source is the object to scan. When nil, the ambient root is
	// resolved by probing globalThis, window, global on the realm in
	// that order.
	Source object.Value

	// Realm supplies ambient resolution and terminal prototypes.
	// Defaults to object.DefaultRealm().
	Realm *object.Realm

	// Defaults and Extra are seeded verbatim into the result before
	// any traversal.
	Defaults []string
	Extra    []string

	// Rules is the match rule list evaluated per key.
	Rules []Rule

	// OnMatch, when set, observes every rule hit.
	OnMatch MatchObserver
}

func (o *CollectOptions) realm() *object.Realm {
	if o.Realm != nil {
		return o.Realm
	}
	return object.DefaultRealm()
}

// Collect enumerates the source's own enumerable keys, evaluates the
// rules against each (key, value, source) triple, and returns the
// deduplicated result. The result is seeded with Defaults then Extra.
// Collect never fails: enumeration failure returns the seeded result,
// a per-key read failure skips that key only.
func Collect(opts CollectOptions) []string {
	out := newResultSet()
	out.addAll(opts.Defaults)
	out.addAll(opts.Extra)

	source := opts.Source
	if source == nil {
		source = ambientRoot(opts.realm())
	}
	if source.Kind() == object.KindNull {
		return out.strings()
	}
	src, ok := source.(object.PropertySource)
	if !ok {
		return out.strings()
	}

	keys, err := src.OwnEnumerableKeys()
	if err != nil {
		// Partial results beat no results: the seed survives an
		// unenumerable source.
		return out.strings()
	}
	scanKeys(src, keys, opts.Rules, opts.OnMatch, out)
	return out.strings()
}

// scanKeys feeds each readable (key, value, owner) triple through the
// rule list. Read failures skip the key.
func scanKeys(src object.PropertySource, keys []string, rules []Rule, observer MatchObserver, out *resultSet) {
	for _, key := range keys {
		value, err := src.Get(key)
		if err != nil {
			continue
		}
		evaluateRules(rules, key, value, src, observer, out)
	}
}
