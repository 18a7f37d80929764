package spyglass

import (
	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// WideOptions configures a family collection pass. The embedded
// CollectOptions' Source field is ignored; Root takes its place.
type WideOptions struct {
	CollectOptions

	// Root anchors the family closure. When nil, the ambient root is
	// resolved exactly as in Collect.
	Root object.Value

	// ExpandChildren names properties of Root whose values join the
	// closure as additional scan roots.
	ExpandChildren []string
}

// CollectWide computes the closure of objects related to the root
// (the root itself, requested children, its constructor, its own
// prototype property, every prototype-chain ancestor short of the
// realm's terminal prototypes, and a same-named global alias), then
// scans every member like Collect does — except that each member's
// full own-property-name list is merged with its enumerable keys, so
// non-enumerable members such as built-in method tables are covered.
//
// Closure construction is best-effort throughout: a failing step
// silently omits that member. Members are deduplicated by reference
// identity and scanned at most once. CollectWide never fails.
func CollectWide(opts WideOptions) []string {
	out := newResultSet()
	out.addAll(opts.Defaults)
	out.addAll(opts.Extra)

	realm := opts.realm()
	root := opts.Root
	if root == nil {
		root = ambientRoot(realm)
	}

	closure := newClosure()
	buildClosure(closure, root, opts.ExpandChildren, realm)

	for _, member := range closure.members {
		scanWide(member, opts.Rules, opts.OnMatch, out)
	}
	return out.strings()
}

// closure is the deduplicated family of a root, in discovery order.
type closure struct {
	seen    map[*object.Object]struct{}
	members []object.PropertySource
}

func newClosure() *closure {
	return &closure{seen: make(map[*object.Object]struct{})}
}

// add admits object- or func-kinded values only, once per reference.
func (c *closure) add(v object.Value) {
	if v == nil || v.Kind().IsPrimitive() {
		return
	}
	obj, ok := object.AsObject(v)
	if !ok {
		return
	}
	if _, dup := c.seen[obj]; dup {
		return
	}
	c.seen[obj] = struct{}{}
	if src, ok := v.(object.PropertySource); ok {
		c.members = append(c.members, src)
	}
}

func buildClosure(c *closure, root object.Value, expandChildren []string, realm *object.Realm) {
	c.add(root)

	rootObj, ok := object.AsObject(root)
	if !ok {
		return
	}

	for _, name := range expandChildren {
		if !rootObj.Has(name) {
			continue
		}
		if v, err := rootObj.Get(name); err == nil {
			c.add(v)
		}
	}

	if v, err := rootObj.Get("constructor"); err == nil {
		c.add(v)
	}

	// The own "prototype" property, distinct from the proto link: a
	// constructor function carries its instances' prototype here.
	if rootObj.HasOwn("prototype") {
		if v, err := rootObj.Get("prototype"); err == nil {
			c.add(v)
		}
	}

	for p := rootObj.Proto(); p != nil && !realm.IsTerminalProto(p); p = p.Proto() {
		c.add(p)
	}

	for _, name := range aliasCandidates(root, rootObj) {
		if name == "" || !realm.Global.Has(name) {
			continue
		}
		if v, err := realm.Global.Get(name); err == nil {
			c.add(v)
		}
	}
}

// aliasCandidates gathers names under which the root's family might be
// bound on the global: the root's own function name, its prototype's
// name, and its constructor's name.
func aliasCandidates(root object.Value, rootObj *object.Object) []string {
	var names []string
	if f, ok := root.(*object.Func); ok {
		names = append(names, f.Name())
	}
	if rootObj.HasOwn("prototype") {
		if v, err := rootObj.Get("prototype"); err == nil {
			names = append(names, nameOf(v))
		}
	}
	if v, err := rootObj.Get("constructor"); err == nil {
		names = append(names, nameOf(v))
	}
	return names
}

func nameOf(v object.Value) string {
	if f, ok := v.(*object.Func); ok {
		return f.Name()
	}
	obj, ok := object.AsObject(v)
	if !ok {
		return ""
	}
	nv, err := obj.Get("name")
	if err != nil {
		return ""
	}
	if s, ok := nv.(*object.String); ok {
		return s.Value
	}
	return ""
}

// scanWide scans one closure member over the union of its enumerable
// keys and its full own-property-name list. Either enumeration may
// fail independently; both failing skips the member.
func scanWide(src object.PropertySource, rules []Rule, observer MatchObserver, out *resultSet) {
	seen := make(map[string]struct{})
	var keys []string

	if enum, err := src.OwnEnumerableKeys(); err == nil {
		for _, k := range enum {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	if all, err := src.OwnPropertyNames(); err == nil {
		for _, k := range all {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	scanKeys(src, keys, rules, observer, out)
}
