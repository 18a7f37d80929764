// Package spyglass is a runtime object-introspection and
// instrumentation engine. Given a value from the object model in
// pkg/spyglass/object, it enumerates property names matching
// configurable rules and can transparently wrap matched
// function-valued properties so every invocation is observed without
// altering call semantics.
//
// # Collecting names
//
// Collect scans one object's own enumerable keys against a rule list:
//
//	names := spyglass.Collect(spyglass.CollectOptions{
//		Source: doc,
//		Rules:  []spyglass.Rule{{Kind: spyglass.MatchPrefix, Pattern: "on"}},
//	})
//
// CollectWide widens the scan to the root's family: the root itself,
// its constructor, its prototype, every prototype-chain ancestor short
// of the realm's two terminal prototypes, an optional same-named
// global alias, and explicitly requested child properties.
//
// # Instrumenting functions
//
// Instrument runs the wide collector and replaces matched callable
// members with observing wrappers. Wrapping is transparent: arguments,
// receiver, results, and errors pass through unchanged, and every
// invocation emits a CallObservation to the configured sink:
//
//	spyglass.Instrument(api, spyglass.InstrumentOptions{
//		Rules:         spyglass.MustPreset("network"),
//		Label:         "[net]",
//		AwaitPromises: true,
//	})
//
// No failure inside collection or instrumentation propagates out of
// the entry points; hostile graphs (throwing getters, panicking
// predicates, non-writable members) degrade to partial results. The
// single deliberate exception: a wrapped function's own error is
// re-raised to its caller after being observed.
//
// # Presets
//
// Preset returns canned rule lists for common name families
// (domEvents, network, console, timers, storage). The accessor copies
// the list; mutating the copy never affects the table.
//
// Entry points are synchronous and perform no locking of the target
// graph. Callers must not instrument a graph that a concurrent
// collection is traversing.
package spyglass
