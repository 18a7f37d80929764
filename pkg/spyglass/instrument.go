package spyglass

import (
	"go.uber.org/zap"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// WrapTarget selects where a replacement function is installed.
type WrapTarget uint8

const (
	// WrapRoot installs wrappers on the instrumentation target itself.
	WrapRoot WrapTarget = iota
	// WrapPrototype installs wrappers on the target's prototype: its
	// own "prototype" property when present, its proto link otherwise.
	WrapPrototype
	// WrapOwner installs wrappers on whichever family member actually
	// owned the matched property during traversal.
	WrapOwner
)

// wrapMarkerKey is the hidden own property tagging wrapper functions,
// so re-instrumenting an already wrapped graph is a no-op even across
// sessions.
const wrapMarkerKey = "__spyglassWrapped"

// Session is the wrap registry for one instrumentation run. Reusing a
// session across Instrument calls extends its at-most-once guarantee
// across those calls. Sessions are not self-locking.
type Session struct {
	wrapped map[*object.Object]map[string]struct{}
}

// NewSession creates an empty wrap registry.
func NewSession() *Session {
	return &Session{wrapped: make(map[*object.Object]map[string]struct{})}
}

func (s *Session) isWrapped(target *object.Object, key string) bool {
	keys, ok := s.wrapped[target]
	if !ok {
		return false
	}
	_, ok = keys[key]
	return ok
}

func (s *Session) markWrapped(target *object.Object, key string) {
	keys, ok := s.wrapped[target]
	if !ok {
		keys = make(map[string]struct{})
		s.wrapped[target] = keys
	}
	keys[key] = struct{}{}
}

// InstrumentOptions configures Instrument.
type InstrumentOptions struct {
	// Rules select which member names are wrapped. Defaults to a
	// single match-everything rule.
	Rules []Rule

	// Logger receives every CallObservation. Defaults to ConsoleSink.
	Logger Sink

	// Label tags emitted observations. Defaults to "[LOG]".
	Label string

	// WrapTarget selects where wrappers are installed.
	WrapTarget WrapTarget

	// AwaitPromises additionally observes settlement of thenable
	// results, via the realm's microtask queue. The wrapper still
	// returns the original thenable synchronously.
	AwaitPromises bool

	// ExpandChildren is forwarded to the family collector.
	ExpandChildren []string

	// Realm defaults to object.DefaultRealm().
	Realm *object.Realm

	// Session, when set, is reused as the wrap registry; a fresh one
	// is created otherwise.
	Session *Session
}

// Instrument runs the family collector over target and replaces every
// matched callable member with an observing wrapper. Wrapping is
// transparent: arguments, receiver, result, and error pass through
// unchanged; the only side channel is the observation sink. Members
// that cannot be safely replaced (read-only accessors, non-writable
// slots, already wrapped values) are skipped without aborting the
// rest. Instrument returns the collected name set, like CollectWide.
func Instrument(target object.Value, opts InstrumentOptions) []string {
	rules := opts.Rules
	if len(rules) == 0 {
		rules = []Rule{MatchAll()}
	}
	sink := opts.Logger
	if sink == nil {
		sink = ConsoleSink()
	}
	label := opts.Label
	if label == "" {
		label = "[LOG]"
	}
	session := opts.Session
	if session == nil {
		session = NewSession()
	}
	realm := opts.Realm
	if realm == nil {
		realm = object.DefaultRealm()
	}

	ins := &installer{
		realm:         realm,
		target:        target,
		sink:          sink,
		label:         label,
		wrapTarget:    opts.WrapTarget,
		awaitPromises: opts.AwaitPromises,
		session:       session,
	}

	return CollectWide(WideOptions{
		CollectOptions: CollectOptions{
			Realm:   realm,
			Rules:   rules,
			OnMatch: ins.observe,
		},
		Root:           target,
		ExpandChildren: opts.ExpandChildren,
	})
}

type installer struct {
	realm         *object.Realm
	target        object.Value
	sink          Sink
	label         string
	wrapTarget    WrapTarget
	awaitPromises bool
	session       *Session
}

// observe is the match-notification hook driving installation.
func (ins *installer) observe(m Match) {
	fn, ok := m.Value.(*object.Func)
	if !ok {
		return
	}
	install := ins.resolveInstallTarget(m)
	if install == nil {
		return
	}
	if ins.session.isWrapped(install, m.Key) {
		return
	}
	if fn.HasOwn(wrapMarkerKey) {
		// Already a wrapper from an earlier run; record and move on.
		ins.session.markWrapped(install, m.Key)
		return
	}
	if p, ok := install.GetOwn(m.Key); ok && p.IsAccessor() && p.Setter == nil {
		// Read-only accessor: cannot safely replace.
		return
	}

	wrapper := ins.makeWrapper(m.Key, fn)
	if err := install.DefineChecked(m.Key, wrapper); err != nil {
		Logger().Debug("wrap install skipped",
			zap.String("key", m.Key), zap.Error(err))
		return
	}
	ins.session.markWrapped(install, m.Key)
}

func (ins *installer) resolveInstallTarget(m Match) *object.Object {
	switch ins.wrapTarget {
	case WrapPrototype:
		root, ok := object.AsObject(ins.target)
		if !ok {
			return nil
		}
		if root.HasOwn("prototype") {
			if v, err := root.Get("prototype"); err == nil {
				if proto, ok := object.AsObject(v); ok {
					return proto
				}
			}
		}
		// Falling back to the proto link must never patch a shared
		// terminal prototype; every object in the realm would inherit
		// the wrapper.
		proto := root.Proto()
		if proto == nil || ins.realm.IsTerminalProto(proto) {
			return nil
		}
		return proto
	case WrapOwner:
		owner, ok := object.AsObject(m.Owner)
		if !ok {
			return nil
		}
		return owner
	default:
		root, ok := object.AsObject(ins.target)
		if !ok {
			return nil
		}
		return root
	}
}

// makeWrapper builds the observing replacement for one function. The
// wrapper forwards everything unchanged and re-raises the original's
// error after observing it.
func (ins *installer) makeWrapper(key string, orig *object.Func) *object.Func {
	wrapper := ins.realm.NewFunc(orig.Name(), func(this object.Value, args []object.Value) (object.Value, error) {
		result, err := orig.Call(this, args...)
		if err != nil {
			emit(ins.sink, CallObservation{
				Label: ins.label, Key: key, Args: args,
				Err: err, This: this, Phase: PhaseCall,
			})
			return nil, err
		}
		emit(ins.sink, CallObservation{
			Label: ins.label, Key: key, Args: args,
			Result: result, This: this, Phase: PhaseCall,
		})
		if ins.awaitPromises && object.IsThenable(result) {
			ins.observeSettlement(key, this, result)
		}
		return result, nil
	})
	wrapper.Define(wrapMarkerKey, object.Property{Value: orig, Configurable: true})
	return wrapper
}

// observeSettlement attaches settlement observers to a thenable
// result. The observers only emit; they never alter what the wrapper
// already returned.
func (ins *installer) observeSettlement(key string, this object.Value, result object.Value) {
	then := object.ThenOf(result)
	if then == nil {
		return
	}
	onResolved := ins.realm.NewFunc("", func(_ object.Value, args []object.Value) (object.Value, error) {
		var v object.Value = object.NULL
		if len(args) > 0 && args[0] != nil {
			v = args[0]
		}
		emit(ins.sink, CallObservation{
			Label: ins.label, Key: key,
			Result: v, This: this, Phase: PhaseResolved,
		})
		return nil, nil
	})
	onRejected := ins.realm.NewFunc("", func(_ object.Value, args []object.Value) (object.Value, error) {
		var v object.Value = object.NULL
		if len(args) > 0 && args[0] != nil {
			v = args[0]
		}
		emit(ins.sink, CallObservation{
			Label: ins.label, Key: key,
			Err: object.Throw(v), This: this, Phase: PhaseRejected,
		})
		return nil, nil
	})
	// A hostile then is just another skipped observation point.
	_, _ = then.Call(result, onResolved, onRejected)
}
