package spyglass

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
)

// Phase tags when an observation was taken relative to the wrapped
// call: at invocation, or when a returned thenable settled.
type Phase string

const (
	PhaseCall     Phase = "call"
	PhaseResolved Phase = "resolved"
	PhaseRejected Phase = "rejected"
)

// CallObservation is the event record emitted per observed invocation,
// resolution, or rejection. The core never retains observations; they
// go straight to the configured sink.
type CallObservation struct {
	Label  string
	Key    string
	Args   []object.Value
	Result object.Value
	Err    error
	This   object.Value
	Phase  Phase
}

// Sink consumes observations. Sink panics are swallowed and never
// affect the wrapped function's behavior.
type Sink func(CallObservation)

func emit(sink Sink, obs CallObservation) {
	if sink == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	sink(obs)
}

// ConsoleSink returns the default sink: one formatted line per
// observation on standard output.
func ConsoleSink() Sink {
	return func(obs CallObservation) {
		ts := time.Now().Format("15:04:05")
		switch {
		case obs.Err != nil:
			fmt.Printf("[%s] %s %s %s(%s) error: %v\n", ts, obs.Label, obs.Phase, obs.Key, formatArgs(obs.Args), obs.Err)
		case obs.Result != nil:
			fmt.Printf("[%s] %s %s %s(%s) -> %s\n", ts, obs.Label, obs.Phase, obs.Key, formatArgs(obs.Args), obs.Result.Inspect())
		default:
			fmt.Printf("[%s] %s %s %s(%s)\n", ts, obs.Label, obs.Phase, obs.Key, formatArgs(obs.Args))
		}
	}
}

// ZapSink returns a sink writing structured observation records to l.
func ZapSink(l *zap.Logger) Sink {
	return func(obs CallObservation) {
		fields := []zap.Field{
			zap.String("label", obs.Label),
			zap.String("key", obs.Key),
			zap.String("phase", string(obs.Phase)),
			zap.Strings("args", inspectAll(obs.Args)),
		}
		if obs.Result != nil {
			fields = append(fields, zap.String("result", obs.Result.Inspect()))
		}
		if obs.Err != nil {
			fields = append(fields, zap.Error(obs.Err))
		}
		l.Info("call observed", fields...)
	}
}

func formatArgs(args []object.Value) string {
	return strings.Join(inspectAll(args), ", ")
}

func inspectAll(args []object.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			out[i] = "null"
			continue
		}
		out[i] = a.Inspect()
	}
	return out
}
