package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/chosenoffset/spyglass/pkg/spyglass"
	"github.com/chosenoffset/spyglass/pkg/spyglass/dashboard"
	"github.com/chosenoffset/spyglass/pkg/spyglass/object"
	"github.com/chosenoffset/spyglass/pkg/spyglass/rulespec"
)

func main() {
	port := flag.Int("port", 9090, "dashboard port (0 disables the dashboard)")
	flag.Parse()

	fmt.Println("Starting Spyglass demo...")

	realm := object.NewRealm()
	doc := buildDocument(realm)
	realm.Global.DefineValue("globalThis", realm.Global)
	realm.Global.DefineValue("document", doc)
	spyglass.Attach(realm)

	// Show the collectors before any wrapping happens.
	handlers := spyglass.Collect(spyglass.CollectOptions{
		Realm:  realm,
		Source: doc,
		Rules:  rulespec.MustCompile(`prefix "on" => strip`),
	})
	fmt.Printf("Handler names on document: %v\n", handlers)

	wide := spyglass.CollectWide(spyglass.WideOptions{
		CollectOptions: spyglass.CollectOptions{
			Realm: realm,
			Rules: spyglass.MustPreset("domEvents"),
		},
		Root: doc,
	})
	fmt.Printf("Wide domEvents scan: %v\n", wide)

	sink := spyglass.ConsoleSink()
	if *port > 0 {
		server := dashboard.NewServer(*port)
		go func() {
			if err := server.Start(); err != nil {
				log.Printf("dashboard stopped: %v", err)
			}
		}()
		defer server.Stop()
		fmt.Printf("Dashboard available at: http://localhost:%d\n", *port)

		dashSink := server.Sink()
		console := sink
		sink = func(obs spyglass.CallObservation) {
			console(obs)
			dashSink(obs)
		}
	}

	spyglass.Instrument(doc, spyglass.InstrumentOptions{
		Realm:         realm,
		Rules:         spyglass.MustPreset("domEvents"),
		Logger:        sink,
		Label:         "[dom]",
		AwaitPromises: true,
	})

	// Drive some instrumented calls.
	click, _ := doc.Get("onClick")
	load, _ := doc.Get("onLoad")
	if fn, ok := click.(*object.Func); ok {
		fn.Call(doc, &object.String{Value: "button#save"})
	}
	if fn, ok := load.(*object.Func); ok {
		fn.Call(doc)
	}
	realm.DrainMicrotasks()

	if *port > 0 {
		fmt.Println("Streaming observations; press Ctrl+C to exit.")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if fn, ok := click.(*object.Func); ok {
				fn.Call(doc, &object.String{Value: "button#tick"})
			}
			realm.DrainMicrotasks()
		}
	}
}

// buildDocument assembles a small DOM-flavored object graph with
// handlers worth observing.
func buildDocument(realm *object.Realm) *object.Object {
	ctor, proto := realm.NewConstructor("Document", nil)
	proto.DefineHidden("addListener", realm.NewFunc("addListener", func(this object.Value, args []object.Value) (object.Value, error) {
		return object.NULL, nil
	}))
	realm.Global.DefineValue("Document", ctor)

	doc := realm.NewInstance(ctor)
	doc.DefineValue("onClick", realm.NewFunc("onClick", func(this object.Value, args []object.Value) (object.Value, error) {
		return &object.String{Value: "clicked"}, nil
	}))
	doc.DefineValue("onLoad", realm.NewFunc("onLoad", func(this object.Value, args []object.Value) (object.Value, error) {
		d := object.NewDeferred(realm)
		d.Resolve(&object.String{Value: "loaded"})
		return d.Promise(), nil
	}))
	doc.DefineValue("title", &object.String{Value: "demo"})
	return doc
}
