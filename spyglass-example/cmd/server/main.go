// Package main provides the Spyglass example application - a small
// storefront whose business logic lives inside a spyglass realm so
// every operation can be observed without touching the HTTP layer.
//
// This application showcases:
//   - Business methods modeled as function properties on realm objects
//   - Rule-driven instrumentation of the whole cart family
//   - Async observation of the deferred-based checkout flow
//   - Dashboard integration for real-time observation streaming
//
// The server runs on :8080 with the following API endpoints:
//   - POST /item?name=<name>&price=<price>: Add an item to the cart
//   - DELETE /item?name=<name>: Remove an item from the cart
//   - GET /total: Current cart total
//   - POST /checkout: Settle the cart (async in the object world)
//   - GET /spyglass/keys: Keys the active rules match on the cart
//
// The Spyglass dashboard is available at http://localhost:9090
//
// Usage:
//
//	go run spyglass-example/cmd/server/main.go
//
// The server loads matching rules from ./rules/*.sgr files and falls
// back to matching everything when no rule files are present.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chosenoffset/spyglass/pkg/spyglass"
	"github.com/chosenoffset/spyglass/pkg/spyglass/dashboard"
	"github.com/chosenoffset/spyglass/pkg/spyglass/rulespec"
	"github.com/chosenoffset/spyglass/spyglass-example/internal/storefront"
)

func main() {
	rules, err := loadRules("./rules")
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}

	server := dashboard.NewServer(9090)
	go func() {
		if err := server.Start(); err != nil {
			log.Printf("dashboard stopped: %v", err)
		}
	}()
	defer server.Stop()

	store := storefront.New()
	keys := spyglass.Instrument(store.Cart(), spyglass.InstrumentOptions{
		Realm:         store.Realm(),
		Rules:         rules,
		Logger:        server.Sink(),
		Label:         "[storefront]",
		AwaitPromises: true,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/item", handleItem(store))
	mux.HandleFunc("/total", handleTotal(store))
	mux.HandleFunc("/checkout", handleCheckout(store))
	mux.HandleFunc("/spyglass/keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, keys)
	})

	httpServer := &http.Server{
		Addr:         ":8080",
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Println("HTTP server listening on :8080")
	log.Println("Spyglass dashboard available at http://localhost:9090")
	log.Printf("Instrumented %d cart operations", len(keys))

	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// loadRules compiles all .sgr files from the given directory into a
// single rule list. No files means observe everything.
func loadRules(rulesDir string) ([]spyglass.Rule, error) {
	files, err := filepath.Glob(filepath.Join(rulesDir, "*.sgr"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan rules directory: %w", err)
	}
	if len(files) == 0 {
		log.Println("Warning: No rule files found in", rulesDir, "- matching all keys")
		return []spyglass.Rule{spyglass.MatchAll()}, nil
	}

	var rules []spyglass.Rule
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Printf("Warning: Failed to read rule file %s: %v", file, err)
			continue
		}
		if len(strings.TrimSpace(string(content))) == 0 {
			log.Printf("Warning: Skipping empty rule file %s", file)
			continue
		}
		compiled, err := rulespec.Compile(string(content))
		if err != nil {
			log.Printf("Warning: Failed to compile rule file %s: %v", file, err)
			continue
		}
		rules = append(rules, compiled...)
		log.Printf("Loaded %d rules from %s", len(compiled), file)
	}
	if len(rules) == 0 {
		return []spyglass.Rule{spyglass.MatchAll()}, nil
	}
	return rules, nil
}

func handleItem(store *storefront.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodPost:
			price, err := strconv.ParseFloat(r.URL.Query().Get("price"), 64)
			if err != nil {
				http.Error(w, "price must be a number", http.StatusBadRequest)
				return
			}
			count, err := store.AddItem(name, price)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, map[string]int{"items": count})
		case http.MethodDelete:
			count, err := store.RemoveItem(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]int{"items": count})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func handleTotal(store *storefront.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := store.Total()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]float64{"total": total})
	}
}

func handleCheckout(store *storefront.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		total, err := store.Checkout()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]float64{"charged": total})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
