// Package dashboard serves a live view of instrumentation output: a
// websocket stream of call observations and match events, plus a small
// HTTP API for recent history and rule validation.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chosenoffset/spyglass/pkg/spyglass"
	"github.com/chosenoffset/spyglass/pkg/spyglass/rulespec"
)

// Event is the wire record pushed to clients and kept in the recent
// buffer. Type is "observation" or "match".
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Label     string    `json:"label,omitempty"`
	Key       string    `json:"key"`
	Phase     string    `json:"phase,omitempty"`
	Args      []string  `json:"args,omitempty"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Output    string    `json:"output,omitempty"`
}

// Server fans instrumentation events out to websocket clients.
type Server struct {
	port       int
	server     *http.Server
	upgrader   websocket.Upgrader
	maxClients int

	clientsMutex sync.RWMutex
	clients      map[*websocket.Conn]bool

	events chan Event
	stop   chan struct{}

	mutex      sync.RWMutex
	recent     *queue.Queue
	maxRecent  int
	dropped    uint64
	broadcasts uint64
}

// NewServer creates a dashboard server listening on port once started.
func NewServer(port int) *Server {
	return &Server{
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return origin == fmt.Sprintf("http://localhost:%d", port) ||
					origin == fmt.Sprintf("http://127.0.0.1:%d", port)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		maxClients: 100,
		clients:    make(map[*websocket.Conn]bool),
		events:     make(chan Event, 256),
		stop:       make(chan struct{}),
		recent:     queue.New(),
		maxRecent:  500,
	}
}

// Start serves HTTP until Stop or listener failure. It blocks; run it
// on its own goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	go s.broadcast()

	spyglass.Logger().Info("starting spyglass dashboard", zap.Int("port", s.port))
	return s.server.ListenAndServe()
}

// Handler returns the dashboard's HTTP handler, for embedding in an
// existing mux or test server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/observations", s.handleObservations)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/rules/validate", s.handleRuleValidation)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Stop shuts the server down and disconnects clients.
func (s *Server) Stop() error {
	close(s.stop)
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Sink returns an observation sink feeding this dashboard. The sink
// never blocks; events are dropped when the channel is full.
func (s *Server) Sink() spyglass.Sink {
	return func(obs spyglass.CallObservation) {
		ev := Event{
			Timestamp: time.Now(),
			Type:      "observation",
			Label:     obs.Label,
			Key:       obs.Key,
			Phase:     string(obs.Phase),
		}
		for _, a := range obs.Args {
			if a == nil {
				ev.Args = append(ev.Args, "null")
				continue
			}
			ev.Args = append(ev.Args, a.Inspect())
		}
		if obs.Result != nil {
			ev.Result = obs.Result.Inspect()
		}
		if obs.Err != nil {
			ev.Error = obs.Err.Error()
		}
		s.send(ev)
	}
}

// MatchObserver returns a match observer feeding this dashboard.
func (s *Server) MatchObserver() spyglass.MatchObserver {
	return func(m spyglass.Match) {
		s.send(Event{
			Timestamp: time.Now(),
			Type:      "match",
			Key:       m.Key,
			Rule:      m.Rule.Kind.String(),
			Output:    m.Output,
		})
	}
}

func (s *Server) send(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.mutex.Lock()
		s.dropped++
		s.mutex.Unlock()
	}
}

func (s *Server) broadcast() {
	for {
		select {
		case ev := <-s.events:
			s.remember(ev)
			s.push(ev)
		case <-s.stop:
			return
		}
	}
}

func (s *Server) remember(ev Event) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.recent.Add(ev)
	for s.recent.Length() > s.maxRecent {
		s.recent.Remove()
	}
	s.broadcasts++
}

func (s *Server) push(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// Recent returns a snapshot of buffered events, oldest first.
func (s *Server) Recent() []Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]Event, 0, s.recent.Length())
	for i := 0; i < s.recent.Length(); i++ {
		out = append(out, s.recent.Get(i).(Event))
	}
	return out
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Recent())
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spyglass.PresetNames())
}

// handleRuleValidation checks rule-DSL text without loading it
// anywhere: POST {"source": "..."} -> {"valid": bool, "errors": [...]}.
func (s *Server) handleRuleValidation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp := struct {
		Valid  bool     `json:"valid"`
		Rules  int      `json:"rules"`
		Errors []string `json:"errors,omitempty"`
	}{Valid: true}

	p := rulespec.New(rulespec.NewLexer(req.Source))
	rules := p.ParseRules()
	resp.Rules = len(rules)
	if errs := p.Errors(); len(errs) > 0 {
		resp.Valid = false
		resp.Errors = errs
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.clientsMutex.RLock()
	count := len(s.clients)
	s.clientsMutex.RUnlock()
	if count >= s.maxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		spyglass.Logger().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	s.clientsMutex.Unlock()

	// Replay the recent buffer so new clients see history.
	for _, ev := range s.Recent() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}

	go s.reader(conn)
}

// reader drains client messages until disconnect; the dashboard is
// push-only.
func (s *Server) reader(conn *websocket.Conn) {
	defer func() {
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		s.clientsMutex.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
