package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/miretskiy/billiards/simulator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// Client message types
type ClientMessage struct {
	Type   string               `json:"type"`
	Config *simulator.SimConfig `json:"config,omitempty"`
}

// Server message types
type ServerMessage struct {
	Type     string               `json:"type" msgpack:"type"`
	Running  *bool                `json:"running,omitempty" msgpack:"running,omitempty"`
	Config   *simulator.SimConfig `json:"config,omitempty" msgpack:"config,omitempty"`
	Metrics  *simulator.Metrics   `json:"metrics,omitempty" msgpack:"metrics,omitempty"`
	Snapshot *simulator.Snapshot  `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
	Error    string               `json:"error,omitempty" msgpack:"error,omitempty"`
}

// pacing controls how far the box advances per UI tick
type pacing struct {
	interval time.Duration
	deltaT   float64
}

// simState manages the simulation state and UI pacing
type simState struct {
	sim     *simulator.Simulator
	running bool
	paused  bool
	mu      sync.Mutex
	stopCh  chan struct{}
}

func newSimState(config simulator.SimConfig) (*simState, error) {
	sim, err := simulator.NewSimulator(config)
	if err != nil {
		return nil, err
	}

	return &simState{
		sim:    sim,
		stopCh: make(chan struct{}),
	}, nil
}

// start begins the simulation (sets running flag)
func (s *simState) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.paused = false
}

func (s *simState) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// reset re-places the particles with the current config
func (s *simState) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.paused = false
	return s.sim.Reset()
}

func (s *simState) updateConfig(config simulator.SimConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.UpdateConfig(config)
}

// isRunning returns true if simulation is running and not paused
func (s *simState) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.paused
}

func (s *simState) getConfig() simulator.SimConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Config()
}

// step advances simulation by deltaT (called by UI ticker)
func (s *simState) step(deltaT float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && !s.paused {
		s.sim.Step(deltaT)
	}
}

// frame captures metrics and positions under one lock so they agree
func (s *simState) frame() (*simulator.Metrics, *simulator.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Metrics(), s.sim.Snapshot()
}

// stop signals the UI loop to stop
func (s *simState) stop() {
	close(s.stopCh)
}

// statusMessage reports the run flag and the active config
func (s *simState) statusMessage() ServerMessage {
	running := s.isRunning()
	cfg := s.getConfig()
	return ServerMessage{
		Type:    "status",
		Running: &running,
		Config:  &cfg,
	}
}

// uiUpdateLoop periodically calls Step() and sends updates to the client
// This runs in its own goroutine and controls UI pacing
func uiUpdateLoop(conn *safeConn, state *simState, pace pacing) {
	ticker := time.NewTicker(pace.interval)
	defer ticker.Stop()

	for {
		select {
		case <-state.stopCh:
			log.Println("UI update loop stopping")
			return

		case <-ticker.C:
			if !state.isRunning() {
				continue
			}
			state.step(pace.deltaT)

			metrics, snap := state.frame()
			updatePrometheusMetrics(metrics)

			if err := conn.Send(ServerMessage{Type: "metrics", Metrics: metrics}); err != nil {
				log.Printf("Error sending metrics: %v", err)
				return
			}
			if err := conn.Send(ServerMessage{Type: "snapshot", Snapshot: snap}); err != nil {
				log.Printf("Error sending snapshot: %v", err)
				return
			}
		}
	}
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent writes
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
	binary  bool
}

// Send writes msg as a JSON text frame, or as a msgpack binary frame
// when the client asked for ?format=msgpack
func (sc *safeConn) Send(msg ServerMessage) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	if !sc.binary {
		return sc.Conn.WriteJSON(msg)
	}
	data, err := encodeMsgpack(msg)
	if err != nil {
		return err
	}
	return sc.Conn.WriteMessage(websocket.BinaryMessage, data)
}

func newWebSocketHandler(base simulator.SimConfig, pace pacing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Error upgrading connection: %v", err)
			return
		}
		defer conn.Close()

		sc := &safeConn{Conn: conn, binary: r.URL.Query().Get("format") == "msgpack"}
		log.Printf("Client connected (msgpack=%v)", sc.binary)

		state, err := newSimState(base)
		if err != nil {
			log.Printf("Error creating simulator: %v", err)
			return
		}
		defer state.stop()

		if err := sc.Send(state.statusMessage()); err != nil {
			log.Printf("Error sending status: %v", err)
			return
		}

		go uiUpdateLoop(sc, state, pace)

		// Handle messages from client
		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("Error reading message: %v", err)
				}
				break
			}

			log.Printf("Received command: %s", msg.Type)

			var reply ServerMessage
			switch msg.Type {
			case "start":
				state.start()
				reply = state.statusMessage()

			case "pause":
				state.pause()
				reply = state.statusMessage()

			case "reset":
				if err := state.reset(); err != nil {
					reply = ServerMessage{Type: "error", Error: err.Error()}
					break
				}
				reply = state.statusMessage()
				_, snap := state.frame()
				reply.Snapshot = snap

			case "config_update":
				if msg.Config == nil {
					reply = ServerMessage{Type: "error", Error: "config_update without config"}
					break
				}
				if err := state.updateConfig(*msg.Config); err != nil {
					log.Printf("Error updating config: %v", err)
					reply = ServerMessage{Type: "error", Error: err.Error()}
					break
				}
				reply = state.statusMessage()

			default:
				reply = ServerMessage{Type: "error", Error: fmt.Sprintf("unknown command %q", msg.Type)}
			}

			if err := sc.Send(reply); err != nil {
				log.Printf("Error sending reply: %v", err)
				break
			}
		}

		log.Println("Client disconnected")
	}
}

func newHomeHandler(base simulator.SimConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"websocket": "/ws",
			"metrics":   "/metrics",
			"config":    base,
		})
	}
}

func quitHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("Shutdown requested via /quitquitquit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Server shutting down...")

	go func() {
		time.Sleep(100 * time.Millisecond)
		log.Println("Server stopped")
		os.Exit(0)
	}()
}

func newMux(base simulator.SimConfig, pace pacing) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", newHomeHandler(base))
	mux.HandleFunc("/ws", newWebSocketHandler(base, pace))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/quitquitquit", quitHandler)
	return mux
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	configFile := flag.String("config", "", "Path to JSON or YAML configuration file (defaults if not specified)")
	tick := flag.Duration("tick", 50*time.Millisecond, "Wall-clock interval between UI updates")
	deltaT := flag.Float64("dt", 1.0, "Virtual time advanced per UI update")
	flag.Parse()

	config := simulator.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = simulator.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}
	if *tick <= 0 || *deltaT <= 0 {
		log.Fatalf("-tick and -dt must be positive")
	}

	initPrometheusMetrics()

	log.Printf("Server starting on http://localhost%s", *addr)
	log.Printf("WebSocket endpoint: ws://localhost%s/ws (append ?format=msgpack for binary frames)", *addr)
	log.Printf("Prometheus endpoint: http://localhost%s/metrics", *addr)
	log.Printf("Shutdown endpoint: http://localhost%s/quitquitquit", *addr)
	log.Fatal(http.ListenAndServe(*addr, newMux(config, pacing{interval: *tick, deltaT: *deltaT})))
}
