// Package api provides the live-view HTTP API for a run in progress.
// All endpoints are read-only observation: snapshots flow from the
// driver into the server and out to consumers, never back into the
// agent. GET /api/v1/stream upgrades to a WebSocket that pushes every
// published snapshot.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/wayfinder/internal/grid"
)

// maxStreamConns caps concurrent WebSocket consumers.
const maxStreamConns = 8

// Status mirrors GET /api/v1/status: where the run stands right now.
type Status struct {
	Name     string        `json:"name"`
	Scenario string        `json:"scenario"`
	Running  bool          `json:"running"`
	Episode  int           `json:"episode"`
	Episodes int           `json:"episodes"`
	Step     int           `json:"step"`
	MaxSteps int           `json:"max_steps"`
	Position grid.Position `json:"position"`
	Goal     grid.Position `json:"goal"`
	Outcome  string        `json:"outcome,omitempty"`
}

// GridInfo mirrors GET /api/v1/grid: the immutable world layout.
type GridInfo struct {
	Rows      int             `json:"rows"`
	Cols      int             `json:"cols"`
	Start     grid.Position   `json:"start"`
	Goal      grid.Position   `json:"goal"`
	Obstacles []grid.Position `json:"obstacles"`
}

// Snapshot mirrors GET /api/v1/snapshot and the stream payload: one
// completed cycle, with a cloned belief. Step 0 is the pre-action state
// published when an episode begins.
type Snapshot struct {
	Episode     int             `json:"episode"`
	Step        int             `json:"step"`
	Action      string          `json:"action,omitempty"`
	Target      *grid.Position  `json:"target,omitempty"`
	Observation string          `json:"observation,omitempty"`
	Position    grid.Position   `json:"position"`
	Path        []grid.Position `json:"path"`
	Belief      []float64       `json:"belief"` // Row-major mass
	Entropy     float64         `json:"entropy"`
	GoalMass    float64         `json:"goal_mass"`
	Outcome     string          `json:"outcome,omitempty"`
}

// Server serves the live view over HTTP. Construct with NewServer, feed
// it with Publish and Finish, start it with Start.
type Server struct {
	Addr string

	mu       sync.RWMutex
	status   Status
	grid     GridInfo
	snapshot Snapshot
	haveSnap bool

	upgrader websocket.Upgrader
	streamMu sync.Mutex
	streams  map[*websocket.Conn]bool

	httpSrv *http.Server
}

// NewServer creates a live-view server for one run.
func NewServer(addr string, info GridInfo, status Status) *Server {
	return &Server{
		Addr:     addr,
		status:   status,
		grid:     info,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		streams:  make(map[*websocket.Conn]bool),
	}
}

// Handler returns the route table. Exposed separately from Start so
// tests can mount it on a httptest server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	return mux
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.httpSrv = &http.Server{Addr: s.Addr, Handler: s.Handler()}
	slog.Info("live view starting", "addr", s.Addr)

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("live view server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server and closes every stream.
func (s *Server) Shutdown(ctx context.Context) error {
	s.streamMu.Lock()
	for conn := range s.streams {
		conn.Close()
	}
	s.streams = make(map[*websocket.Conn]bool)
	s.streamMu.Unlock()

	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// BeginEpisode resets the step counter for a new episode and publishes
// the pre-action state.
func (s *Server) BeginEpisode(episode int, snap Snapshot) {
	s.mu.Lock()
	s.status.Running = true
	s.status.Episode = episode
	s.status.Step = 0
	s.status.Position = snap.Position
	s.status.Outcome = ""
	s.mu.Unlock()
	s.Publish(snap)
}

// Publish stores the latest snapshot and pushes it to every stream.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.haveSnap = true
	s.status.Step = snap.Step
	s.status.Position = snap.Position
	s.mu.Unlock()

	s.broadcast(snap)
}

// Finish marks the current episode done. The final snapshot, carrying
// the outcome, is published like any other.
func (s *Server) Finish(outcome string, snap Snapshot) {
	snap.Outcome = outcome
	s.mu.Lock()
	s.status.Outcome = outcome
	s.mu.Unlock()
	s.Publish(snap)
}

// Stop marks the whole run finished while the server keeps answering.
func (s *Server) Stop() {
	s.mu.Lock()
	s.status.Running = false
	s.mu.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()
	writeJSON(w, status)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	info := s.grid
	s.mu.RUnlock()
	writeJSON(w, info)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	snap, ok := s.snapshot, s.haveSnap
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "no snapshot published yet", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

// handleStream upgrades to a WebSocket and pushes snapshots until the
// consumer disconnects. The latest snapshot is sent immediately so late
// joiners start with current state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.streamMu.Lock()
	if len(s.streams) >= maxStreamConns {
		s.streamMu.Unlock()
		http.Error(w, fmt.Sprintf("too many stream consumers (max %d)", maxStreamConns), http.StatusServiceUnavailable)
		return
	}
	s.streamMu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}

	s.mu.RLock()
	snap, ok := s.snapshot, s.haveSnap
	s.mu.RUnlock()

	s.streamMu.Lock()
	s.streams[conn] = true
	count := len(s.streams)
	if ok {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			delete(s.streams, conn)
			count = len(s.streams)
			conn.Close()
		}
	}
	s.streamMu.Unlock()
	slog.Info("stream consumer connected", "remote", r.RemoteAddr, "consumers", count)

	// Drain the connection; any read error means the consumer left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.dropStream(conn)
				return
			}
		}
	}()
}

func (s *Server) dropStream(conn *websocket.Conn) {
	s.streamMu.Lock()
	if s.streams[conn] {
		delete(s.streams, conn)
		conn.Close()
		slog.Info("stream consumer disconnected", "consumers", len(s.streams))
	}
	s.streamMu.Unlock()
}

// broadcast writes the snapshot to every connected stream, dropping
// consumers whose writes fail.
func (s *Server) broadcast(snap Snapshot) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	for conn := range s.streams {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			delete(s.streams, conn)
			conn.Close()
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
