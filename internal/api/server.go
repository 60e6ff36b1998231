// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public and read-only. POST endpoints require a bearer
// token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/fishery/internal/engine"
	"github.com/talgya/fishery/internal/persistence"
	"github.com/talgya/fishery/internal/world"
)

const maxStreamConns = 8

// Server serves simulation state over HTTP.
type Server struct {
	Eng         *engine.Engine
	DB          *persistence.DB // Optional; history falls back to memory
	RunID       string
	SnapshotDir string
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	Addr        string
	Hub         *Hub

	streamConns atomic.Int32
	upgrader    websocket.Upgrader
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.Hub == nil {
		s.Hub = NewHub()
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	snapshotLimiter := NewRateLimiter(6, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/fleet", s.handleFleet)
	mux.HandleFunc("/api/v1/stream", s.handleStream)
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(RateLimitMiddleware(snapshotLimiter, s.handleSnapshot)))
	return corsMiddleware(mux)
}

// Serve listens on Addr until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires POST with a valid bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Eng.Read(func(sim *engine.Simulation) {
		status = map[string]any{
			"scenario":  sim.Config.Name,
			"seed":      sim.Config.Seed,
			"run_id":    s.RunID,
			"tick":      sim.Tick,
			"sim_time":  engine.SimTime(sim.Tick, sim.Config.Fish.YearLength),
			"season":    sim.Season,
			"in_season": sim.InSeason(),
			"running":   s.Eng.Running(),
			"extinct":   sim.Extinct(),
			"dim":       sim.Grid.Dim,
			"boats":     len(sim.Boats),
			"stats":     sim.CurrentStats(),
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 10000 {
			limit = v
		}
	}

	if s.DB != nil && s.RunID != "" {
		rows, err := s.DB.History(s.RunID, limit)
		if err == nil {
			if rows == nil {
				rows = []engine.Stats{}
			}
			writeJSON(w, rows)
			return
		}
		slog.Error("stats history query failed", "error", err)
	}
	writeJSON(w, s.Eng.History(limit))
}

type gridView struct {
	Tick     int       `json:"tick"`
	Dim      int       `json:"dim"`
	Resource []float64 `json:"resource"` // Row-major
	Fish     []int     `json:"fish"`     // Row-major
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	var view gridView
	s.Eng.Read(func(sim *engine.Simulation) {
		view = gridView{
			Tick:     sim.Tick,
			Dim:      sim.Grid.Dim,
			Resource: make([]float64, len(sim.Grid.Patches)),
			Fish:     sim.Occupancy(),
		}
		for i, p := range sim.Grid.Patches {
			view.Resource[i] = p.Resource
		}
	})
	writeJSON(w, view)
}

type boatView struct {
	ID                int          `json:"id"`
	At                *world.Coord `json:"at,omitempty"`
	Distance          int          `json:"distance"`
	MaxDistance       float64      `json:"max_distance"`
	Hold              float64      `json:"hold"`
	HoldCapacity      float64      `json:"hold_capacity"`
	Catch             int          `json:"catch"`
	CaptureEfficiency float64      `json:"capture_efficiency"`
	Done              bool         `json:"done"`
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	var boats []boatView
	s.Eng.Read(func(sim *engine.Simulation) {
		boats = make([]boatView, 0, len(sim.Boats))
		for _, b := range sim.Boats {
			v := boatView{
				ID:                b.ID,
				Distance:          b.Distance,
				MaxDistance:       b.MaxDistance,
				Hold:              b.Hold,
				HoldCapacity:      b.HoldCapacity,
				Catch:             b.Catch,
				CaptureEfficiency: b.CaptureEfficiency,
				Done:              b.Done,
			}
			if b.Patch != nil {
				c := b.Patch.Coord
				v.At = &c
			}
			boats = append(boats, v)
		}
	})
	writeJSON(w, boats)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.SnapshotDir == "" {
		http.Error(w, "snapshots not configured", http.StatusServiceUnavailable)
		return
	}

	var st *engine.State
	s.Eng.Read(func(sim *engine.Simulation) { st = sim.State() })

	path := persistence.SnapshotPath(s.SnapshotDir, st.Tick)
	if err := persistence.WriteSnapshot(path, s.RunID, st); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	slog.Info("snapshot written", "path", path, "tick", st.Tick)

	writeJSON(w, map[string]any{
		"tick":    st.Tick,
		"path":    path,
		"message": "snapshot saved",
	})
}

// handleStream upgrades to a websocket and pushes stats as the driver
// publishes them, starting with the current stats.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.streamConns.Add(1) > maxStreamConns {
		s.streamConns.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streamConns.Add(-1)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(id)
	slog.Info("stream client connected", "sub_id", id)

	// Reader goroutine: notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var current engine.Stats
	s.Eng.Read(func(sim *engine.Simulation) { current = sim.CurrentStats() })
	if err := writeWS(conn, current); err != nil {
		return
	}

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			if err := writeWS(conn, st); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "sub_id", id)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(v)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response", "error", err)
	}
}
