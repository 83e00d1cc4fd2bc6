package network

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aicity-project/aicity/internal/engine"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/platform/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The observer feed is public and read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the HTTP surface for observers: the WebSocket upgrade plus
// request-response snapshot reads for late joiners.
type Server struct {
	city   *engine.City
	hub    *Hub
	logger *logger.Logger
}

// NewServer creates the observer HTTP surface.
func NewServer(city *engine.City, hub *Hub, log *logger.Logger) *Server {
	return &Server{city: city, hub: hub, logger: log}
}

// RegisterRoutes sets up the observer API routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/api/city/state", s.HandleState)
	mux.HandleFunc("/api/city/agents", s.HandleAgents)
	mux.HandleFunc("/api/city/newspaper", s.HandleNewspaper)
	mux.HandleFunc("/metrics", metrics.Handler())
}

// HandleWS upgrades an observer connection and attaches it to the hub.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := NewClient(s.hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all
	// work in new goroutines.
	go client.WritePump()
	go client.ReadPump()
}

// HandleState returns the full city snapshot, consistent with a single
// day boundary.
// GET /api/city/state
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonSuccess(w, s.city.Snapshot())
}

// HandleAgents returns the public roster.
// GET /api/city/agents
func (s *Server) HandleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonSuccess(w, map[string]any{
		"day":    s.city.Day(),
		"agents": s.city.Agents(),
	})
}

// HandleNewspaper returns every published edition.
// GET /api/city/newspaper
func (s *Server) HandleNewspaper(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonSuccess(w, map[string]any{
		"day":     s.city.Day(),
		"stories": s.city.Stories(),
	})
}

// jsonError sends an error response.
func (s *Server) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func (s *Server) jsonSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
