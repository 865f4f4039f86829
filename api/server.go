package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wricardo/tictactoe-rooms/game/service"
)

// Hub is the live-connection transport the server fronts. *websocket.Hub
// implements it.
type Hub interface {
	service.Transport
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     Hub
	router  *mux.Router
	logger  *slog.Logger
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Events
	api.HandleFunc("/events", s.handleEvent).Methods("POST")

	// Rooms
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")

	// Connections
	api.HandleFunc("/connections/{id}/rooms", s.handleConnectionRooms).Methods("GET")
	api.HandleFunc("/connections/{id}", s.handleDisconnect).Methods("DELETE")

	// WebSocket
	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code service.Code, message string) {
	respondJSON(w, status, map[string]string{"error": message, "code": string(code)})
}

// EventRequest is the body of POST /api/events.
type EventRequest struct {
	ConnectionID string            `json:"connectionId,omitempty"`
	Type         service.EventType `json:"type"`
	Payload      json.RawMessage   `json:"payload,omitempty"`
}

// EventResponse lists the messages produced for the caller.
type EventResponse struct {
	ConnectionID string             `json:"connectionId"`
	Messages     []*service.Message `json:"messages"`
}

// recorder captures what the service addresses to an HTTP caller and passes
// everything on to the hub, so WebSocket members still hear about it.
type recorder struct {
	connID   string
	next     service.Transport
	messages []*service.Message
}

func (r *recorder) Send(connID string, msg *service.Message) {
	if connID == r.connID {
		r.messages = append(r.messages, msg)
	}
	r.next.Send(connID, msg)
}

// Broadcast records every room message: the service only broadcasts to a
// room after the caller acted in it.
func (r *recorder) Broadcast(roomID string, msg *service.Message) {
	r.messages = append(r.messages, msg)
	r.next.Broadcast(roomID, msg)
}

func (r *recorder) Subscribe(connID, roomID string) {
	r.next.Subscribe(connID, roomID)
}

func (r *recorder) Unsubscribe(connID, roomID string) {
	r.next.Unsubscribe(connID, roomID)
}

// Event Handlers

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, service.CodeInvalidEvent, "Invalid request body")
		return
	}

	// First-time HTTP clients get an id to reuse on later calls.
	if req.ConnectionID == "" {
		req.ConnectionID = uuid.NewString()
	}

	rec := &recorder{connID: req.ConnectionID, next: s.hub}
	s.service.Handle(r.Context(), rec, req.ConnectionID, service.Event{Type: req.Type, Payload: req.Payload})

	if rec.messages == nil {
		rec.messages = []*service.Message{}
	}
	respondJSON(w, http.StatusOK, EventResponse{ConnectionID: req.ConnectionID, Messages: rec.messages})
}

// Room Handlers

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	connID := r.URL.Query().Get("connectionId")

	view, err := s.service.GetRoom(r.Context(), roomID, connID)
	if err != nil {
		var svcErr *service.Error
		if !errors.As(err, &svcErr) {
			s.logger.Error("room lookup failed", "room_id", roomID, "error", err)
			respondError(w, http.StatusInternalServerError, service.CodeInternal, "internal error")
			return
		}
		status := http.StatusBadRequest
		if svcErr.Code == service.CodeRoomNotFound {
			status = http.StatusNotFound
		}
		respondError(w, status, svcErr.Code, svcErr.Message)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// Connection Handlers

func (s *Server) handleConnectionRooms(w http.ResponseWriter, r *http.Request) {
	connID := mux.Vars(r)["id"]
	rooms := s.service.RoomsOf(r.Context(), connID)
	if rooms == nil {
		rooms = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connectionId": connID,
		"rooms":        rooms,
	})
}

// handleDisconnect ends an HTTP client's session the way a closed socket
// ends a WebSocket one.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	connID := mux.Vars(r)["id"]
	s.service.Disconnect(r.Context(), s.hub, connID)
	w.WriteHeader(http.StatusNoContent)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.service.Stats(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"rooms":   stats.Rooms,
		"clients": s.hub.ClientCount(),
	})
}
