package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/draftlens/internal/controller"
	"github.com/fortuna/draftlens/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the page being augmented is third-party, any origin may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the envelope sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// BoardSource provides the board sent to clients on connect.
type BoardSource interface {
	Board(ctx context.Context) (*controller.Board, error)
}

// Server is the live board feed
type Server struct {
	server *http.Server
	hub    *Hub
	boards BoardSource
}

// NewServer creates a feed server. boards may be nil.
func NewServer(boards BoardSource) *Server {
	return &Server{
		hub:    NewHub(),
		boards: boards,
	}
}

// Handler returns the HTTP routes of the feed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/board", s.handleBoard)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start runs the hub and serves on port until Shutdown
func (s *Server) Start(port string) error {
	go s.hub.Run()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Log.Info().Str("port", port).Msg("websocket server listening")
	return s.server.ListenAndServe()
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if msg, ok := s.initial(r.Context()); ok {
		client.send <- msg
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// initial encodes the current board, if any.
func (s *Server) initial(ctx context.Context) ([]byte, bool) {
	if s.boards == nil {
		return nil, false
	}
	board, err := s.boards.Board(ctx)
	if err != nil {
		return nil, false
	}
	msg, err := encode(controller.KindBoard, board)
	if err != nil {
		return nil, false
	}
	return msg, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// Broadcast implements controller.Broadcaster.
func (s *Server) Broadcast(kind string, payload interface{}) {
	msg, err := encode(kind, payload)
	if err != nil {
		logger.Log.Warn().Err(err).Str("type", kind).Msg("failed to encode websocket message")
		return
	}
	s.hub.Broadcast(msg)
}

func encode(kind string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: kind, Data: payload, Timestamp: time.Now().UTC()})
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
