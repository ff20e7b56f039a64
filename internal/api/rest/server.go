package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/draftlens/internal/logger"
)

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
}

// NewRouter builds the REST routes
func NewRouter(handler *Handler) http.Handler {
	router := mux.NewRouter()

	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)

	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Parsers and page
	api.HandleFunc("/parsers", handler.GetParsers).Methods("GET")
	api.HandleFunc("/rows", handler.GetRows).Methods("GET")

	// Board
	api.HandleFunc("/board", handler.GetBoard).Methods("GET")
	api.HandleFunc("/board/refresh", handler.RefreshBoard).Methods("POST")

	// Session
	api.HandleFunc("/session", handler.GetSession).Methods("GET")
	api.HandleFunc("/session", handler.CreateSession).Methods("POST")
	api.HandleFunc("/session", handler.DeleteSession).Methods("DELETE")

	// CORS wraps the router so preflight requests never reach route matching
	return CORSMiddleware(router)
}

// NewServer creates a new REST API server
func NewServer(port string, handler *Handler) *Server {
	return &Server{
		port: port,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start starts the REST API server
func (s *Server) Start() error {
	logger.Log.Info().Str("port", s.port).Msg("rest server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
