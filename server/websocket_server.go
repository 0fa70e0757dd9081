package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CerebriumAI/live-stream-shopper/config"
	"github.com/CerebriumAI/live-stream-shopper/messages"
	"github.com/CerebriumAI/live-stream-shopper/room"
	"github.com/CerebriumAI/live-stream-shopper/session"
)

type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
}

func NewServer(cfg *config.Config, sessionManager *session.Manager) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Check allowed origins
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
		// No ReadTimeout/WriteTimeout: these interfere with long-lived
		// WebSocket connections. The session layer sets its own deadlines.
	}

	return s
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 Session coordinator starting on port %d", s.config.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%d/ws", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down server...")
	s.sessionManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Create session: room creation + agent dispatch + wiring
	live, err := s.sessionManager.CreateSession(r.Context(), conn)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		_ = conn.WriteJSON(sessionError(err))
		conn.Close()
		return
	}

	log.Printf("✅ New session created: %s (run %s)", live.ID, live.RunID)

	// Start session (handles messages in goroutines)
	live.Start()

	// Wait for session to close
	<-live.CloseChan

	// Clean up
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.sessionManager.RemoveSession(ctx, live.ID)
	log.Printf("🔌 Session closed: %s", live.ID)
}

// sessionError maps a session-creation failure onto the wire taxonomy. Room
// and join failures are user-visible and manually retryable from the start
// screen.
func sessionError(err error) *messages.ServerMessage {
	switch {
	case errors.Is(err, room.ErrServiceUnavailable):
		return messages.NewErrorMessage("", messages.ErrCodeRoomUnavailable,
			"We are at capacity at the moment. Please try again later!")
	case errors.Is(err, room.ErrJoinFailure):
		return messages.NewErrorMessage("", messages.ErrCodeJoinFailed,
			"An error occurred while joining the room. Please refresh and try again")
	default:
		return messages.NewErrorMessage("", messages.ErrCodeSessionFailed, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.sessionManager.GetActiveSessionCount())
}
