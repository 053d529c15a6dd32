package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vkick/wabridge/pkg/bus"
	"github.com/vkick/wabridge/pkg/cron"
	"github.com/vkick/wabridge/pkg/logger"
	"github.com/vkick/wabridge/pkg/relay"
	"github.com/vkick/wabridge/pkg/storage/repository"
	"github.com/vkick/wabridge/pkg/wa"
)

// Config holds the listen address and the optional bearer token. An
// empty token leaves the API open, for localhost-only deployments.
type Config struct {
	Host  string
	Port  int
	Token string
}

type Server struct {
	config     Config
	bridge     *wa.Controller
	buffer     *relay.Buffer
	contacts   repository.ContactsRepository
	scheduler  *cron.Service
	msgBus     *bus.Bus
	hub        *Hub
	httpServer *http.Server
}

func NewServer(
	cfg Config,
	bridge *wa.Controller,
	buffer *relay.Buffer,
	contactsRepo repository.ContactsRepository,
	scheduler *cron.Service,
	msgBus *bus.Bus,
) *Server {
	return &Server{
		config:    cfg,
		bridge:    bridge,
		buffer:    buffer,
		contacts:  contactsRepo,
		scheduler: scheduler,
		msgBus:    msgBus,
		hub:       NewHub(msgBus),
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// API routes (require auth when a token is configured)
	mux.HandleFunc("/api/status", s.authMiddleware(s.handleStatus))
	mux.HandleFunc("/api/qr", s.authMiddleware(s.handleQR))
	mux.HandleFunc("/api/incoming", s.authMiddleware(s.handleIncoming))
	mux.HandleFunc("/api/send", s.authMiddleware(s.handleSend))
	mux.HandleFunc("/api/contacts", s.authMiddleware(s.handleContacts))
	mux.HandleFunc("/api/contacts/", s.authMiddleware(s.handleContactDetail))
	mux.HandleFunc("/api/cron", s.authMiddleware(s.handleCron))
	mux.HandleFunc("/api/cron/", s.authMiddleware(s.handleCronDetail))

	// WebSocket (auth via query param)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.corsMiddleware(mux)
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		logger.InfoCF("httpapi", "API server started", map[string]interface{}{
			"address": addr,
		})
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("httpapi", "API server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
		logger.InfoC("httpapi", "API server stopped")
	}
}

// authMiddleware wraps a handler with bearer token authentication.
// With no token configured every request passes.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.Token != "" && s.extractToken(r) != s.config.Token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// extractToken gets the bearer token from the Authorization header.
func (s *Server) extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Fallback: query parameter (for WebSocket)
	return r.URL.Query().Get("token")
}

// corsMiddleware adds CORS headers for browser consumers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
