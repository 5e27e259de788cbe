// Package http exposes the dialogue engine over a small JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"jarvis/internal/cache"
	"jarvis/internal/dialog"
	"jarvis/internal/events"
	"jarvis/internal/llm"
	"jarvis/internal/log"
)

// MessageRouter dispatches one user message and produces a reply.
type MessageRouter interface {
	RouteMessage(ctx context.Context, text, userID, familyID string, history []llm.Message) dialog.Reply
}

// Server is the HTTP front of the assistant.
type Server struct {
	http.Server
	router      MessageRouter
	history     *cache.History
	publisher   events.Publisher
	logger      *log.Logger
	rateLimiter *rateLimiter
	startedAt   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, router MessageRouter, history *cache.History, publisher events.Publisher, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		router:      router,
		history:     history,
		publisher:   publisher,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		startedAt:   time.Now(),
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/v1/messages", s.withRateLimit(s.handleMessage))
	mux.HandleFunc("/api/v1/history/clear", s.withRateLimit(s.handleClearHistory))

	return s
}

// Shutdown stops the server and its background goroutines once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRateLimit rejects clients that exceed the per-IP request budget.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := extractClientIP(r)
		if !s.rateLimiter.allow(ip) {
			s.logger.Warn("rate limit exceeded", "client_ip", ip)
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}
