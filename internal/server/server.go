// Package server exposes the chat, account and data operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"nexusai/internal/chat"
	"nexusai/internal/config"
	"nexusai/internal/events"
	"nexusai/internal/services"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg      config.Config
	svcs     *services.Services
	sessions *chat.Manager
	router   *gin.Engine
}

func New(cfg config.Config, svcs *services.Services, sessions *chat.Manager) *Server {
	s := &Server{cfg: cfg, svcs: svcs, sessions: sessions}
	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger())
	s.routes()

	events.SetListener(func(_ context.Context, name string, evt events.ChatEvent) {
		sessionEvents.WithLabelValues(name, string(evt.Type)).Inc()
	})
	return s
}

func (s *Server) routes() {
	r := s.router
	r.GET("/healthz", s.health)
	r.GET("/metrics", s.metrics())

	api := r.Group("/api")
	api.POST("/auth/signup", s.signUp)
	api.POST("/auth/login", s.login)

	authed := api.Group("", requireSession([]byte(s.cfg.JWT.Secret), s.sessions))
	authed.POST("/auth/logout", s.logout)

	authed.GET("/providers", s.listProviders)
	authed.GET("/providers/keys", s.listKeys)
	authed.PUT("/providers/:provider/key", s.storeKey)
	authed.DELETE("/providers/:provider/key", s.deleteKey)

	authed.PUT("/chat/provider", s.selectProvider)
	authed.GET("/chat/history", s.history)
	authed.DELETE("/chat/history", s.clearHistory)
	authed.PUT("/chat/memory", s.setMemory)
	authed.POST("/chat/messages", s.sendMessage)

	authed.POST("/sessions", s.saveSession)
	authed.GET("/sessions", s.listSessions)
	authed.POST("/sessions/:key/load", s.loadSession)
	authed.DELETE("/sessions/:key", s.deleteSession)

	authed.POST("/data/upload", s.upload)
	authed.POST("/data/sql", s.generateSQL)
	authed.POST("/data/query", s.runQuery)
}

// Handler returns the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.cfg.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// metrics serves the Prometheus registry. The session gauge is read from the
// manager at scrape time so logouts and expiry sweeps never drift it.
func (s *Server) metrics() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		activeSessions.Set(float64(s.sessions.Len()))
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}
