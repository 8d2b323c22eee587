// Package server exposes the invoiced HTTP API: login/logout and session
// check, the stored-asset endpoints, and the invoice PDF export.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/manal-catering/invoicer"
	"github.com/manal-catering/invoicer/internal/auth"
	"github.com/manal-catering/invoicer/internal/config"
	"github.com/manal-catering/invoicer/internal/store"
)

// Exporter runs the invoice export pipeline. *invoicer.Service satisfies it;
// tests substitute their own.
type Exporter interface {
	Export(ctx context.Context, rec invoicer.InvoiceRecord) ([]byte, error)
	Filename(rec invoicer.InvoiceRecord) string
}

// Server is the HTTP adapter over the asset store, the session manager, and
// the export pipeline.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	assets     *store.Store
	sessions   *auth.Manager
	exporter   Exporter
	logger     *zap.Logger
}

// New creates the server and wires all routes.
func New(cfg config.ServerConfig, assets *store.Store, sessions *auth.Manager, exporter Exporter, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		cfg:      cfg,
		router:   router,
		assets:   assets,
		sessions: sessions,
		exporter: exporter,
		logger:   logger,
	}

	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	s.setupRoutes()

	return s
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := nowFunc()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("http request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", nowFunc().Sub(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	h := newHandlers(s.assets, s.sessions, s.exporter, s.logger)

	s.router.POST("/login", h.Login)
	s.router.POST("/logout", h.Logout)

	// Stored blobs are public, like the original uploads directory.
	s.router.Static("/uploads", s.assets.BlobDir())

	api := s.router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/session", h.SessionCheck)
		api.GET("/stored-files", h.StoredFiles)

		protected := api.Group("", s.requireAuth())
		{
			protected.POST("/upload-logo", h.UploadAsset(store.KindLogo))
			protected.POST("/upload-stamp", h.UploadAsset(store.KindStamp))
			protected.DELETE("/clear-files", h.ClearFiles)
			protected.POST("/generate-invoice", h.GenerateInvoice)
		}
	}
}

// requireAuth rejects requests without a live session cookie.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || !s.sessions.Validate(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("starting http server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("http server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("http server stopped")
	return nil
}

// Router returns the underlying gin router (for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}
