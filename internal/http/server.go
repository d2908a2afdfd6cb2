package http

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"school_asset_server/internal/tenant"
	"school_asset_server/pkg/colors"

	"github.com/gin-gonic/gin"
)

// Options configures the HTTP server
type Options struct {
	Address      string
	Port         string
	Registry     *tenant.Registry
	Resolver     *tenant.Resolver
	Codec        *tenant.Codec
	CookieName   string
	TenantHeader string
	SecureCookie bool
	LogHTTP      bool
	TLSCertFile  string
	TLSKeyFile   string
}

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	hub        *WebSocketHub
	opts       Options
	httpServer *http.Server
	stopHub    context.CancelFunc
}

// NewServer creates a new HTTP server instance and starts its WebSocket hub
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	if opts.LogHTTP {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	hub := NewWebSocketHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	s := &Server{
		router:  router,
		hub:     hub,
		opts:    opts,
		stopHub: stopHub,
	}
	SetupRoutes(router, s)
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the server's WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.hub
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.Address, s.opts.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	colors.PrintServer("🌐", "HTTP REST API Server starting on %s", addr)
	colors.PrintServer("🔗", "WebSocket endpoint available at /api/v1/ws for change notices")

	var err error
	if s.opts.TLSCertFile != "" {
		err = s.startHTTPS()
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) startHTTPS() error {
	s.httpServer.TLSConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	colors.PrintServer("🔒", "HTTPS enabled")
	colors.PrintServer("📜", "Using SSL certificate: %s", s.opts.TLSCertFile)
	return s.httpServer.ListenAndServeTLS(s.opts.TLSCertFile, s.opts.TLSKeyFile)
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// every WebSocket client
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopHub()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// CORSMiddleware handles Cross-Origin Resource Sharing. Credentials are
// allowed so the workspace cookie travels with cross-origin requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Tenant-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
