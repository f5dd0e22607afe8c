package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/config"
	"github.com/hongminglow/hometown-ledger/internal/http/handlers"
	"github.com/hongminglow/hometown-ledger/internal/middleware"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Store   storage.Store
	Tokens  *auth.TokenManager
	Hasher  auth.Hasher
	Ledger  handlers.LedgerService
	Support handlers.SupportService
	Admin   handlers.AdminService
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Router(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Router builds the gin engine serving every route.
//
//	GET  /health
//	POST /api/auth/login
//	/api/...        bearer token required
//	/api/admin/...  bearer token with the admin capability
func Router(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.CORS(cfg.CORSOrigins), gin.Recovery())

	handlers.NewHealthHandler(time.Now()).Register(r)
	handlers.NewAuthHandler(deps.Store, deps.Tokens, deps.Hasher).Register(r.Group("/api/auth"))

	api := r.Group("/api", middleware.Authenticate(deps.Tokens))
	handlers.NewLedgerHandler(deps.Ledger).Register(api.Group("", middleware.RequireCapability(auth.CapReadOwn)))
	messages := handlers.NewMessageHandler(deps.Support)
	messages.Register(api.Group("", middleware.RequireCapability(auth.CapSendMessage)))

	adminGroup := api.Group("/admin", middleware.RequireCapability(auth.CapAdmin))
	handlers.NewAdminHandler(deps.Admin).Register(adminGroup)
	messages.RegisterAdmin(adminGroup)

	return r
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
