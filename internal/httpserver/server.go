package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"orderbuddy/internal/auth"
	"orderbuddy/internal/config"
	"orderbuddy/internal/engine"
	"orderbuddy/pkg/logger"
	"orderbuddy/repository"
)

// Server bundles the engine components behind the JSON API the existing
// clients speak.
type Server struct {
	cfg     *config.Config
	log     logger.ILogger
	users   repository.UserRepositoryI
	catalog *engine.OrderCatalog
	ledger  *engine.RequestLedger
	view    *engine.ConnectionView
}

func New(cfg *config.Config, log logger.ILogger, users repository.UserRepositoryI, catalog *engine.OrderCatalog, ledger *engine.RequestLedger, view *engine.ConnectionView) *Server {
	return &Server{cfg: cfg, log: log, users: users, catalog: catalog, ledger: ledger, view: view}
}

// Router builds the chi router with logging, rate limiting and auth
// middleware. Only /api/auth/* is reachable without a token.
func (s *Server) Router() (http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(s.cfg.HTTP.RateLimit)
	if err != nil {
		return nil, err
	}
	rl := mhttp.NewMiddleware(limiter.New(memory.NewStore(), rate))

	r := chi.NewRouter()
	r.Use(requestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(rl.Handler)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OrderBuddy API is running..."))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth.Middleware(s.cfg.Auth.JWTSecret, s.log))
		r.Post("/", s.handleCreateOrder)
		r.Get("/", s.handleNearbyOrders)
		r.Get("/my-orders", s.handleMyOrders)
		r.Delete("/{orderId}", s.handleDeleteOrder)
		r.Post("/buddy-request/{orderId}", s.handleSendBuddyRequest)
		r.Get("/buddy-requests", s.handleListBuddyRequests)
		r.Post("/buddy-requests/{id}/accept", s.handleAcceptBuddyRequest)
		r.Post("/buddy-requests/{id}/reject", s.handleRejectBuddyRequest)
	})

	r.Route("/api/connections", func(r chi.Router) {
		r.Use(auth.Middleware(s.cfg.Auth.JWTSecret, s.log))
		r.Get("/", s.handleListConnections)
	})

	return r, nil
}

// Start begins serving on the configured address and returns a shutdown
// function that drains in-flight requests until ctx expires.
func (s *Server) Start() (func(context.Context) error, error) {
	router, err := s.Router()
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server stopped", logger.Error(err))
		}
	}()
	return srv.Shutdown, nil
}
