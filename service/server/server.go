package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"herald/service/auth"
	"herald/service/cache"
	"herald/service/config"
	"herald/service/curriculum"
	"herald/service/delivery"
	"herald/service/notification"
	"herald/service/util"
	"herald/service/vapid"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
)

type Server struct {
	cfg        *config.Config
	store      *notification.Store
	dispatcher *delivery.Dispatcher
	cache      *cache.Manager
	verifier   auth.Verifier
	curriculum *curriculum.Document
	vapidKeys  *vapid.KeyPair
	validate   *validator.Validate
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	startTime  time.Time
}

func New(cfg *config.Config) (*Server, error) {
	logger := util.NewLogger(cfg.VerboseLogging)

	store, err := notification.NewStore(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	vapidStore, err := vapid.NewStore(store.GetDB(), cfg.AdminSecret, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create vapid store: %w", err)
	}
	keys, err := vapidStore.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load vapid keys: %w", err)
	}

	sender := delivery.NewWebPushSender(keys.PublicKey, keys.PrivateKey, cfg.VAPIDSubscriber)
	dispatcher := delivery.NewDispatcher(store, sender, logger)

	doc, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		logger.Warn("Curriculum document unavailable", "path", cfg.CurriculumPath, "error", err)
		doc = &curriculum.Document{}
	}

	site := http.StripPrefix("/", http.FileServer(http.Dir(cfg.SiteDir)))
	cacheManager := cache.New(cache.Config{
		Version:     cfg.CacheVersion,
		Precache:    cfg.PrecachePaths,
		Bypass:      cfg.BypassPaths,
		OfflinePath: cfg.OfflinePage,
	}, site, logger)

	s := &Server{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		cache:      cacheManager,
		verifier:   auth.NewJWTVerifier(cfg.AdminSecret),
		curriculum: doc,
		vapidKeys:  keys,
		validate:   validator.New(),
		logger:     logger,
		startTime:  time.Now(),
	}

	s.setupRoutes(site)
	return s, nil
}

func (s *Server) setupRoutes(site http.Handler) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recovererMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))
	r.Use(securityHeadersMiddleware())
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(middleware.StripSlashes)
	r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.FrontendOrigin},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/push-key", s.handlePushKey)

	r.Route("/api/subscriptions", func(r chi.Router) {
		r.Post("/", s.handleSubscribe)
		r.Delete("/", s.handleUnsubscribe)
	})

	r.Post("/track-open", s.handleTrackOpen)

	r.Get("/api/curriculum", s.handleCurriculum)
	r.Get("/api/curriculum/{program}", s.handleCurriculumProgram)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier))
		r.MethodNotAllowed(s.handleMethodNotAllowed)
		r.Post("/broadcast", s.handleBroadcast)
		r.Delete("/notifications", s.handleDeleteNotifications)
		r.Get("/deliveries/{notificationID}", s.handleGetDeliveries)
		r.Get("/stats", s.handleGetStats)
		r.Get("/subscribe-qr", s.handleSubscribeQR)
	})

	r.Handle("/*", s.cache.Middleware(site))

	s.router = r
}

func (s *Server) Start(ctx context.Context) error {
	s.cache.Install(ctx)
	s.cache.Activate()

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Herald listening", "port", s.cfg.Port, "cache", s.cache.CurrentName())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	return nil
}
