package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	"github.com/sngm3741/dispatch-contact/api/internal/config"
	"github.com/sngm3741/dispatch-contact/api/internal/infrastructure/mailer"
	mongodoc "github.com/sngm3741/dispatch-contact/api/internal/infrastructure/mongo"
	adminhttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/public"
	"github.com/sngm3741/dispatch-contact/api/internal/metrics"
	publicapp "github.com/sngm3741/dispatch-contact/api/internal/public/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

const (
	indexTimeout     = 10 * time.Second
	readinessTimeout = 2 * time.Second
)

// Server is the composition root: it owns the Mongo client, the background
// notification dispatcher and the HTTP listener.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	client     *mongo.Client
	messages   *mongodoc.SubmissionRepository
	failures   *mongodoc.FailedNotificationRepository
	dispatcher *publicapp.NotificationDispatcher
	limiter    *commonhttp.RateLimiter
	httpServer *http.Server
}

// New wires repositories, services and handlers. The Mongo client may still be
// unreachable; readiness is established in Run.
func New(cfg *config.Config, client *mongo.Client, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.Mongo.Database)
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		messages: mongodoc.NewSubmissionRepository(db, cfg.Mongo.MessageCollection, cfg.Mongo.PingTimeout),
		failures: mongodoc.NewFailedNotificationRepository(db, cfg.Mongo.FailedNotificationCollection),
	}

	s.dispatcher = publicapp.NewNotificationDispatcher(publicapp.DispatcherConfig{
		Notifier:     notifier,
		Failures:     s.failures,
		SiteName:     cfg.Notify.SiteName,
		AdminAddress: cfg.Notify.AdminAddress,
		Timeout:      cfg.Notify.Timeout,
		Logger:       logger.Named("notify"),
		Metrics:      collector,
	})
	submissions := publicapp.NewSubmissionService(publicapp.SubmissionServiceConfig{
		Repository:   s.messages,
		Dispatcher:   s.dispatcher,
		Policy:       domain.Policy{RequireMessage: cfg.Intake.RequireMessage},
		MaxBodyBytes: cfg.Intake.MaxBodyBytes,
		Logger:       logger.Named("intake"),
		Metrics:      collector,
	})

	var submitLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		s.limiter = commonhttp.NewRateLimiter(commonhttp.RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			IdleTTL:           cfg.RateLimit.IdleTTL,
		}, logger, collector)
		submitLimiter = s.limiter.Middleware
	}

	rc := routerConfig{
		Logger:         logger,
		Collector:      collector,
		Gatherer:       registry,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Public: publichttp.NewHandler(publichttp.Config{
			Logger:        logger,
			Submissions:   submissions,
			StartedAt:     time.Now(),
			SubmitLimiter: submitLimiter,
		}),
		Ready: submissions.Ready,
	}
	if cfg.Auth.Enabled() {
		rc.Admin = adminhttp.NewHandler(adminhttp.Config{
			Logger:        logger,
			Submissions:   adminapp.NewSubmissionService(s.messages),
			Notifications: adminapp.NewNotificationService(s.failures),
		})
		rc.Verifier = newTokenVerifier(cfg.Auth)
	} else {
		logger.Info("admin api disabled: no jwt secret configured")
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(rc),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return s, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (publicapp.Notifier, error) {
	if !cfg.SMTP.Enabled() {
		logger.Warn("smtp relay not configured; notifications will only be logged")
		return mailer.NopNotifier{Logger: logger.Named("mailer")}, nil
	}
	notifier, err := mailer.NewSMTPNotifier(mailer.Config{
		Addr:              cfg.SMTP.Address(),
		Mode:              cfg.SMTP.Mode,
		Username:          cfg.SMTP.Username,
		Password:          cfg.SMTP.Password,
		From:              cfg.SMTP.From,
		ReplyTo:           cfg.SMTP.ReplyTo,
		HeloDomain:        cfg.SMTP.HeloDomain,
		MaxConnections:    cfg.SMTP.MaxConnections,
		RatePerMinute:     cfg.SMTP.RatePerMinute,
		CommandTimeout:    cfg.SMTP.CommandTimeout,
		SubmissionTimeout: cfg.SMTP.SubmissionTimeout,
	}, logger.Named("mailer"))
	if err != nil {
		return nil, fmt.Errorf("smtp notifier: %w", err)
	}
	logger.Info("smtp relay configured", zap.String("address", cfg.SMTP.Address()), zap.String("mode", cfg.SMTP.Mode))
	return notifier, nil
}

type routerConfig struct {
	Logger         *zap.Logger
	Collector      *metrics.Collector
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	TrustedProxies []netip.Prefix
	Public         *publichttp.Handler
	// Admin is mounted only together with Verifier.
	Admin    *adminhttp.Handler
	Verifier *tokenVerifier
	Ready    func(context.Context) bool
}

func newRouter(rc routerConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(commonhttp.RealIP(rc.TrustedProxies))
	router.Use(commonhttp.RequestLogger(rc.Logger, rc.Collector))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(rc.AllowedOrigins))

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	health.AddReadinessCheck("document-store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
		defer cancel()
		if rc.Ready == nil || !rc.Ready(ctx) {
			return errors.New("document store is not ready")
		}
		return nil
	})
	router.Method(http.MethodGet, "/live", health)
	router.Method(http.MethodGet, "/ready", health)
	router.Method(http.MethodGet, "/metrics", metrics.Handler(rc.Gatherer))

	router.Route("/api", func(r chi.Router) {
		rc.Public.Register(r)
		if rc.Admin != nil && rc.Verifier != nil {
			r.Route("/admin", func(ar chi.Router) {
				ar.Use(rc.Verifier.middleware(rc.Logger))
				rc.Admin.Register(ar)
			})
		}
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		commonhttp.WriteError(rc.Logger, w, http.StatusNotFound, "Not found", "")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		commonhttp.WriteError(rc.Logger, w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})
	return router
}

// Run serves HTTP and provisions indexes in the background until ctx ends or
// the listener fails, then shuts everything down in order. Intake answers 503
// until the message indexes exist.
func (s *Server) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.logger.Info("starting HTTP server", zap.String("address", s.cfg.Server.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		s.provision(groupCtx)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		s.logger.Info("shutdown signal received, gracefully shutting down")
		s.shutdown()
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("server exited cleanly")
	return nil
}

// provision retries the message indexes first, then the failed notification
// indexes.
func (s *Server) provision(ctx context.Context) {
	if err := provisionWithRetry(ctx, s.logger, s.cfg.Mongo.MessageCollection, s.messages, newProvisionBackOff()); err != nil {
		s.logger.Warn("message index provisioning stopped", zap.Error(err))
		return
	}
	if err := provisionWithRetry(ctx, s.logger, s.cfg.Mongo.FailedNotificationCollection, s.failures, newProvisionBackOff()); err != nil {
		s.logger.Warn("failed notification index provisioning stopped", zap.Error(err))
	}
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := s.dispatcher.Wait(ctx); err != nil {
		s.logger.Warn("pending notifications abandoned", zap.Error(err))
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn("mongo disconnect error", zap.Error(err))
	}
}

// withCORS adds CORS headers for allowed origins and answers preflights.
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}
