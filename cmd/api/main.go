package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/lioncity-tours/gateway/internal/admin"
	"github.com/lioncity-tours/gateway/internal/backend"
	"github.com/lioncity-tours/gateway/internal/catalog"
	"github.com/lioncity-tours/gateway/internal/checkout"
	"github.com/lioncity-tours/gateway/internal/common"
	"github.com/lioncity-tours/gateway/internal/config"
	"github.com/lioncity-tours/gateway/internal/health"
	"github.com/lioncity-tours/gateway/internal/obs"
	"github.com/lioncity-tours/gateway/internal/payment"
	"github.com/lioncity-tours/gateway/internal/ratelimit"
	"github.com/lioncity-tours/gateway/internal/security"
	"github.com/lioncity-tours/gateway/internal/session"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "gateway")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "tour-gateway",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	backendClient := backend.New(cfg.BackendBaseURL, cfg.BackendTimeout, logger)

	catalogSvc := &catalog.Service{
		Backend:  backendClient,
		Cache:    catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Fallback: cfg.CatalogFallback,
		Logger:   logger,
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	sessions := &session.Store{R: redisClient, TTL: cfg.SessionTTL}
	cookies := session.Cookies{
		Name:     cfg.SessionCookieName,
		Secure:   cfg.AdminCookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	gateway := &payment.Gateway{Backend: backendClient, Logger: logger}
	checkoutSvc := &checkout.Service{
		Catalog:    catalogSvc,
		Gateway:    gateway,
		Sessions:   sessions,
		Provider:   cfg.PaymentProvider,
		ReturnPath: cfg.ReturnPath,
		BackPath:   cfg.BackPath,
		Logger:     logger,
	}
	checkoutHandler := checkout.NewHandler(checkoutSvc, cookies)

	webhookHandler := &payment.WebhookHandler{
		Verifier: payment.Verifier{MID: cfg.FomoMID, PSK: cfg.FomoPSK},
		Backend:  backendClient,
		Logger:   logger,
		Timeout:  cfg.BackendTimeout,
		MaxBody:  cfg.MaxWebhookBody,
	}

	adminSessions := &admin.Sessions{
		Backend: backendClient,
		Cookie: admin.CookieOptions{
			Name:     cfg.AdminCookieName,
			TTL:      cfg.AdminCookieTTL,
			Domain:   cfg.AdminCookieDomain,
			Secure:   cfg.AdminCookieSecure,
			SameSite: cfg.AdminCookieSameSite,
		},
		Logger: logger,
	}
	adminProxy := &admin.Proxy{
		Backend:    backendClient,
		CookieName: cfg.AdminCookieName,
		Logger:     logger,
	}

	loginGuard := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:login:"},
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: cfg.LoginRateWindow,
			Max:    cfg.LoginRateMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("login rate limiter unavailable")
		},
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	checkoutBodyLimit := security.BodyLimit{Max: 64 << 10}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     cfg.SecurityHeaders,
		EnableHSTS: cfg.AdminCookieSecure,
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:        readinessChecker{backend: backendClient, redis: redisClient},
		BackendTimeout: envDurationMillis("HEALTH_READY_BACKEND_TIMEOUT_MS", 1000),
		RedisTimeout:   envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/tours", catalogHandler.Tours)
		v.Get("/tours/{tourID}/availability", catalogHandler.Availability)
		v.Get("/tours/{tourID}/day/{date}", catalogHandler.DaySlots)

		v.Route("/checkout", func(c chi.Router) {
			c.Use(checkoutBodyLimit.Middleware)
			c.Post("/quote", checkoutHandler.Quote)
			c.With(idem.Middleware).Post("/", checkoutHandler.Initiate)
			c.Get("/result", checkoutHandler.Result)
			c.Get("/contact", checkoutHandler.Contact)
		})

		// No body-limit middleware here: the provider contract demands a
		// 200 acknowledgment even for garbage, so the handler enforces its
		// own cap and treats overflow as one more reason to ignore.
		v.Post("/webhooks/payment/{provider}", webhookHandler.Handle)

		// Anything else under /api/v1 relays to the backend unchanged.
		// Registered routes above always win over this catch-all.
		v.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
			backendClient.Forward(w, r, "/"+chi.URLParam(r, "*"), backend.ForwardOptions{Target: "public"})
		})
	})

	r.Route("/api/admin", func(a chi.Router) {
		a.With(loginGuard.Middleware).Post("/session", adminSessions.Login)
		a.Delete("/session", adminSessions.Logout)
		a.HandleFunc("/*", adminProxy.Handle)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	health.SetReady(false)
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	backend *backend.Client
	redis   *redis.Client
}

func (c readinessChecker) PingBackend(ctx context.Context, timeout time.Duration) error {
	if c.backend == nil {
		return errors.New("backend not configured")
	}
	return c.backend.Ping(ctx, timeout)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
