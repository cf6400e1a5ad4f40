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
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/noah-isme/backend-mailer/internal/auth"
	"github.com/noah-isme/backend-mailer/internal/common"
	"github.com/noah-isme/backend-mailer/internal/config"
	"github.com/noah-isme/backend-mailer/internal/health"
	"github.com/noah-isme/backend-mailer/internal/mailer"
	"github.com/noah-isme/backend-mailer/internal/obs"
	"github.com/noah-isme/backend-mailer/internal/ratelimit"
	"github.com/noah-isme/backend-mailer/internal/resilience"
	"github.com/noah-isme/backend-mailer/internal/security"
	"github.com/noah-isme/backend-mailer/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "mailer")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "mailer-api",
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

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		if tracingEnabled {
			if err := redisotel.InstrumentTracing(redisClient); err != nil {
				logger.Error().Err(err).Msg("instrument redis tracing")
			}
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("ping redis")
		}
		cancel()
	}

	validate := validator.New()

	store := user.NewMemoryStore()
	userService := user.NewService(store)
	seedAdmin(logger, userService)
	userHandler := &user.Handler{Service: userService, Validate: validate}

	authService, err := auth.NewService(auth.Config{
		Store:          store,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService, Validate: validate}
	authMiddleware := auth.Middleware{Service: authService}

	var ledger mailer.QuotaLedger = store
	if redisClient != nil {
		ledger = user.RedisQuotaLedger{Client: redisClient}
	}

	breakerMin := envInt("MAIL_BREAKER_MIN_REQUESTS", 3)
	breakerRatio := envFloat("MAIL_BREAKER_FAILURE_RATIO", 0.6)
	breakerCoolOff := envDurationMillis("MAIL_BREAKER_OPEN_MS", 30000)
	transports := []mailer.Transport{
		mailer.GuardTransport(
			mailer.NewSMTPTransport("primary", smtpConfig(cfg.PrimarySMTP)),
			resilience.NewBreaker(breakerMin, breakerRatio, breakerCoolOff).WithLogger(logger),
		),
		mailer.GuardTransport(
			mailer.NewSMTPTransport("secondary", smtpConfig(cfg.SecondarySMTP)),
			resilience.NewBreaker(breakerMin, breakerRatio, breakerCoolOff).WithLogger(logger),
		),
	}
	mailService := &mailer.Service{
		Ledger:     ledger,
		Transports: transports,
		DefaultFrom: mailer.Address{
			Name:    cfg.DefaultFromName,
			Address: cfg.DefaultFromAddress,
		},
		DailyLimit: cfg.DailyEmailQuota,
		Log:        logger.With().Str("component", "mailer").Logger(),
	}
	if tracingEnabled {
		mailService.Tracer = otel.Tracer("mailer")
	}
	mailHandler := &mailer.Handler{
		Service:  mailService,
		Validate: validate,
		Demo: mailer.DemoMessage{
			To:      mailer.Address{Name: cfg.DemoRecipientName, Address: cfg.DemoRecipientAddress},
			Subject: cfg.DemoSubject,
			HTML:    cfg.DemoBodyHTML,
		},
	}

	loginLimit := ratelimit.Handler{
		Limiter: newLimiter(redisClient, "mailer:rl:login:", cfg.LoginRateWindow, cfg.LoginRateMax),
		Key:     common.ClientIP,
		OnError: func(err error) { logger.Error().Err(err).Msg("login rate limiter") },
	}
	sendLimit := ratelimit.Handler{
		Limiter: newLimiter(redisClient, "mailer:rl:send:", cfg.SendRateWindow, cfg.SendRateMax),
		Key:     common.ClientIP,
		OnError: func(err error) { logger.Error().Err(err).Msg("send rate limiter") },
	}

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
		Enable:     envBool("SECURITY_HEADERS_ENABLE", true),
		EnableHSTS: envBool("SECURITY_HSTS_ENABLE", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("HTTP_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{redis: redisClient, transports: len(transports)},
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/auth", func(a chi.Router) {
		a.With(loginLimit.Middleware).Post("/login", authHandler.Login)
	})

	r.Route("/users", func(u chi.Router) {
		u.Post("/signup", userHandler.Signup)
		u.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			protected.With(auth.RequireRole(string(user.RoleAdmin))).Get("/", userHandler.List)
			protected.Get("/{id}", userHandler.Get)
			protected.Patch("/{id}", userHandler.Update)
			protected.Delete("/{id}", userHandler.Delete)
		})
	})

	r.Route("/mailer", func(m chi.Router) {
		m.Use(authMiddleware.RequireAuth)
		m.With(sendLimit.Middleware).Post("/send-email", mailHandler.SendEmail)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

// seedAdmin provisions an initial admin account when the environment supplies
// credentials, so a fresh in-memory directory is usable immediately.
func seedAdmin(logger zerolog.Logger, svc *user.Service) {
	email := strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	profile, err := svc.Create(context.Background(), user.CreateParams{
		FirstName: envOrDefault("ADMIN_FIRST_NAME", "Admin"),
		LastName:  envOrDefault("ADMIN_LAST_NAME", "User"),
		Email:     email,
		Password:  password,
		Role:      user.RoleAdmin,
	})
	if err != nil {
		logger.Error().Err(err).Msg("seed admin account")
		return
	}
	logger.Info().Int64("user_id", profile.ID).Str("email", profile.Email).Msg("seeded admin account")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func smtpConfig(s config.SMTP) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		UseTLS:   s.UseTLS,
	}
}

func newLimiter(redisClient *redis.Client, prefix string, window time.Duration, max int) ratelimit.Limiter {
	if redisClient != nil {
		return ratelimit.RedisLimiter{Client: redisClient, Prefix: prefix, Window: window, Max: max}
	}
	return ratelimit.NewMemoryLimiter(window, max)
}

type readinessChecker struct {
	redis      *redis.Client
	transports int
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) TransportCount() int { return c.transports }

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
