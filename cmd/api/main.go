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
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-bazuuyu/internal/auth"
	"github.com/noah-isme/backend-bazuuyu/internal/cart"
	"github.com/noah-isme/backend-bazuuyu/internal/catalog"
	"github.com/noah-isme/backend-bazuuyu/internal/checkout"
	"github.com/noah-isme/backend-bazuuyu/internal/common"
	"github.com/noah-isme/backend-bazuuyu/internal/config"
	"github.com/noah-isme/backend-bazuuyu/internal/events"
	"github.com/noah-isme/backend-bazuuyu/internal/health"
	"github.com/noah-isme/backend-bazuuyu/internal/newsletter"
	"github.com/noah-isme/backend-bazuuyu/internal/notify"
	"github.com/noah-isme/backend-bazuuyu/internal/obs"
	"github.com/noah-isme/backend-bazuuyu/internal/order"
	"github.com/noah-isme/backend-bazuuyu/internal/ratelimit"
	"github.com/noah-isme/backend-bazuuyu/internal/user"
	"github.com/noah-isme/backend-bazuuyu/internal/vnpay"
	"github.com/noah-isme/backend-bazuuyu/internal/wishlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "bazuuyu")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "bazuuyu-api",
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

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "bazuuyu-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

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

	taskRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse task queue redis uri")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	enqueuer := &notify.Enqueuer{Client: taskClient}

	mailSender := common.SMTPEmail{
		Addr: cfg.SMTPAddr,
		From: cfg.SMTPFrom,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
	}

	bus := events.NewBus(&events.PGStore{Pool: pool}, logger, notify.NewEmailNotifier(enqueuer, logger))

	authSvc, err := auth.NewService(auth.Config{
		Store:           &auth.PGStore{Pool: pool},
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		ResetTokenTTL:   cfg.PasswordResetTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Svc:     authSvc,
		Sender:  mailSender,
		BaseURL: envOrDefault("PUBLIC_BASE_URL", "http://localhost:"+strings.TrimPrefix(cfg.HTTPAddr(), ":")),
	}
	authMW := auth.Middleware{Service: authSvc}

	catalogStore := &catalog.Store{Pool: pool}
	catalogSvc := &catalog.Service{
		Repo:   catalogStore,
		Cache:  catalog.NewCache(redisClient, envDuration("CATALOG_CACHE_TTL", 5*time.Minute)),
		Logger: logger,
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}
	catalogAdmin := &catalog.AdminHandler{Svc: catalogSvc}

	cartStore := &cart.Store{Pool: pool}
	cartSvc := &cart.Service{Catalog: catalogStore, Repo: cartStore}
	cartHandler := &cart.Handler{Svc: cartSvc}

	wishlistHandler := &wishlist.Handler{
		Repo:    &wishlist.Store{Pool: pool},
		Catalog: catalogStore,
	}

	orderStore := &order.Store{Pool: pool}
	orderSvc := order.NewService(orderStore, bus, logger)
	orderHandler := &order.Handler{Svc: orderSvc}
	orderAdmin := &order.AdminHandler{Svc: orderSvc, Statuses: orderStore}

	userStore := &user.Store{Pool: pool}
	userHandler := &user.Handler{Repo: userStore}

	checkoutSvc := &checkout.Service{
		Pool:     pool,
		Carts:    cartStore,
		Products: catalogStore,
		Orders:   orderStore,
		OrderSvc: orderSvc,
		Events:   bus,
		Currency: envOrDefault("CURRENCY_CODE", "VND"),
		Logger:   logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Users: userStore}

	gateway, err := vnpay.New(vnpay.Config{
		PayURL:     cfg.VNPayPayURL,
		ReturnURL:  cfg.VNPayReturnURL,
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		IntentTTL:  cfg.VNPayIntentTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise payment gateway")
	}
	paymentHandler := &vnpay.Handler{
		Client:    gateway,
		Orders:    orderSvc,
		Redis:     redisClient,
		Logger:    logger,
		ReplayTTL: cfg.CallbackReplayTTL,
	}

	newsStore := &newsletter.Store{Pool: pool}
	newsSvc := &newsletter.Service{
		Repo:    newsStore,
		Queue:   enqueuer,
		BaseURL: authHandler.BaseURL,
		Logger:  logger,
	}
	newsHandler := &newsletter.Handler{Svc: newsSvc}
	newsAdmin := &newsletter.AdminHandler{Queue: enqueuer}

	limiterStore, err := ratelimit.NewStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}
	loginLimit := ratelimit.Middleware{
		Limiter: ratelimit.PerMinute(limiterStore, cfg.LoginRatePerMinute),
		Logger:  logger,
	}
	paymentLimit := ratelimit.Middleware{
		Limiter: ratelimit.PerMinute(limiterStore, cfg.PaymentRatePerMinute),
		Logger:  logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Cart-Token"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDuration("HEALTH_READY_DB_TIMEOUT", 500*time.Millisecond),
		RedisTimeout: envDuration("HEALTH_READY_REDIS_TIMEOUT", 300*time.Millisecond),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/products", catalogHandler.Routes)
		v.Route("/newsletter", newsHandler.Routes)

		v.Route("/auth", func(a chi.Router) {
			authHandler.Routes(a, loginLimit.Handler)
			a.With(authMW.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Use(authMW.Authenticate)
			cartHandler.Routes(c)
		})

		v.Route("/wishlist", func(wl chi.Router) {
			wl.Use(authMW.RequireAuth)
			wishlistHandler.Routes(wl)
		})

		v.Route("/users/me", func(u chi.Router) {
			u.Use(authMW.RequireAuth)
			userHandler.Routes(u)
		})

		v.With(authMW.RequireAuth, idem.Middleware).Post("/checkout", checkoutHandler.Create)

		v.Route("/orders", func(o chi.Router) {
			o.Use(authMW.RequireAuth)
			orderHandler.Routes(o)
		})

		v.Route("/payments/vnpay", func(p chi.Router) {
			paymentHandler.Routes(p)
			p.With(authMW.RequireAuth, paymentLimit.Handler, idem.Middleware).
				Post("/", paymentHandler.CreatePayment)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMW.RequireAuth)
			admin.Use(authMW.RequireRole(auth.RoleAdmin))
			admin.Route("/products", catalogAdmin.Routes)
			admin.Route("/orders", orderAdmin.Routes)
			admin.Post("/newsletter/broadcast", newsAdmin.Broadcast)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
