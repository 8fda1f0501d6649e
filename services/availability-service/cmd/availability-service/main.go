package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/cabook/libs/auth"
	"github.com/md-rashed-zaman/cabook/libs/config"
	"github.com/md-rashed-zaman/cabook/libs/db"
	"github.com/md-rashed-zaman/cabook/libs/httpx"
	"github.com/md-rashed-zaman/cabook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/cabook/libs/otel"
	"github.com/md-rashed-zaman/cabook/libs/runtime"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/appconfig"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/backend"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/grpcserver"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/planner"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/snapshot"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/storage"
)

const livePath = "/api/v1/public/slots/live"

func main() {
	_ = godotenv.Load()

	logger := runtime.NewLogger(config.String("SERVICE_NAME", "availability-service"), config.String("LOG_LEVEL", "info"))
	cfg, err := appconfig.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	m := metrics.New(nil)

	client, err := backend.New(backend.Options{
		BaseURL:    cfg.BackendURL,
		BusinessID: cfg.BusinessID,
		Timeout:    cfg.BackendTimeout,
		Location:   cfg.Location,
	})
	if err != nil {
		logger.Error("backend client init failed", "err", err)
		os.Exit(1)
	}

	var (
		settingsSrc snapshot.SettingsSource = client
		ledgerSrc   snapshot.LedgerSource   = client
		invalidator handlers.Invalidator    = noopInvalidator{}
		limiter     httpx.Limiter           = httpx.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
		checks      []runtime.ReadyCheck
	)

	if cfg.LedgerDatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.LedgerDatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns), ReadOnly: true})
		if err != nil {
			logger.Error("ledger db connection failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		ledgerSrc = storage.NewLedgerRepository(pool, cfg.BusinessID)
		checks = append(checks, runtime.ReadyCheck{Name: "ledger_db", Check: db.ReadyCheck(pool)})
		logger.Info("ledger served from database replica")
	}

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		store := cache.NewStore(rdb, cache.Options{
			BusinessID:  cfg.BusinessID,
			SettingsTTL: cfg.SettingsTTL,
			LedgerTTL:   cfg.LedgerTTL,
		}, logger, m)
		settingsSrc = store.Settings(settingsSrc)
		ledgerSrc = store.Ledger(ledgerSrc)
		invalidator = store
		limiter = httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "ratelimit:"+cfg.ServiceName)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: store.Ping, Optional: true})
	}

	loader := snapshot.NewLoader(settingsSrc, ledgerSrc, client, m)
	plan := planner.New(settingsSrc, client, loader, planner.Options{Location: cfg.Location}, logger, m)
	hub := handlers.NewLiveHub(plan, logger, m)

	if cfg.KafkaEnabled() {
		consumer := events.New(cfg.BusinessID, cfg.Location, invalidator, hub, logger, m)
		for _, topic := range events.Topics {
			reader := kafkax.NewReader(cfg.KafkaBrokers, cfg.KafkaGroupID, topic)
			go func() {
				if err := consumer.Run(ctx, reader); err != nil {
					logger.Error("event consumer stopped", "topic", topic, "err", err)
				}
			}()
		}
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers), Optional: true})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	public := handlers.NewPublicHandler(plan, logger)
	mux.HandleFunc("/api/v1/public/calendar", public.Calendar)
	mux.HandleFunc("/api/v1/public/slots", public.Slots)
	mux.HandleFunc("/api/v1/public/professionals", public.Professionals)
	mux.Handle(livePath, hub)
	mux.Handle("/metrics", m.Handler())

	if cfg.AdminEnabled() {
		verifier := auth.Verifier{Secret: cfg.JWTSecret}
		if cfg.JWKSURL != "" {
			verifier.JWKS = auth.NewJWKSClient(cfg.JWKSURL, 10*time.Minute)
		}
		admin := handlers.NewAdminHandler(cfg.BusinessID, plan, invalidator, hub, logger, m)
		mux.Handle("/api/v1/admin/cache/invalidate",
			auth.RequireAuth(verifier, auth.RequireRole(http.HandlerFunc(admin.Invalidate), "owner", "admin")))
	} else {
		logger.Warn("admin routes disabled; set JWT_SECRET or JWKS_URL to enable")
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSAllowedOrigins, MaxAge: 10 * time.Minute}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, func(info httpx.RequestInfo) {
			m.ObserveHTTP(info.Method, routeLabel(info.Path), info.Status, info.Duration)
		}),
		httpx.WithBodyLimit(int64(cfg.MaxBodyBytes)),
		httpx.WithTimeout(cfg.RequestTimeout, livePath),
		httpx.RateLimit(limiter, logger, true),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "business_id", cfg.BusinessID, "timezone", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	grpcDone := make(chan struct{})
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Error("grpc server failed to start", "err", err)
		close(grpcDone)
	} else {
		go func() {
			defer close(grpcDone)
			if err := grpcserver.New(logger).Serve(ctx, lis); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	<-grpcDone
	logger.Info("http server stopped")
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateDate(context.Context, string) error { return nil }
func (noopInvalidator) InvalidateSettings(context.Context) error     { return nil }

// routeLabel keeps the metrics path label bounded.
func routeLabel(path string) string {
	switch path {
	case "/api/v1/public/calendar", "/api/v1/public/slots", "/api/v1/public/professionals",
		livePath, "/api/v1/admin/cache/invalidate", "/healthz", "/readyz", "/metrics":
		return path
	default:
		return "other"
	}
}
