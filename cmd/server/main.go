package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/device"
	authhandler "github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/handler"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/oauth"
	authservice "github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/service"
	refreshtoken "github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/store/refresh-token"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/store/session"
	identityhandler "github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/handler"
	identityservice "github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/service"
	identitystore "github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/store"
	jwttoken "github.com/sangcheol-games/sangcheol-odyssey-api/internal/jwt_token"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/config"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/httpserver"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/logger"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/metrics"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/middleware"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/postgres"
	platformredis "github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/redis"
	httptransport "github.com/sangcheol-games/sangcheol-odyssey-api/internal/transport/http"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit/publisher"
	auditkafka "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit/store/kafka"
	auditmemory "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/audit/store/memory"
)

type infraBundle struct {
	Log     *slog.Logger
	Metrics *metrics.Metrics
	Reg     *prometheus.Registry
	DB      *sql.DB
	Redis   *platformredis.Client
	Auditor *publisher.Publisher
	closers []func()
}

func (i *infraBundle) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

type serviceBundle struct {
	Auth     *authservice.Service
	Identity *identityservice.Service
	JWT      *jwttoken.JWTService
}

// main wires dependencies, serves HTTP and shuts down on SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := buildInfra(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize infrastructure", "error", err)
		os.Exit(1)
	}
	defer infra.Close()

	svcs := buildServices(cfg, infra)

	proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Stop()

	validator := jwttoken.NewJWTServiceAdapter(svcs.JWT)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        infra.Metrics,
		Gatherer:       infra.Reg,
		APIPrefix:      cfg.Server.APIPrefix,
		TrustedProxies: proxies,
		Checks: map[string]httptransport.HealthCheck{
			"postgres": infra.DB.PingContext,
			"redis":    infra.Redis.Health,
		},
		Handlers: []httptransport.Registrar{
			authhandler.New(svcs.Auth, log, validator, limiter),
			identityhandler.New(svcs.Identity, log, validator),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr, "env", cfg.EnvPrefix())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infraBundle, error) {
	infra := &infraBundle{Log: log, Reg: prometheus.NewRegistry()}
	infra.Reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	infra.Metrics = metrics.NewWithRegistry(infra.Reg)

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	infra.DB = db
	infra.closers = append(infra.closers, func() { _ = db.Close() })
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			infra.Close()
			return nil, err
		}
		log.Info("database migrated")
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Redis = rdb
	infra.closers = append(infra.closers, func() { _ = rdb.Close() })

	auditor, err := buildAuditor(ctx, cfg.Audit, log, infra)
	if err != nil {
		infra.Close()
		return nil, err
	}
	infra.Auditor = auditor
	infra.closers = append(infra.closers, auditor.Close)
	return infra, nil
}

// buildAuditor ships audit events to Kafka when brokers are configured and
// keeps them in memory otherwise.
func buildAuditor(ctx context.Context, cfg config.AuditConfig, log *slog.Logger, infra *infraBundle) (*publisher.Publisher, error) {
	opts := []publisher.Option{publisher.WithAsyncBuffer(cfg.BufferSize), publisher.WithLogger(log)}
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("audit events kept in memory")
		return publisher.NewPublisher(auditmemory.NewInMemoryStore(), opts...), nil
	}
	store, closeFn, err := auditkafka.Dial(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	infra.closers = append(infra.closers, closeFn)
	log.Info("audit events published to kafka", "topic", cfg.KafkaTopic)
	return publisher.NewPublisher(store, opts...), nil
}

func buildServices(cfg config.Config, infra *infraBundle) *serviceBundle {
	keys := platformredis.NewKeyspace(cfg.EnvPrefix())

	users := identitystore.NewPostgres(infra.DB)
	identity := identityservice.New(users, identitystore.NewPostgresTxRunner(infra.DB),
		identityservice.WithLogger(infra.Log),
		identityservice.WithMetrics(infra.Metrics),
		identityservice.WithAuditor(infra.Auditor),
	)

	jwtSvc := jwttoken.NewJWTService(cfg.Tokens.JWTSecret, cfg.Tokens.Issuer, cfg.AccessTokenTTL())
	refresh := refreshtoken.NewRedis(infra.Redis.Client, cfg.RefreshPepper(), cfg.RefreshTokenTTL(),
		refreshtoken.WithKeyspace(keys),
		refreshtoken.WithKeyPrefixes(cfg.Tokens.RefreshPrefix, cfg.Tokens.RefreshUserPrefix),
		refreshtoken.WithMetrics(infra.Metrics),
	)
	sessions := session.NewRedis(infra.Redis.Client,
		session.WithKeyspace(keys),
		session.WithTTLs(cfg.Session.TTL, cfg.Session.ReadyTTL, cfg.Session.ErrorTTL),
	)

	google := oauth.NewGoogleClient(cfg.Google, oauth.NewKeyCache(cfg.Google.JWKSURL,
		oauth.WithKeyCacheTTL(cfg.Google.JWKSCacheTTL),
		oauth.WithKeyCacheMetrics(infra.Metrics),
	))

	auth := authservice.New(identity, jwtSvc, refresh, sessions, google,
		authservice.WithLogger(infra.Log),
		authservice.WithMetrics(infra.Metrics),
		authservice.WithAuditor(infra.Auditor),
		authservice.WithDeviceService(device.NewService(true)),
	)
	return &serviceBundle{Auth: auth, Identity: identity, JWT: jwtSvc}
}
