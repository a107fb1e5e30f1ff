package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	otellog "go.opentelemetry.io/otel/log"

	"prepmaster/backend/internal/access"
	adminservice "prepmaster/backend/internal/admin/service"
	"prepmaster/backend/internal/audit"
	auditrepo "prepmaster/backend/internal/audit/repository"
	"prepmaster/backend/internal/config"
	"prepmaster/backend/internal/db"
	"prepmaster/backend/internal/devotp"
	"prepmaster/backend/internal/email"
	healthhandler "prepmaster/backend/internal/health/handler"
	"prepmaster/backend/internal/identity/domain"
	identityrepo "prepmaster/backend/internal/identity/repository"
	identityservice "prepmaster/backend/internal/identity/service"
	"prepmaster/backend/internal/observability"
	"prepmaster/backend/internal/otp"
	questionrepo "prepmaster/backend/internal/question/repository"
	questionservice "prepmaster/backend/internal/question/service"
	"prepmaster/backend/internal/security"
	"prepmaster/backend/internal/server"
	"prepmaster/backend/internal/server/middleware"
)

// app is the wired process: router dependencies plus the connections to close on exit.
type app struct {
	deps    server.Deps
	storage string
	closers []namedCloser
	log     logrus.FieldLogger
}

type namedCloser struct {
	name  string
	close func() error
}

// Close releases connections in reverse order of opening. Failures are logged.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil && a.log != nil {
			a.log.WithError(err).WithField("resource", c.name).Warn("close failed")
		}
	}
}

// build wires stores, services and router dependencies. events receives audit
// events as OTel log records; nil disables export.
func build(ctx context.Context, cfg *config.Config, log *logrus.Logger, events otellog.LoggerProvider) (*app, error) {
	a := &app{storage: "memory", log: log}

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	var (
		pinger     healthhandler.Pinger
		identities identityrepo.Repository = identityrepo.NewMemoryRepository(nil)
		questions  questionrepo.Repository = questionrepo.NewMemoryRepository()
		auditLogs  auditrepo.Repository    = auditrepo.NewMemoryRepository()
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, namedCloser{"postgres", conn.Close})
		identities = identityrepo.NewPostgresRepository(conn)
		questions = questionrepo.NewPostgresRepository(conn)
		auditLogs = auditrepo.NewPostgresRepository(conn)
		pinger = conn
		a.storage = "postgres"
	} else {
		log.Warn("DATABASE_URL is empty; using in-memory stores, data is lost on restart")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable at startup; rate limiting fails open until it recovers")
		}
		a.closers = append(a.closers, namedCloser{"redis", rdb.Close})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	var devStore devotp.Store
	if cfg.OTPReturnToClient && !cfg.IsProduction() {
		if rdb != nil {
			devStore = devotp.NewRedisStore(rdb, log)
		} else {
			devStore = devotp.NewMemoryStore(nil)
		}
		log.Warn("dev OTP mode enabled: issued codes are readable at GET /dev/otp")
	}

	var mailer email.Sender = email.LogSender{Log: log}
	if cfg.SMTPHost != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort, Username: cfg.SMTPUsername, Password: cfg.SMTPPassword, From: cfg.SMTPFrom,
		})
	}

	tokens := security.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL(), nil)
	auditLogger := audit.NewLogger(auditLogs, middleware.ClientIPFrom, log).WithEventExport(events)

	auth := identityservice.NewAuthService(identityservice.Deps{
		Repo:            identities,
		Hasher:          security.NewHasher(cfg.BcryptCost),
		Tokens:          tokens,
		OTP:             otp.RandomGenerator{},
		Mailer:          mailer,
		DevOTP:          devStore,
		Audit:           auditLogger,
		Metrics:         metrics,
		Log:             log,
		Lockout:         domain.LockoutPolicy{Threshold: cfg.LockoutThreshold, Duration: cfg.LockDuration()},
		OTPTTL:          cfg.OTPLifetime(),
		VerificationTTL: cfg.VerificationLifetime(),
		BaseURL:         cfg.BaseURL,
	})

	a.deps = server.Deps{
		Auth:           auth,
		Questions:      questionservice.NewQuestionService(questions, nil),
		Admin:          adminservice.NewAdminService(identities, questions, auditLogs, auditLogger, log),
		Chain:          middleware.NewChain(access.NewAuthenticator(tokens, identities, nil), metrics, log),
		AuditLogger:    auditLogger,
		Metrics:        metrics,
		Registry:       registry,
		RateLimit:      rateLimiter(cfg, rdb, metrics, log),
		HealthPinger:   pinger,
		DevOTP:         devStore,
		TrustedProxies: proxies,
		Log:            log,
	}
	return a, nil
}

func rateLimiter(cfg *config.Config, rdb *redis.Client, metrics *observability.Metrics, log logrus.FieldLogger) func(http.Handler) http.Handler {
	if cfg.AuthRateLimit == 0 {
		return nil
	}
	if rdb != nil {
		return middleware.NewRedisLimiter(rdb, cfg.AuthRateLimit, cfg.RateWindow(), "").Handler(metrics, log)
	}
	return middleware.LocalRateLimit(cfg.AuthRateLimit, cfg.RateWindow(), metrics, log)
}
