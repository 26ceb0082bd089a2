package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"deeproof/internal/identity"
	"deeproof/internal/jwttoken"
	"deeproof/internal/kyc"
	kycmetrics "deeproof/internal/kyc/metrics"
	"deeproof/internal/platform/config"
	"deeproof/internal/platform/httpserver"
	"deeproof/internal/platform/logger"
	"deeproof/internal/platform/metrics"
	"deeproof/internal/platform/postgres"
	platformredis "deeproof/internal/platform/redis"
	httptransport "deeproof/internal/transport/http"
	"deeproof/internal/walletauth"
	"deeproof/pkg/platform/audit"
	auditpublisher "deeproof/pkg/platform/audit/publisher"
	auditmemory "deeproof/pkg/platform/audit/store/memory"
	auditpostgres "deeproof/pkg/platform/audit/store/postgres"
	auditworker "deeproof/pkg/platform/audit/worker"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transportMetrics := metrics.New()
	verificationMetrics := kycmetrics.New()

	var health []httptransport.HealthCheck

	// Stores: Postgres when configured, in-memory otherwise. The in-memory
	// mode is single-process only.
	var (
		identityStore identity.Store
		recordStore   kyc.Store
		txRunner      kyc.TxRunner
		auditStore    audit.Store
		auditOutbox   auditworker.Outbox
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			return
		}
		defer db.Close()

		identityStore = identity.NewPostgresStore(db)
		recordStore = kyc.NewPostgresStore(db)
		txRunner = kyc.NewPostgresTx(db, identityStore, recordStore)
		outbox := auditpostgres.New(db)
		auditStore = outbox
		auditOutbox = outbox
		health = append(health, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		identityStore = identity.NewInMemoryStore()
		recordStore = kyc.NewInMemoryStore()
		txRunner = kyc.NewInMemoryTx(identityStore, recordStore)
		auditStore = auditmemory.New()
	}

	// Redis backs the protocol check cache and sign-in challenges when
	// configured.
	var (
		checkCache kyc.CheckCache
		nonceStore walletauth.NonceStore
	)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return
	}
	if redisClient != nil {
		defer redisClient.Close()
		checkCache = kyc.NewRedisCheckCache(redisClient.Client, cfg.CheckCacheTTL)
		nonceStore = walletauth.NewRedisNonceStore(redisClient.Client)
		health = append(health, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
	} else {
		nonceStore = walletauth.NewInMemoryNonceStore()
	}

	kycService := kyc.NewService(txRunner, identityStore, recordStore, log,
		kyc.WithMetrics(verificationMetrics),
		kyc.WithAudit(auditStore),
		kyc.WithCheckCache(checkCache),
		kyc.WithValidityWindow(cfg.ProofValidityWindow),
		kyc.WithProcessingWindow(cfg.ProcessingWindow),
	)
	identityService := identity.NewService(identityStore, kycService, log, auditStore)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)
	authService := walletauth.NewService(nonceStore, jwtService, identityService, log,
		walletauth.WithAudit(auditStore),
		walletauth.WithChallengeTTL(cfg.ChallengeTTL),
		walletauth.WithTokenTTL(cfg.TokenTTL),
	)

	router := httptransport.NewRouter(log, transportMetrics, httptransport.Handlers{
		Auth:     httptransport.NewAuthHandler(authService, log),
		Identity: httptransport.NewIdentityHandler(identityService, log),
		Kyc:      httptransport.NewKycHandler(kycService, log, jwtValidator, cfg.AdminAPIKey),
		Protocol: httptransport.NewProtocolHandler(kycService, log),
	}, health...)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	// The audit trail drains to Kafka only when both the outbox and brokers
	// exist; otherwise events stay queryable in the outbox table.
	if auditOutbox != nil && len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := auditpublisher.NewKafka(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			return
		}
		defer kafkaPublisher.Close()

		auditDrain := auditworker.New(auditOutbox, kafkaPublisher, log)
		group.Go(func() error {
			return auditDrain.Run(groupCtx)
		})
	}

	group.Go(func() error {
		log.Info("starting deeproof server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
	}
}
