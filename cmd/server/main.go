package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	auditrepo "skald/backend/internal/audit/repository"
	authservice "skald/backend/internal/auth/service"
	"skald/backend/internal/config"
	"skald/backend/internal/db"
	knowledgerepo "skald/backend/internal/knowledge/repository"
	knowledgeservice "skald/backend/internal/knowledge/service"
	membershiprepo "skald/backend/internal/membership/repository"
	"skald/backend/internal/platform/rbac"
	productrepo "skald/backend/internal/product/repository"
	"skald/backend/internal/security"
	"skald/backend/internal/server"
	"skald/backend/internal/telemetry/otel"
	userrepo "skald/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "skald-api", cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("jwt private key", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt public key", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	users := userrepo.NewPostgresRepository(conn)
	products := productrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	audit := auditrepo.NewPostgresRepository(conn)
	knowledge := knowledgerepo.NewPostgresRepository(conn)

	router := server.NewRouter(server.Deps{
		Logger:       logger,
		Tracer:       providers.TracerProvider.Tracer("skald/backend/internal/server"),
		Tokens:       tokens,
		Gate:         rbac.NewGate(products, memberships),
		Auth:         authservice.NewService(users, security.NewHasher(cfg.BcryptCost), tokens),
		Knowledge:    knowledgeservice.NewService(knowledge),
		Users:        users,
		Products:     products,
		Memberships:  memberships,
		Audit:        audit,
		HealthPinger: conn,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Env == "development" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}
