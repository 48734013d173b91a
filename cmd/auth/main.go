package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcleanup "github.com/seonho/rest-security-jwt/internal/auth/cleanup"
	authhttp "github.com/seonho/rest-security-jwt/internal/auth/http"
	authrepo "github.com/seonho/rest-security-jwt/internal/auth/repository"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
	"github.com/seonho/rest-security-jwt/internal/common/config"
	commoncrypto "github.com/seonho/rest-security-jwt/internal/common/crypto"
	"github.com/seonho/rest-security-jwt/internal/common/db"
	commonhttp "github.com/seonho/rest-security-jwt/internal/common/http"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
	"github.com/seonho/rest-security-jwt/internal/common/resilience"
	srv "github.com/seonho/rest-security-jwt/internal/common/server"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_DIR"), "auth", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool := db.NewPool(log, cfg.DatabaseURL)
	defer pool.Close()

	userRepo := authrepo.NewPgUserRepository(pool)
	roleRepo := authrepo.NewPgRoleRepository(pool)
	refreshTokenRepo := authrepo.NewPgRefreshTokenRepository(pool)

	hasher := &commoncrypto.BcryptHasher{}
	idGenerator := &commoncrypto.UUIDGenerator{}
	realClock := clock.NewRealClock()

	dbCircuitBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		Timeout:    cfg.CircuitBreakerTimeout,
		ResetAfter: cfg.CircuitBreakerReset,
		Name:       "database",
		Logger:     log,
	})

	credentials := service.NewCredentialService(userRepo, roleRepo, hasher, idGenerator, realClock, log)
	tokenIssuer := service.NewTokenIssuer(cfg.JWTSecret, idGenerator, cfg.AccessTokenTTL, realClock)
	refreshTokens := service.NewRefreshTokenManager(refreshTokenRepo, dbCircuitBreaker, idGenerator, cfg.RefreshTokenTTL, realClock, log)
	authService := service.NewAuthService(credentials, tokenIssuer, refreshTokens, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go authcleanup.StartRefreshTokenCleanup(ctx, refreshTokenRepo, log)

	translator := commonhttp.NewTranslator(log)
	handler := authhttp.NewHandler(authService, translator, cfg.RequestTimeout, log)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	rateLimiter := commonhttp.NewStrictRateLimiter()
	baseHandler := commonhttp.BuildBaseHandler("auth", log, mux)

	rateLimitMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			rateLimiter.MiddlewareForPath(path)(next).ServeHTTP(w, r)
		})
	}

	finalHandler := rateLimitMiddleware(baseHandler)

	serverConfig := srv.DefaultServerConfig(cfg.HTTPPort)
	server := srv.NewServer(serverConfig, finalHandler)

	shutdownHooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("auth service: stopping cleanup goroutine")
			cancel()
			return nil
		},
	}

	srv.StartWithGracefulShutdownAndHooks(server, log, "auth", shutdownHooks)
}
