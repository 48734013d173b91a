package constants

import "time"

const (
	UsernameMinLength  = 3
	UsernameMaxLength  = 20
	EmailMaxLength     = 50
	PasswordMinLength  = 6
	PasswordMaxLength  = 40
	JWTSecretMinLength = 32
	RefreshTokenSize   = 32

	DefaultMaxRequestSize = 1 << 20

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultAuthHTTPPort       = "8081"
	DefaultAuthRequestTimeout = 30 * time.Second
	DefaultAccessTokenTTL     = 30 * time.Minute
	DefaultRefreshTokenTTLMin = 7 * 24 * 60

	RefreshTokenCleanupInterval = time.Hour

	DefaultCircuitBreakerThreshold  = 5
	DefaultCircuitBreakerTimeout    = 5 * time.Second
	DefaultCircuitBreakerResetAfter = 30 * time.Second

	RateLimitCleanupInterval = 10 * time.Minute

	RateLimitSigninRequestsPerSecond      = 1.0
	RateLimitSigninBurst                  = 5
	RateLimitSignupRequestsPerSecond      = 0.5
	RateLimitSignupBurst                  = 3
	RateLimitAccessTokenRequestsPerSecond = 2.0
	RateLimitAccessTokenBurst             = 10
	RateLimitSignoutRequestsPerSecond     = 1.0
	RateLimitSignoutBurst                 = 5
	RateLimitGeneralRequestsPerSecond     = 10.0
	RateLimitGeneralBurst                 = 20

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
