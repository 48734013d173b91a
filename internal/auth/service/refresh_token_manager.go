package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	authrepo "github.com/seonho/rest-security-jwt/internal/auth/repository"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
	"github.com/seonho/rest-security-jwt/internal/common/constants"
	commoncrypto "github.com/seonho/rest-security-jwt/internal/common/crypto"
	commonerrors "github.com/seonho/rest-security-jwt/internal/common/errors"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
	"github.com/seonho/rest-security-jwt/internal/common/resilience"
)

// RefreshTokenManager owns the refresh-token lifecycle. Invariant: at most one
// live token per user, enforced by the store's atomic replace. Writes go
// through the database circuit breaker so a struggling store sheds load
// instead of stacking up timed-out transactions.
type RefreshTokenManager struct {
	refreshTokenRepo authrepo.RefreshTokenRepository
	dbCircuitBreaker resilience.CircuitBreakerInterface
	idGenerator      commoncrypto.IDGenerator
	clock            clock.Clock
	refreshTokenTTL  time.Duration
	log              *logger.Logger
}

func NewRefreshTokenManager(
	refreshTokenRepo authrepo.RefreshTokenRepository,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	idGenerator commoncrypto.IDGenerator,
	refreshTokenTTL time.Duration,
	clock clock.Clock,
	log *logger.Logger,
) *RefreshTokenManager {
	return &RefreshTokenManager{
		refreshTokenRepo: refreshTokenRepo,
		dbCircuitBreaker: dbCircuitBreaker,
		idGenerator:      idGenerator,
		clock:            clock,
		refreshTokenTTL:  refreshTokenTTL,
		log:              log,
	}
}

// Issue creates a fresh opaque token for the user, atomically replacing any
// prior one. There is no window with two live tokens, and no window with none
// observed mid-replacement.
func (m *RefreshTokenManager) Issue(ctx context.Context, userID string) (domain.RefreshToken, error) {
	rawToken, err := GenerateRefreshToken()
	if err != nil {
		return domain.RefreshToken{}, err
	}

	hash := HashRefreshToken(rawToken)

	id, err := m.idGenerator.NewID()
	if err != nil {
		return domain.RefreshToken{}, err
	}

	now := m.clock.Now()
	stored := domain.RefreshToken{
		ID:        id,
		TokenHash: hash,
		UserID:    userID,
		ExpiresAt: now.Add(m.refreshTokenTTL),
		CreatedAt: now,
	}

	err = m.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return m.refreshTokenRepo.ReplaceForUser(ctx, stored)
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrCircuitOpen) {
			m.log.WithFields(ctx, logger.Fields{
				"user_id": userID,
				"action":  "issue_refresh_token_db_circuit_open",
			}).Error("failed to issue refresh token: database circuit breaker is open")
			return domain.RefreshToken{}, err
		}
		m.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "issue_refresh_token_failed",
		}).Errorf("failed to issue refresh token: %v", err)
		return domain.RefreshToken{}, err
	}

	incrementRefreshTokensIssued()

	stored.RawToken = rawToken
	return stored, nil
}

// Rotate replaces the user's refresh token unconditionally on sign-in. A prior
// token is never inspected first: expired or live, it is gone after the
// replacement either way.
func (m *RefreshTokenManager) Rotate(ctx context.Context, userID string) (domain.RefreshToken, error) {
	token, err := m.Issue(ctx, userID)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	m.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  "refresh_token_rotated",
	}).Info("refresh token rotated")

	return token, nil
}

// FindByToken resolves a raw token value to its stored record.
func (m *RefreshTokenManager) FindByToken(ctx context.Context, rawToken string) (domain.RefreshToken, error) {
	stored, err := m.refreshTokenRepo.FindByTokenHash(ctx, HashRefreshToken(rawToken))
	if err != nil {
		if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
			return domain.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return domain.RefreshToken{}, err
	}
	return stored, nil
}

// VerifyNotExpired checks the token's expiry against the clock. The token is
// still valid at the exact expiry instant; only a strictly later clock expires
// it. An expired token is deleted from the store before the error is
// returned, so it is never retrievable again.
func (m *RefreshTokenManager) VerifyNotExpired(ctx context.Context, token domain.RefreshToken) (domain.RefreshToken, error) {
	if !token.ExpiresAt.Before(m.clock.Now()) {
		return token, nil
	}

	incrementRefreshTokensExpired()

	err := m.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return m.refreshTokenRepo.DeleteByTokenHash(ctx, token.TokenHash)
	})
	if err != nil {
		m.log.WithFields(ctx, logger.Fields{
			"user_id": token.UserID,
			"action":  "delete_expired_refresh_token_failed",
		}).Errorf("failed to delete expired refresh token: %v", err)
		return domain.RefreshToken{}, err
	}

	m.log.WithFields(ctx, logger.Fields{
		"user_id": token.UserID,
		"action":  "refresh_token_expired",
	}).Warn("refresh token expired")

	return domain.RefreshToken{}, ErrRefreshTokenExpired
}

// Revoke deletes the user's refresh token. Deleting nothing is not an error.
func (m *RefreshTokenManager) Revoke(ctx context.Context, userID string) error {
	var deleted int64
	err := m.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		deleted, callErr = m.refreshTokenRepo.DeleteByUserID(ctx, userID)
		return callErr
	})
	if err != nil {
		m.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "revoke_refresh_token_failed",
		}).Errorf("failed to revoke refresh token: %v", err)
		return err
	}

	if deleted > 0 {
		incrementRefreshTokensRevoked()
		m.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "refresh_token_revoked",
		}).Info("refresh token revoked")
	}

	return nil
}

func GenerateRefreshToken() (string, error) {
	b := make([]byte, constants.RefreshTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
