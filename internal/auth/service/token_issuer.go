package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/seonho/rest-security-jwt/internal/common/clock"
	commoncrypto "github.com/seonho/rest-security-jwt/internal/common/crypto"
)

// TokenIssuer signs and verifies access tokens. It holds no state beyond the
// secret and TTL, so issuance and verification are pure given the clock.
type TokenIssuer struct {
	jwtSecret      []byte
	idGenerator    commoncrypto.IDGenerator
	clock          clock.Clock
	accessTokenTTL time.Duration
}

func NewTokenIssuer(
	jwtSecret string,
	idGenerator commoncrypto.IDGenerator,
	accessTokenTTL time.Duration,
	clock clock.Clock,
) *TokenIssuer {
	return &TokenIssuer{
		jwtSecret:      []byte(jwtSecret),
		idGenerator:    idGenerator,
		clock:          clock,
		accessTokenTTL: accessTokenTTL,
	}
}

func (ti *TokenIssuer) IssueAccessToken(username string) (string, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return "", err
	}

	now := ti.clock.Now()
	expiresAt := now.Add(ti.accessTokenTTL)
	claims := jwt.MapClaims{
		"sub": username,
		"jti": jti,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.jwtSecret)
	if err != nil {
		return "", err
	}

	incrementAccessTokensIssued()
	return tokenString, nil
}

// VerifyAccessToken returns the subject of a valid token. Expired tokens with
// a good signature report ErrAccessTokenExpired; everything else is
// ErrInvalidAccessToken.
func (ti *TokenIssuer) VerifyAccessToken(tokenString string) (string, error) {
	incrementJWTValidations()

	parsed, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return ti.jwtSecret, nil
		},
		jwt.WithTimeFunc(ti.clock.Now),
	)
	if err != nil {
		incrementJWTValidationsFailed()
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrAccessTokenExpired
		}
		return "", ErrInvalidAccessToken.WithCause(err)
	}
	if !parsed.Valid {
		incrementJWTValidationsFailed()
		return "", ErrInvalidAccessToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		incrementJWTValidationsFailed()
		return "", ErrInvalidAccessToken
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		incrementJWTValidationsFailed()
		return "", ErrInvalidAccessToken
	}

	return sub, nil
}
