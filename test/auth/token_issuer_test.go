package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/seonho/rest-security-jwt/internal/auth/service"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
)

func setupTokenIssuer(ttl time.Duration) (*service.TokenIssuer, *clock.MockClock) {
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	issuer := service.NewTokenIssuer(testJWTSecret, &mockIDGenerator{}, ttl, mockClock)
	return issuer, mockClock
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, _ := setupTokenIssuer(30 * time.Minute)

	token, err := issuer.IssueAccessToken("testuser")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	username, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if username != "testuser" {
		t.Errorf("expected subject testuser, got %s", username)
	}
}

func TestTokenIssuer_ValidJustBeforeExpiry(t *testing.T) {
	issuer, mockClock := setupTokenIssuer(30 * time.Minute)

	token, err := issuer.IssueAccessToken("testuser")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	mockClock.Advance(30*time.Minute - time.Second)

	if _, err := issuer.VerifyAccessToken(token); err != nil {
		t.Fatalf("expected token still valid before TTL elapsed, got %v", err)
	}
}

func TestTokenIssuer_ExpiredAfterTTL(t *testing.T) {
	issuer, mockClock := setupTokenIssuer(30 * time.Minute)

	token, err := issuer.IssueAccessToken("testuser")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	mockClock.Advance(30*time.Minute + time.Second)

	_, err = issuer.VerifyAccessToken(token)
	if !errors.Is(err, service.ErrAccessTokenExpired) {
		t.Fatalf("expected ErrAccessTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	issuer, _ := setupTokenIssuer(30 * time.Minute)

	otherIssuer := service.NewTokenIssuer(
		"another-secret-key-of-sufficient-length",
		&mockIDGenerator{},
		30*time.Minute,
		clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
	)

	token, err := otherIssuer.IssueAccessToken("testuser")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = issuer.VerifyAccessToken(token)
	if !errors.Is(err, service.ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer, _ := setupTokenIssuer(30 * time.Minute)

	_, err := issuer.VerifyAccessToken("not-a-jwt")
	if !errors.Is(err, service.ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}
