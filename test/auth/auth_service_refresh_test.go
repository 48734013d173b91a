package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
)

func signInForRefresh(t *testing.T, svc *service.AuthService, mocks *authServiceMocks) service.SignInResult {
	t.Helper()

	mocks.userRepo.findByUsernameFunc = func(ctx context.Context, username string) (authdomain.User, error) {
		return signInUser(mocks), nil
	}
	mocks.userRepo.findByIDFunc = func(ctx context.Context, id authdomain.UserID) (authdomain.User, error) {
		return signInUser(mocks), nil
	}

	result, err := svc.SignIn(context.Background(), "testuser", "password123")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	return result
}

func TestAuthService_RefreshAccessToken_Success(t *testing.T) {
	svc, mocks := setupAuthService(t)
	signedIn := signInForRefresh(t, svc, mocks)

	mocks.clock.Advance(time.Hour)

	result, err := svc.RefreshAccessToken(context.Background(), signedIn.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if result.AccessToken == "" {
		t.Error("expected a new access token")
	}

	if result.RefreshToken != signedIn.RefreshToken {
		t.Error("expected the same refresh token value back")
	}

	if mocks.refreshTokenRepo.count() != 1 {
		t.Errorf("expected refresh row untouched, got %d rows", mocks.refreshTokenRepo.count())
	}
}

func TestAuthService_RefreshAccessToken_Empty(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.RefreshAccessToken(context.Background(), "")
	if !errors.Is(err, service.ErrRefreshTokenEmpty) {
		t.Fatalf("expected ErrRefreshTokenEmpty, got %v", err)
	}
}

func TestAuthService_RefreshAccessToken_Unknown(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.RefreshAccessToken(context.Background(), "never-issued-value")
	if !errors.Is(err, service.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}

func TestAuthService_RefreshAccessToken_Expired(t *testing.T) {
	svc, mocks := setupAuthService(t)
	signedIn := signInForRefresh(t, svc, mocks)

	mocks.clock.Advance(7*24*time.Hour + time.Minute)

	_, err := svc.RefreshAccessToken(context.Background(), signedIn.RefreshToken)
	if !errors.Is(err, service.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}

	if mocks.refreshTokenRepo.count() != 0 {
		t.Error("expected expired row to be deleted during refresh")
	}

	_, err = svc.RefreshAccessToken(context.Background(), signedIn.RefreshToken)
	if !errors.Is(err, service.ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound on second attempt, got %v", err)
	}
}

func TestAuthService_SignOut_RevokesToken(t *testing.T) {
	svc, mocks := setupAuthService(t)
	signedIn := signInForRefresh(t, svc, mocks)

	principal := authdomain.Principal{
		UserID:   authdomain.UserID(signedIn.UserID),
		Username: signedIn.Username,
		Email:    signedIn.Email,
		Roles:    signedIn.Roles,
	}

	if err := svc.SignOut(context.Background(), principal); err != nil {
		t.Fatalf("signout failed: %v", err)
	}

	if mocks.refreshTokenRepo.count() != 0 {
		t.Error("expected refresh token revoked on signout")
	}

	_, err := svc.RefreshAccessToken(context.Background(), signedIn.RefreshToken)
	if !errors.Is(err, service.ErrRefreshTokenNotFound) {
		t.Fatalf("expected refresh to fail after signout, got %v", err)
	}

	if err := svc.SignOut(context.Background(), principal); err != nil {
		t.Fatalf("second signout must not fail: %v", err)
	}
}

func TestAuthService_VerifyAccess(t *testing.T) {
	svc, mocks := setupAuthService(t)
	signedIn := signInForRefresh(t, svc, mocks)

	principal, err := svc.VerifyAccess(context.Background(), signedIn.AccessToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if principal.Username != "testuser" {
		t.Errorf("expected principal testuser, got %s", principal.Username)
	}

	if _, err := svc.VerifyAccess(context.Background(), "garbage"); !errors.Is(err, service.ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}
