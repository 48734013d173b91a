package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	authdomain "github.com/seonho/rest-security-jwt/internal/auth/domain"
	authrepo "github.com/seonho/rest-security-jwt/internal/auth/repository"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
)

func signInUser(mocks *authServiceMocks) authdomain.User {
	return authdomain.User{
		ID:           "user-123",
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashed_password123",
		Roles:        []authdomain.Role{{ID: 1, Name: authdomain.RoleUser}},
		CreatedAt:    mocks.clock.Now(),
	}
}

func TestAuthService_SignIn_Success(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.findByUsernameFunc = func(ctx context.Context, username string) (authdomain.User, error) {
		if username != "testuser" {
			t.Errorf("expected username testuser, got %s", username)
		}
		return signInUser(mocks), nil
	}

	mocks.hasher.compareFunc = func(hash string, password string) error {
		if hash != "hashed_password123" || password != "password123" {
			return errors.New("password mismatch")
		}
		return nil
	}

	result, err := svc.SignIn(context.Background(), "testuser", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.AccessToken == "" {
		t.Error("expected access token to be set")
	}

	if result.RefreshToken == "" {
		t.Error("expected refresh token to be set")
	}

	if result.UserID != "user-123" || result.Email != "test@example.com" {
		t.Errorf("unexpected principal data: %+v", result)
	}

	if mocks.refreshTokenRepo.count() != 1 {
		t.Errorf("expected exactly one refresh token row, got %d", mocks.refreshTokenRepo.count())
	}
}

func TestAuthService_SignIn_UserNotFound(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.findByUsernameFunc = func(ctx context.Context, username string) (authdomain.User, error) {
		return authdomain.User{}, authrepo.ErrUserNotFound
	}

	_, err := svc.SignIn(context.Background(), "nobody", "password123")
	if !errors.Is(err, service.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestAuthService_SignIn_WrongPassword(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.findByUsernameFunc = func(ctx context.Context, username string) (authdomain.User, error) {
		return signInUser(mocks), nil
	}

	mocks.hasher.compareFunc = func(hash string, password string) error {
		return errors.New("password mismatch")
	}

	_, err := svc.SignIn(context.Background(), "testuser", "wrong")
	if !errors.Is(err, service.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}

	if mocks.refreshTokenRepo.count() != 0 {
		t.Error("expected no refresh token row after failed signin")
	}
}

func TestAuthService_SignIn_ReplacesPreviousRefreshToken(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.findByUsernameFunc = func(ctx context.Context, username string) (authdomain.User, error) {
		return signInUser(mocks), nil
	}

	first, err := svc.SignIn(context.Background(), "testuser", "password123")
	if err != nil {
		t.Fatalf("first signin failed: %v", err)
	}

	second, err := svc.SignIn(context.Background(), "testuser", "password123")
	if err != nil {
		t.Fatalf("second signin failed: %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Error("expected a fresh refresh token value on second signin")
	}

	if mocks.refreshTokenRepo.count() != 1 {
		t.Errorf("expected exactly one refresh token row after repeated signin, got %d", mocks.refreshTokenRepo.count())
	}

	stored, err := mocks.refreshTokenRepo.FindByTokenHash(context.Background(), service.HashRefreshToken(second.RefreshToken))
	if err != nil {
		t.Fatalf("expected second token in store: %v", err)
	}
	if stored.UserID != "user-123" {
		t.Errorf("unexpected user id on stored token: %s", stored.UserID)
	}

	if _, err := mocks.refreshTokenRepo.FindByTokenHash(context.Background(), service.HashRefreshToken(first.RefreshToken)); !errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
		t.Error("expected first refresh token to be gone after rotation")
	}
}

func TestAuthService_SignIn_ConcurrentLeavesSingleRow(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.findByUsernameFunc = func(ctx context.Context, username string) (authdomain.User, error) {
		return signInUser(mocks), nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SignIn(context.Background(), "testuser", "password123"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent signin failed: %v", err)
	}

	if mocks.refreshTokenRepo.count() != 1 {
		t.Errorf("expected exactly one refresh token row after concurrent signins, got %d", mocks.refreshTokenRepo.count())
	}
}
