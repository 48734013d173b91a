package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/seonho/rest-security-jwt/internal/auth/domain"
	authrepo "github.com/seonho/rest-security-jwt/internal/auth/repository"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
	commonerrors "github.com/seonho/rest-security-jwt/internal/common/errors"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
)

func setupAuthService(t *testing.T) (*service.AuthService, *authServiceMocks) {
	_ = t
	mocks := &authServiceMocks{
		userRepo:         &mockUserRepo{},
		roleRepo:         &mockRoleRepo{},
		refreshTokenRepo: newMemoryRefreshTokenRepo(),
		hasher:           &mockHasher{},
		idGenerator:      &mockIDGenerator{},
		clock:            clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
	}

	log, _ := logger.New("", "test", "info")

	credentials := service.NewCredentialService(
		mocks.userRepo,
		mocks.roleRepo,
		mocks.hasher,
		mocks.idGenerator,
		mocks.clock,
		log,
	)
	tokenIssuer := service.NewTokenIssuer(testJWTSecret, mocks.idGenerator, 30*time.Minute, mocks.clock)
	refreshTokens := service.NewRefreshTokenManager(
		mocks.refreshTokenRepo,
		newTestCircuitBreaker(log),
		mocks.idGenerator,
		7*24*time.Hour,
		mocks.clock,
		log,
	)

	return service.NewAuthService(credentials, tokenIssuer, refreshTokens, log), mocks
}

func TestAuthService_SignUp_Success(t *testing.T) {
	svc, mocks := setupAuthService(t)

	var created authdomain.User
	mocks.userRepo.createFunc = func(ctx context.Context, user authdomain.User) error {
		created = user
		return nil
	}

	err := svc.SignUp(context.Background(), "testuser", "test@example.com", "password123", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if created.Username != "testuser" {
		t.Errorf("expected username testuser, got %s", created.Username)
	}

	if created.PasswordHash != "hashed_password123" {
		t.Errorf("expected hashed password, got %s", created.PasswordHash)
	}

	if len(created.Roles) != 1 || created.Roles[0].Name != authdomain.RoleUser {
		t.Errorf("expected default ROLE_USER, got %v", created.Roles)
	}
}

func TestAuthService_SignUp_UsernameTaken(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.existsByUsernameFunc = func(ctx context.Context, username string) (bool, error) {
		return true, nil
	}

	createCalled := false
	mocks.userRepo.createFunc = func(ctx context.Context, user authdomain.User) error {
		createCalled = true
		return nil
	}

	err := svc.SignUp(context.Background(), "testuser", "test@example.com", "password123", nil)
	if !errors.Is(err, service.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if createCalled {
		t.Error("expected no user row to be created")
	}
}

func TestAuthService_SignUp_EmailTaken(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.existsByEmailFunc = func(ctx context.Context, email string) (bool, error) {
		return true, nil
	}

	err := svc.SignUp(context.Background(), "testuser", "test@example.com", "password123", nil)
	if !errors.Is(err, service.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_SignUp_RoleMapping(t *testing.T) {
	svc, mocks := setupAuthService(t)

	var created authdomain.User
	mocks.userRepo.createFunc = func(ctx context.Context, user authdomain.User) error {
		created = user
		return nil
	}

	err := svc.SignUp(context.Background(), "testadmin", "admin@example.com", "password123", []string{"admin", "mod", "something-else"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	names := make(map[authdomain.RoleName]bool, len(created.Roles))
	for _, role := range created.Roles {
		names[role.Name] = true
	}

	if !names[authdomain.RoleAdmin] || !names[authdomain.RoleModerator] || !names[authdomain.RoleUser] {
		t.Errorf("expected admin, moderator and user roles, got %v", created.Roles)
	}
}

func TestAuthService_SignUp_MissingRoleRow(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.roleRepo.findByNameFunc = func(ctx context.Context, name authdomain.RoleName) (authdomain.Role, error) {
		return authdomain.Role{}, authrepo.ErrRoleNotFound
	}

	err := svc.SignUp(context.Background(), "testuser", "test@example.com", "password123", nil)
	if !errors.Is(err, service.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}

	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.HTTPStatus() != 500 {
		t.Errorf("expected 500 domain error, got %v", err)
	}
}

func TestAuthService_SignUp_DuplicateRaceMapsToDomainError(t *testing.T) {
	svc, mocks := setupAuthService(t)

	mocks.userRepo.createFunc = func(ctx context.Context, user authdomain.User) error {
		return commonerrors.ErrUsernameAlreadyExists
	}

	err := svc.SignUp(context.Background(), "testuser", "test@example.com", "password123", nil)
	if !errors.Is(err, service.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if domainErr, ok := commonerrors.AsDomainError(err); !ok || domainErr.HTTPStatus() != 400 {
		t.Errorf("expected 400 domain error, got %v", err)
	}
}
