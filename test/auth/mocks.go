package auth

import (
	"context"
	"sync"
	"time"

	authdomain "github.com/seonho/rest-security-jwt/internal/auth/domain"
	authrepo "github.com/seonho/rest-security-jwt/internal/auth/repository"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
	"github.com/seonho/rest-security-jwt/internal/common/resilience"
)

const testJWTSecret = "test-secret-key-of-sufficient-length-123"

func newTestCircuitBreaker(log *logger.Logger) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  100,
		Timeout:    time.Second,
		ResetAfter: time.Minute,
		Logger:     log,
	})
}

type mockUserRepo struct {
	createFunc           func(ctx context.Context, user authdomain.User) error
	findByUsernameFunc   func(ctx context.Context, username string) (authdomain.User, error)
	findByIDFunc         func(ctx context.Context, id authdomain.UserID) (authdomain.User, error)
	existsByUsernameFunc func(ctx context.Context, username string) (bool, error)
	existsByEmailFunc    func(ctx context.Context, email string) (bool, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user authdomain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (authdomain.User, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return authdomain.User{}, authrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id authdomain.UserID) (authdomain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return authdomain.User{}, authrepo.ErrUserNotFound
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFunc != nil {
		return m.existsByUsernameFunc(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFunc != nil {
		return m.existsByEmailFunc(ctx, email)
	}
	return false, nil
}

type mockRoleRepo struct {
	findByNameFunc func(ctx context.Context, name authdomain.RoleName) (authdomain.Role, error)
}

func (m *mockRoleRepo) FindByName(ctx context.Context, name authdomain.RoleName) (authdomain.Role, error) {
	if m.findByNameFunc != nil {
		return m.findByNameFunc(ctx, name)
	}
	switch name {
	case authdomain.RoleUser:
		return authdomain.Role{ID: 1, Name: authdomain.RoleUser}, nil
	case authdomain.RoleModerator:
		return authdomain.Role{ID: 2, Name: authdomain.RoleModerator}, nil
	case authdomain.RoleAdmin:
		return authdomain.Role{ID: 3, Name: authdomain.RoleAdmin}, nil
	}
	return authdomain.Role{}, authrepo.ErrRoleNotFound
}

// memoryRefreshTokenRepo keeps tokens in a mutex-guarded map keyed by user,
// mirroring the one-row-per-user constraint of the real table. It backs the
// rotation and concurrency tests.
type memoryRefreshTokenRepo struct {
	mu     sync.Mutex
	byUser map[string]authdomain.RefreshToken
}

func newMemoryRefreshTokenRepo() *memoryRefreshTokenRepo {
	return &memoryRefreshTokenRepo{byUser: make(map[string]authdomain.RefreshToken)}
}

func (m *memoryRefreshTokenRepo) Create(ctx context.Context, token authdomain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[token.UserID] = token
	return nil
}

func (m *memoryRefreshTokenRepo) FindByTokenHash(ctx context.Context, hash string) (authdomain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.byUser {
		if token.TokenHash == hash {
			return token, nil
		}
	}
	return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
}

func (m *memoryRefreshTokenRepo) FindByUserID(ctx context.Context, userID string) (authdomain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.byUser[userID]
	if !ok {
		return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
	}
	return token, nil
}

func (m *memoryRefreshTokenRepo) DeleteByTokenHash(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, token := range m.byUser {
		if token.TokenHash == hash {
			delete(m.byUser, userID)
		}
	}
	return nil
}

func (m *memoryRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[userID]; !ok {
		return 0, nil
	}
	delete(m.byUser, userID)
	return 1, nil
}

func (m *memoryRefreshTokenRepo) ReplaceForUser(ctx context.Context, token authdomain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[token.UserID] = token
	return nil
}

func (m *memoryRefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := int64(0)
	for userID, token := range m.byUser {
		if !token.ExpiresAt.After(time.Now()) {
			delete(m.byUser, userID)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memoryRefreshTokenRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUser)
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash string, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockHasher) Compare(hash string, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	return nil
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "test-id-123", nil
}

type authServiceMocks struct {
	userRepo         *mockUserRepo
	roleRepo         *mockRoleRepo
	refreshTokenRepo *memoryRefreshTokenRepo
	hasher           *mockHasher
	idGenerator      *mockIDGenerator
	clock            *clock.MockClock
}
