package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v4"

	authdomain "github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
	"github.com/seonho/rest-security-jwt/internal/common/clock"
	commonerrors "github.com/seonho/rest-security-jwt/internal/common/errors"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
	"github.com/seonho/rest-security-jwt/internal/common/resilience"
)

func newCircuitBreakerForTest(threshold int32, resetAfter time.Duration) *resilience.CircuitBreaker {
	log, _ := logger.New("", "test", "info")
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  threshold,
		Timeout:    time.Second,
		ResetAfter: resetAfter,
		Logger:     log,
	})
}

func TestCircuitBreaker_OpensAfterThresholdFailures(t *testing.T) {
	cb := newCircuitBreakerForTest(3, time.Minute)

	dbErr := errors.New("connection refused")
	calls := 0

	for i := 0; i < 3; i++ {
		err := cb.Call(context.Background(), func(ctx context.Context) error {
			calls++
			return dbErr
		})
		if !errors.Is(err, dbErr) {
			t.Fatalf("call %d: expected underlying error, got %v", i, err)
		}
	}

	err := cb.Call(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	if !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after threshold failures, got %v", err)
	}

	if calls != 3 {
		t.Errorf("expected open circuit to skip the call, function ran %d times", calls)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := newCircuitBreakerForTest(2, time.Minute)

	dbErr := errors.New("connection refused")
	fail := func(ctx context.Context) error { return dbErr }
	succeed := func(ctx context.Context) error { return nil }

	if err := cb.Call(context.Background(), fail); !errors.Is(err, dbErr) {
		t.Fatalf("expected underlying error, got %v", err)
	}

	if err := cb.Call(context.Background(), succeed); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if err := cb.Call(context.Background(), fail); !errors.Is(err, dbErr) {
		t.Fatalf("expected underlying error after reset, got %v", err)
	}

	called := false
	if err := cb.Call(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("expected closed circuit after interleaved success, got %v", err)
	}

	if !called {
		t.Error("expected function to run, circuit should still be closed")
	}
}

func TestCircuitBreaker_NoRowsIsNotAFailure(t *testing.T) {
	cb := newCircuitBreakerForTest(1, time.Minute)

	for i := 0; i < 5; i++ {
		err := cb.Call(context.Background(), func(ctx context.Context) error {
			return pgx.ErrNoRows
		})
		if !errors.Is(err, pgx.ErrNoRows) {
			t.Fatalf("call %d: expected pgx.ErrNoRows to pass through, got %v", i, err)
		}
	}

	if cb.IsOpen() {
		t.Error("empty results must not open the circuit")
	}
}

func TestCircuitBreaker_ClosesAfterResetWindow(t *testing.T) {
	cb := newCircuitBreakerForTest(1, 20*time.Millisecond)

	dbErr := errors.New("connection refused")
	if err := cb.Call(context.Background(), func(ctx context.Context) error {
		return dbErr
	}); !errors.Is(err, dbErr) {
		t.Fatalf("expected underlying error, got %v", err)
	}

	if err := cb.Call(context.Background(), func(ctx context.Context) error {
		return nil
	}); !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	called := false
	if err := cb.Call(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("expected circuit to close after the reset window, got %v", err)
	}

	if !called {
		t.Error("expected function to run after the reset window")
	}
}

// flakyRefreshTokenRepo fails writes on demand while delegating everything
// else to the in-memory store.
type flakyRefreshTokenRepo struct {
	*memoryRefreshTokenRepo
	replaceErr   error
	replaceCalls int
}

func (r *flakyRefreshTokenRepo) ReplaceForUser(ctx context.Context, token authdomain.RefreshToken) error {
	r.replaceCalls++
	if r.replaceErr != nil {
		return r.replaceErr
	}
	return r.memoryRefreshTokenRepo.ReplaceForUser(ctx, token)
}

func TestRefreshTokenManager_Issue_CircuitOpensOnRepeatedStoreFailures(t *testing.T) {
	repo := &flakyRefreshTokenRepo{
		memoryRefreshTokenRepo: newMemoryRefreshTokenRepo(),
		replaceErr:             errors.New("connection refused"),
	}
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	log, _ := logger.New("", "test", "info")
	cb := newCircuitBreakerForTest(3, time.Minute)
	manager := service.NewRefreshTokenManager(repo, cb, &mockIDGenerator{}, 7*24*time.Hour, mockClock, log)

	for i := 0; i < 3; i++ {
		if _, err := manager.Issue(context.Background(), "user-123"); err == nil {
			t.Fatalf("call %d: expected store error", i)
		}
	}

	_, err := manager.Issue(context.Background(), "user-123")
	if !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen once the breaker trips, got %v", err)
	}

	if repo.replaceCalls != 3 {
		t.Errorf("expected the open circuit to shed the write, store saw %d calls", repo.replaceCalls)
	}

	// Still open even after the store recovers, until the reset window passes.
	repo.replaceErr = nil
	if _, err := manager.Issue(context.Background(), "user-123"); !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Fatalf("expected breaker to stay open inside the reset window, got %v", err)
	}
}
