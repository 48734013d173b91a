package cleanup

import (
	"context"
	"time"

	"github.com/seonho/rest-security-jwt/internal/common/constants"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
	"github.com/seonho/rest-security-jwt/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartRefreshTokenCleanup reclaims expired refresh-token rows on a fixed
// interval. Expiry is enforced at verification time regardless; this only
// keeps the table from accumulating dead rows.
func StartRefreshTokenCleanup(ctx context.Context, repo ExpiredDeleter, log *logger.Logger) {
	runCleanup(ctx, repo, log, constants.RefreshTokenCleanupInterval)
}

func runCleanup(ctx context.Context, repo ExpiredDeleter, log *logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Errorf("refresh token cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				metrics.RefreshTokensCleanupDeleted.Add(float64(deleted))
				log.Infof("refresh token cleanup: deleted %d expired tokens", deleted)
			}
		}
	}
}
