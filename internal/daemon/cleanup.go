package daemon

import (
	"context"
	"log/slog"
	"time"

	"sigma/internal/repository"
)

// PasswordResetCleanupTask purges expired password reset tokens on an hourly
// cadence. Used and unexpired tokens are left alone.
func PasswordResetCleanupTask(repo repository.Repository, logger *slog.Logger) DaemonFunc {
	return func(ctx context.Context, name string) error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				deleted, err := repo.DeleteExpiredPasswordResets(ctx, time.Now())
				if err != nil {
					logger.Error("failed to delete expired password resets", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("expired password resets deleted", "count", deleted)
				}
			}
		}
	}
}
