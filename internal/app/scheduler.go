package app

import (
	"context"
	"errors"
	"time"

	"fc-go/internal/fc"
)

// MaintainEvery runs one maintenance pass per interval until the context is
// cancelled. A pass that reports maintenance already running is skipped
// silently; other failures are logged and the schedule continues.
func (a *FCApp) MaintainEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.service.Maintain(); err != nil {
				if errors.Is(err, fc.ErrMaintenanceRunning) {
					continue
				}
				a.logger.Error("scheduled maintenance failed", "error", err)
			}
		}
	}
}
