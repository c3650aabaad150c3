package session

import (
	"context"
	"errors"
	"time"

	"github.com/cloudchat-app/cloudchat/internal/accounts"
	"github.com/cloudchat-app/cloudchat/internal/common"
	"github.com/cloudchat-app/cloudchat/internal/logging"
)

// pollTimeout bounds one enforce round-trip so a hung store cannot stall
// the monitor loop.
const pollTimeout = 3 * time.Second

// Monitor polls the account behind an active session and reports
// revocation. Suspension must propagate to live sessions even though no
// subscription to the account record exists, hence a poll rather than a
// push.
type Monitor struct {
	guard    *accounts.Service
	interval time.Duration
	logger   logging.Logger
}

func NewMonitor(guard *accounts.Service, interval time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{guard: guard, interval: interval, logger: logger}
}

// Run blocks, re-checking the account every interval until ctx is
// cancelled or the account is revoked. On revocation onRevoked is called
// exactly once and the monitor stops. A transient store failure keeps the
// session: a claim stands until definitively disproved.
func (m *Monitor) Run(ctx context.Context, accountID string, onRevoked func()) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
			_, err := m.guard.Enforce(pollCtx, accountID)
			cancel()

			switch {
			case err == nil:
			case errors.Is(err, common.ErrRevoked):
				m.logger.Info(ctx, "session revoked", "account", accountID)
				onRevoked()
				return
			case ctx.Err() != nil:
				return
			default:
				m.logger.Warn(ctx, "liveness poll failed, keeping session", "account", accountID, "error", err.Error())
			}
		}
	}
}
