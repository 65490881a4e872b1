package digestsched

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/openclaw/internal/clock"
)

// Disposer stops a scheduled check. Idempotent.
type Disposer func()

// ScheduleCheck runs callback every checkInterval on c until the
// returned Disposer is called. Callback errors are swallowed and
// logged; they never stop the schedule.
func ScheduleCheck(c clock.Clock, checkInterval time.Duration, callback func() error, logger *slog.Logger) Disposer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ticker := c.NewTicker(checkInterval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				if err := callback(); err != nil {
					logger.Error("digestsched: scheduled check failed", "error", err)
				}
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
