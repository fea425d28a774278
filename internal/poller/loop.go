package poller

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Run ticks the coordinator every interval until ctx is cancelled. Each
// tick is bounded by timeout when it is positive. Errors are logged; the
// next tick retries.
func Run(ctx context.Context, c *Coordinator, interval, timeout time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("polling build index")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			runOnce(ctx, c, timeout)
		}
	}
}

func runOnce(ctx context.Context, c *Coordinator, timeout time.Duration) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := c.Tick(ctx)
	switch {
	case errors.Is(err, ErrTickInFlight):
		log.Warn().Msg("previous tick still running; skipped")
	case err != nil:
		log.Error().Err(err).Str("outcome", out.String()).Msg("poll tick failed")
	case out != Idle:
		log.Info().Str("outcome", out.String()).Msg("poll tick done")
	}
}
