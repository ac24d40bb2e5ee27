package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Completer is the part of BookingService the sweeper drives.
type Completer interface {
	CompleteDue(ctx context.Context) (int, error)
}

// Sweeper periodically applies the time-based booking transition.
type Sweeper struct {
	c        Completer
	interval time.Duration
}

func NewSweeper(c Completer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{c: c, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("booking sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.c.CompleteDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("booking sweep failed")
		}
		return
	}
	if n > 0 {
		log.Debug().Int("completed", n).Msg("booking sweep")
	}
}
