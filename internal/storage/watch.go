// Package storage holds the document store gateways and what they share.
package storage

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

// Watcher delivers fresh query results to a subscriber each time it is
// notified. Notifications arriving while a delivery runs are coalesced.
type Watcher struct {
	kick chan struct{}
	done chan struct{}
	once sync.Once
}

func NewWatcher() *Watcher {
	return &Watcher{kick: make(chan struct{}, 1), done: make(chan struct{})}
}

// Notify schedules a delivery without blocking.
func (w *Watcher) Notify() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Stop ends delivery. Safe to call more than once.
func (w *Watcher) Stop() { w.once.Do(func() { close(w.done) }) }

// Done is closed once the watcher is stopped.
func (w *Watcher) Done() <-chan struct{} { return w.done }

// Run loops until Stop or ctx ends. The first delivery happens immediately.
func (w *Watcher) Run(ctx context.Context, collection string, load func(context.Context) ([]domain.Document, error), fn func([]domain.Document)) {
	w.Notify()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case <-w.kick:
			docs, err := load(ctx)
			if err != nil {
				log.Error().Err(err).Str("collection", collection).Msg("subscription reload failed")
				continue
			}
			select {
			case <-w.done:
				return
			default:
			}
			fn(docs)
		}
	}
}
