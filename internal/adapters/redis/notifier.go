package redisad

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

const channelPrefix = "docs:"

// Notifier broadcasts collection change signals over redis pub/sub so every
// API instance can refresh its live subscriptions.
type Notifier struct{ c *redis.Client }

func NewNotifier(c *redis.Client) *Notifier { return &Notifier{c: c} }

func (n *Notifier) Publish(ctx context.Context, collection string) error {
	return n.c.Publish(ctx, channelPrefix+collection, "changed").Err()
}

// Listen calls fn for every change signal until the returned func is called or ctx ends.
func (n *Notifier) Listen(ctx context.Context, collection string, fn func()) (domain.CancelFunc, error) {
	sub := n.c.Subscribe(ctx, channelPrefix+collection)
	// Wait for the subscription confirmation so no publish after Listen returns is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			if err := sub.Close(); err != nil {
				log.Debug().Err(err).Str("collection", collection).Msg("pubsub close")
			}
		})
	}
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()
	return stop, nil
}
