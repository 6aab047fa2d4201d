package stream

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/internal/cache"
)

const resubscribeDelay = time.Second

// Listen forwards notifications from the Redis updates channel to the broker
// until ctx is cancelled, resubscribing when the pubsub connection drops.
func Listen(ctx context.Context, rc *redis.Client, channel string, b *Broker, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	for {
		sub := rc.Subscribe(ctx, channel)
		consume(ctx, sub.Channel(), b, logger)
		if err := sub.Close(); err != nil {
			logger.WithError(err).Debug("close pubsub")
		}
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func consume(ctx context.Context, ch <-chan *redis.Message, b *Broker, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var n cache.Notification
			if err := sonic.UnmarshalString(msg.Payload, &n); err != nil || n.BoardID == "" {
				logger.WithField("payload", msg.Payload).Error("unable to parse board update")
				continue
			}
			if subs := b.Notify(n.BoardID); subs > 0 {
				logger.WithFields(log.Fields{"board": n.BoardID, "subscribers": subs}).Debug("board update delivered")
			}
		}
	}
}
