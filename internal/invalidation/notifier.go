// Package invalidation tells page caches that a collection changed.
package invalidation

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Channel is the Redis channel change messages are published on.
	Channel        = "content:invalidate"
	publishTimeout = 5 * time.Second
)

// Notifier signals that a collection was written. Notify never blocks the
// caller on delivery and never fails.
type Notifier interface {
	Notify(collection string)
}

// Message is the payload published for every change.
type Message struct {
	Collection string `json:"collection"`
	At         int64  `json:"at"`
}

// RedisNotifier publishes change messages over Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
	clock  func() time.Time
}

// NewRedisNotifier creates a Redis pub/sub notifier.
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger, clock: time.Now}
}

// Notify publishes in the background.
func (r *RedisNotifier) Notify(collection string) {
	body, err := json.Marshal(Message{Collection: collection, At: r.clock().Unix()})
	if err != nil {
		r.logger.Error("invalidation encode failed", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := r.client.Publish(ctx, Channel, body).Err(); err != nil {
			r.logger.Warn("invalidation publish failed", zap.String("collection", collection), zap.Error(err))
		}
	}()
}

// Subscribe calls handler for every change message until ctx is done.
func Subscribe(ctx context.Context, client *redis.Client, logger *zap.Logger, handler func(Message)) error {
	pubsub := client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var m Message
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					logger.Debug("invalidation message dropped", zap.Error(err))
					continue
				}
				handler(m)
			}
		}
	}()
	return nil
}

// LogNotifier only logs. It is used when Redis is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(collection string) {
	l.logger.Info("collection changed", zap.String("collection", collection))
}

// Func adapts a function to Notifier.
type Func func(collection string)

func (f Func) Notify(collection string) { f(collection) }

// Multi fans a change out to every notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

type multi []Notifier

func (m multi) Notify(collection string) {
	for _, n := range m {
		n.Notify(collection)
	}
}
