package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "zaloga:"

// Redis is a Broker backed by Redis pub/sub, so every instance sharing the
// Redis server sees changes made through any of them.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Broker from a Redis URL (redis://host:port/db).
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) (*Redis, error) {
	if client == nil {
		return nil, errors.New("notify: redis client is nil")
	}
	return &Redis{client: client}, nil
}

// Publish sends a change event for table.
func (r *Redis) Publish(ctx context.Context, table string) error {
	if err := r.client.Publish(ctx, redisChannelPrefix+ChannelName(table), "change").Err(); err != nil {
		return fmt.Errorf("publishing change for %s: %w", table, err)
	}
	return nil
}

// Subscribe opens a Redis subscription for table.
func (r *Redis) Subscribe(ctx context.Context, table string) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, redisChannelPrefix+ChannelName(table))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", table, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &redisSub{signal: newSignal(), pubsub: pubsub, cancel: cancel}

	go func(messages <-chan *redis.Message) {
		defer s.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				s.notify()
			}
		}
	}(pubsub.Channel())

	return s, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

type redisSub struct {
	*signal
	pubsub *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		s.close()
		err = s.pubsub.Close()
	})
	return err
}
