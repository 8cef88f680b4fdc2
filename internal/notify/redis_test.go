package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	s := miniredis.RunT(t)
	broker, err := NewRedis(context.Background(), "redis://"+s.Addr())
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { broker.Close() })
	return broker
}

func TestRedisPublishSubscribe(t *testing.T) {
	broker := newTestRedis(t)
	ctx := context.Background()

	parts, err := broker.Subscribe(ctx, "spare_parts")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer parts.Close()
	machines, _ := broker.Subscribe(ctx, "machines")
	defer machines.Close()

	if err := broker.Publish(ctx, "spare_parts"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitSignal(t, parts)
	expectNoSignal(t, machines)
}

func TestRedisTwoInstances(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	a, _ := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	defer a.Close()
	b, _ := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	defer b.Close()

	sub, err := b.Subscribe(ctx, "machines")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	a.Publish(ctx, "machines")
	waitSignal(t, sub)
}

func TestRedisSubscriptionClose(t *testing.T) {
	broker := newTestRedis(t)

	sub, _ := broker.Subscribe(context.Background(), "machines")
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	sub.Close()

	if _, ok := <-sub.C(); ok {
		t.Error("expected closed channel")
	}
}

func TestNewRedisFromNilClient(t *testing.T) {
	if _, err := NewRedisFromClient(nil); err == nil {
		t.Error("expected error for nil client")
	}
}
