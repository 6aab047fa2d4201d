package stream

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"prism-board/internal/cache"
)

func TestBrokerNotifyCoalesces(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("b1")
	other := b.Subscribe("b2")

	if n := b.Notify("b1"); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	b.Notify("b1")
	select {
	case <-a:
	default:
		t.Fatal("expected a signal")
	}
	select {
	case <-a:
		t.Fatal("signals should coalesce")
	default:
	}
	select {
	case <-other:
		t.Fatal("other boards must not be signalled")
	default:
	}

	b.Unsubscribe("b1", a)
	if n := b.Subscribers("b1"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	if n := b.Notify("b1"); n != 0 {
		t.Fatalf("notify after unsubscribe reached %d subscribers", n)
	}
	b.Unsubscribe("missing", a)
}

func TestListenForwardsNotifications(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	logger, hook := test.NewNullLogger()
	b := NewBroker()
	ch := b.Subscribe("b1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Listen(ctx, rc, "board-updates", b, logger)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for len(m.PubSubChannels("board-updates")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	bc := cache.New(rc, time.Minute, nil)
	if err := rc.Publish(context.Background(), "board-updates", "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bc.Publish(context.Background(), "board-updates", cache.Notification{BoardID: "b1", Events: []string{"card-moved"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected board notification")
	}
	if entry := hook.LastEntry(); entry == nil || entry.Message != "unable to parse board update" {
		t.Fatalf("expected malformed payload to be logged, got %#v", entry)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen did not exit")
	}
}
