package platform

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

func changeMessage(t *testing.T, c domain.Change) *goredis.Message {
	t.Helper()
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal change: %v", err)
	}
	return &goredis.Message{Channel: "test", Payload: string(data)}
}

func TestDeliverFiltersAndSkipsGarbage(t *testing.T) {
	msgs := make(chan *goredis.Message, 4)
	msgs <- &goredis.Message{Channel: "test", Payload: "{not json"}
	msgs <- changeMessage(t, domain.Change{Type: domain.EventInsert, Table: "other"})
	msgs <- changeMessage(t, domain.Change{Type: domain.EventUpdate, Table: domain.TableBookmarks})
	msgs <- changeMessage(t, domain.Change{Type: domain.EventDelete, Table: domain.TableBookmarks, Old: &domain.Bookmark{ID: "b1"}})
	close(msgs)

	filter := domain.ChannelFilter{
		Table:  domain.TableBookmarks,
		Events: []domain.EventType{domain.EventInsert, domain.EventDelete},
	}

	var got []domain.Change
	deliver(context.Background(), msgs, logger.NewNop(), filter.Match, func(c domain.Change) {
		got = append(got, c)
	})

	if len(got) != 1 {
		t.Fatalf("delivered %d changes, want 1: %+v", len(got), got)
	}
	if got[0].Type != domain.EventDelete || got[0].Old == nil || got[0].Old.ID != "b1" {
		t.Errorf("delivered %+v", got[0])
	}
}

func TestDeliverStopsOnContextCancel(t *testing.T) {
	msgs := make(chan *goredis.Message)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		deliver(ctx, msgs, logger.NewNop(), func(domain.AuthEvent) bool { return true }, func(domain.AuthEvent) {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver did not return after cancel")
	}
}

type countingCloser struct{ n atomic.Int32 }

func (c *countingCloser) Close() error {
	c.n.Add(1)
	return nil
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	closer := &countingCloser{}
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{closer: closer, cancel: cancel, done: make(chan struct{})}
	go func() {
		<-ctx.Done()
		close(s.done)
	}()

	s.Unsubscribe()
	s.Unsubscribe()

	if got := closer.n.Load(); got != 1 {
		t.Errorf("Close called %d times, want 1", got)
	}
}
