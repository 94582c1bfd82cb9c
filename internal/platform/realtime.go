package platform

import (
	"context"
	"encoding/json"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// subscription owns one pub/sub connection and its delivery goroutine.
type subscription struct {
	closer interface{ Close() error }
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startSubscription[T any](ps *goredis.PubSub, log logger.Logger, accept func(T) bool, handle func(T)) *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{closer: ps, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		deliver(ctx, ps.Channel(), log, accept, handle)
	}()
	return s
}

// Unsubscribe stops delivery and waits for the goroutine to exit. Idempotent.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		_ = s.closer.Close()
		<-s.done
	})
}

// deliver decodes JSON messages into T and hands accepted ones to handle
// until ctx is done or msgs is closed.
func deliver[T any](ctx context.Context, msgs <-chan *goredis.Message, log logger.Logger, accept func(T) bool, handle func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var v T
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				log.Warn("dropping undecodable message",
					logger.String("channel", msg.Channel),
					logger.Error(err))
				continue
			}
			if !accept(v) {
				continue
			}
			handle(v)
		}
	}
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() {}
