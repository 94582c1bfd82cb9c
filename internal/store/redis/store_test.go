package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// liveStore connects to the Redis named by SMARTMARKS_TEST_REDIS_URL or
// skips the test.
func liveStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("SMARTMARKS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SMARTMARKS_TEST_REDIS_URL not set, skipping live redis test")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client)
}

func TestSessionRoundTrip(t *testing.T) {
	s := liveStore(t)
	ctx := context.Background()

	session := &domain.Session{
		Token:     uuid.NewString(),
		User:      domain.User{ID: "u1", Email: "u1@example.com"},
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().Add(time.Minute).UTC(),
	}
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got == nil || got.User.ID != "u1" {
		t.Fatalf("GetSession() = %+v", got)
	}

	if err := s.DeleteSession(ctx, session.Token); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	got, err = s.GetSession(ctx, session.Token)
	if err != nil || got != nil {
		t.Errorf("GetSession() after delete = %+v, %v, want nil, nil", got, err)
	}
}

func TestSaveSessionRejectsExpired(t *testing.T) {
	s := NewStore(nil)
	err := s.SaveSession(context.Background(), &domain.Session{Token: "x", ExpiresAt: time.Now().Add(-time.Second)})
	if err == nil {
		t.Fatal("SaveSession() with a past expiry should fail")
	}
}

func TestPublishSubscribe(t *testing.T) {
	s := liveStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := ChangeChannel(domain.TableBookmarks, uuid.NewString())
	ps, err := s.Subscribe(ctx, channel)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer func() { _ = ps.Close() }()

	change := domain.Change{Type: domain.EventInsert, Table: domain.TableBookmarks, New: &domain.Bookmark{ID: "b1"}}
	n, err := s.Publish(ctx, channel, change)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Publish() receivers = %d, want 1", n)
	}

	select {
	case msg := <-ps.Channel():
		var got domain.Change
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if got.Type != domain.EventInsert || got.New == nil || got.New.ID != "b1" {
			t.Errorf("received %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}
