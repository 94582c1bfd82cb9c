package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/oauth"
	redisconn "github.com/MrSnakeDoc/smartmarks/internal/redis"
)

func TestNewRejectsZeroSessionTTL(t *testing.T) {
	_, err := New(context.Background(), Options{}, logger.NewNop())
	if err == nil {
		t.Fatal("New() should fail without a session ttl")
	}
}

func TestNewFailsWithoutPlatformURL(t *testing.T) {
	_, err := New(context.Background(), Options{
		SessionTTL: time.Hour,
		DBPath:     filepath.Join(t.TempDir(), "marks.db"),
		OAuth:      oauth.Config{FlowSecret: []byte("k")},
		Redis: redisconn.ConnectOptions{
			ConnectTimeout: time.Second,
			RetryInterval:  10 * time.Millisecond,
			MaxWait:        10 * time.Millisecond,
			PingTimeout:    10 * time.Millisecond,
		},
	}, logger.NewNop())
	if err == nil {
		t.Fatal("New() should fail with an empty platform url")
	}
}

// newLiveClient needs a reachable Redis in SMARTMARKS_TEST_REDIS_URL.
func newLiveClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("SMARTMARKS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SMARTMARKS_TEST_REDIS_URL not set")
	}

	c, err := New(context.Background(), Options{
		SessionTTL: time.Hour,
		DBPath:     filepath.Join(t.TempDir(), "marks.db"),
		OAuth:      oauth.Config{FlowSecret: []byte("k")},
		Redis: redisconn.ConnectOptions{
			URL:            url,
			ConnectTimeout: 5 * time.Second,
			RetryInterval:  100 * time.Millisecond,
			MaxWait:        time.Second,
			PingTimeout:    time.Second,
		},
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestInsertAndDeleteArePushedToOwner(t *testing.T) {
	c := newLiveClient(t)
	ctx := context.Background()

	user, err := c.db.UpsertUser(ctx, domain.Identity{Provider: "google", ProviderUserID: "sub-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	changes := make(chan domain.Change, 4)
	sub, err := c.Subscribe(ctx, domain.ChannelFilter{
		Table:  domain.TableBookmarks,
		Owner:  user.ID,
		Events: []domain.EventType{domain.EventAll},
	}, func(ch domain.Change) { changes <- ch })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Unsubscribe()

	b, err := c.InsertBookmark(ctx, domain.Draft{UserID: user.ID, Title: "Go", URL: "https://go.dev"})
	if err != nil {
		t.Fatalf("InsertBookmark() error = %v", err)
	}
	if err := c.DeleteBookmark(ctx, user.ID, b.ID); err != nil {
		t.Fatalf("DeleteBookmark() error = %v", err)
	}

	want := []domain.EventType{domain.EventInsert, domain.EventDelete}
	for _, typ := range want {
		select {
		case ch := <-changes:
			if ch.Type != typ {
				t.Errorf("change type = %s, want %s", ch.Type, typ)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s change received", typ)
		}
	}
}

func TestSignOutNotifiesSessionStreams(t *testing.T) {
	c := newLiveClient(t)
	ctx := context.Background()

	session := &domain.Session{Token: "tok-signout", ExpiresAt: time.Now().Add(time.Hour)}
	if err := c.sessions.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	events := make(chan domain.AuthEvent, 1)
	sub, err := c.OnAuthStateChange(ctx, session.Token, func(e domain.AuthEvent) { events <- e })
	if err != nil {
		t.Fatalf("OnAuthStateChange() error = %v", err)
	}
	defer sub.Unsubscribe()

	if err := c.SignOut(ctx, session.Token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	select {
	case e := <-events:
		if e.Type != domain.AuthSignedOut || e.Session != nil {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sign-out event received")
	}

	got, err := c.GetSession(ctx, session.Token)
	if err != nil || got != nil {
		t.Errorf("GetSession() after sign-out = %v, %v", got, err)
	}
}
