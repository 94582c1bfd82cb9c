// Package platform is the single configured handle on the backend: sessions
// and realtime channels in Redis, users and bookmarks in SQLite, sign-in
// through the OAuth provider. Every consumer shares one Client.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/oauth"
	redisconn "github.com/MrSnakeDoc/smartmarks/internal/redis"
	redisstore "github.com/MrSnakeDoc/smartmarks/internal/store/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/store/sqlite"
)

type Options struct {
	Redis      redisconn.ConnectOptions
	DBPath     string
	SessionTTL time.Duration
	OAuth      oauth.Config
}

type Client struct {
	log        logger.Logger
	rdb        *goredis.Client
	sessions   *redisstore.Store
	db         *sqlite.Store
	oauth      *oauth.Provider
	sessionTTL time.Duration
	now        func() time.Time
}

// New connects every backing service. The platform URL and public key are
// taken as given: when missing, the Redis connector or the identity
// provider reports the failure.
func New(ctx context.Context, opts Options, log logger.Logger) (*Client, error) {
	if opts.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be > 0, got %v", opts.SessionTTL)
	}

	provider, err := oauth.New(opts.OAuth)
	if err != nil {
		return nil, fmt.Errorf("oauth provider: %w", err)
	}

	rdb, err := redisconn.New(opts.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("connect platform: %w", err)
	}

	db, err := sqlite.Open(ctx, opts.DBPath)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage ready", logger.String("path", opts.DBPath))

	return &Client{
		log:        log,
		rdb:        rdb,
		sessions:   redisstore.NewStore(rdb),
		db:         db,
		oauth:      provider,
		sessionTTL: opts.SessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Ping checks both Redis and SQLite.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.sessions.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.db.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// PingRedis and PingStorage report each component separately for /infra.
func (c *Client) PingRedis(ctx context.Context) error   { return c.sessions.Ping(ctx) }
func (c *Client) PingStorage(ctx context.Context) error { return c.db.Ping(ctx) }

func (c *Client) Close() error {
	return errors.Join(c.db.Close(), c.rdb.Close())
}

// ---- auth ----

// GetSession returns the session behind token, or nil when there is none.
func (c *Client) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	return c.sessions.GetSession(ctx, token)
}

// SignInWithOAuth starts the provider handshake returning to redirectTo.
func (c *Client) SignInWithOAuth(_ context.Context, redirectTo string) (domain.OAuthStart, error) {
	return c.oauth.Start(redirectTo)
}

// FlowTTL is the lifetime of a started sign-in.
func (c *Client) FlowTTL() time.Duration { return c.oauth.FlowTTL() }

// ExchangeCodeForSession completes the handshake, records the user and
// opens a new session.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, state, flow string) (*domain.Session, error) {
	identity, err := c.oauth.Exchange(ctx, code, state, flow)
	if err != nil {
		return nil, err
	}

	user, err := c.db.UpsertUser(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("record user: %w", err)
	}

	now := c.now()
	session := &domain.Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(c.sessionTTL),
	}
	if err := c.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	c.log.Info("session opened",
		logger.String("user_id", user.ID),
		logger.Duration("ttl", c.sessionTTL))
	return session, nil
}

// SignOut terminates the session and tells every stream attached to it.
func (c *Client) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := c.sessions.DeleteSession(ctx, token); err != nil {
		return err
	}
	if _, err := c.sessions.Publish(ctx, redisstore.AuthChannel(token), domain.AuthEvent{Type: domain.AuthSignedOut}); err != nil {
		c.log.Warn("failed to publish sign-out", logger.Error(err))
	}
	return nil
}

// OnAuthStateChange delivers auth transitions of the session behind token.
// fn runs on the delivery goroutine and must not call Unsubscribe.
func (c *Client) OnAuthStateChange(ctx context.Context, token string, fn func(domain.AuthEvent)) (domain.Subscription, error) {
	if token == "" {
		return nopSubscription{}, nil
	}
	ps, err := c.sessions.Subscribe(ctx, redisstore.AuthChannel(token))
	if err != nil {
		return nil, err
	}
	return startSubscription(ps, c.log, func(domain.AuthEvent) bool { return true }, fn), nil
}

// ---- bookmarks ----

func (c *Client) ListBookmarks(ctx context.Context, owner string) ([]domain.Bookmark, error) {
	return c.db.ListBookmarks(ctx, owner)
}

// InsertBookmark stores the draft and announces it on the owner's channel.
func (c *Client) InsertBookmark(ctx context.Context, draft domain.Draft) (domain.Bookmark, error) {
	b, err := c.db.InsertBookmark(ctx, draft)
	if err != nil {
		return domain.Bookmark{}, err
	}
	c.publishChange(ctx, domain.Change{
		Type:            domain.EventInsert,
		Table:           domain.TableBookmarks,
		New:             &b,
		CommitTimestamp: b.CreatedAt,
	}, b.UserID)
	return b, nil
}

// DeleteBookmark removes the owner's bookmark id. Deleting a row the owner
// cannot see is a silent no-op.
func (c *Client) DeleteBookmark(ctx context.Context, owner, id string) error {
	deleted, ok, err := c.db.DeleteBookmark(ctx, owner, id)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Debug("delete matched no row", logger.String("id", id))
		return nil
	}
	c.publishChange(ctx, domain.Change{
		Type:            domain.EventDelete,
		Table:           domain.TableBookmarks,
		Old:             &deleted,
		CommitTimestamp: c.now(),
	}, owner)
	return nil
}

// ResolveUser finds a user by id, or by email when ref contains '@'.
func (c *Client) ResolveUser(ctx context.Context, ref string) (domain.User, error) {
	if strings.Contains(ref, "@") {
		return c.db.FindUserByEmail(ctx, ref)
	}
	return c.db.GetUser(ctx, ref)
}

func (c *Client) publishChange(ctx context.Context, change domain.Change, owner string) {
	channel := redisstore.ChangeChannel(change.Table, owner)
	n, err := c.sessions.Publish(ctx, channel, change)
	if err != nil {
		c.log.Error("failed to publish change",
			logger.String("type", string(change.Type)),
			logger.String("channel", channel),
			logger.Error(err))
		return
	}
	c.log.Debug("change published",
		logger.String("type", string(change.Type)),
		logger.String("channel", channel),
		logger.Int("receivers", int(n)))
}

// Subscribe pushes changes of filter.Table owned by filter.Owner to handler.
// handler runs on the delivery goroutine and must not call Unsubscribe.
func (c *Client) Subscribe(ctx context.Context, filter domain.ChannelFilter, handler func(domain.Change)) (domain.Subscription, error) {
	if filter.Table == "" || filter.Owner == "" {
		return nil, fmt.Errorf("subscribe: table and owner are required")
	}
	ps, err := c.sessions.Subscribe(ctx, redisstore.ChangeChannel(filter.Table, filter.Owner))
	if err != nil {
		return nil, err
	}
	return startSubscription(ps, c.log, filter.Match, handler), nil
}
