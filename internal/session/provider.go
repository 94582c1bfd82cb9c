// Package session holds the signed-in state of one browser request or
// stream. A Provider is created per request by the session middleware and
// handed to consumers through the request context.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// CallbackPath is where the identity provider sends the browser back.
const CallbackPath = "/auth/callback"

var ErrClosed = errors.New("session provider closed")

// Auth is the part of the platform the provider talks to.
type Auth interface {
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	OnAuthStateChange(ctx context.Context, token string, fn func(domain.AuthEvent)) (domain.Subscription, error)
	SignInWithOAuth(ctx context.Context, redirectTo string) (domain.OAuthStart, error)
	SignOut(ctx context.Context, token string) error
}

// State is what consumers render from. User is nil when anonymous.
type State struct {
	User    *domain.User
	Loading bool
}

// Provider is loading until Initialize resolves, then authenticated or
// anonymous as auth transitions arrive.
type Provider struct {
	auth  Auth
	token string
	log   logger.Logger

	mu        sync.Mutex
	state     State
	sub       domain.Subscription
	listeners map[int]func(State)
	nextID    int
	closed    bool
}

func New(auth Auth, token string, log logger.Logger) *Provider {
	return &Provider{
		auth:      auth,
		token:     token,
		log:       log,
		state:     State{Loading: true},
		listeners: make(map[int]func(State)),
	}
}

// Token is the session cookie value this provider was built from.
func (p *Provider) Token() string { return p.token }

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// User is a shortcut for State().User.
func (p *Provider) User() *domain.User { return p.State().User }

// Initialize resolves the current session. A retrieval error counts as no
// session and is only logged.
func (p *Provider) Initialize(ctx context.Context) {
	var user *domain.User

	s, err := p.auth.GetSession(ctx, p.token)
	switch {
	case err != nil:
		p.log.Error("failed to get session", logger.Error(err))
	case s != nil:
		u := s.User
		user = &u
	}

	p.set(State{User: user, Loading: false})
}

// Subscribe follows auth transitions of this session until Close.
func (p *Provider) Subscribe(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.sub != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	sub, err := p.auth.OnAuthStateChange(ctx, p.token, p.apply)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed || p.sub != nil {
		p.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	p.sub = sub
	p.mu.Unlock()
	return nil
}

// apply overwrites the current user with the one carried by ev.
func (p *Provider) apply(ev domain.AuthEvent) {
	var user *domain.User
	if ev.Type != domain.AuthSignedOut && ev.Session != nil {
		u := ev.Session.User
		user = &u
	}
	p.log.Debug("auth state changed", logger.String("event", string(ev.Type)))
	p.set(State{User: user, Loading: false})
}

func (p *Provider) set(s State) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.state = s
	fns := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Listen registers fn for every state transition. The returned func
// removes it.
func (p *Provider) Listen(fn func(State)) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		if p.listeners != nil {
			delete(p.listeners, id)
		}
		p.mu.Unlock()
	}
}

// SignIn starts the OAuth handshake returning to origin's callback path.
// Failure is logged and returned; there is no retry.
func (p *Provider) SignIn(ctx context.Context, origin string) (domain.OAuthStart, error) {
	start, err := p.auth.SignInWithOAuth(ctx, origin+CallbackPath)
	if err != nil {
		p.log.Error("sign-in failed", logger.Error(err))
		return domain.OAuthStart{}, err
	}
	return start, nil
}

// SignOut ends the session. Failure is logged only.
func (p *Provider) SignOut(ctx context.Context) {
	if err := p.auth.SignOut(ctx, p.token); err != nil {
		p.log.Error("sign-out failed", logger.Error(err))
		return
	}
	p.apply(domain.AuthEvent{Type: domain.AuthSignedOut})
}

// Close drops the subscription and all listeners. Idempotent.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	sub := p.sub
	p.sub = nil
	p.listeners = nil
	p.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

type ctxKey struct{}

// WithProvider returns a copy of ctx carrying p.
func WithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the provider set by the session middleware, or nil.
func FromContext(ctx context.Context) *Provider {
	p, _ := ctx.Value(ctxKey{}).(*Provider)
	return p
}
