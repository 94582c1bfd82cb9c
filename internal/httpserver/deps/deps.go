package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/index"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/web"
)

// Backend is the platform capability set the handlers use.
type Backend interface {
	session.Auth
	bookmarks.Table
	bookmarks.Channels
	ExchangeCodeForSession(ctx context.Context, code, state, flow string) (*domain.Session, error)
	FlowTTL() time.Duration
	PingRedis(ctx context.Context) error
	PingStorage(ctx context.Context) error
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time                    // for testing, defaults to time.Now
	AllowedHosts    []string                            // Host headers allowed to access the app routes
	AllowedCIDRS    []string                            // IPs allowed to access readyz/infra endpoints
	TrustProxy      bool                                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	SiteURL         string                              // public origin for OAuth redirects, request origin when empty
	SessionTTL      time.Duration                       // session cookie lifetime
	StreamHeartbeat time.Duration                       // comment frames on idle event streams
	RateLimitBurst  int                                 // token bucket size for sign-in and mutations
	RateLimitPerMin int                                 // token refill per minute
	Backend         Backend                             // the platform client
	Views           *index.MemoryIndex[*bookmarks.View] // views mounted by this process
	Renderer        *web.Renderer                       // HTML templates
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
