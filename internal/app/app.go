package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/index"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/oauth"
	"github.com/MrSnakeDoc/smartmarks/internal/platform"
	"github.com/MrSnakeDoc/smartmarks/internal/redis"
	"github.com/MrSnakeDoc/smartmarks/internal/scheduler"
	"github.com/MrSnakeDoc/smartmarks/internal/utils"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
	"github.com/MrSnakeDoc/smartmarks/internal/web"
)

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	platform *platform.Client
	views    *index.MemoryIndex[*bookmarks.View]
	gc       *scheduler.GarbageCollector
}

// PlatformOptions maps the configuration onto the platform client. Without
// a cookie secret a random one is generated: pending sign-ins then do not
// survive a restart.
func PlatformOptions(cfg *config.Config, log logger.Logger) (platform.Options, error) {
	secret := []byte(cfg.CookieSecret)
	if len(secret) == 0 {
		var err error
		if secret, err = oauth.NewSecret(); err != nil {
			return platform.Options{}, fmt.Errorf("generate cookie secret: %w", err)
		}
		log.Warn("SMARTMARKS_COOKIE_SECRET not set, using a random per-process secret")
	}

	return platform.Options{
		Redis: redis.ConnectOptions{
			URL:            cfg.PlatformURL,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		},
		DBPath:     cfg.DBPath,
		SessionTTL: cfg.SessionTTL,
		OAuth: oauth.Config{
			ClientID:     cfg.PublicKey,
			ClientSecret: cfg.OAuthClientSecret,
			AuthURL:      cfg.OAuthAuthURL,
			TokenURL:     cfg.OAuthTokenURL,
			UserInfoURL:  cfg.OAuthUserInfoURL,
			Scopes:       cfg.OAuthScopes,
			FlowSecret:   secret,
			FlowTTL:      cfg.OAuthFlowTTL,
		},
	}, nil
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	opts, err := PlatformOptions(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to configure platform: %v", err)
		os.Exit(1)
	}

	// Initialize the platform early - fail fast if unavailable
	loggerClient.Info("Connecting to platform",
		logger.String("url", cfg.Redacted().PlatformURL),
		logger.String("db", cfg.DBPath))
	client, err := platform.New(context.Background(), opts, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to platform: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Platform initialized successfully")

	// Views mounted by open tabs
	views := index.NewMemoryIndex[*bookmarks.View]()

	// Sweeps views whose tab went away
	gc := scheduler.NewGarbageCollector(
		views,
		loggerClient,
		cfg.ViewSweepInterval,
		cfg.ViewIdleTimeout,
	)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		SiteURL:         cfg.SiteURL,
		SessionTTL:      cfg.SessionTTL,
		StreamHeartbeat: cfg.StreamHeartbeat,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Backend:         client,
		Views:           views,
		Renderer:        web.NewRenderer(),
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   server,
		platform: client,
		views:    views,
		gc:       gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Smart Bookmarks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start garbage collector
	a.gc.Start(ctx)
	a.logger.Info("view sweeper started",
		logger.Duration("interval", a.cfg.ViewSweepInterval),
		logger.Duration("idle_timeout", a.cfg.ViewIdleTimeout))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.gc.Stop()
		a.views.CloseAll()
		utils.CloseLogged(a.platform, a.logger, "platform")
		return err
	}

	a.gc.Stop()

	// Closing the views ends their event streams, so Shutdown does not
	// wait on them.
	a.views.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.platform, a.logger, "platform")

	a.logger.Info("✅ Smart Bookmarks stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
