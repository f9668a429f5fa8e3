package main

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/cloudreve-go/internal/browse"
	"github.com/tonimelisma/cloudreve-go/internal/cloudreve"
	"github.com/tonimelisma/cloudreve-go/internal/config"
	"github.com/tonimelisma/cloudreve-go/internal/linkresolve"
	"github.com/tonimelisma/cloudreve-go/internal/remotedl"
)

// retry wait bounds for the API client; retry_max comes from config.
const (
	retryWaitMin = 1 * time.Second
	retryWaitMax = 30 * time.Second
)

// AppSession wires the API client, the credential, and the components built
// on them from one resolved config.
type AppSession struct {
	Config   *config.Config
	Logger   *slog.Logger
	Client   *cloudreve.Client
	Session  *cloudreve.Session
	Lister   *browse.Lister
	Monitor  *remotedl.Monitor
	Resolver *linkresolve.Resolver
}

// NewAppSession builds every component. No network traffic happens until
// Login.
func NewAppSession(cfg *config.Config, logger *slog.Logger) *AppSession {
	httpClient := newHTTPClient(cfg)
	creds := cloudreve.NewCredentials()

	client := cloudreve.NewClient(cloudreve.BaseURL(cfg.APIURL), httpClient, creds, logger, userAgent(cfg))
	client.SetRetry(cfg.RetryMax, retryWaitMin, retryWaitMax)

	return &AppSession{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Session: cloudreve.NewSession(client, creds, logger),
		Lister:  browse.NewLister(client, browse.NewPageCache(), cfg.BrowseRoot, logger),
		Monitor: remotedl.NewMonitor(client, remotedl.Options{
			Interval:        cfg.PollEvery(),
			MaxPendingScans: cfg.MaxPendingScans,
			MaxScanFailures: cfg.MaxScanFailures,
			DefaultDst:      cfg.DownloadDir,
			Logger:          logger,
		}),
		Resolver: linkresolve.New(cfg.ResolverURL, httpClient, cfg.RetryMax, logger),
	}
}

// Login authenticates with the configured credentials. A failure is logged
// and reported but never fatal: later calls fail with auth errors instead.
func (a *AppSession) Login(ctx context.Context) bool {
	if err := a.Session.Login(ctx, a.Config.Username, a.Config.Password); err != nil {
		a.Logger.Error("login failed, continuing unauthenticated", slog.String("error", err.Error()))

		return false
	}

	return true
}

// Run executes fn alongside the periodic token refresher. The refresher
// stops when fn returns; fn's error is the result.
func (a *AppSession) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Session.Run(gctx, a.Config.RefreshEvery())
	})

	g.Go(func() error {
		defer cancel()

		return fn(gctx)
	})

	return g.Wait()
}

// newAppSession is the command-side constructor: it builds the session from
// resolvedCfg and logs in.
func newAppSession(ctx context.Context) *AppSession {
	app := NewAppSession(resolvedCfg, buildLogger())
	app.Login(ctx)

	return app
}
