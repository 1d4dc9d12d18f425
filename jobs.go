package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcus-crane/jellypresence/activity"
	"github.com/marcus-crane/jellypresence/assets"
	"github.com/marcus-crane/jellypresence/config"
	"github.com/marcus-crane/jellypresence/db"
	"github.com/marcus-crane/jellypresence/events"
	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/metadata"
	"github.com/marcus-crane/jellypresence/migrations"
	"github.com/marcus-crane/jellypresence/playback"
	"github.com/marcus-crane/jellypresence/poller"
	"github.com/marcus-crane/jellypresence/preflight"
	"github.com/marcus-crane/jellypresence/presence"
)

// Refresher kicks off a poll outside of the regular schedule.
type Refresher interface {
	Trigger() error
}

// App is everything the daemon runs, wired together.
type App struct {
	cfg         config.Config
	broadcaster *presence.Broadcaster
	sse         *events.SSE
	hub         *events.Hub
	stopHub     context.CancelFunc
	history     playback.Store
	refresher   Refresher
	poller      *poller.Poller
	gate        *preflight.Gate
	store       *db.SqliteStore
}

func Setup(cfg config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
		sse: events.NewSSE(),
		hub: events.NewHub(),
	}
	app.broadcaster = presence.NewBroadcaster(app.sse, app.hub)

	if cfg.Presence.DbPath != "" {
		store, err := db.NewSqliteStore(cfg.Presence.DbPath)
		if err != nil {
			return nil, err
		}
		if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
			store.Close()
			return nil, err
		}
		ps := playback.NewSystem(store.DB)
		app.store = store
		app.history = ps
		app.broadcaster.Attach(ps)
		slog.Info("Recording playback history", slog.String("path", cfg.Presence.DbPath))
	}

	builder := activity.NewBuilder(
		cfg.Discord.ApplicationID,
		cfg.Discord.ApplicationName,
		metadata.NewDefaultResolvers(cfg.TMDB.APIKey),
		assets.New(cfg.Presence.AssetMode, cfg.Presence.StorageDir),
		activity.WithCacheSize(cfg.Presence.MetadataCacheSize),
	)

	app.gate = newGate(cfg)
	app.poller = poller.New(
		cfg,
		jellyfin.NewClient(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey),
		builder,
		app.broadcaster,
		app.gate,
	)
	app.refresher = app.poller

	return app, nil
}

func newGate(cfg config.Config) *preflight.Gate {
	localAssets := strings.EqualFold(cfg.Presence.AssetMode, assets.ModeLocal)
	var policy preflight.Policy = preflight.AllowAll{}
	if allowlist := cfg.EgressAllowlist(); len(allowlist) > 0 {
		policy = preflight.NewAllowlist(allowlist)
	}
	return preflight.NewGate(
		policy,
		preflight.NewNotifier(cfg.Pushover.Token, cfg.Pushover.Recipient),
		preflight.Hosts(cfg.Jellyfin.URL, localAssets),
	)
}

// Start runs the websocket hub and starts polling. The hub outlives ctx so
// Stop can still send the final clear to websocket clients.
func (a *App) Start(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	a.stopHub = stopHub
	go a.hub.Run(hubCtx)
	if err := a.poller.Enable(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}
	return nil
}

func (a *App) Stop(ctx context.Context) {
	if a.poller.Running() {
		if err := a.poller.Disable(ctx); err != nil {
			slog.Warn("Failed to clear presence on shutdown", slog.String("error", err.Error()))
		}
	}
	if a.stopHub != nil {
		a.stopHub()
		select {
		case <-a.hub.Done():
		case <-ctx.Done():
		}
	}
	a.sse.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("Failed to close database", slog.String("error", err.Error()))
		}
	}
}
