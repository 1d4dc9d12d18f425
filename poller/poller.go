package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/marcus-crane/jellypresence/activity"
	"github.com/marcus-crane/jellypresence/config"
	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/presence"
)

const pollTag = "poll"

var (
	ErrNotConfigured = errors.New("jellyfin url, api key and username are required")
	ErrNotRunning    = errors.New("poller is not running")
)

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type SessionSource interface {
	ActiveSessions(ctx context.Context, username string, enabled map[string]bool) ([]jellyfin.Session, error)
}

type ActivityBuilder interface {
	Build(ctx context.Context, session jellyfin.Session) (*activity.Activity, error)
}

type Gate interface {
	Ensure(ctx context.Context) error
}

var (
	_ SessionSource   = (*jellyfin.Client)(nil)
	_ ActivityBuilder = (*activity.Builder)(nil)
)

type Poller struct {
	cfg       config.Config
	sessions  SessionSource
	builder   ActivityBuilder
	publisher presence.Sink
	gate      Gate

	m         sync.Mutex
	state     State
	scheduler *gocron.Scheduler
}

func New(cfg config.Config, sessions SessionSource, builder ActivityBuilder, publisher presence.Sink, gate Gate) *Poller {
	return &Poller{
		cfg:       cfg,
		sessions:  sessions,
		builder:   builder,
		publisher: publisher,
		gate:      gate,
	}
}

func (p *Poller) State() State {
	p.m.Lock()
	defer p.m.Unlock()
	return p.state
}

func (p *Poller) Running() bool {
	return p.State() == Running
}

// Enable starts polling. Without a server URL the poller stays idle. The
// egress gate has to pass before anything is scheduled and the first cycle
// runs straight away.
func (p *Poller) Enable(ctx context.Context) error {
	p.m.Lock()
	defer p.m.Unlock()

	if p.state == Running {
		return nil
	}
	if p.cfg.Jellyfin.URL == "" {
		slog.Info("No Jellyfin URL configured, not polling")
		return nil
	}
	if p.gate != nil {
		if err := p.gate.Ensure(ctx); err != nil {
			return fmt.Errorf("egress preflight: %w", err)
		}
	}

	s := gocron.NewScheduler(time.UTC)
	// A slow cycle makes the next tick wait instead of overlapping it
	s.SingletonModeAll()
	interval := p.cfg.PollInterval()
	if _, err := s.Every(interval).Tag(pollTag).Do(p.RunCycle, ctx); err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	s.StartAsync()

	p.scheduler = s
	p.state = Running
	slog.Info("Started polling Jellyfin", slog.Duration("interval", interval))
	return nil
}

// Disable stops polling and clears the shown activity. A cycle that is
// already in flight may still publish after this returns.
func (p *Poller) Disable(ctx context.Context) error {
	p.m.Lock()
	if p.scheduler != nil {
		p.scheduler.Stop()
		p.scheduler = nil
	}
	p.state = Idle
	p.m.Unlock()

	slog.Info("Stopped polling Jellyfin")
	return p.publisher.Publish(ctx, presence.Clear())
}

// Trigger runs a cycle now on the running scheduler.
func (p *Poller) Trigger() error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.state != Running || p.scheduler == nil {
		return ErrNotRunning
	}
	return p.scheduler.RunByTag(pollTag)
}

// Poll fetches sessions and builds the update for the first match. No match
// clears the activity.
func (p *Poller) Poll(ctx context.Context) (presence.Update, error) {
	if !p.cfg.HasServer() {
		return presence.Update{}, ErrNotConfigured
	}
	sessions, err := p.sessions.ActiveSessions(ctx, p.cfg.Jellyfin.Username, p.cfg.EnabledCategories())
	if err != nil {
		return presence.Update{}, fmt.Errorf("fetch sessions: %w", err)
	}
	if len(sessions) == 0 {
		return presence.Clear(), nil
	}

	session := sessions[0]
	built, err := p.builder.Build(ctx, session)
	if err != nil {
		return presence.Update{}, fmt.Errorf("build activity: %w", err)
	}
	if built == nil {
		return presence.Clear(), nil
	}
	return presence.NewUpdate(built, session.NowPlayingItem.ID, session.NowPlayingItem.Type), nil
}

// RunCycle is one fetch, build and publish. Missing configuration is a
// silent no-op and any failure only skips this cycle.
func (p *Poller) RunCycle(ctx context.Context) {
	update, err := p.Poll(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return
	}
	if err != nil {
		slog.Error("Failed to poll Jellyfin", slog.String("error", err.Error()))
		return
	}
	if err := p.publisher.Publish(ctx, update); err != nil {
		slog.Debug("Presence update only partially published", slog.String("error", err.Error()))
	}
}
