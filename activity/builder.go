package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcus-crane/jellypresence/assets"
	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/metadata"
)

// Dispatcher picks the resolver for an item category.
type Dispatcher interface {
	For(category string) (metadata.Resolver, bool)
}

var _ Dispatcher = (*metadata.Resolvers)(nil)

type Builder struct {
	applicationID   string
	applicationName string
	resolvers       Dispatcher
	assets          assets.Resolver
	cache           *fragmentCache
	now             func() time.Time
}

type Option func(*Builder)

// WithClock swaps the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithCacheSize bounds the fragment cache. Zero or less keeps it unbounded.
func WithCacheSize(size int) Option {
	return func(b *Builder) {
		b.cache = newFragmentCache(size)
	}
}

func NewBuilder(applicationID, applicationName string, resolvers Dispatcher, assetResolver assets.Resolver, opts ...Option) *Builder {
	if assetResolver == nil {
		assetResolver = assets.Passthrough{}
	}
	b := &Builder{
		applicationID:   applicationID,
		applicationName: applicationName,
		resolvers:       resolvers,
		assets:          assetResolver,
		cache:           newFragmentCache(0),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build turns a playing session into an activity. Sessions without an item
// or whose category has no resolver produce nil without an error.
func (b *Builder) Build(ctx context.Context, session jellyfin.Session) (*Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item := session.NowPlayingItem
	if item == nil {
		return nil, nil
	}
	resolver, ok := b.resolvers.For(item.Type)
	if !ok {
		slog.Debug("No resolver for item", slog.String("type", item.Type))
		return nil, nil
	}

	fragment := b.fragment(ctx, resolver, *item)

	key := fragment.ImageURL
	if key == "" {
		key = resolver.Icon()
	}
	asset := b.resolveAsset(ctx, key)

	activity := &Activity{
		ApplicationID:     b.applicationID,
		Flags:             FlagInstance,
		Name:              b.applicationName,
		Type:              fragment.Type,
		StatusDisplayType: fragment.StatusDisplayType,
		Details:           fragment.Details,
		DetailsURL:        fragment.DetailsURL,
		State:             fragment.State,
		StateURL:          fragment.StateURL,
		Timestamps:        Progress(session.PlayState.PositionTicks, item.RunTimeTicks, b.now()),
		Assets: Assets{
			LargeImage:      asset.ID,
			DominantColours: asset.DominantColours,
		},
	}
	if fragment.ImageCaption != "" {
		caption := fragment.ImageCaption
		activity.Assets.LargeText = &caption
	}
	return activity, nil
}

// fragment returns the cached resolution for an item, resolving it once on
// first sight. Two overlapping builds for a new item may both resolve it;
// the later write wins and both values are equivalent.
func (b *Builder) fragment(ctx context.Context, resolver metadata.Resolver, item jellyfin.Item) metadata.Fragment {
	if fragment, ok := b.cache.get(item.ID); ok {
		return fragment
	}
	fragment := resolver.Resolve(ctx, item)
	// A lookup cut short by cancellation isn't the provider's answer
	if ctx.Err() != nil {
		return fragment
	}
	b.cache.put(item.ID, fragment)
	return fragment
}

func (b *Builder) resolveAsset(ctx context.Context, key string) assets.Asset {
	resolved, err := b.assets.Resolve(ctx, b.applicationID, []string{key})
	if err != nil || len(resolved) == 0 {
		if err != nil {
			slog.Warn("Failed to resolve asset, using raw key",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return assets.Asset{ID: key}
	}
	return resolved[0]
}

// CachedItems reports how many items have a remembered fragment.
func (b *Builder) CachedItems() int {
	return b.cache.len()
}
