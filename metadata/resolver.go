package metadata

import (
	"context"

	"github.com/marcus-crane/jellypresence/coverart"
	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/tmdb"
)

// ActivityType mirrors the activity types a presence client understands.
type ActivityType int

const (
	ActivityPlaying   ActivityType = 0
	ActivityListening ActivityType = 2
	ActivityWatching  ActivityType = 3
)

// StatusDisplayType picks which line a client shows in its compact status.
type StatusDisplayType int

const (
	StatusDisplayName    StatusDisplayType = 0
	StatusDisplayState   StatusDisplayType = 1
	StatusDisplayDetails StatusDisplayType = 2
)

// Default icons registered against the presence application, used when no
// artwork could be found.
const (
	IconAudio   = "audio"
	IconMovie   = "movie"
	IconEpisode = "episode"
)

// Fragment is everything a resolver knows about an item. Empty strings mean
// the field is absent, so an empty ImageURL means "no artwork" rather than
// "not looked up yet".
type Fragment struct {
	Type              ActivityType
	StatusDisplayType StatusDisplayType
	Details           string
	DetailsURL        string
	State             string
	StateURL          string
	ImageURL          string
	ImageCaption      string
}

type Resolver interface {
	// Icon is the asset key used when Resolve finds no artwork.
	Icon() string
	// Resolve never fails. Lookups that go wrong are logged and leave the
	// enriched fields empty.
	Resolve(ctx context.Context, item jellyfin.Item) Fragment
}

// CoverArt looks up front covers by MusicBrainz release.
type CoverArt interface {
	FrontThumbnail(ctx context.Context, releaseID string) (string, error)
}

// FilmDatabase covers the TMDB lookups the movie and episode resolvers make.
type FilmDatabase interface {
	MovieWithCredits(ctx context.Context, movieID string) (*tmdb.Movie, error)
	EpisodeDetails(ctx context.Context, seriesID int64, season, episode int) (*tmdb.EpisodeDetails, error)
}

var (
	_ CoverArt     = (*coverart.Client)(nil)
	_ FilmDatabase = (*tmdb.Client)(nil)
)

// Resolvers holds one resolver per supported category.
type Resolvers struct {
	audio   *AudioResolver
	movie   *MovieResolver
	episode *EpisodeResolver
}

// NewResolvers wires the resolvers to their providers. films may be nil when
// no TMDB key is configured, in which case movies and episodes fall back to
// what Jellyfin reports.
func NewResolvers(covers CoverArt, films FilmDatabase) *Resolvers {
	return &Resolvers{
		audio:   &AudioResolver{covers: covers},
		movie:   &MovieResolver{films: films},
		episode: &EpisodeResolver{films: films},
	}
}

// NewDefaultResolvers builds resolvers against the public providers. A blank
// tmdbKey disables film database enrichment.
func NewDefaultResolvers(tmdbKey string) *Resolvers {
	var films FilmDatabase
	if client, err := tmdb.New(tmdbKey); err == nil {
		films = client
	}
	return NewResolvers(coverart.NewClient(), films)
}

// For returns the resolver for a category. Books and anything Jellyfin adds
// later have no resolver and produce no activity.
func (r *Resolvers) For(category string) (Resolver, bool) {
	switch category {
	case jellyfin.CategoryAudio:
		return r.audio, true
	case jellyfin.CategoryMovie:
		return r.movie, true
	case jellyfin.CategoryEpisode:
		return r.episode, true
	default:
		return nil, false
	}
}
