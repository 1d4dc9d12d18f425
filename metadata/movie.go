package metadata

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/tmdb"
)

// Separator joins the segments of an enriched secondary line.
const Separator = " • "

type MovieResolver struct {
	films FilmDatabase
}

func (m *MovieResolver) Icon() string {
	return IconMovie
}

func (m *MovieResolver) Resolve(ctx context.Context, item jellyfin.Item) Fragment {
	fragment := Fragment{
		Type:              ActivityWatching,
		StatusDisplayType: StatusDisplayDetails,
		Details:           item.Name,
		State:             productionYear(item),
		ImageCaption:      item.Name,
	}
	if len(item.ExternalUrls) > 0 {
		fragment.DetailsURL = item.ExternalUrls[0].URL
	}

	if m.films == nil {
		return fragment
	}
	movieID, ok := item.ProviderIds.Get(jellyfin.ProviderTmdb)
	if !ok {
		return fragment
	}

	movie, err := m.films.MovieWithCredits(ctx, movieID)
	if err != nil {
		slog.Warn("Failed to fetch movie from TMDB",
			slog.String("movie_id", movieID),
			slog.String("error", err.Error()),
		)
		return fragment
	}

	segments := []string{}
	year := movie.Details.Year()
	if year == "" {
		year = fragment.State
	}
	if year != "" {
		segments = append(segments, year)
	}

	if director, ok := movie.Credits.Director(); ok {
		segments = append(segments, director.Name)
		fragment.StateURL = tmdb.PersonURL(director.ID)
	}

	if flags := countryFlags(movie.Details.ProductionCountries); flags != "" {
		segments = append(segments, flags)
	}

	fragment.State = strings.Join(segments, Separator)
	fragment.DetailsURL = tmdb.MovieURL(movieID)
	fragment.ImageURL = tmdb.ImageURL(movie.Details.PosterPath)
	return fragment
}

func productionYear(item jellyfin.Item) string {
	if item.ProductionYear <= 0 {
		return ""
	}
	return strconv.Itoa(item.ProductionYear)
}

func countryFlags(countries []tmdb.Country) string {
	flags := []string{}
	for _, country := range countries {
		if flag, ok := Flag(country.ISO3166); ok {
			flags = append(flags, flag)
		}
	}
	return strings.Join(flags, " ")
}
