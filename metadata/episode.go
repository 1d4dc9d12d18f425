package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/tmdb"
)

type EpisodeResolver struct {
	films FilmDatabase
}

func (e *EpisodeResolver) Icon() string {
	return IconEpisode
}

func (e *EpisodeResolver) Resolve(ctx context.Context, item jellyfin.Item) Fragment {
	fragment := Fragment{
		Type:              ActivityWatching,
		StatusDisplayType: StatusDisplayDetails,
		Details:           item.SeriesName,
		State:             EpisodeLabel(item),
	}
	if item.ParentIndexNumber > 0 {
		fragment.ImageCaption = fmt.Sprintf("Season %d", item.ParentIndexNumber)
	}

	seriesID, ok := ExtractTMDBSeriesID(item.ExternalUrls)
	if !ok {
		return fragment
	}
	fragment.DetailsURL = tmdb.TVURL(seriesID)

	if e.films == nil {
		return fragment
	}
	episode, err := e.films.EpisodeDetails(ctx, seriesID, item.ParentIndexNumber, item.IndexNumber)
	if err != nil {
		slog.Warn("Failed to fetch episode from TMDB",
			slog.Int64("series_id", seriesID),
			slog.Int("season", item.ParentIndexNumber),
			slog.Int("episode", item.IndexNumber),
			slog.String("error", err.Error()),
		)
		return fragment
	}
	fragment.ImageURL = tmdb.ImageURL(episode.StillPath)
	return fragment
}

// EpisodeLabel renders "S7:E11 • Name", or "S1:E5-7 • Name" for multi-part
// files.
func EpisodeLabel(item jellyfin.Item) string {
	label := fmt.Sprintf("S%d:E%d", item.ParentIndexNumber, item.IndexNumber)
	if end := item.IndexNumberEnd; end != nil && *end != item.IndexNumber {
		label += fmt.Sprintf("-%d", *end)
	}
	if item.Name != "" {
		label += Separator + item.Name
	}
	return label
}
