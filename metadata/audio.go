package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcus-crane/jellypresence/coverart"
	"github.com/marcus-crane/jellypresence/jellyfin"
)

const (
	musicBrainzRecordingURL = "https://musicbrainz.org/recording/%s"
	musicBrainzArtistURL    = "https://musicbrainz.org/artist/%s"
)

type AudioResolver struct {
	covers CoverArt
}

func (a *AudioResolver) Icon() string {
	return IconAudio
}

func (a *AudioResolver) Resolve(ctx context.Context, item jellyfin.Item) Fragment {
	fragment := Fragment{
		Type:              ActivityListening,
		StatusDisplayType: StatusDisplayState,
		Details:           item.Name,
		State:             artistLine(item),
		ImageCaption:      item.Album,
	}
	if id, ok := item.ProviderIds.Get(jellyfin.ProviderMusicBrainzRecording); ok {
		fragment.DetailsURL = fmt.Sprintf(musicBrainzRecordingURL, id)
	}
	if id, ok := item.ProviderIds.Get(jellyfin.ProviderMusicBrainzArtist); ok {
		fragment.StateURL = fmt.Sprintf(musicBrainzArtistURL, id)
	}
	if release, ok := item.ProviderIds.Get(jellyfin.ProviderMusicBrainzAlbum); ok && a.covers != nil {
		thumbnail, err := a.covers.FrontThumbnail(ctx, release)
		switch {
		case errors.Is(err, coverart.ErrNoFrontCover):
			slog.Debug("Release has no front cover", slog.String("release", release))
		case err != nil:
			slog.Warn("Failed to fetch cover art",
				slog.String("release", release),
				slog.String("error", err.Error()),
			)
		default:
			fragment.ImageURL = thumbnail
		}
	}
	return fragment
}

func artistLine(item jellyfin.Item) string {
	artists := []string{}
	for _, artist := range item.Artists {
		if artist = strings.TrimSpace(artist); artist != "" {
			artists = append(artists, artist)
		}
	}
	if len(artists) == 0 {
		return item.AlbumArtist
	}
	return strings.Join(artists, ", ")
}
