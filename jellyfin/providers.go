package jellyfin

import "strings"

// Provider names as Jellyfin writes them into ProviderIds. Different
// scanners and tag writers disagree on a few of these so lookups go through
// the alias table below.
const (
	ProviderMusicBrainzRecording = "MusicBrainzRecording"
	ProviderMusicBrainzArtist    = "MusicBrainzArtist"
	ProviderMusicBrainzAlbum     = "MusicBrainzAlbum"
	ProviderTmdb                 = "Tmdb"
	ProviderTvdb                 = "Tvdb"
	ProviderImdb                 = "Imdb"
)

var providerAliases = map[string][]string{
	ProviderMusicBrainzRecording: {"MusicBrainzRecording", "MusicBrainzTrack"},
	ProviderMusicBrainzArtist:    {"MusicBrainzArtist", "MusicBrainzAlbumArtist"},
	ProviderMusicBrainzAlbum:     {"MusicBrainzAlbum", "MusicBrainzRelease"},
	ProviderTmdb:                 {"Tmdb", "TheMovieDb"},
	ProviderTvdb:                 {"Tvdb", "TheTVDB"},
	ProviderImdb:                 {"Imdb"},
}

// ProviderIDs maps a provider name to an external identifier. Any entry may
// be missing and a missing entry only means that provider can't be used.
type ProviderIDs map[string]string

// Get returns the first usable identifier for the provider. Keys match case
// insensitively, known aliases are tried in order and multi-valued entries
// such as "id-a/id-b" resolve to their first value.
func (p ProviderIDs) Get(provider string) (string, bool) {
	names, ok := providerAliases[provider]
	if !ok {
		names = []string{provider}
	}
	for _, name := range names {
		if id := firstValue(p[name]); id != "" {
			return id, true
		}
		for key, value := range p {
			if !strings.EqualFold(key, name) {
				continue
			}
			if id := firstValue(value); id != "" {
				return id, true
			}
		}
	}
	return "", false
}

func firstValue(raw string) string {
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == ';' || r == ','
	}) {
		if part = strings.TrimSpace(part); part != "" {
			return part
		}
	}
	return ""
}
