package metadata

import (
	"regexp"
	"strconv"

	"github.com/marcus-crane/jellypresence/jellyfin"
)

// Jellyfin only exposes the TMDB series of an episode through its external
// links, which look like https://www.themoviedb.org/tv/1408/season/7/episode/11
var tmdbSeriesPattern = regexp.MustCompile(`themoviedb\.org/tv/(\d+)`)

// SeriesIDFromURL pulls the numeric series ID out of a TMDB TV link.
func SeriesIDFromURL(link string) (int64, bool) {
	match := tmdbSeriesPattern.FindStringSubmatch(link)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExtractTMDBSeriesID returns the first series ID found across the item's
// external links.
func ExtractTMDBSeriesID(urls []jellyfin.ExternalURL) (int64, bool) {
	for _, external := range urls {
		if id, ok := SeriesIDFromURL(external.URL); ok {
			return id, true
		}
	}
	return 0, false
}
