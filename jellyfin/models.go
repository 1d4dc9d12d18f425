package jellyfin

// Item types reported in NowPlayingItem.Type
const (
	CategoryAudio   = "Audio"
	CategoryMovie   = "Movie"
	CategoryEpisode = "Episode"
	CategoryBook    = "Book"
)

// TicksPerMillisecond converts Jellyfin's 100ns ticks into milliseconds.
const TicksPerMillisecond = 10_000

type Session struct {
	ID             string    `json:"Id"`
	UserName       string    `json:"UserName"`
	Client         string    `json:"Client"`
	DeviceName     string    `json:"DeviceName"`
	PlayState      PlayState `json:"PlayState"`
	NowPlayingItem *Item     `json:"NowPlayingItem,omitempty"`
}

type PlayState struct {
	PositionTicks int64 `json:"PositionTicks"`
	IsPaused      bool  `json:"IsPaused"`
}

type Item struct {
	ID                string        `json:"Id"`
	Name              string        `json:"Name"`
	Type              string        `json:"Type"`
	ProviderIds       ProviderIDs   `json:"ProviderIds"`
	ExternalUrls      []ExternalURL `json:"ExternalUrls"`
	RunTimeTicks      int64         `json:"RunTimeTicks"`
	ProductionYear    int           `json:"ProductionYear"`
	Artists           []string      `json:"Artists"`
	AlbumArtist       string        `json:"AlbumArtist"`
	Album             string        `json:"Album"`
	SeriesName        string        `json:"SeriesName"`
	SeriesID          string        `json:"SeriesId"`
	ParentIndexNumber int           `json:"ParentIndexNumber"` // Season number
	IndexNumber       int           `json:"IndexNumber"`       // Episode number
	IndexNumberEnd    *int          `json:"IndexNumberEnd,omitempty"`
}

type ExternalURL struct {
	Name string `json:"Name"`
	URL  string `json:"Url"`
}
