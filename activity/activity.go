package activity

import (
	"time"

	"github.com/marcus-crane/jellypresence/jellyfin"
	"github.com/marcus-crane/jellypresence/metadata"
)

// FlagInstance marks the activity as tied to a running instance.
const FlagInstance = 1 << 0

// Activity is the rich presence payload. Once built it's treated as
// immutable and handed to every sink as is.
type Activity struct {
	ApplicationID     string                     `json:"application_id"`
	Flags             int                        `json:"flags"`
	Name              string                     `json:"name"`
	Type              metadata.ActivityType      `json:"type"`
	StatusDisplayType metadata.StatusDisplayType `json:"status_display_type"`
	Details           string                     `json:"details"`
	DetailsURL        string                     `json:"details_url,omitempty"`
	State             string                     `json:"state,omitempty"`
	StateURL          string                     `json:"state_url,omitempty"`
	Timestamps        *Timestamps                `json:"timestamps,omitempty"`
	Assets            Assets                     `json:"assets"`
}

type Timestamps struct {
	Start int64 `json:"start"`         // unix milliseconds
	End   int64 `json:"end,omitempty"` // unix milliseconds
}

type Assets struct {
	LargeImage      string   `json:"large_image"`
	LargeText       *string  `json:"large_text"`
	SmallImage      *string  `json:"small_image"`
	SmallText       *string  `json:"small_text"`
	DominantColours []string `json:"dominant_colours,omitempty"`
}

// Progress places the playback position on the wall clock. Start is when
// playback would have begun had it never been paused and End is when it will
// finish. Items without a runtime only get a start.
func Progress(positionTicks, runtimeTicks int64, now time.Time) *Timestamps {
	start := now.UnixMilli() - positionTicks/jellyfin.TicksPerMillisecond
	timestamps := &Timestamps{Start: start}
	if runtimeTicks > 0 {
		timestamps.End = start + runtimeTicks/jellyfin.TicksPerMillisecond
	}
	return timestamps
}
