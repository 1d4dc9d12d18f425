package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marcus-crane/jellypresence/activity"
)

const (
	// SocketID identifies our activity to presence clients. Publishing a nil
	// activity on the same socket clears it.
	SocketID   = "Jellyfin"
	updateType = "LOCAL_ACTIVITY_UPDATE"
)

// Update is a single published presence state. ItemID and Category ride
// along for consumers like the history recorder and never leave the process.
type Update struct {
	SocketID string             `json:"socketId"`
	Activity *activity.Activity `json:"activity"`
	ItemID   string             `json:"-"`
	Category string             `json:"-"`
}

func NewUpdate(a *activity.Activity, itemID, category string) Update {
	return Update{SocketID: SocketID, Activity: a, ItemID: itemID, Category: category}
}

// Clear is the update that removes our activity from a client.
func Clear() Update {
	return Update{SocketID: SocketID}
}

func (u Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string             `json:"type"`
		SocketID string             `json:"socketId"`
		Activity *activity.Activity `json:"activity"`
	}{
		Type:     updateType,
		SocketID: u.SocketID,
		Activity: u.Activity,
	})
}

type Sink interface {
	Publish(ctx context.Context, update Update) error
}

// Broadcaster fans updates out to every attached sink and remembers the last
// one for clients that show up later.
type Broadcaster struct {
	m       sync.RWMutex
	current Update
	sinks   []Sink
}

func NewBroadcaster(sinks ...Sink) *Broadcaster {
	return &Broadcaster{current: Clear(), sinks: sinks}
}

// Attach adds a sink. Sinks attached after a publish only see later updates.
func (b *Broadcaster) Attach(sink Sink) {
	b.m.Lock()
	defer b.m.Unlock()
	b.sinks = append(b.sinks, sink)
}

func (b *Broadcaster) Current() Update {
	b.m.RLock()
	defer b.m.RUnlock()
	return b.current
}

// Publish records the update then hands it to each sink. A failing sink
// doesn't stop the others; their errors come back joined.
func (b *Broadcaster) Publish(ctx context.Context, update Update) error {
	b.m.Lock()
	b.current = update
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.m.Unlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Publish(ctx, update); err != nil {
			slog.Error("Failed to publish presence update",
				slog.String("sink", fmt.Sprintf("%T", sink)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
