package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/r3labs/sse/v2"

	"github.com/marcus-crane/jellypresence/presence"
)

const StreamPresence = "presence"

// SSE pushes presence updates to browsers over server sent events.
type SSE struct {
	Server *sse.Server
}

func NewSSE() *SSE {
	server := sse.New()
	server.AutoReplay = false
	server.CreateStream(StreamPresence)
	return &SSE{Server: server}
}

func (s *SSE) Publish(_ context.Context, update presence.Update) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode presence update: %w", err)
	}
	s.Server.Publish(StreamPresence, &sse.Event{Data: data})
	return nil
}

// ServeHTTP subscribes the caller to the presence stream unless they asked
// for a stream explicitly.
func (s *SSE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("stream") == "" {
		query := r.URL.Query()
		query.Set("stream", StreamPresence)
		r.URL.RawQuery = query.Encode()
	}
	s.Server.ServeHTTP(w, r)
}

func (s *SSE) Close() {
	s.Server.Close()
}
