package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/marcus-crane/jellypresence/utils"
)

const (
	sessionsEndpoint = "/Sessions"
)

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: utils.NewHTTPClient(),
	}
}

func (c *Client) buildUrl(endpoint string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(c.BaseURL, "/"), endpoint)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=\"%s\"", c.APIKey))
	req.Header.Set("Accept", "application/json")
}

// GetSessions returns every session the server currently knows about, in the
// order the server reports them.
func (c *Client) GetSessions(ctx context.Context) ([]Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildUrl(sessionsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jellyfin returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var sessions []Session
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	slog.Debug("Fetched Jellyfin sessions", slog.Int("count", len(sessions)))

	return sessions, nil
}

// ActiveSessions fetches sessions and narrows them down with FilterSessions.
func (c *Client) ActiveSessions(ctx context.Context, username string, enabled map[string]bool) ([]Session, error) {
	sessions, err := c.GetSessions(ctx)
	if err != nil {
		return nil, err
	}
	return FilterSessions(sessions, username, enabled), nil
}

// FilterSessions keeps sessions owned by username that are playing (not
// paused) an item whose type is enabled. Server order is preserved so the
// first entry is whatever the server listed first.
func FilterSessions(sessions []Session, username string, enabled map[string]bool) []Session {
	matches := []Session{}
	for _, session := range sessions {
		if session.UserName != username {
			continue
		}
		if session.PlayState.IsPaused {
			continue
		}
		item := session.NowPlayingItem
		if item == nil {
			continue
		}
		if !enabled[item.Type] {
			continue
		}
		matches = append(matches, session)
	}
	return matches
}
