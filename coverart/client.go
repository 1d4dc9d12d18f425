package coverart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/marcus-crane/jellypresence/utils"
)

const (
	DefaultBaseURL  = "https://coverartarchive.org"
	releaseEndpoint = "/release/%s"
)

var ErrNoFrontCover = errors.New("release has no front cover")

type ReleaseResponse struct {
	Release string  `json:"release"`
	Images  []Image `json:"images"`
}

type Image struct {
	Front      bool       `json:"front"`
	Back       bool       `json:"back"`
	Image      string     `json:"image"`
	Types      []string   `json:"types"`
	Thumbnails Thumbnails `json:"thumbnails"`
}

type Thumbnails struct {
	Small   string `json:"small"`
	Large   string `json:"large"`
	Size250 string `json:"250"`
	Size500 string `json:"500"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithRateLimit overrides the request budget. The archive asks clients to
// stay around one request per second.
func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: utils.NewHTTPClient(),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRelease fetches the image listing for a MusicBrainz release.
func (c *Client) GetRelease(ctx context.Context, releaseID string) (*ReleaseResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.BaseURL + fmt.Sprintf(releaseEndpoint, releaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover art archive returned %d", res.StatusCode)
	}

	var payload ReleaseResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode cover art response: %w", err)
	}
	return &payload, nil
}

// FrontThumbnail returns the small thumbnail of the first image flagged as
// the front cover.
func (c *Client) FrontThumbnail(ctx context.Context, releaseID string) (string, error) {
	release, err := c.GetRelease(ctx, releaseID)
	if err != nil {
		return "", err
	}
	for _, image := range release.Images {
		if !image.Front {
			continue
		}
		if image.Thumbnails.Small != "" {
			return image.Thumbnails.Small, nil
		}
		// Older uploads only carry the numeric sizes
		if image.Thumbnails.Size250 != "" {
			return image.Thumbnails.Size250, nil
		}
	}
	return "", ErrNoFrontCover
}
