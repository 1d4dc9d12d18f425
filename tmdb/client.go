package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/marcus-crane/jellypresence/utils"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	ImageBaseURL    = "https://image.tmdb.org/t/p/"
	PosterSize      = "w500"
	websiteURL      = "https://www.themoviedb.org"
	movieEndpoint   = "/movie/%s"
	creditsEndpoint = "/movie/%s/credits"
	episodeEndpoint = "/tv/%d/season/%d/episode/%d"
)

var ErrMissingAPIKey = errors.New("tmdb api key required")

type Country struct {
	ISO3166 string `json:"iso_3166_1"`
	Name    string `json:"name"`
}

type MovieDetails struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title"`
	ReleaseDate         string    `json:"release_date"`
	PosterPath          string    `json:"poster_path"`
	ProductionCountries []Country `json:"production_countries"`
}

// Year returns the leading year of the release date, or "" when TMDB has no
// date on file.
func (m MovieDetails) Year() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}

type CrewMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type Credits struct {
	ID   int64        `json:"id"`
	Crew []CrewMember `json:"crew"`
}

// Director returns the first crew member credited with the Director job.
func (c Credits) Director() (CrewMember, bool) {
	for _, member := range c.Crew {
		if member.Job == "Director" {
			return member, true
		}
	}
	return CrewMember{}, false
}

type Movie struct {
	Details MovieDetails
	Credits Credits
}

type EpisodeDetails struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	StillPath     string `json:"still_path"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: utils.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) MovieDetails(ctx context.Context, movieID string) (*MovieDetails, error) {
	var details MovieDetails
	if err := c.get(ctx, fmt.Sprintf(movieEndpoint, url.PathEscape(movieID)), &details); err != nil {
		return nil, fmt.Errorf("movie details %s: %w", movieID, err)
	}
	return &details, nil
}

func (c *Client) MovieCredits(ctx context.Context, movieID string) (*Credits, error) {
	var credits Credits
	if err := c.get(ctx, fmt.Sprintf(creditsEndpoint, url.PathEscape(movieID)), &credits); err != nil {
		return nil, fmt.Errorf("movie credits %s: %w", movieID, err)
	}
	return &credits, nil
}

// MovieWithCredits fetches details and credits side by side. Either request
// failing fails the whole lookup.
func (c *Client) MovieWithCredits(ctx context.Context, movieID string) (*Movie, error) {
	var (
		details *MovieDetails
		credits *Credits
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = c.MovieDetails(gctx, movieID)
		return err
	})
	g.Go(func() error {
		var err error
		credits, err = c.MovieCredits(gctx, movieID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Movie{Details: *details, Credits: *credits}, nil
}

func (c *Client) EpisodeDetails(ctx context.Context, seriesID int64, season, episode int) (*EpisodeDetails, error) {
	var details EpisodeDetails
	if err := c.get(ctx, fmt.Sprintf(episodeEndpoint, seriesID, season, episode), &details); err != nil {
		return nil, fmt.Errorf("episode details %d s%d e%d: %w", seriesID, season, episode, err)
	}
	return &details, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	endpointURL, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	values := endpointURL.Query()
	values.Set("api_key", c.apiKey)
	endpointURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ImageURL builds a poster sized image link. Empty paths stay empty.
func ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return ImageBaseURL + PosterSize + path
}

func MovieURL(movieID string) string {
	return fmt.Sprintf("%s/movie/%s", websiteURL, movieID)
}

func PersonURL(personID int64) string {
	return fmt.Sprintf("%s/person/%d", websiteURL, personID)
}

func TVURL(seriesID int64) string {
	return fmt.Sprintf("%s/tv/%d", websiteURL, seriesID)
}
