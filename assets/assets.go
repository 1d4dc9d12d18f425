package assets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/marcus-crane/jellypresence/utils"
)

const (
	ModePassthrough = "passthrough"
	ModeLocal       = "local"

	coverCacheSize = 128
)

// Asset is what a presence client displays for an artwork key: either the
// key itself or a location it can load the image from.
type Asset struct {
	ID              string   `json:"id"`
	DominantColours []string `json:"dominant_colours,omitempty"`
}

// Resolver turns artwork URLs or icon names into asset identifiers for an
// application. The result has one entry per key, in the same order.
type Resolver interface {
	Resolve(ctx context.Context, applicationID string, keys []string) ([]Asset, error)
}

// Passthrough hands keys back untouched. Clients that can fetch external
// images themselves need nothing more.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, _ string, keys []string) ([]Asset, error) {
	resolved := make([]Asset, 0, len(keys))
	for _, key := range keys {
		resolved = append(resolved, Asset{ID: key})
	}
	return resolved, nil
}

// CoverStore downloads remote artwork into StorageDir and serves it back
// under /static/ along with its dominant colours. Icon names pass through.
type CoverStore struct {
	StorageDir string
	HTTPClient *http.Client

	cache *lru.Cache[string, Asset]
}

func NewCoverStore(storageDir string) *CoverStore {
	cache, _ := lru.New[string, Asset](coverCacheSize)
	return &CoverStore{
		StorageDir: storageDir,
		HTTPClient: utils.NewHTTPClient(),
		cache:      cache,
	}
}

func (c *CoverStore) Resolve(ctx context.Context, _ string, keys []string) ([]Asset, error) {
	resolved := make([]Asset, 0, len(keys))
	for _, key := range keys {
		if !isRemote(key) {
			resolved = append(resolved, Asset{ID: key})
			continue
		}
		asset, err := c.store(ctx, key)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, asset)
	}
	return resolved, nil
}

func (c *CoverStore) store(ctx context.Context, imageURL string) (Asset, error) {
	if cached, ok := c.cache.Get(imageURL); ok {
		return cached, nil
	}

	image, extension, colours, err := utils.ExtractImageContent(ctx, c.HTTPClient, imageURL)
	if err != nil {
		return Asset{}, fmt.Errorf("download cover %s: %w", imageURL, err)
	}
	location, guid := utils.BytesToGUIDLocation(image, extension)
	if err := utils.SaveCover(c.StorageDir, guid.String(), image, extension); err != nil {
		return Asset{}, fmt.Errorf("save cover %s: %w", imageURL, err)
	}
	slog.Debug("Saved cover",
		slog.String("url", imageURL),
		slog.String("location", location),
	)

	asset := Asset{ID: location, DominantColours: colours}
	c.cache.Add(imageURL, asset)
	return asset, nil
}

func isRemote(key string) bool {
	return strings.HasPrefix(key, "https://") || strings.HasPrefix(key, "http://")
}

// New picks a resolver for the configured asset mode.
func New(mode, storageDir string) Resolver {
	if strings.EqualFold(mode, ModeLocal) {
		return NewCoverStore(storageDir)
	}
	return Passthrough{}
}
