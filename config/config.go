package config

import (
	"log/slog"
	"strings"
	"time"

	golobby "github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

const (
	DefaultApplicationID   = "1433957762437742722"
	DefaultApplicationName = "Jellyfin"
	DefaultUpdateInterval  = 10
	// MinimumUpdateInterval is the floor applied to UPDATE_INTERVAL. Anything
	// lower gets bumped up rather than rejected.
	MinimumUpdateInterval = 10 * time.Second
)

type Config struct {
	Jellyfin   JellyfinConfig
	Categories CategoriesConfig
	TMDB       TMDBConfig
	Discord    DiscordConfig
	Presence   PresenceConfig
	Pushover   PushoverConfig
}

type JellyfinConfig struct {
	URL      string `env:"JELLYFIN_URL"`
	APIKey   string `env:"JELLYFIN_API_KEY"`
	Username string `env:"JELLYFIN_USERNAME"`
}

type CategoriesConfig struct {
	Audio  bool `env:"SHOW_AUDIO"`
	Movies bool `env:"SHOW_MOVIES"`
	Shows  bool `env:"SHOW_SHOWS"`
	Books  bool `env:"SHOW_BOOKS"`
}

type TMDBConfig struct {
	APIKey string `env:"TMDB_API_KEY"`
}

type DiscordConfig struct {
	ApplicationID   string `env:"DISCORD_APPLICATION_ID"`
	ApplicationName string `env:"DISCORD_APPLICATION_NAME"`
}

type PresenceConfig struct {
	UpdateInterval    int    `env:"UPDATE_INTERVAL"` // seconds
	MetadataCacheSize int    `env:"METADATA_CACHE_SIZE"`
	AssetMode         string `env:"ASSET_MODE"`
	ListenAddr        string `env:"LISTEN_ADDR"`
	DbPath            string `env:"DB_PATH"`
	StorageDir        string `env:"STORAGE_DIR"`
	LogLevel          string `env:"LOG_LEVEL"`
	LogFile           string `env:"LOG_FILE"`
	WebhookSecret     string `env:"WEBHOOK_SECRET"`
	EgressAllowlist   string `env:"EGRESS_ALLOWLIST"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

// Default returns a Config populated with the values used when the matching
// environment variable is unset.
func Default() Config {
	return Config{
		Categories: CategoriesConfig{
			Audio:  true,
			Movies: true,
			Shows:  true,
		},
		Discord: DiscordConfig{
			ApplicationID:   DefaultApplicationID,
			ApplicationName: DefaultApplicationName,
		},
		Presence: PresenceConfig{
			UpdateInterval: DefaultUpdateInterval,
			AssetMode:      "passthrough",
			ListenAddr:     ":8080",
			StorageDir:     "/tmp",
			LogLevel:       "info",
		},
	}
}

// Load feeds environment variables over the defaults. Only variables that
// are actually set override a default.
func Load() (Config, error) {
	cfg := Default()
	err := golobby.New().
		AddFeeder(feeder.Env{}).
		AddStruct(&cfg).
		Feed()
	return cfg, err
}

// HasServer reports whether enough of the Jellyfin connection is configured
// to poll. Presence of each value is all that is checked.
func (c *Config) HasServer() bool {
	return c.Jellyfin.URL != "" && c.Jellyfin.APIKey != "" && c.Jellyfin.Username != ""
}

func (c *Config) PollInterval() time.Duration {
	return max(time.Duration(c.Presence.UpdateInterval)*time.Second, MinimumUpdateInterval)
}

// EnabledCategories maps Jellyfin item types to whether they should be shown.
func (c *Config) EnabledCategories() map[string]bool {
	return map[string]bool{
		"Audio":   c.Categories.Audio,
		"Movie":   c.Categories.Movies,
		"Episode": c.Categories.Shows,
		"Book":    c.Categories.Books,
	}
}

// EgressAllowlist splits EGRESS_ALLOWLIST on commas. An empty list means no
// policy has been configured.
func (c *Config) EgressAllowlist() []string {
	var hosts []string
	for _, h := range strings.Split(c.Presence.EgressAllowlist, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Presence.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" || logLevel == "warn" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
