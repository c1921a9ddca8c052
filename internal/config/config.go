// Package config loads catalogmatch settings from TOML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Catalog backends.
const (
	BackendDeemix   = "deemix"
	BackendSubsonic = "subsonic"
	BackendLastfm   = "lastfm"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Deemix   DeemixConfig   `koanf:"deemix"`
	Subsonic SubsonicConfig `koanf:"subsonic"`
	Lastfm   LastfmConfig   `koanf:"lastfm"`
	Match    MatchConfig    `koanf:"match"`
	Cache    CacheConfig    `koanf:"cache"`
	Telegram TelegramConfig `koanf:"telegram"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      string `koanf:"port"`       // default: "8080"
	StaticDir string `koanf:"static_dir"` // serve UI from disk instead of the embedded copy
	YtdlpPath string `koanf:"ytdlp_path"` // enables playlist URLs as a session source
}

// CatalogConfig selects the catalog backend.
type CatalogConfig struct {
	Backend      string `koanf:"backend"`        // "deemix", "subsonic" or "lastfm" (default: "deemix")
	ShareBaseURL string `koanf:"share_base_url"` // prefix for share links; backend default when empty
	SearchLimit  int    `koanf:"search_limit"`   // hits requested per search (default: 10)
}

// DeemixConfig holds Deemix connection settings.
type DeemixConfig struct {
	URL string `koanf:"url"` // default: "http://localhost:6595"
	ARL string `koanf:"arl"`
}

// SubsonicConfig holds Subsonic (Navidrome, Airsonic, ...) settings.
type SubsonicConfig struct {
	URL      string `koanf:"url"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
}

// LastfmConfig holds Last.fm API credentials.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
}

// MatchConfig tunes the matcher.
type MatchConfig struct {
	MaxScore    *float64 `koanf:"max_score"`   // auto-select threshold for batch matches (default: 0.5)
	NoiseWords  []string `koanf:"noise_words"` // replaces the built-in list when set
	Punctuation *string  `koanf:"punctuation"` // replaces ASCII punctuation when set
}

// CacheConfig holds the Redis search cache settings.
type CacheConfig struct {
	RedisAddress  string `koanf:"redis_address"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	TTLMinutes    int    `koanf:"ttl_minutes"` // default: 60
}

// TelegramConfig holds the bot token.
type TelegramConfig struct {
	Token string `koanf:"token"`
}

// Load reads the config files in priority order, then applies environment
// overrides.
func Load() (*Config, error) {
	return load(getConfigPaths(), os.LookupEnv)
}

func load(paths []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}

	cfg.Catalog.Backend = strings.ToLower(strings.TrimSpace(cfg.Catalog.Backend))
	cfg.Deemix.URL = strings.TrimSuffix(cfg.Deemix.URL, "/")
	cfg.Subsonic.URL = strings.TrimSuffix(cfg.Subsonic.URL, "/")
	if cfg.Server.StaticDir != "" {
		cfg.Server.StaticDir = expandPath(cfg.Server.StaticDir)
	}

	return cfg, cfg.validate()
}

// applyEnv overrides file values with the environment variables that are
// set.
func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORT":                &cfg.Server.Port,
		"CATALOG_BACKEND":     &cfg.Catalog.Backend,
		"DEEMIX_URL":          &cfg.Deemix.URL,
		"DEEMIX_ARL":          &cfg.Deemix.ARL,
		"SUBSONIC_URL":        &cfg.Subsonic.URL,
		"SUBSONIC_USER":       &cfg.Subsonic.User,
		"SUBSONIC_PASSWORD":   &cfg.Subsonic.Password,
		"LASTFM_API_KEY":      &cfg.Lastfm.APIKey,
		"LASTFM_API_SECRET":   &cfg.Lastfm.APISecret,
		"LASTFM_USERNAME":     &cfg.Lastfm.Username,
		"LASTFM_PASSWORD":     &cfg.Lastfm.Password,
		"REDIS_ADDRESS":       &cfg.Cache.RedisAddress,
		"REDIS_PASSWORD":      &cfg.Cache.RedisPassword,
		"TELEGRAM_BOT_TOKEN":  &cfg.Telegram.Token,
		"CATALOG_SHARE_URL":   &cfg.Catalog.ShareBaseURL,
		"CATALOGMATCH_STATIC": &cfg.Server.StaticDir,
		"YTDLP_PATH":          &cfg.Server.YtdlpPath,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookupEnv("MATCH_MAX_SCORE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MATCH_MAX_SCORE: %w", err)
		}
		cfg.Match.MaxScore = &f
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Catalog.Backend {
	case "", BackendDeemix, BackendSubsonic, BackendLastfm:
		return nil
	default:
		return fmt.Errorf("unknown catalog backend %q", c.Catalog.Backend)
	}
}

func getConfigPaths() []string {
	paths := []string{}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "catalogmatch", "config.toml"))
	}

	// ./config.toml wins.
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetPort returns the listen port, "8080" by default.
func (c *Config) GetPort() string {
	if c.Server.Port == "" {
		return "8080"
	}
	return c.Server.Port
}

// GetBackend returns the configured catalog backend, deemix by default.
func (c *Config) GetBackend() string {
	if c.Catalog.Backend == "" {
		return BackendDeemix
	}
	return c.Catalog.Backend
}

// GetDeemixURL returns the Deemix base URL with its default applied.
func (c *Config) GetDeemixURL() string {
	if c.Deemix.URL == "" {
		return "http://localhost:6595"
	}
	return c.Deemix.URL
}

// HasSubsonicConfig returns true if a Subsonic server is configured.
func (c *Config) HasSubsonicConfig() bool {
	return c.Subsonic.URL != "" && c.Subsonic.User != ""
}

// HasLastfmConfig returns true if Last.fm API credentials are set.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// HasCacheConfig returns true if a Redis cache is configured.
func (c *Config) HasCacheConfig() bool {
	return c.Cache.RedisAddress != ""
}

// HasTelegramConfig returns true if the Telegram bot is enabled.
func (c *Config) HasTelegramConfig() bool {
	return c.Telegram.Token != ""
}

// HasYtdlpConfig reports whether playlist URLs can be fetched with yt-dlp.
func (c *Config) HasYtdlpConfig() bool {
	return c.Server.YtdlpPath != ""
}

// GetMatchConfig returns the match configuration with defaults applied.
func (c *Config) GetMatchConfig() MatchConfig {
	cfg := c.Match
	score := c.GetMaxScore()
	cfg.MaxScore = &score
	return cfg
}

// GetMaxScore returns the auto-select threshold. Zero is valid and selects
// exact matches only; unset or out-of-range values fall back to 0.5.
func (c *Config) GetMaxScore() float64 {
	if s := c.Match.MaxScore; s != nil && *s >= 0 && *s <= 2 {
		return *s
	}
	return 0.5
}

// GetCacheConfig returns the cache configuration with defaults applied.
func (c *Config) GetCacheConfig() CacheConfig {
	cfg := c.Cache
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = 60
	}
	return cfg
}

// CacheTTL returns the search cache expiry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.GetCacheConfig().TTLMinutes) * time.Minute
}

// GetSearchLimit returns the number of hits requested per search.
func (c *Config) GetSearchLimit() int {
	if c.Catalog.SearchLimit <= 0 {
		return 10
	}
	return c.Catalog.SearchLimit
}
