package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gndm/catalogmatch/internal/catalog"
	"github.com/gndm/catalogmatch/internal/config"
	"github.com/gndm/catalogmatch/internal/deemix"
	"github.com/gndm/catalogmatch/internal/lastfm"
	"github.com/gndm/catalogmatch/internal/match"
	"github.com/gndm/catalogmatch/internal/matcher"
	"github.com/gndm/catalogmatch/internal/subsonic"
)

// newCatalog builds and logs in to the configured backend. It returns the
// client and its default share link prefix. A failed login is logged, not
// fatal.
func newCatalog(ctx context.Context, cfg *config.Config) (catalog.Client, string, error) {
	limit := cfg.GetSearchLimit()

	switch cfg.GetBackend() {
	case config.BackendDeemix:
		if cfg.Deemix.ARL == "" {
			return nil, "", fmt.Errorf("DEEMIX_ARL (or [deemix] arl) is required for the deemix backend")
		}
		c := deemix.NewClient(cfg.GetDeemixURL(), cfg.Deemix.ARL)
		c.Limit = limit
		logLogin("deemix", cfg.GetDeemixURL(), func() (bool, error) {
			return c.Login(ctx, "", cfg.Deemix.ARL)
		})
		return c, deemix.ShareBaseURL, nil

	case config.BackendSubsonic:
		if !cfg.HasSubsonicConfig() {
			return nil, "", fmt.Errorf("SUBSONIC_URL and SUBSONIC_USER are required for the subsonic backend")
		}
		c := subsonic.NewClient(cfg.Subsonic.URL, cfg.Subsonic.User, cfg.Subsonic.Password)
		c.Limit = limit
		logLogin("subsonic", cfg.Subsonic.URL, func() (bool, error) {
			return c.Login(ctx, cfg.Subsonic.User, cfg.Subsonic.Password)
		})
		return c, c.ShareBaseURL(), nil

	case config.BackendLastfm:
		if !cfg.HasLastfmConfig() {
			return nil, "", fmt.Errorf("LASTFM_API_KEY and LASTFM_API_SECRET are required for the lastfm backend")
		}
		c := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
		c.Limit = limit
		if cfg.Lastfm.Username != "" {
			logLogin("lastfm", cfg.Lastfm.Username, func() (bool, error) {
				return c.Login(ctx, cfg.Lastfm.Username, cfg.Lastfm.Password)
			})
		}
		return c, lastfm.ShareBaseURL, nil
	}
	return nil, "", fmt.Errorf("unknown catalog backend %q", cfg.GetBackend())
}

func logLogin(backend, target string, login func() (bool, error)) {
	ok, err := login()
	switch {
	case err != nil:
		log.Printf("WARNING: %s login failed: %v", backend, err)
	case !ok:
		log.Printf("WARNING: %s rejected the configured credentials", backend)
	default:
		log.Printf("Logged in to %s at %s", backend, target)
	}
}

// newSelector builds the match selector from the [match] config section.
func newSelector(mc config.MatchConfig) *match.Selector {
	nc := match.DefaultNormalizerConfig()
	if len(mc.NoiseWords) > 0 {
		nc.NoiseWords = mc.NoiseWords
	}
	if mc.Punctuation != nil {
		nc.Punctuation = *mc.Punctuation
	}
	return match.NewSelector(match.NewScorer(match.NewNormalizer(nc)))
}

// newMatcher wires the backend, optional Redis cache and selector into a
// matcher.Service. The returned cleanup closes the cache connection.
func newMatcher(ctx context.Context, cfg *config.Config, client catalog.Client, shareBaseURL string) (*matcher.Service, func()) {
	if cfg.Catalog.ShareBaseURL != "" {
		shareBaseURL = cfg.Catalog.ShareBaseURL
	}
	opts := []matcher.Option{matcher.WithSelector(newSelector(cfg.GetMatchConfig()))}
	cleanup := func() {}

	if cfg.HasCacheConfig() {
		cc := cfg.GetCacheConfig()
		store, err := catalog.NewRedisStore(ctx, cc.RedisAddress, cc.RedisPassword, cc.RedisDB)
		if err != nil {
			log.Printf("WARNING: search cache disabled, redis unavailable: %v", err)
		} else {
			opts = append(opts, matcher.WithSearcher(catalog.NewCachedSearcher(client, store, cfg.CacheTTL())))
			cleanup = func() { store.Close() }
		}
	}

	return matcher.New(client, shareBaseURL, opts...), cleanup
}
