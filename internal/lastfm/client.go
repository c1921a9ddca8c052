// Package lastfm searches the Last.fm track database as a catalog backend.
//
// Last.fm has no playable store or user playlists, so the client only
// implements catalog.Client. Track URLs double as share links.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shkh/lastfm-go/lastfm"

	"github.com/gndm/catalogmatch/internal/catalog"
)

// DefaultLimit is the number of tracks requested per search.
const DefaultLimit = 10

// ShareBaseURL turns a MusicBrainz recording id into a link.
const ShareBaseURL = "https://musicbrainz.org/recording/"

// errAuthFailed is the Last.fm error code for rejected credentials.
const errAuthFailed = 4

// trackSearcher is the subset of the Last.fm track API the client uses.
type trackSearcher interface {
	Search(args map[string]interface{}) (lastfm.TrackSearch, error)
}

// authenticator opens a Last.fm mobile session.
type authenticator interface {
	Login(username, password string) error
}

// Client implements catalog.Client on the Last.fm API.
type Client struct {
	auth   authenticator
	tracks trackSearcher
	Limit  int
}

// New creates a client with the given API credentials.
func New(apiKey, apiSecret string) *Client {
	api := lastfm.New(apiKey, apiSecret)
	return &Client{auth: api, tracks: api.Track, Limit: DefaultLimit}
}

// Login opens a mobile session. Rejected credentials return false with a
// nil error.
func (c *Client) Login(ctx context.Context, username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := c.auth.Login(username, password)
	if err == nil {
		return true, nil
	}
	var lfErr *lastfm.LastfmError
	if errors.As(err, &lfErr) && lfErr.Code == errAuthFailed {
		return false, nil
	}
	return false, fmt.Errorf("lastfm: login: %w", err)
}

// Search runs track.search with the free-text query as the track name.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.TrackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	result, err := c.tracks.Search(lastfm.P{
		"track": query,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("lastfm: search: %w", err)
	}
	return toRecords(result), nil
}

// toRecords maps search matches. Tracks without an MBID are identified by
// their Last.fm URL.
func toRecords(result lastfm.TrackSearch) []catalog.TrackRecord {
	records := make([]catalog.TrackRecord, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		id := strings.TrimSpace(t.Mbid)
		if id == "" {
			id = t.Url
		}
		records = append(records, catalog.TrackRecord{
			Artist:  t.Artist,
			Title:   t.Name,
			StoreID: id,
		})
	}
	return records
}

var _ catalog.Client = (*Client)(nil)
