// Package catalog defines the contracts the matcher needs from a music
// catalog service, and the record type every backend projects its search
// hits into.
package catalog

import (
	"context"
	"errors"
)

var (
	ErrUnsupported      = errors.New("operation not supported by catalog backend")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// TrackRecord is the minimal projection of a catalog search hit.
type TrackRecord struct {
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	Title   string `json:"title"`
	StoreID string `json:"store_id"`
}

// Searcher runs a free-text track search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]TrackRecord, error)
}

// Authenticator establishes a session with the catalog. It reports false
// with a nil error when the service rejected the credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (bool, error)
}

// PlaylistEditor is implemented by backends that can build playlists.
type PlaylistEditor interface {
	CreatePlaylist(ctx context.Context, name string, trackIDs []string, public bool) (string, error)
	AddSongs(ctx context.Context, playlistID string, trackIDs []string) error
}

// Client is the capability every backend provides.
type Client interface {
	Searcher
	Authenticator
}
