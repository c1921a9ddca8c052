// Package catalogtest provides an in-memory catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gndm/catalogmatch/internal/catalog"
)

// Catalog is an in-memory catalog.Client and catalog.PlaylistEditor.
//
// Search returns Results[query] when set, otherwise every track whose
// artist or title shares a word with the query, in insertion order.
//
// When AddSongsErr is set, CreatePlaylist still creates the playlist but
// fails to fill it, returning the new id along with the error.
type Catalog struct {
	Tracks      []catalog.TrackRecord
	Results     map[string][]catalog.TrackRecord
	Users       map[string]string
	SearchErr   error
	LoginErr    error
	AddSongsErr error

	mu        sync.Mutex
	queries   []string
	playlists map[string]*Playlist
	nextID    int
}

// Playlist is a playlist created through the fake.
type Playlist struct {
	Name     string
	Public   bool
	TrackIDs []string
}

func (c *Catalog) Search(_ context.Context, query string) ([]catalog.TrackRecord, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()

	if c.SearchErr != nil {
		return nil, c.SearchErr
	}
	if hits, ok := c.Results[query]; ok {
		return hits, nil
	}

	words := strings.Fields(strings.ToLower(query))
	var hits []catalog.TrackRecord
	for _, t := range c.Tracks {
		hay := strings.ToLower(t.Artist + " " + t.Title)
		for _, w := range words {
			if strings.Contains(hay, w) {
				hits = append(hits, t)
				break
			}
		}
	}
	return hits, nil
}

func (c *Catalog) Login(_ context.Context, username, password string) (bool, error) {
	if c.LoginErr != nil {
		return false, c.LoginErr
	}
	want, ok := c.Users[username]
	return ok && want == password, nil
}

func (c *Catalog) CreatePlaylist(_ context.Context, name string, trackIDs []string, public bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlists == nil {
		c.playlists = make(map[string]*Playlist)
	}
	c.nextID++
	id := fmt.Sprintf("pl-%d", c.nextID)
	c.playlists[id] = &Playlist{Name: name, Public: public}
	if c.AddSongsErr != nil {
		return id, c.AddSongsErr
	}
	c.playlists[id].TrackIDs = append([]string(nil), trackIDs...)
	return id, nil
}

func (c *Catalog) AddSongs(_ context.Context, playlistID string, trackIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AddSongsErr != nil {
		return c.AddSongsErr
	}
	p, ok := c.playlists[playlistID]
	if !ok {
		return fmt.Errorf("playlist %s not found", playlistID)
	}
	p.TrackIDs = append(p.TrackIDs, trackIDs...)
	return nil
}

// Queries returns the search queries received so far.
func (c *Catalog) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

// PlaylistCount returns how many playlists have been created.
func (c *Catalog) PlaylistCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.playlists)
}

// Playlist returns a copy of a created playlist.
func (c *Catalog) Playlist(id string) (Playlist, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.playlists[id]
	if !ok {
		return Playlist{}, false
	}
	cp := *p
	cp.TrackIDs = append([]string(nil), p.TrackIDs...)
	return cp, true
}

// SearchOnly exposes only the catalog.Client methods of a Catalog.
type SearchOnly struct {
	C *Catalog
}

func (s SearchOnly) Search(ctx context.Context, query string) ([]catalog.TrackRecord, error) {
	return s.C.Search(ctx, query)
}

func (s SearchOnly) Login(ctx context.Context, username, password string) (bool, error) {
	return s.C.Login(ctx, username, password)
}

var (
	_ catalog.Client         = (*Catalog)(nil)
	_ catalog.PlaylistEditor = (*Catalog)(nil)
)
