// Package matcher resolves an artist and title to the best track in a
// catalog and renders it for display.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gndm/catalogmatch/internal/catalog"
	"github.com/gndm/catalogmatch/internal/match"
)

var (
	ErrNoMatch    = errors.New("no match found")
	ErrEmptyQuery = errors.New("artist and title are both empty")
)

// Result is the best hit for a query.
type Result struct {
	Track catalog.TrackRecord `json:"track"`
	Score float64             `json:"score"`
}

// Service matches queries against a catalog backend.
type Service struct {
	client       catalog.Client
	searcher     catalog.Searcher
	editor       catalog.PlaylistEditor
	selector     *match.Selector
	shareBaseURL string
}

// Option configures a Service.
type Option func(*Service)

// WithSearcher routes searches through s instead of the client, typically a
// catalog.CachedSearcher wrapping it.
func WithSearcher(s catalog.Searcher) Option {
	return func(svc *Service) { svc.searcher = s }
}

// WithSelector overrides the default selector.
func WithSelector(sel *match.Selector) Option {
	return func(svc *Service) { svc.selector = sel }
}

// New creates a Service. Playlist operations are available when client also
// implements catalog.PlaylistEditor.
func New(client catalog.Client, shareBaseURL string, opts ...Option) *Service {
	svc := &Service{
		client:       client,
		searcher:     client,
		selector:     match.DefaultSelector(),
		shareBaseURL: shareBaseURL,
	}
	if editor, ok := client.(catalog.PlaylistEditor); ok {
		svc.editor = editor
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Selector returns the selector used to rank hits.
func (s *Service) Selector() *match.Selector {
	return s.selector
}

// SupportsPlaylists reports whether the backend can create playlists.
func (s *Service) SupportsPlaylists() bool {
	return s.editor != nil
}

// Search runs a raw catalog search.
func (s *Service) Search(ctx context.Context, query string) ([]catalog.TrackRecord, error) {
	hits, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return hits, nil
}

// BestMatch searches for "artist title" and returns the closest hit.
func (s *Service) BestMatch(ctx context.Context, q match.Query) (Result, error) {
	text := SearchText(q)
	if text == "" {
		return Result{}, ErrEmptyQuery
	}

	hits, err := s.Search(ctx, text)
	if err != nil {
		return Result{}, err
	}

	best, ok := s.selector.Best(q, hits)
	if !ok {
		log.Printf("[matcher] no hits for %q", text)
		return Result{}, ErrNoMatch
	}
	log.Printf("[matcher] %q -> %s - %s (score %.3f, %d hits)", text, best.Track.Artist, best.Track.Title, best.Score, len(hits))
	return Result{Track: best.Track, Score: best.Score}, nil
}

// FormatBestMatch returns the best hit as a display line.
func (s *Service) FormatBestMatch(ctx context.Context, q match.Query) (string, error) {
	res, err := s.BestMatch(ctx, q)
	if err != nil {
		return "", err
	}
	return s.Format(res.Track), nil
}

// Format renders "{artist} {album} {title} - {share link}".
func (s *Service) Format(t catalog.TrackRecord) string {
	return fmt.Sprintf("%s %s %s - %s", t.Artist, t.Album, t.Title, s.ShareURL(t))
}

// ShareURL returns the link for t. IDs that are already URLs are returned
// unchanged.
func (s *Service) ShareURL(t catalog.TrackRecord) string {
	if strings.HasPrefix(t.StoreID, "http://") || strings.HasPrefix(t.StoreID, "https://") {
		return t.StoreID
	}
	return s.shareBaseURL + t.StoreID
}

// Login authenticates against the backend.
func (s *Service) Login(ctx context.Context, username, password string) (bool, error) {
	ok, err := s.client.Login(ctx, username, password)
	if err != nil {
		return false, fmt.Errorf("login: %w", err)
	}
	return ok, nil
}

// CreatePlaylist creates a playlist holding trackIDs. When the catalog
// created the playlist but failed to finish it, the id is returned along
// with the error.
func (s *Service) CreatePlaylist(ctx context.Context, name string, trackIDs []string, public bool) (string, error) {
	if s.editor == nil {
		return "", catalog.ErrUnsupported
	}
	id, err := s.editor.CreatePlaylist(ctx, name, trackIDs, public)
	if err != nil {
		return id, fmt.Errorf("create playlist %q: %w", name, err)
	}
	log.Printf("[matcher] created playlist %q (%s) with %d tracks", name, id, len(trackIDs))
	return id, nil
}

// AddSongs appends trackIDs to an existing playlist.
func (s *Service) AddSongs(ctx context.Context, playlistID string, trackIDs []string) error {
	if s.editor == nil {
		return catalog.ErrUnsupported
	}
	if err := s.editor.AddSongs(ctx, playlistID, trackIDs); err != nil {
		return fmt.Errorf("add songs to %s: %w", playlistID, err)
	}
	return nil
}

// SearchText joins artist and title with a space, dropping empty sides.
func SearchText(q match.Query) string {
	return strings.TrimSpace(strings.TrimSpace(q.Artist) + " " + strings.TrimSpace(q.Title))
}
