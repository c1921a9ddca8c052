// Package playlist resolves batches of request lines against a catalog and
// turns the reviewed matches into a catalog playlist.
package playlist

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gndm/catalogmatch/internal/catalog"
	"github.com/gndm/catalogmatch/internal/match"
	"github.com/gndm/catalogmatch/internal/matcher"
	"github.com/gndm/catalogmatch/internal/parser"
)

// DefaultMaxScore is the highest score a match may have and still be
// selected without review. Scores range from 0 (exact) to 2.
const DefaultMaxScore = 0.5

// Matcher finds catalog tracks and creates playlists. *matcher.Service
// implements it.
type Matcher interface {
	BestMatch(ctx context.Context, q match.Query) (matcher.Result, error)
	ShareURL(t catalog.TrackRecord) string
	CreatePlaylist(ctx context.Context, name string, trackIDs []string, public bool) (string, error)
	AddSongs(ctx context.Context, playlistID string, trackIDs []string) error
}

// Source lists the entries of a remote playlist as request lines.
// *ytdlp.CommandClient implements it.
type Source interface {
	Titles(ctx context.Context, playlistURL string) ([]string, error)
}

// Pipeline manages playlist sessions.
type Pipeline struct {
	matcher     Matcher
	source      Source
	sessions    map[string]*Session
	mu          sync.RWMutex
	searchDelay time.Duration
	maxScore    float64
}

// NewPipeline creates a pipeline matching through m.
func NewPipeline(m Matcher) *Pipeline {
	return &Pipeline{
		matcher:     m,
		sessions:    make(map[string]*Session),
		searchDelay: 200 * time.Millisecond,
		maxScore:    DefaultMaxScore,
	}
}

// SetSource enables AnalyzeURL.
func (p *Pipeline) SetSource(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = src
}

// SetMaxScore sets the auto-select threshold. Matches scoring above it are
// marked needs_review. Negative values are clamped to 0.
func (p *Pipeline) SetMaxScore(score float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxScore = max(score, 0)
}

// Analyze starts a session for the given request lines and returns its ID
// immediately. Matching runs in a goroutine and stops at StatusReady.
// Blank lines and '#' comments are ignored.
func (p *Pipeline) Analyze(ctx context.Context, name string, lines []string, public bool) string {
	session := p.newSession(name, public, StatusSearching, "", tracksFromLines(lines))

	log.Printf("[playlist] session %s analyzing %d tracks for %q", session.ID, len(session.Tracks), name)
	go p.run(ctx, session)
	return session.ID
}

// AnalyzeURL starts a session whose request lines are the entry titles of a
// remote playlist.
func (p *Pipeline) AnalyzeURL(ctx context.Context, name, playlistURL string, public bool) (string, error) {
	p.mu.RLock()
	src := p.source
	p.mu.RUnlock()
	if src == nil {
		return "", ErrNoSource
	}

	session := p.newSession(name, public, StatusFetching, playlistURL, nil)

	log.Printf("[playlist] session %s fetching %s", session.ID, playlistURL)
	go func() {
		titles, err := src.Titles(ctx, playlistURL)
		if err != nil {
			p.setError(session, "failed to fetch playlist: "+err.Error())
			return
		}

		p.mu.Lock()
		session.Tracks = tracksFromLines(titles)
		session.Progress.Total = len(session.Tracks)
		session.Status = StatusSearching
		p.mu.Unlock()

		p.run(ctx, session)
	}()
	return session.ID, nil
}

func (p *Pipeline) newSession(name string, public bool, status, sourceURL string, tracks []Track) *Session {
	session := &Session{
		ID:        generateID(),
		Name:      name,
		Public:    public,
		Status:    status,
		SourceURL: sourceURL,
		Tracks:    tracks,
		Progress:  Progress{Total: len(tracks)},
	}
	p.mu.Lock()
	p.sessions[session.ID] = session
	p.mu.Unlock()
	return session
}

func tracksFromLines(lines []string) []Track {
	var tracks []Track
	for _, line := range lines {
		for _, q := range parser.ParseLines(line) {
			tracks = append(tracks, Track{
				Line:   strings.TrimSpace(line),
				Query:  q,
				Status: TrackPending,
			})
		}
	}
	return tracks
}

// GetSession returns a copy of the session state.
func (p *Pipeline) GetSession(id string) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *s
	cp.Tracks = make([]Track, len(s.Tracks))
	copy(cp.Tracks, s.Tracks)
	for i := range cp.Tracks {
		if m := cp.Tracks[i].Match; m != nil {
			mc := *m
			cp.Tracks[i].Match = &mc
		}
	}
	return &cp, true
}

// Stats summarizes all sessions.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := Stats{ByStatus: make(map[string]int)}
	for _, s := range p.sessions {
		st.Sessions++
		st.ByStatus[s.Status]++
		st.Tracks += s.Progress.Total
		st.TracksSeen += s.Progress.Searched
	}
	return st
}

func (p *Pipeline) run(ctx context.Context, session *Session) {
	p.mu.RLock()
	n := len(session.Tracks)
	p.mu.RUnlock()

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			p.setError(session, "canceled")
			return
		}

		p.mu.Lock()
		p.update(session, i, func(t *Track) { t.Status = TrackSearching })
		q := session.Tracks[i].Query
		p.mu.Unlock()

		res, err := p.matcher.BestMatch(ctx, q)

		p.mu.Lock()
		p.update(session, i, func(t *Track) { p.applyResult(t, res, err) })
		session.Progress.Searched++
		p.mu.Unlock()

		if i < n-1 {
			time.Sleep(p.searchDelay)
		}
	}

	p.mu.Lock()
	session.Status = StatusReady
	log.Printf("[playlist] session %s ready: %d selected, %d needs review, %d not found, %d failed",
		session.ID, session.Progress.Selected, session.Progress.NeedsReview, session.Progress.NotFound, session.Progress.Failed)
	p.mu.Unlock()
}

// applyResult records a match outcome on t. Callers hold p.mu.
func (p *Pipeline) applyResult(t *Track, res matcher.Result, err error) {
	t.Match = nil
	t.Score = 0
	t.ShareURL = ""
	t.Error = ""
	t.Selected = false

	switch {
	case errors.Is(err, matcher.ErrNoMatch), errors.Is(err, matcher.ErrEmptyQuery):
		t.Status = TrackNotFound
	case err != nil:
		t.Status = TrackError
		t.Error = err.Error()
	default:
		track := res.Track
		t.Match = &track
		t.Score = res.Score
		t.ShareURL = p.matcher.ShareURL(track)
		if res.Score <= p.maxScore {
			t.Status = TrackFound
			t.Selected = true
		} else {
			t.Status = TrackNeedsReview
		}
	}
}

// update applies fn to track i and keeps the progress counters in step.
// Callers hold p.mu.
func (p *Pipeline) update(session *Session, i int, fn func(*Track)) {
	t := &session.Tracks[i]
	session.Progress.count(t, -1)
	fn(t)
	session.Progress.count(t, 1)
}

func (pr *Progress) count(t *Track, delta int) {
	switch t.Status {
	case TrackFound:
		pr.Found += delta
	case TrackNeedsReview:
		pr.NeedsReview += delta
	case TrackNotFound:
		pr.NotFound += delta
	case TrackError:
		pr.Failed += delta
	case TrackAdded:
		pr.Added += delta
	}
	if t.Selected {
		pr.Selected += delta
	}
}

func (p *Pipeline) setError(session *Session, msg string) {
	p.mu.Lock()
	session.Status = StatusError
	session.Error = msg
	log.Printf("[playlist] session %s error: %s", session.ID, msg)
	p.mu.Unlock()
}

// readyTrack looks up a session in StatusReady and validates trackIndex.
// Callers hold p.mu.
func (p *Pipeline) readyTrack(sessionID string, trackIndex int) (*Session, error) {
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Status != StatusReady {
		return nil, ErrSessionNotReady
	}
	if trackIndex < 0 || trackIndex >= len(session.Tracks) {
		return nil, ErrTrackNotFound
	}
	return session, nil
}

// SetTrackSelected toggles the selection state of a track. Tracks without a
// match cannot be selected.
func (p *Pipeline) SetTrackSelected(sessionID string, trackIndex int, selected bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, err := p.readyTrack(sessionID, trackIndex)
	if err != nil {
		return err
	}
	track := &session.Tracks[trackIndex]
	if selected && track.Match == nil {
		return ErrTrackNotFound
	}
	if track.Selected == selected {
		return nil
	}

	p.update(session, trackIndex, func(t *Track) { t.Selected = selected })
	log.Printf("[playlist] session %s: track %d selected=%v", sessionID, trackIndex, selected)
	return nil
}

// SearchTrack re-matches a track with a manually entered request line. A
// match found this way is trusted and selected regardless of its score.
func (p *Pipeline) SearchTrack(ctx context.Context, sessionID string, trackIndex int, line string) error {
	q := parser.Parse(line)

	p.mu.Lock()
	if _, err := p.readyTrack(sessionID, trackIndex); err != nil {
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	res, err := p.matcher.BestMatch(ctx, q)
	if err != nil && !errors.Is(err, matcher.ErrNoMatch) && !errors.Is(err, matcher.ErrEmptyQuery) {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	session, rerr := p.readyTrack(sessionID, trackIndex)
	if rerr != nil {
		return rerr
	}
	p.update(session, trackIndex, func(t *Track) {
		t.Query = q
		p.applyResult(t, res, err)
		if t.Status == TrackNeedsReview {
			t.Status = TrackFound
			t.Selected = true
		}
	})

	if m := session.Tracks[trackIndex].Match; m != nil {
		log.Printf("[playlist] session %s: track %d manual search found: %s - %s", sessionID, trackIndex, m.Artist, m.Title)
	}
	return nil
}

// Commit creates the catalog playlist from the selected tracks. A failed
// commit leaves the session ready so it can be retried.
func (p *Pipeline) Commit(ctx context.Context, sessionID string) (string, error) {
	p.mu.Lock()
	session, ok := p.sessions[sessionID]
	if !ok {
		p.mu.Unlock()
		return "", ErrSessionNotFound
	}
	if session.Status != StatusReady {
		p.mu.Unlock()
		return "", ErrSessionNotReady
	}

	var ids []string
	var indexes []int
	for i, t := range session.Tracks {
		if t.Selected && t.Match != nil {
			ids = append(ids, t.Match.StoreID)
			indexes = append(indexes, i)
		}
	}
	if len(ids) == 0 {
		p.mu.Unlock()
		return "", ErrNothingSelected
	}
	session.Status = StatusCommitting
	name, public, playlistID := session.Name, session.Public, session.PlaylistID
	p.mu.Unlock()

	// A previous attempt may have created the playlist before failing.
	var err error
	if playlistID != "" {
		log.Printf("[playlist] session %s: adding %d tracks to existing playlist %s", sessionID, len(ids), playlistID)
		err = p.matcher.AddSongs(ctx, playlistID, ids)
	} else {
		log.Printf("[playlist] session %s: creating playlist %q with %d tracks", sessionID, name, len(ids))
		playlistID, err = p.matcher.CreatePlaylist(ctx, name, ids, public)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		session.PlaylistID = playlistID
		session.Status = StatusReady
		log.Printf("[playlist] session %s: commit failed: %v", sessionID, err)
		return "", fmt.Errorf("commit %s: %w", sessionID, err)
	}

	for _, i := range indexes {
		p.update(session, i, func(t *Track) { t.Status = TrackAdded })
	}
	session.PlaylistID = playlistID
	session.Status = StatusDone
	log.Printf("[playlist] session %s done: playlist %s", sessionID, playlistID)
	return playlistID, nil
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
