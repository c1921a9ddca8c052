package playlist

import (
	"errors"

	"github.com/gndm/catalogmatch/internal/catalog"
	"github.com/gndm/catalogmatch/internal/match"
)

// Error constants for session operations.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionNotReady = errors.New("session is not in ready status")
	ErrTrackNotFound   = errors.New("track not found")
	ErrNothingSelected = errors.New("no tracks selected")
	ErrNoSource        = errors.New("no playlist source configured")
)

// Session is one batch of request lines being resolved into a playlist.
type Session struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Public     bool     `json:"public"`
	Status     string   `json:"status"`
	Error      string   `json:"error,omitempty"`
	SourceURL  string   `json:"source_url,omitempty"`
	PlaylistID string   `json:"playlist_id,omitempty"`
	Tracks     []Track  `json:"tracks"`
	Progress   Progress `json:"progress"`
}

// Track is a single request line and its best catalog match.
type Track struct {
	Line     string               `json:"line"`
	Query    match.Query          `json:"query"`
	Match    *catalog.TrackRecord `json:"match,omitempty"`
	Score    float64              `json:"score"`
	ShareURL string               `json:"share_url,omitempty"`
	Status   string               `json:"status"`
	Error    string               `json:"error,omitempty"`
	Selected bool                 `json:"selected"`
}

// Progress holds aggregate counts for the session.
type Progress struct {
	Total       int `json:"total"`
	Searched    int `json:"searched"`
	Found       int `json:"found"`
	NeedsReview int `json:"needs_review"`
	NotFound    int `json:"not_found"`
	Failed      int `json:"failed"`
	Selected    int `json:"selected"`
	Added       int `json:"added"`
}

// Session status constants.
const (
	StatusFetching   = "fetching"
	StatusSearching  = "searching"
	StatusReady      = "ready"
	StatusCommitting = "committing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Track status constants.
const (
	TrackPending     = "pending"
	TrackSearching   = "searching"
	TrackFound       = "found"
	TrackNeedsReview = "needs_review"
	TrackNotFound    = "not_found"
	TrackError       = "error"
	TrackAdded       = "added"
)

// Stats summarizes the sessions held by a Pipeline.
type Stats struct {
	Sessions   int            `json:"sessions"`
	ByStatus   map[string]int `json:"by_status"`
	Tracks     int            `json:"tracks"`
	TracksSeen int            `json:"tracks_searched"`
}
