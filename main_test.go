package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gndm/catalogmatch/internal/catalog"
	"github.com/gndm/catalogmatch/internal/catalog/catalogtest"
	"github.com/gndm/catalogmatch/internal/matcher"
	"github.com/gndm/catalogmatch/internal/playlist"
)

const testShare = "https://www.deezer.com/track/"

func testCatalog() *catalogtest.Catalog {
	return &catalogtest.Catalog{
		Results: map[string][]catalog.TrackRecord{
			"Queen Bohemian Rhapsody": {
				{Artist: "Queen Tribute", Album: "Rhapsodies", Title: "Bohemian Rhapsody", StoreID: "2"},
				{Artist: "Queen", Album: "A Night at the Opera", Title: "Bohemian Rhapsody", StoreID: "1"},
			},
			"Oasis Wonderwall": {
				{Artist: "Oasis", Album: "Morning Glory", Title: "Wonderwall", StoreID: "3"},
			},
		},
	}
}

func testServer(c catalog.Client) (*httptest.Server, *playlist.Pipeline) {
	svc := matcher.New(c, testShare)
	pipeline := playlist.NewPipeline(svc)
	mux := newMux(svc, pipeline, "deemix", http.NotFoundHandler())
	return httptest.NewServer(mux), pipeline
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func waitSession(t *testing.T, srv *httptest.Server, id string) playlist.Session {
	t.Helper()
	var session playlist.Session
	for i := 0; i < 100; i++ {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/playlists/"+id, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			t.Fatal(err)
		}
		if session.Status != playlist.StatusSearching && session.Status != playlist.StatusFetching {
			return session
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("session never became ready")
	return session
}

func TestHandleMatch(t *testing.T) {
	handler := handleMatch(matcher.New(testCatalog(), testShare))

	req := httptest.NewRequest(http.MethodGet, "/api/match?artist=Queen&title=Bohemian+Rhapsody", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp matchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Track.StoreID != "1" {
		t.Errorf("store id = %q, want 1", resp.Track.StoreID)
	}
	if resp.Score != 0 {
		t.Errorf("score = %v, want 0", resp.Score)
	}
	if resp.ShareURL != testShare+"1" {
		t.Errorf("share url = %q", resp.ShareURL)
	}
	if want := "Queen A Night at the Opera Bohemian Rhapsody - https://www.deezer.com/track/1"; resp.Formatted != want {
		t.Errorf("formatted = %q, want %q", resp.Formatted, want)
	}
}

func TestHandleMatchErrors(t *testing.T) {
	failing := testCatalog()
	failing.SearchErr = errors.New("catalog down")

	tests := []struct {
		name    string
		catalog catalog.Client
		query   string
		want    int
	}{
		{"no match", testCatalog(), "?artist=Nobody&title=Nothing", http.StatusNotFound},
		{"missing fields", testCatalog(), "?artist=+&title=", http.StatusBadRequest},
		{"catalog error", failing, "?artist=Queen&title=Bohemian+Rhapsody", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handleMatch(matcher.New(tt.catalog, testShare))
			req := httptest.NewRequest(http.MethodGet, "/api/match"+tt.query, nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleMatchNoMatchBody(t *testing.T) {
	handler := handleMatch(matcher.New(testCatalog(), testShare))
	req := httptest.NewRequest(http.MethodGet, "/api/match?title=Nothing", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "no match found" {
		t.Errorf("error = %q, want %q", body.Error, "no match found")
	}
}

func TestHandleCreatePlaylistInvalid(t *testing.T) {
	pipeline := playlist.NewPipeline(matcher.New(testCatalog(), testShare))
	handler := handleCreatePlaylist(pipeline)

	for _, body := range []string{
		"not json",
		`{"tracks":["Queen - Bohemian Rhapsody"]}`,
		`{"name":"Mix","tracks":[]}`,
		`{"name":"Mix","source_url":"ftp://example.com/list"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/playlists", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestPlaylistFlow(t *testing.T) {
	cat := testCatalog()
	srv, _ := testServer(cat)
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/playlists",
		`{"name":"Mix","public":true,"tracks":["Queen - Bohemian Rhapsody","Unknown Song"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, want 200", resp.StatusCode)
	}
	var created createPlaylistResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	session := waitSession(t, srv, created.SessionID)
	if session.Status != playlist.StatusReady {
		t.Fatalf("status = %q, want ready", session.Status)
	}
	if session.Tracks[1].Status != playlist.TrackNotFound {
		t.Errorf("track[1] status = %q, want not_found", session.Tracks[1].Status)
	}

	// Manual search fixes the unmatched track.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/playlists/"+created.SessionID+"/tracks/1/search",
		`{"query":"Oasis - Wonderwall"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d, want 200", resp.StatusCode)
	}
	var track playlist.Track
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		t.Fatal(err)
	}
	if track.Match == nil || track.Match.StoreID != "3" {
		t.Fatalf("manual search match = %+v", track.Match)
	}

	// Drop it again, then commit.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/playlists/"+created.SessionID+"/tracks/1", `{"selected":false}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("select status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/playlists/"+created.SessionID+"/commit", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d, want 200", resp.StatusCode)
	}
	var committed commitResponse
	if err := json.NewDecoder(resp.Body).Decode(&committed); err != nil {
		t.Fatal(err)
	}

	pl, ok := cat.Playlist(committed.PlaylistID)
	if !ok {
		t.Fatalf("playlist %q not created", committed.PlaylistID)
	}
	if len(pl.TrackIDs) != 1 || pl.TrackIDs[0] != "1" || !pl.Public || pl.Name != "Mix" {
		t.Errorf("playlist = %+v", pl)
	}

	// A committed session cannot be committed twice.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/playlists/"+created.SessionID+"/commit", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second commit status = %d, want 409", resp.StatusCode)
	}
}

func TestCommitUnsupported(t *testing.T) {
	srv, pipeline := testServer(catalogtest.SearchOnly{C: testCatalog()})
	defer srv.Close()

	id := pipeline.Analyze(context.Background(), "Mix", []string{"Queen - Bohemian Rhapsody"}, false)
	waitSession(t, srv, id)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/playlists/"+id+"/commit", "")
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestTrackRoutesErrors(t *testing.T) {
	srv, pipeline := testServer(testCatalog())
	defer srv.Close()

	id := pipeline.Analyze(context.Background(), "Mix", []string{"Queen - Bohemian Rhapsody"}, false)
	waitSession(t, srv, id)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/playlists/missing", "", http.StatusNotFound},
		{"bad index", http.MethodPut, "/api/playlists/" + id + "/tracks/x", `{"selected":true}`, http.StatusBadRequest},
		{"index out of range", http.MethodPut, "/api/playlists/" + id + "/tracks/5", `{"selected":true}`, http.StatusNotFound},
		{"select unknown session", http.MethodPut, "/api/playlists/missing/tracks/0", `{"selected":true}`, http.StatusNotFound},
		{"empty search", http.MethodPost, "/api/playlists/" + id + "/tracks/0/search", `{"query":" "}`, http.StatusBadRequest},
		{"commit unknown session", http.MethodPost, "/api/playlists/missing/commit", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHandleStats(t *testing.T) {
	pipeline := playlist.NewPipeline(matcher.New(testCatalog(), testShare))
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	handleStats(pipeline, "deemix")(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var stats statsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Goroutines == 0 {
		t.Error("expected non-zero goroutines")
	}
	if stats.Backend != "deemix" {
		t.Errorf("backend = %q, want deemix", stats.Backend)
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{matcher.ErrNoMatch, http.StatusNotFound},
		{playlist.ErrSessionNotFound, http.StatusNotFound},
		{playlist.ErrSessionNotReady, http.StatusConflict},
		{playlist.ErrNothingSelected, http.StatusConflict},
		{playlist.ErrNoSource, http.StatusNotImplemented},
		{catalog.ErrUnsupported, http.StatusNotImplemented},
		{catalog.ErrNotAuthenticated, http.StatusBadGateway},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeError(w, tt.err)
		if w.Code != tt.want {
			t.Errorf("writeError(%v) status = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

type fakeSource struct{}

func (fakeSource) Titles(_ context.Context, _ string) ([]string, error) {
	return []string{"Oasis - Wonderwall (Official Video)"}, nil
}

func TestCreatePlaylistFromURL(t *testing.T) {
	srv, pipeline := testServer(testCatalog())
	defer srv.Close()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/playlists",
		`{"name":"Video mix","source_url":"https://www.youtube.com/playlist?list=abc"}`)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("without a source: status = %d, want 501", resp.StatusCode)
	}

	pipeline.SetSource(fakeSource{})
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/playlists",
		`{"name":"Video mix","source_url":"https://www.youtube.com/playlist?list=abc"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var created createPlaylistResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	session := waitSession(t, srv, created.SessionID)
	if session.Status != playlist.StatusReady {
		t.Fatalf("status = %q (%s), want ready", session.Status, session.Error)
	}
	if len(session.Tracks) != 1 || session.Tracks[0].Match == nil || session.Tracks[0].Match.StoreID != "3" {
		t.Errorf("tracks = %+v, want Wonderwall match", session.Tracks)
	}
}
