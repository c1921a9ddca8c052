package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gndm/catalogmatch/internal/bot"
	"github.com/gndm/catalogmatch/internal/catalog"
	"github.com/gndm/catalogmatch/internal/config"
	"github.com/gndm/catalogmatch/internal/match"
	"github.com/gndm/catalogmatch/internal/matcher"
	"github.com/gndm/catalogmatch/internal/playlist"
	"github.com/gndm/catalogmatch/internal/ytdlp"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, shareBaseURL, err := newCatalog(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	svc, cleanup := newMatcher(ctx, cfg, client, shareBaseURL)
	defer cleanup()

	pipeline := playlist.NewPipeline(svc)
	pipeline.SetMaxScore(cfg.GetMaxScore())
	if cfg.HasYtdlpConfig() {
		yt := ytdlp.NewClient()
		yt.BinaryPath = cfg.Server.YtdlpPath
		pipeline.SetSource(yt)
	}

	if cfg.HasTelegramConfig() {
		b, err := bot.New(cfg.Telegram.Token, svc)
		if err != nil {
			log.Printf("WARNING: telegram bot disabled: %v", err)
		} else {
			go b.Run(ctx)
		}
	}

	var static http.Handler
	if cfg.Server.StaticDir != "" {
		log.Printf("[static] serving from %s", cfg.Server.StaticDir)
		static = http.FileServer(http.Dir(cfg.Server.StaticDir))
	} else {
		static = staticHandler()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.GetPort(),
		Handler: newMux(svc, pipeline, cfg.GetBackend(), static),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on :%s (catalog: %s)", cfg.GetPort(), cfg.GetBackend())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func newMux(svc *matcher.Service, pipeline *playlist.Pipeline, backend string, static http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/match", handleMatch(svc))
	mux.HandleFunc("POST /api/playlists", handleCreatePlaylist(pipeline))
	mux.HandleFunc("GET /api/playlists/{id}", handleGetSession(pipeline))
	mux.HandleFunc("PUT /api/playlists/{id}/tracks/{index}", handleSelectTrack(pipeline))
	mux.HandleFunc("POST /api/playlists/{id}/tracks/{index}/search", handleSearchTrack(pipeline))
	mux.HandleFunc("POST /api/playlists/{id}/commit", handleCommit(pipeline))
	mux.HandleFunc("GET /api/stats", handleStats(pipeline, backend))
	mux.Handle("GET /", static)
	return mux
}

type matchResponse struct {
	Track     catalog.TrackRecord `json:"track"`
	Score     float64             `json:"score"`
	ShareURL  string              `json:"share_url"`
	Formatted string              `json:"formatted"`
}

func handleMatch(svc *matcher.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := match.Query{
			Artist: strings.TrimSpace(r.URL.Query().Get("artist")),
			Title:  strings.TrimSpace(r.URL.Query().Get("title")),
		}
		if q.Artist == "" && q.Title == "" {
			http.Error(w, `{"error":"artist or title is required"}`, http.StatusBadRequest)
			return
		}

		res, err := svc.BestMatch(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, matchResponse{
			Track:     res.Track,
			Score:     res.Score,
			ShareURL:  svc.ShareURL(res.Track),
			Formatted: svc.Format(res.Track),
		})
	}
}

type createPlaylistRequest struct {
	Name      string   `json:"name"`
	Tracks    []string `json:"tracks"`
	SourceURL string   `json:"source_url"`
	Public    bool     `json:"public"`
}

type createPlaylistResponse struct {
	SessionID string `json:"session_id"`
}

func handleCreatePlaylist(pipeline *playlist.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPlaylistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}
		req.SourceURL = strings.TrimSpace(req.SourceURL)
		if len(req.Tracks) == 0 && req.SourceURL == "" {
			http.Error(w, `{"error":"tracks or source_url is required"}`, http.StatusBadRequest)
			return
		}

		if req.SourceURL != "" {
			if !strings.HasPrefix(req.SourceURL, "http://") && !strings.HasPrefix(req.SourceURL, "https://") {
				http.Error(w, `{"error":"source_url must be an http(s) URL"}`, http.StatusBadRequest)
				return
			}
			id, err := pipeline.AnalyzeURL(context.Background(), req.Name, req.SourceURL, req.Public)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, createPlaylistResponse{SessionID: id})
			return
		}

		id := pipeline.Analyze(context.Background(), req.Name, req.Tracks, req.Public)
		writeJSON(w, createPlaylistResponse{SessionID: id})
	}
}

func handleGetSession(pipeline *playlist.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := pipeline.GetSession(r.PathValue("id"))
		if !ok {
			http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, session)
	}
}

type selectTrackRequest struct {
	Selected bool `json:"selected"`
}

func handleSelectTrack(pipeline *playlist.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			http.Error(w, `{"error":"invalid track index"}`, http.StatusBadRequest)
			return
		}
		var req selectTrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if err := pipeline.SetTrackSelected(r.PathValue("id"), index, req.Selected); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type searchTrackRequest struct {
	Query string `json:"query"`
}

func handleSearchTrack(pipeline *playlist.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			http.Error(w, `{"error":"invalid track index"}`, http.StatusBadRequest)
			return
		}
		var req searchTrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
			return
		}

		id := r.PathValue("id")
		if err := pipeline.SearchTrack(r.Context(), id, index, req.Query); err != nil {
			writeError(w, err)
			return
		}
		session, _ := pipeline.GetSession(id)
		writeJSON(w, session.Tracks[index])
	}
}

type commitResponse struct {
	PlaylistID string `json:"playlist_id"`
}

func handleCommit(pipeline *playlist.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playlistID, err := pipeline.Commit(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, commitResponse{PlaylistID: playlistID})
	}
}

type statsResponse struct {
	MemoryMB   float64        `json:"memory_mb"`
	Goroutines int            `json:"goroutines"`
	UptimeSec  float64        `json:"uptime_sec"`
	Backend    string         `json:"backend"`
	Playlists  playlist.Stats `json:"playlists"`
}

func handleStats(pipeline *playlist.Pipeline, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		writeJSON(w, statsResponse{
			MemoryMB:   float64(m.Alloc) / 1024 / 1024,
			Goroutines: runtime.NumGoroutine(),
			UptimeSec:  time.Since(startTime).Seconds(),
			Backend:    backend,
			Playlists:  pipeline.Stats(),
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matcher.ErrNoMatch):
		http.Error(w, `{"error":"no match found"}`, http.StatusNotFound)
	case errors.Is(err, matcher.ErrEmptyQuery):
		http.Error(w, `{"error":"artist or title is required"}`, http.StatusBadRequest)
	case errors.Is(err, playlist.ErrSessionNotFound):
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
	case errors.Is(err, playlist.ErrTrackNotFound):
		http.Error(w, `{"error":"track not found"}`, http.StatusNotFound)
	case errors.Is(err, playlist.ErrSessionNotReady):
		http.Error(w, `{"error":"session is not ready"}`, http.StatusConflict)
	case errors.Is(err, playlist.ErrNoSource):
		http.Error(w, `{"error":"playlist URLs are not enabled"}`, http.StatusNotImplemented)
	case errors.Is(err, playlist.ErrNothingSelected):
		http.Error(w, `{"error":"no tracks selected"}`, http.StatusConflict)
	case errors.Is(err, catalog.ErrUnsupported):
		http.Error(w, `{"error":"catalog does not support playlists"}`, http.StatusNotImplemented)
	case errors.Is(err, catalog.ErrNotAuthenticated):
		log.Printf("[api] catalog rejected credentials: %v", err)
		http.Error(w, `{"error":"catalog authentication failed"}`, http.StatusBadGateway)
	default:
		log.Printf("[api] catalog error: %v", err)
		http.Error(w, `{"error":"catalog request failed"}`, http.StatusBadGateway)
	}
}
