// Package subsonic is a catalog backend for Subsonic-compatible servers
// such as Navidrome.
package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gndm/catalogmatch/internal/catalog"
)

// HTTPClient implements catalog.Client and catalog.PlaylistEditor using the
// Subsonic REST API with token authentication.
type HTTPClient struct {
	BaseURL  string
	User     string
	Password string
	Limit    int
	Client   *http.Client
}

// NewClient creates a new Subsonic HTTPClient.
func NewClient(baseURL, user, password string) *HTTPClient {
	return &HTTPClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		User:     user,
		Password: password,
		Limit:    defaultLimit,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ShareBaseURL returns the prefix that turns a song id into a link.
func (c *HTTPClient) ShareBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/") + shareEndpoint
}

// Login stores the credentials and verifies them with ping.view.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (bool, error) {
	c.User = username
	c.Password = password

	_, err := c.call(ctx, "ping", nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && (apiErr.Code == errWrongCredentials || apiErr.Code == errTokenAuthDenied) {
		log.Printf("[subsonic] login rejected for %s", username)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log.Printf("[subsonic] logged in as %s", username)
	return true, nil
}

// Search runs search3 and returns only songs.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]catalog.TrackRecord, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	resp, err := c.call(ctx, "search3", url.Values{
		"query":       {query},
		"songCount":   {strconv.Itoa(limit)},
		"artistCount": {"0"},
		"albumCount":  {"0"},
	})
	if err != nil {
		return nil, err
	}

	songs := resp.SearchResult3.Song
	results := make([]catalog.TrackRecord, 0, len(songs))
	for _, s := range songs {
		results = append(results, catalog.TrackRecord{
			Artist:  s.Artist,
			Album:   s.Album,
			Title:   s.Title,
			StoreID: s.ID,
		})
	}
	return results, nil
}

// CreatePlaylist creates an empty playlist, sets its visibility and then
// adds the tracks.
func (c *HTTPClient) CreatePlaylist(ctx context.Context, name string, trackIDs []string, public bool) (string, error) {
	resp, err := c.call(ctx, "createPlaylist", url.Values{"name": {name}})
	if err != nil {
		return "", err
	}
	id := resp.Playlist.ID
	if id == "" {
		return "", fmt.Errorf("subsonic: createPlaylist returned no playlist id")
	}

	if _, err := c.call(ctx, "updatePlaylist", url.Values{
		"playlistId": {id},
		"public":     {strconv.FormatBool(public)},
	}); err != nil {
		return id, err
	}

	if len(trackIDs) > 0 {
		if err := c.AddSongs(ctx, id, trackIDs); err != nil {
			return id, err
		}
	}
	log.Printf("[subsonic] created playlist %q (%s) with %d tracks", name, id, len(trackIDs))
	return id, nil
}

// AddSongs appends tracks to an existing playlist.
func (c *HTTPClient) AddSongs(ctx context.Context, playlistID string, trackIDs []string) error {
	_, err := c.call(ctx, "updatePlaylist", url.Values{
		"playlistId":  {playlistID},
		"songIdToAdd": trackIDs,
	})
	return err
}

func (e *apiError) Error() string {
	return fmt.Sprintf("subsonic: API error: %s", e.Message)
}

// call issues GET /rest/{endpoint}.view with authentication parameters and
// returns the decoded response when its status is "ok".
func (c *HTTPClient) call(ctx context.Context, endpoint string, params url.Values) (*response, error) {
	if params == nil {
		params = url.Values{}
	}
	salt := newSalt()
	sum := md5.Sum([]byte(c.Password + salt))
	params.Set("u", c.User)
	params.Set("t", hex.EncodeToString(sum[:]))
	params.Set("s", salt)
	params.Set("v", apiVersion)
	params.Set("c", clientName)
	params.Set("f", "json")

	reqURL := strings.TrimRight(c.BaseURL, "/") + "/rest/" + endpoint + ".view?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("subsonic: build request: %w", err)
	}

	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Printf("[subsonic] %s request failed: %v", endpoint, err)
		return nil, fmt.Errorf("subsonic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[subsonic] %s unexpected status %d", endpoint, resp.StatusCode)
		return nil, fmt.Errorf("subsonic: unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("subsonic: decode response: %w", err)
	}

	sr := env.SubsonicResponse
	if sr.Status != "ok" {
		apiErr := &apiError{Message: "unknown error"}
		if sr.Error != nil {
			apiErr = sr.Error
		}
		log.Printf("[subsonic] %s API error %d: %s", endpoint, apiErr.Code, apiErr.Message)
		return nil, apiErr
	}
	return &sr, nil
}

func newSalt() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

var (
	_ catalog.Client         = (*HTTPClient)(nil)
	_ catalog.PlaylistEditor = (*HTTPClient)(nil)
)
