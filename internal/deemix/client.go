package deemix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gndm/catalogmatch/internal/catalog"
)

// HTTPClient implements catalog.Client against a Deemix instance.
type HTTPClient struct {
	BaseURL    string
	ARL        string
	Limit      int
	HTTPClient *http.Client
}

// NewClient creates a new Deemix HTTPClient. The cookie jar keeps the
// session established by Login.
func NewClient(baseURL, arl string) *HTTPClient {
	jar, _ := cookiejar.New(nil)
	return &HTTPClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ARL:        arl,
		Limit:      DefaultLimit,
		HTTPClient: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}
}

// Login authenticates with an ARL token. Deezer has no username/password
// login through Deemix, so username is ignored and password, when set,
// replaces the configured ARL.
func (c *HTTPClient) Login(ctx context.Context, _, password string) (bool, error) {
	if password != "" {
		c.ARL = password
	}
	log.Printf("[deemix] logging in to %s", c.BaseURL)

	body, _ := json.Marshal(map[string]string{"arl": c.ARL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/loginArl", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("deemix: creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("[deemix] login request failed: %v", err)
		return false, fmt.Errorf("deemix: login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		log.Printf("[deemix] login failed (status %d): %s", resp.StatusCode, string(respBody))
		return false, fmt.Errorf("deemix: login failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("deemix: decoding login response: %w", err)
	}
	if result.Status == 0 {
		log.Printf("[deemix] login rejected: invalid ARL token")
		return false, nil
	}

	log.Printf("[deemix] login successful")
	return true, nil
}

// Search queries Deemix for tracks matching the given query string.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]catalog.TrackRecord, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	endpoint := c.BaseURL + "/api/search?" + url.Values{
		"term": {query},
		"type": {"track"},
		"nb":   {strconv.Itoa(limit)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("deemix: creating search request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("[deemix] search request failed: %v", err)
		return nil, fmt.Errorf("deemix: search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("deemix: search (status %d): %w", resp.StatusCode, catalog.ErrNotAuthenticated)
	case resp.StatusCode != http.StatusOK:
		log.Printf("[deemix] search failed with status %d for query: %s", resp.StatusCode, query)
		return nil, fmt.Errorf("deemix: search failed (status %d)", resp.StatusCode)
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("deemix: decoding search response: %w", err)
	}

	results := make([]catalog.TrackRecord, len(apiResp.Data))
	for i, d := range apiResp.Data {
		results[i] = catalog.TrackRecord{
			Artist:  d.Artist.Name,
			Album:   d.Album.Title,
			Title:   d.Title,
			StoreID: strconv.FormatInt(d.ID, 10),
		}
	}

	log.Printf("[deemix] search found %d results for: %s", len(results), query)
	return results, nil
}

var _ catalog.Client = (*HTTPClient)(nil)
