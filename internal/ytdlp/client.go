// Package ytdlp reads request lines from online video playlists with the
// yt-dlp binary. Video titles such as "Artist - Title (Official Video)" are
// returned as-is for the request-line parser.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
)

// ErrUnsupportedURL is returned for URLs that are not http(s).
var ErrUnsupportedURL = errors.New("unsupported playlist url")

// entry is one line of yt-dlp --dump-json output.
type entry struct {
	Title string `json:"title"`
	ID    string `json:"id"`
}

// CommandClient fetches playlist titles by calling the yt-dlp binary.
type CommandClient struct {
	// BinaryPath is the path to the yt-dlp executable. Defaults to "yt-dlp".
	BinaryPath string
}

// NewClient creates a CommandClient using yt-dlp from PATH.
func NewClient() *CommandClient {
	return &CommandClient{BinaryPath: "yt-dlp"}
}

// Titles returns the title of every entry in the playlist at playlistURL,
// in playlist order. A single video URL yields one title.
func (c *CommandClient) Titles(ctx context.Context, playlistURL string) ([]string, error) {
	if !strings.HasPrefix(playlistURL, "https://") && !strings.HasPrefix(playlistURL, "http://") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, playlistURL)
	}
	bin := c.BinaryPath
	if bin == "" {
		bin = "yt-dlp"
	}

	args := []string{"--dump-json", "--no-warnings"}
	if strings.Contains(playlistURL, "list=") {
		args = append(args, "--flat-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	args = append(args, playlistURL)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var titles []string
	dec := json.NewDecoder(&stdout)
	for {
		var e entry
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
		}
		if t := strings.TrimSpace(e.Title); t != "" {
			titles = append(titles, t)
		}
	}

	log.Printf("[ytdlp] %d titles from %s", len(titles), playlistURL)
	return titles, nil
}
