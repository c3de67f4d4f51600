package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

const (
	// artistBatchSize is the catalog's hard cap on ids per request.
	artistBatchSize = 50
	// defaultBatchDelay paces sequential batches to stay clear of rate limits.
	defaultBatchDelay = 100 * time.Millisecond
)

// spotifyArtist represents an artist from the catalog API.
type spotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// ArtistGenres resolves genre tags for the given artist ids, batching at most
// 50 ids per request with a fixed delay between batches. A failed batch is
// logged and skipped; its artists are simply absent from the result.
func (c *Client) ArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	if !c.tokenInstalled() {
		return nil, ports.ErrNoToken
	}

	result := make(map[string][]string, len(artistIDs))
	for start := 0; start < len(artistIDs); start += artistBatchSize {
		if start > 0 {
			if err := sleepWithContext(ctx, c.batchDelay); err != nil {
				return result, err
			}
		}

		end := start + artistBatchSize
		if end > len(artistIDs) {
			end = len(artistIDs)
		}

		artists, err := c.getArtistsBatch(ctx, artistIDs[start:end])
		if err != nil {
			log.Printf("WARN spotify adapter: artist batch %d-%d failed, continuing: %v", start, end, err)
			continue
		}
		for _, a := range artists {
			if a.ID != "" {
				result[a.ID] = a.Genres
			}
		}
	}

	return result, nil
}

// getArtistsBatch fetches up to 50 artists in a single request.
func (c *Client) getArtistsBatch(ctx context.Context, artistIDs []string) ([]spotifyArtist, error) {
	artistsURL, err := url.Parse(fmt.Sprintf("%s/artists", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid artists url: %w", err)
	}

	query := artistsURL.Query()
	query.Set("ids", strings.Join(artistIDs, ","))
	artistsURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artistsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create artists request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("artists request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artists status %d", resp.StatusCode)
	}

	var body struct {
		Artists []spotifyArtist `json:"artists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("artists decode error: %w", err)
	}

	return body.Artists, nil
}
