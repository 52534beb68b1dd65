// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// DefaultBaseURL is the Last.fm API endpoint.
const DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// ErrNoTags is returned when Last.fm knows no tags for a track or artist.
var ErrNoTags = errors.New("no tags found")

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache for tag lookups, keyed by method and lowercased names
	cache   map[string][]Tag
	cacheMu sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey  string
	BaseURL string // defaults to DefaultBaseURL
	Timeout time.Duration
}

// Tag represents a Last.fm tag.
type Tag struct {
	Name  string
	Count int // Tag count/frequency
}

type topTagsResponse struct {
	TopTags struct {
		Tag []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"tag"`
	} `json:"toptags"`
}

type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      make(map[string][]Tag),
	}, nil
}

// TrackTags retrieves top tags for a track.
// Reference: https://www.last.fm/api/show/track.getTopTags
func (c *Client) TrackTags(ctx context.Context, title, artist string) ([]Tag, error) {
	if title == "" || artist == "" {
		return nil, errors.New("track name and artist name are required")
	}
	return c.topTags(ctx, "track.getTopTags", url.Values{"artist": {artist}, "track": {title}})
}

// ArtistTags retrieves top tags for an artist.
// Reference: https://www.last.fm/api/show/artist.getTopTags
func (c *Client) ArtistTags(ctx context.Context, artist string) ([]Tag, error) {
	if artist == "" {
		return nil, errors.New("artist name is required")
	}
	return c.topTags(ctx, "artist.getTopTags", url.Values{"artist": {artist}})
}

// Genre returns the most used tag of a track, falling back to the artist's
// tags when the track has none. Multiple artists joined with ", " are
// looked up by the first one.
func (c *Client) Genre(ctx context.Context, title, artist string) (string, error) {
	if first, _, ok := strings.Cut(artist, ", "); ok {
		artist = first
	}

	tags, err := c.TrackTags(ctx, title, artist)
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		if tags, err = c.ArtistTags(ctx, artist); err != nil {
			return "", err
		}
	}
	if len(tags) == 0 {
		return "", errors.Wrapf(ErrNoTags, "%s - %s", artist, title)
	}
	return tags[0].Name, nil
}

func (c *Client) topTags(ctx context.Context, method string, params url.Values) ([]Tag, error) {
	cacheKey := strings.ToLower(method + ":" + params.Encode())
	c.cacheMu.RLock()
	if tags, ok := c.cache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached tags: %s", cacheKey)
		return tags, nil
	}
	c.cacheMu.RUnlock()

	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	params.Set("autocorrect", "1")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var response topTagsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	tags := make([]Tag, 0, len(response.TopTags.Tag))
	for _, t := range response.TopTags.Tag {
		tags = append(tags, Tag{Name: t.Name, Count: t.Count})
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = tags
	c.cacheMu.Unlock()

	return tags, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	// Last.fm reports errors in the body, sometimes with a 200 status
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return nil, errors.Newf("last.fm API error %d: %s", apiErr.Error, apiErr.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("last.fm returned status %d", resp.StatusCode)
	}
	return body, nil
}
