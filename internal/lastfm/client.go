package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	baseURL   = "https://ws.audioscrobbler.com/2.0/"
	userAgent = "moodmix/1.0"
)

// Last.fm API error codes.
const (
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

var (
	// ErrRateLimited is returned when the API rate limit is exceeded after retries.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Client is a Last.fm API client with an in-memory tag cache.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	delays     []time.Duration

	// key = "track:{artist}:{track}" or "artist:{artist}"
	cache   map[string][]Tag
	cacheMu sync.RWMutex
}

// NewClient creates a Last.fm client.
func NewClient(cfg *Config) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		delays:     []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		cache:      make(map[string][]Tag),
	}
}

// GetTags fetches tags for a track, falling back to the artist's tags when
// the track has none. Returns an empty slice, never nil, when nothing is found.
func (c *Client) GetTags(ctx context.Context, artist, track string) ([]Tag, error) {
	tags, err := c.fetchTags(ctx, "track:"+artist+":"+track, url.Values{
		"method": {"track.getTopTags"},
		"artist": {artist},
		"track":  {track},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching track tags: %w", err)
	}
	if len(tags) > 0 {
		return tags, nil
	}

	tags, err = c.fetchTags(ctx, "artist:"+artist, url.Values{
		"method": {"artist.getTopTags"},
		"artist": {artist},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching artist tags: %w", err)
	}
	return tags, nil
}

// TopGenre returns the highest-ranked tag for the track that appears in
// vocabulary (compared case-insensitively), or "" if none does.
// The returned genre is spelled as in vocabulary.
func (c *Client) TopGenre(ctx context.Context, artist, track string, vocabulary []string) (string, error) {
	tags, err := c.GetTags(ctx, artist, track)
	if err != nil {
		return "", err
	}

	known := make(map[string]string, len(vocabulary))
	for _, v := range vocabulary {
		known[normalizeTag(v)] = v
	}
	for _, tag := range tags {
		if g, ok := known[normalizeTag(tag.Name)]; ok {
			return g, nil
		}
	}
	return "", nil
}

// normalizeTag folds "Singer Songwriter" and "singer-songwriter" together.
func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(s)
}

func (c *Client) fetchTags(ctx context.Context, cacheKey string, params url.Values) ([]Tag, error) {
	c.cacheMu.RLock()
	cached, ok := c.cache[cacheKey]
	c.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	params.Set("autocorrect", "1")
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)

	body, err := c.doRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	var resp tagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing tags response: %w", err)
	}
	tags := resp.TopTags.Tag
	if tags == nil {
		tags = []Tag{}
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = tags
	c.cacheMu.Unlock()

	return tags, nil
}

// doRequest performs a GET, retrying rate-limited calls with the client's
// backoff schedule.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()
	var lastErr error

	for attempt := 0; attempt <= len(c.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.delays[attempt-1]):
			}
		}

		body, err := c.doSingleRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeRateLimited:
			return nil, ErrRateLimited
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	return body, nil
}
