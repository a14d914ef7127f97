// Package emotion talks to the external emotion classifier.
package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/justestif/moodmix/internal/consent"
)

const userAgent = "moodmix/1.0"

var (
	// ErrRetryable marks a response worth retrying (429 or 5xx).
	ErrRetryable = errors.New("classifier temporarily unavailable")

	// ErrBadResponse is returned when the classifier answers with an
	// unusable body.
	ErrBadResponse = errors.New("invalid classifier response")
)

// Input is what gets classified.
type Input struct {
	Source  consent.Source
	Text    string
	ClipURI string
}

// Result is the classifier's answer.
type Result struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Classifier detects the emotion expressed by an input.
type Classifier interface {
	Classify(ctx context.Context, in Input) (Result, error)
}

// Mock always answers calm with 0.82 confidence.
// It stands in for the classifier when no endpoint is configured.
type Mock struct{}

func (Mock) Classify(ctx context.Context, _ Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Emotion: "calm", Confidence: 0.82}, nil
}

// HTTPClient calls a classifier over HTTP: POST <base>/emotion.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	delays     []time.Duration
}

// NewHTTPClient creates a client for the classifier at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		delays:     []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

type request struct {
	Text    string `json:"text,omitempty"`
	ClipURI string `json:"clip_uri,omitempty"`
}

// Classify sends in to the classifier, retrying with backoff on 429 and 5xx.
func (c *HTTPClient) Classify(ctx context.Context, in Input) (Result, error) {
	body := request{Text: in.Text}
	if in.Source == consent.SourceVoice {
		body = request{ClipURI: in.ClipURI}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encoding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.delays); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(c.delays[attempt-1]):
			}
		}

		res, err := c.post(ctx, payload)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrRetryable) {
			return Result{}, err
		}
		lastErr = err
	}
	return Result{}, lastErr
}

func (c *HTTPClient) post(ctx context.Context, payload []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emotion", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Result{}, fmt.Errorf("%w: status %d", ErrRetryable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	res.Emotion = strings.TrimSpace(res.Emotion)
	if res.Emotion == "" {
		return Result{}, fmt.Errorf("%w: missing emotion", ErrBadResponse)
	}
	res.Confidence = math.Max(0, math.Min(1, res.Confidence))
	return res, nil
}
