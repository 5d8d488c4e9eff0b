package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

// TMDBClient talks to the TMDB v3 API with bearer-token auth. Transient
// upstream errors (502/503/504) are retried with exponential backoff; the
// caller only ever sees the final payload or error.
type TMDBClient struct {
	bearer     string
	baseURL    string
	language   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

var _ Client = (*TMDBClient)(nil)

// Option configures a TMDBClient.
type Option func(*TMDBClient)

// WithBaseURL overrides the API base URL, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *TMDBClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *TMDBClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewTMDBClient(bearer, language string, opts ...Option) (*TMDBClient, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, errors.New("tmdb bearer token required")
	}

	c := &TMDBClient{
		bearer:     bearer,
		baseURL:    defaultBaseURL,
		language:   language,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticate verifies the bearer token against the API. Call it once at
// startup; a failure wraps into AuthError and should abort before polling.
func (c *TMDBClient) Authenticate(ctx context.Context) error {
	payload, err := c.get(ctx, "/authentication", nil)
	if err != nil {
		return &AuthError{Err: err}
	}
	success, ok := payload["success"].(bool)
	if !ok {
		return &AuthError{Err: errors.New("response has no success value")}
	}
	if !success {
		return &AuthError{Err: errors.New("response yielded no success")}
	}
	return nil
}

// FetchMovie returns the raw movie payload with release dates appended.
func (c *TMDBClient) FetchMovie(ctx context.Context, id int) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("append_to_response", "release_dates")
	if c.language != "" {
		params.Set("language", c.language)
	}
	return c.get(ctx, fmt.Sprintf("/movie/%d", id), params)
}

// FetchShow returns the raw TV show payload.
func (c *TMDBClient) FetchShow(ctx context.Context, id int) (map[string]interface{}, error) {
	params := url.Values{}
	if c.language != "" {
		params.Set("language", c.language)
	}
	return c.get(ctx, fmt.Sprintf("/tv/%d", id), params)
}

func (c *TMDBClient) get(ctx context.Context, path string, params url.Values) (map[string]interface{}, error) {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s between attempts.
			delay := c.backoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		payload, retry, err := c.doRequest(ctx, requestURL)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, lastErr
}

// doRequest performs a single GET. The retry result is true only for
// transient upstream statuses.
func (c *TMDBClient) doRequest(ctx context.Context, requestURL string) (map[string]interface{}, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		io.Copy(io.Discard, resp.Body)
		return nil, true, &StatusError{StatusCode: resp.StatusCode, URL: requestURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, &StatusError{StatusCode: resp.StatusCode, URL: requestURL}
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode tmdb response: %w", err)
	}
	return payload, false, nil
}
