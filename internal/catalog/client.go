package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrConflict is returned when the catalog already holds the entity being
// created. Callers treat it as idempotent success.
var ErrConflict = errors.New("catalog: already exists")

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
	Latency    time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("catalog %s %s returned %d (latency=%v)", e.Method, e.Path, e.StatusCode, e.Latency)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

const (
	rateLimitRequests = 5
	rateLimitDuration = time.Second
)

// HTTPDoer describes the HTTP client used by the catalog client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Searcher is the search seam consumed by identity resolution.
type Searcher interface {
	Search(ctx context.Context, query string, hint DateHint) ([]Identity, error)
}

// Client talks to the remote catalog service. All calls are fire-and-fail:
// no retries, a failure aborts only the game or collection being processed.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	tokens     *TokenSource
	limiter    *rate.Limiter
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a catalog client. tokens supplies the bearer credential for
// every call.
func New(baseURL string, tokens *TokenSource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	if tokens == nil {
		return nil, errors.New("catalog token source required")
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Every(rateLimitDuration/time.Duration(rateLimitRequests)), rateLimitRequests),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// doJSON executes a request with an optional JSON body, decoding the
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, params, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Detail:     strings.TrimSpace(string(detail)),
			Latency:    latency,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

// Search queries the catalog for games matching title. A bare-year hint
// narrows by year; a full timestamp hint asks the service to rank results
// by release-date proximity.
func (c *Client) Search(ctx context.Context, query string, hint DateHint) ([]Identity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if !hint.IsZero() {
		if year, ok := hint.Year(); ok {
			params.Set("year", strconv.Itoa(year))
		} else {
			params.Set("closest_to", hint.String())
		}
	}

	var payload struct {
		Results []Identity `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/games/search", params, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// GetDetails fetches the full catalog record for id, or nil when the
// catalog does not know the game.
func (c *Client) GetDetails(ctx context.Context, id int64) (*Details, error) {
	if id <= 0 {
		return nil, errors.New("game id must be positive")
	}
	var payload Details
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/games/%d", id), nil, nil, &payload)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payload, nil
}

// ListGameIDs returns the ids of every game already cataloged remotely.
func (c *Client) ListGameIDs(ctx context.Context) (map[int64]struct{}, error) {
	var payload struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/games/ids", nil, nil, &payload); err != nil {
		return nil, err
	}
	ids := make(map[int64]struct{}, len(payload.IDs))
	for _, id := range payload.IDs {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// CreateGame creates a new game record. An already-existing record surfaces
// as ErrConflict.
func (c *Client) CreateGame(ctx context.Context, record GameRecord) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/games", nil, record, nil)
}

// UploadExecutable uploads a launcher executable with its display label.
func (c *Client) UploadExecutable(ctx context.Context, gameID int64, filePath, label string) error {
	fields := map[string]string{}
	if label != "" {
		fields["label"] = label
	}
	return c.uploadFile(ctx, fmt.Sprintf("/api/v1/games/%d/executables", gameID), filePath, fields)
}

// UploadCover uploads cover art for a game.
func (c *Client) UploadCover(ctx context.Context, gameID int64, filePath string) error {
	return c.uploadFile(ctx, fmt.Sprintf("/api/v1/games/%d/assets/cover", gameID), filePath, nil)
}

// UploadBackground uploads background art for a game.
func (c *Client) UploadBackground(ctx context.Context, gameID int64, filePath string) error {
	return c.uploadFile(ctx, fmt.Sprintf("/api/v1/games/%d/assets/background", gameID), filePath, nil)
}

func (c *Client) uploadFile(ctx context.Context, path, filePath string, fields map[string]string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open upload source: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read upload source: %w", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("write multipart field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute upload (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrConflict
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Method: http.MethodPost, Path: path, Latency: latency}
	}
	return nil
}

// ListCollections returns every existing remote collection.
func (c *Client) ListCollections(ctx context.Context) ([]CollectionRef, error) {
	var payload struct {
		Collections []CollectionRef `json:"collections"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/collections", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Collections, nil
}

// CreateCollection creates a named collection and returns its id.
func (c *Client) CreateCollection(ctx context.Context, title, summary string) (int64, error) {
	body := map[string]string{"title": title}
	if summary != "" {
		body["summary"] = summary
	}
	var payload struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/collections", nil, body, &payload); err != nil {
		return 0, err
	}
	return payload.ID, nil
}

// SetCollectionMembers replaces the member list of a collection in one call.
func (c *Client) SetCollectionMembers(ctx context.Context, collectionID int64, gameIDs []int64) error {
	body := map[string][]int64{"game_ids": gameIDs}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/v1/collections/%d/games", collectionID), nil, body, nil)
}
