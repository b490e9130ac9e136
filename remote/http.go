package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// HTTP CLIENT
// =============================================================================

// HTTPClient maps collections to REST resources:
//
//	POST   {base}/{collection}        -> {"id": "..."}
//	PUT    {base}/{collection}/{id}
//	DELETE {base}/{collection}/{id}
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("remote"),
	}
}

func (c *HTTPClient) Create(ctx context.Context, collection string, record any) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, c.path(collection), record, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("create %s: backend returned no id", collection)
	}
	return result.ID, nil
}

func (c *HTTPClient) Update(ctx context.Context, collection, id string, record any) error {
	return c.doRequest(ctx, http.MethodPut, c.path(collection, id), record, nil)
}

func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	return c.doRequest(ctx, http.MethodDelete, c.path(collection, id), nil, nil)
}

func (c *HTTPClient) path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// doRequest sends body as JSON (nil sends no body) and decodes a 2xx
// response into result when result is non-nil.
func (c *HTTPClient) doRequest(ctx context.Context, method, target string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("remote call",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, target, err)
	}
	return nil
}
