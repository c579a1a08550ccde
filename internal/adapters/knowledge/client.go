package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

// Client implements core.ContextProvider against the knowledge service
// HTTP API. Each Query fetches one section of a case's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Useful for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a knowledge service client.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("adapter", "knowledge"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sectionResponse struct {
	Records []map[string]any `json:"records"`
}

// Query fetches the records for one context section of a case.
func (c *Client) Query(ctx context.Context, caseID, section string) ([]map[string]any, error) {
	endpoint := fmt.Sprintf("%s/api/v1/cases/%s/context/%s",
		c.baseURL, url.PathEscape(caseID), url.PathEscape(section))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.ErrProvider(section, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.ErrProvider(section, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, core.ErrProvider(section, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("knowledge service returned error status",
			"section", section, "status", resp.StatusCode)
		return nil, core.ErrProvider(section,
			fmt.Errorf("unexpected status %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode)
	}

	var parsed sectionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some deployments return a bare array instead of an envelope.
		var bare []map[string]any
		if bareErr := json.Unmarshal(body, &bare); bareErr == nil {
			return bare, nil
		}
		return nil, core.ErrProvider(section, fmt.Errorf("decoding response: %w", err))
	}

	return parsed.Records, nil
}
