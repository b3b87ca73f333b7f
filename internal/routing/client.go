// Package routing provides the HTTP client for the route-computation API.
package routing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/miles-to-go/internal/common"
	"github.com/Veraticus/miles-to-go/internal/service"
)

// Read-style commands understood by the route service. The two commands
// differ only in which transaction namespace the server pushes results to.
const (
	commandGetRoute         = "GetRoute"
	commandGetRouteForDraft = "GetRouteForDraft"
)

// Config holds route service configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: route service base URL is required", common.ErrMissingConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: invalid route service base URL: %v", common.ErrInvalidConfig, err)
	}
	return nil
}

// Client implements the RouteFetcher interface against the route service's
// HTTP API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	retryOpts  service.RetryOptions
}

// NewClient creates a new route service client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  slog.Default().With("component", "routing"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
		},
	}, nil
}

// FetchRoute issues the route-computation request. The response carries no
// payload this subsystem consumes; geometry is pushed out of band. A nil
// return means the service accepted the request.
func (c *Client) FetchRoute(ctx context.Context, req service.RouteRequest) error {
	command := commandGetRoute
	if req.Draft {
		command = commandGetRouteForDraft
	}

	form := url.Values{}
	form.Set("transactionID", req.TransactionID)
	form.Set("waypoints", req.Waypoints)

	c.logger.Debug("Requesting route",
		"command", command,
		"transaction_id", req.TransactionID)

	operation := func() error {
		return c.post(ctx, command, form)
	}
	return common.WithRetry(ctx, operation, c.retryOpts)
}

func (c *Client) post(ctx context.Context, command string, form url.Values) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/"+command, strings.NewReader(form.Encode()))
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("failed to build request: %w", err), Retryable: false}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &common.RetryableError{Err: fmt.Errorf("route request failed: %w", err), Retryable: true}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRouteRateLimit, command)
	case resp.StatusCode >= http.StatusInternalServerError:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s returned status %d", common.ErrRouteRequestFailed, command, resp.StatusCode),
			Retryable: true,
		}
	default:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s returned status %d", common.ErrRouteRequestFailed, command, resp.StatusCode),
			Retryable: false,
		}
	}
}
