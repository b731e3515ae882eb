package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is the shared HTTP plumbing for the remote account endpoints and
// the inventory authority.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// remoteError is the `{message}` error shape the remote endpoints return.
type remoteError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, *remoteError, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return resp.StatusCode, nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
			}
		}
		return resp.StatusCode, nil, nil
	}

	var remoteErr remoteError
	if json.Unmarshal(raw, &remoteErr) == nil && remoteErr.Message != "" {
		return resp.StatusCode, &remoteErr, nil
	}
	return resp.StatusCode, nil, fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
}
