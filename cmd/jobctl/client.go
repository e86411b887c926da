package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient is a thin HTTP client for the service API. Every call returns
// the raw response body alongside the decode so --json mode can print the
// payload exactly as the service sent it.
type apiClient struct {
	baseURL string
	httpc   *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// apiError is the error/message envelope the service uses for every
// non-2xx response.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *apiClient) getJSON(ctx context.Context, path string, out interface{}) ([]byte, error) {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Unhealthy readiness responses still carry the payload the caller
	// asked for, so only treat 4xx/5xx as an error when the body is an
	// error envelope (or does not decode at all).
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return raw, fmt.Errorf("%s: %s", apiErr.Error, apiErr.Message)
			}
			return raw, fmt.Errorf("%s", apiErr.Error)
		}
		if out != nil && json.Unmarshal(raw, out) == nil {
			return raw, nil
		}
		return raw, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return raw, nil
}
