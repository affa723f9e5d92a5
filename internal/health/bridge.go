package health

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

const maxResponseBytes = 8 << 20

// BridgePlatform talks to a companion app that exposes the phone's health store over HTTP:
// GET /status, POST /permissions, POST /aggregate.
type BridgePlatform struct {
	baseURL string
	client  *http.Client
}

func NewBridgePlatform(baseURL string, timeout time.Duration) *BridgePlatform {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &BridgePlatform{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *BridgePlatform) Name() string {
	return "bridge"
}

func (b *BridgePlatform) Status(ctx context.Context) (Status, error) {
	body, err := b.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return Status{}, err
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return Status{}, fmt.Errorf("failed to parse bridge status: %w", err)
	}
	return status, nil
}

func (b *BridgePlatform) RequestPermissions(ctx context.Context) error {
	_, err := b.do(ctx, http.MethodPost, "/permissions", nil)
	return err
}

func (b *BridgePlatform) Aggregate(ctx context.Context, req AggregateRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	body, err := b.do(ctx, http.MethodPost, "/aggregate", payload)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (b *BridgePlatform) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build bridge request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrPermissionDenied
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrUnavailable
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("bridge %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
