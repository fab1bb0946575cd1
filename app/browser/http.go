package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

const maxBodySize = 10 << 20

// HTTP renders pages by fetching them without executing scripts. It also
// serves raw documents such as feeds.
type HTTP struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	closed     atomic.Bool
}

var _ Browser = (*HTTP)(nil)

func NewHTTP(httpClient *http.Client, userAgent string, timeout time.Duration) *HTTP {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTP{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func HTTPLauncher(httpClient *http.Client, userAgent string, timeout time.Duration) Launcher {
	return func(ctx context.Context) (Browser, error) {
		return NewHTTP(httpClient, userAgent, timeout), nil
	}
}

func (h *HTTP) Render(ctx context.Context, pageURL string, _ string) (string, error) {
	if h.closed.Load() {
		return "", ErrClosed
	}
	data, err := h.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (h *HTTP) Close() error {
	h.closed.Store(true)
	return nil
}
