package reaper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stagepilot/internal/config"
	"stagepilot/internal/faults"
	"stagepilot/internal/protocol"
)

const component = "reaper"

// HTTPDoer describes the HTTP client used for web-remote calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues path-encoded command requests against the web remote's
// /_/ endpoint. Multiple commands execute in one round trip when joined.
type Client struct {
	baseURL string
	timeout time.Duration
	http    HTTPDoer
}

// NewClient builds a client from configuration. A nil doer falls back to a
// plain http.Client; tests substitute fakes.
func NewClient(cfg *config.Config, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.Reaper.BaseURL), "/"),
		timeout: cfg.RequestTimeout(),
		http:    doer,
	}
}

// Command executes one or more commands in a single request and returns the
// raw tab-delimited response body.
func (c *Client) Command(ctx context.Context, commands ...string) (string, error) {
	if len(commands) == 0 {
		return "", faults.Wrap(faults.ErrValidation, component, "command", "no commands given", nil)
	}
	endpoint := c.baseURL + "/_/" + protocol.Join(commands...)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", faults.Wrap(faults.ErrTransport, component, "command", "build request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", faults.Wrap(faults.ErrTimeout, component, "command", "request timed out", err)
		}
		return "", faults.Wrap(faults.ErrTransport, component, "command", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", faults.Wrap(faults.ErrTransport, component, "command", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", faults.Wrap(faults.ErrTransport, component, "command", "read response", err)
	}
	return string(body), nil
}
