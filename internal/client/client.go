// Package client is the typed consumer of the wip backend contract. It
// knows the endpoint shapes and the degraded-mode fallbacks; it does not
// decide chat policy, that belongs to the tui package.
package client

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

	"github.com/rs/zerolog/log"

	"github.com/jask/wipchat/internal/wip"
)

// DefaultSessionID is used when the backend cannot hand out a session id.
// Degraded mode, not an error: the backend keys memory by whatever id it
// receives.
const DefaultSessionID = "default-session"

// Client talks to a wip backend over HTTP.
type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// StartSession asks the backend for a fresh session id. Any failure falls
// back to DefaultSessionID so the chat surface always comes up.
func (c *Client) StartSession(ctx context.Context) string {
	var out wip.SessionResponse
	if err := c.getJSON(ctx, "/wip/start-session", &out); err != nil {
		log.Warn().Err(err).Msg("client: start-session failed, using default session id")
		return DefaultSessionID
	}
	if out.SessionID == "" {
		return DefaultSessionID
	}
	return out.SessionID
}

// Chat submits the user message for one turn and returns the backend's
// ordered reply entries.
func (c *Client) Chat(ctx context.Context, message, sessionID string) ([]wip.ReplyEntry, error) {
	var entries []wip.ReplyEntry
	err := c.postJSON(ctx, "/wip/chat", wip.ChatRequest{Message: message, SessionID: sessionID}, &entries)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return entries, nil
}

// InjectContext submits widget-exported context for the session. The
// response body is ignored beyond success/failure; callers treat failure
// as best-effort.
func (c *Client) InjectContext(ctx context.Context, content, sessionID string) error {
	err := c.postJSON(ctx, "/wip/context-injection", wip.ContextInjectionRequest{Content: content, SessionID: sessionID}, nil)
	if err != nil {
		return fmt.Errorf("context injection: %w", err)
	}
	return nil
}

// CallTool invokes a backend tool on behalf of a widget and returns the
// raw JSON result for the widget to interpret.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	var out json.RawMessage
	err := c.postJSON(ctx, "/wip/call-tool/"+url.PathEscape(tool), args, &out)
	if err != nil {
		return nil, fmt.Errorf("call tool %s: %w", tool, err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
