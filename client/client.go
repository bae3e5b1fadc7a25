// Package client talks to a running sessionview server. It satisfies the
// same small interfaces as the store-backed catalog and transcript store,
// so presentation code can run against either.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sonnes/sessionview/core"
)

// StatusError is a non-success response from the server. It matches the
// core sentinel corresponding to its status code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch e.Code {
	case http.StatusNotFound:
		return target == core.ErrNotFound
	case http.StatusBadGateway:
		return target == core.ErrMalformedResponse
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return target == core.ErrStoreUnavailable
	}
	return false
}

// Client is an API client. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	compact bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCompact requests compacted transcripts.
func WithCompact(on bool) Option {
	return func(c *Client) { c.compact = on }
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("server url %q: want http(s)://host[:port]", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListSessions returns the catalog, newest first.
func (c *Client) ListSessions(ctx context.Context) ([]core.Session, error) {
	var sessions []core.Session
	if err := c.get(ctx, "/api/sessions", false, &sessions); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []core.Session{}
	}
	return sessions, nil
}

// Transcript returns the records of a session.
func (c *Client) Transcript(ctx context.Context, sessionID string) (*core.Transcript, error) {
	var t core.Transcript
	if err := c.get(ctx, "/api/transcripts/"+url.PathEscape(sessionID), c.compact, &t); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if t.Records == nil {
		return nil, fmt.Errorf("session %s: %w: missing records", sessionID, core.ErrMalformedResponse)
	}
	return &t, nil
}

// SubagentRecords returns the raw response for one subagent. Validation of
// its fields is left to subagent.Resolver.
func (c *Client) SubagentRecords(ctx context.Context, sessionID, agentID string) (*core.SubagentResponse, error) {
	path := "/api/transcripts/" + url.PathEscape(sessionID) + "/subagents/" + url.PathEscape(agentID)
	var resp core.SubagentResponse
	if err := c.get(ctx, path, c.compact, &resp); err != nil {
		return nil, fmt.Errorf("subagent %s of session %s: %w", agentID, sessionID, err)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, compact bool, v any) error {
	u := c.base.JoinPath(path)
	if compact {
		u.RawQuery = "compact=1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &core.StoreError{Op: "get", Key: u.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.StoreError{Op: "read", Key: u.String(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Code: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &eb) == nil {
			serr.Message = eb.Error
		}
		return serr
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", core.ErrMalformedResponse, path, err)
	}
	return nil
}

// IsStatus reports whether err carries a StatusError with code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}
