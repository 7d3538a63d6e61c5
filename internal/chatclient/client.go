// Package chatclient is the HTTP client for the chat service contract.
// Every conversation endpoint shares one response shape; the client decodes
// it and hands the result to the conversation controller untouched.
package chatclient

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

	"mayachat/internal/protocol"
)

// DefaultBasePath is where the v2 conversation endpoints live.
const DefaultBasePath = "/api/v2"

const defaultTimeout = 30 * time.Second

// Client talks to one chat service instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger attaches a logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client rooted at serverURL (scheme + host). The v2 base path
// is appended unless serverURL already carries a path.
func New(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must include scheme and host", serverURL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultBasePath
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StatusError reports a non-2xx response. The controller treats it, like any
// transport error, as a recoverable network failure.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat service returned %d: %s", e.Code, e.Body)
}

// Init starts a new session.
func (c *Client) Init(ctx context.Context) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/chat/init", protocol.InitRequest{})
}

// SelectCategory reports a category pick.
func (c *Client) SelectCategory(ctx context.Context, sessionID, category string) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/chat/select-category", protocol.SelectCategoryRequest{
		SessionID: sessionID,
		Category:  category,
	})
}

// SubmitLead submits the lead-capture form.
func (c *Client) SubmitLead(ctx context.Context, req protocol.SubmitLeadRequest) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/chat/submit-lead", req)
}

// SendInput replays one normalized widget output.
func (c *Client) SendInput(ctx context.Context, sessionID, currentState string, input protocol.Input) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/chat/input", protocol.UserInputRequest{
		SessionID:    sessionID,
		CurrentState: currentState,
		InputType:    input.Kind,
		InputData:    input.Payload,
	})
}

// BackToMenu returns the conversation to the main menu.
func (c *Client) BackToMenu(ctx context.Context, sessionID string) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/chat/menu", protocol.MenuRequest{SessionID: sessionID})
}

// Ask sends free text on the always-available channel. Only the session id
// is threaded; the structured dialogue state is not.
func (c *Client) Ask(ctx context.Context, sessionID, question string) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/chat/ask", protocol.AskRequest{SessionID: sessionID, Question: question})
}

// End closes the session.
func (c *Client) End(ctx context.Context, sessionID string) (*protocol.EndResponse, error) {
	var out protocol.EndResponse
	if err := c.post(ctx, "/chat/end", protocol.EndRequest{SessionID: sessionID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PropertyAction requests a brochure or quote for one listing.
func (c *Client) PropertyAction(ctx context.Context, req protocol.PropertyActionRequest) (*protocol.ChatResponse, error) {
	return c.postChat(ctx, "/properties/action", req)
}

// ListProperties fetches the first limit listings of a type.
func (c *Client) ListProperties(ctx context.Context, propertyType string, limit int) ([]protocol.Listing, error) {
	path := fmt.Sprintf("/properties/%s?limit=%d", url.PathEscape(propertyType), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	var out protocol.ListingsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

// FilterProperties fetches listings matching the parsed preference criteria.
func (c *Client) FilterProperties(ctx context.Context, req protocol.PropertyFilterRequest) ([]protocol.Listing, error) {
	var out protocol.ListingsResponse
	if err := c.post(ctx, "/properties/filter", req, &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

func (c *Client) postChat(ctx context.Context, path string, body any) (*protocol.ChatResponse, error) {
	var out protocol.ChatResponse
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("chat request failed",
			zap.String("path", req.URL.Path),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("chat request",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
