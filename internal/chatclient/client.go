// Package chatclient talks to the roomchat HTTP API.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/roomchat/internal/proto"
)

const (
	defaultTimeout = 30 * time.Second
	maxPageBytes   = 4 << 20
)

// StatusError is returned when the server answers with a non-success status.
type StatusError struct {
	StatusCode int
	// Message is the server's error text, when the body carried one.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Client calls the roomchat API with a bearer token.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL. A nil httpClient gets a default with
// a request timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken sets the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (proto.User, error) {
	body, err := json.Marshal(proto.LoginRequest{Username: username, Password: password})
	if err != nil {
		return proto.User{}, fmt.Errorf("marshal login: %w", err)
	}

	var resp proto.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/login", bytes.NewReader(body), &resp); err != nil {
		return proto.User{}, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return proto.User{}, errors.New("login: empty token in response")
	}
	c.SetToken(resp.Token)
	return resp.User, nil
}

// Rooms lists the rooms the signed-in user belongs to.
func (c *Client) Rooms(ctx context.Context) ([]proto.Room, error) {
	var resp proto.RoomsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/rooms", nil, &resp); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return resp.Rooms, nil
}

// Messages fetches the recent history of a room, oldest first. The slice is
// nil when the response carried no message list.
func (c *Client) Messages(ctx context.Context, roomID string) ([]proto.Message, error) {
	var resp proto.MessagesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(roomID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Send posts the message form. Redirects are not followed; any 2xx or 3xx
// answer counts as accepted.
func (c *Client) Send(ctx context.Context, roomID, text string) error {
	form := url.Values{}
	form.Set("room_id", roomID)
	form.Set("message", text)

	req, err := c.newRequest(ctx, http.MethodPost, "/send_message", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.noRedirect().Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Page fetches a server-rendered page such as "/chat/3". Redirects are not
// followed, so an expired session surfaces as a StatusError.
func (c *Client) Page(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.noRedirect().Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return page, nil
}

func (c *Client) noRedirect() *http.Client {
	hc := *c.http
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &hc
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	var body proto.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		se.Message = body.Error
	}
	return se
}
