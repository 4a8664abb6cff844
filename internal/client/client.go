package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/charmlink/internal/engine"
	"github.com/lazypower/charmlink/internal/server"
	"github.com/lazypower/charmlink/internal/store"
)

const (
	defaultServerURL = "http://127.0.0.1:38080"
	httpTimeout      = 10 * time.Second
)

// Client talks to the charmlink server as one user.
type Client struct {
	http       *http.Client
	serverURL  string
	userHeader string
	user       string
	timezone   string
}

// New creates a client. An empty serverURL uses CHARMLINK_URL, then
// http://127.0.0.1:38080. timezone is sent with every request when set.
func New(serverURL, user, timezone string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("CHARMLINK_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:       &http.Client{Timeout: httpTimeout},
		serverURL:  strings.TrimRight(serverURL, "/"),
		userHeader: "X-User-ID",
		user:       user,
		timezone:   timezone,
	}
}

// WithUserHeader changes the identity header name.
func (c *Client) WithUserHeader(name string) *Client {
	c.userHeader = name
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return e.Message
}

// Unwrap lets callers match engine sentinels with errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case engine.KindNotFound:
		return engine.ErrNotFound
	case engine.KindUnauthorized:
		return engine.ErrUnauthorized
	case engine.KindInvalidArgument:
		return engine.ErrInvalidArgument
	case engine.KindConflict:
		return engine.ErrConflict
	case engine.KindStorage:
		return engine.ErrStorage
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set(c.userHeader, c.user)
	}
	if c.timezone != "" {
		req.Header.Set(server.TimezoneHeader, c.timezone)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e server.ErrorResponse
		if json.Unmarshal(data, &e) == nil {
			apiErr.Kind, apiErr.Message = e.Kind, e.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ServerURL returns the base URL requests go to.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil) == nil
}

func (c *Client) CreateCharm(ctx context.Context, productType, label string) (*store.Charm, error) {
	var out store.Charm
	err := c.do(ctx, http.MethodPost, "/api/charms", server.CreateCharmRequest{ProductType: productType, Label: label}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Charms(ctx context.Context) ([]store.Charm, error) {
	var out server.CharmsResponse
	if err := c.do(ctx, http.MethodGet, "/api/charms", nil, &out); err != nil {
		return nil, err
	}
	return out.Charms, nil
}

func (c *Client) CreateHabits(ctx context.Context, charmID string, habits []engine.NewHabit) ([]store.Habit, error) {
	var out server.HabitsResponse
	path := "/api/charms/" + url.PathEscape(charmID) + "/habits"
	if err := c.do(ctx, http.MethodPost, path, server.CreateHabitsRequest{Habits: habits}, &out); err != nil {
		return nil, err
	}
	return out.Habits, nil
}

func (c *Client) Habits(ctx context.Context, charmID string) ([]store.Habit, error) {
	var out server.HabitsResponse
	if err := c.do(ctx, http.MethodGet, "/api/charms/"+url.PathEscape(charmID)+"/habits", nil, &out); err != nil {
		return nil, err
	}
	return out.Habits, nil
}

// Habit fetches a habit; verify asks the server to cross-check its counters.
func (c *Client) Habit(ctx context.Context, habitID string, verify bool) (*server.HabitResponse, error) {
	path := "/api/habits/" + url.PathEscape(habitID)
	if verify {
		path += "?verify=true"
	}
	var out server.HabitResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteHabit(ctx context.Context, habitID string) error {
	return c.do(ctx, http.MethodDelete, "/api/habits/"+url.PathEscape(habitID), nil, nil)
}

func (c *Client) LogToday(ctx context.Context, habitID string) (*server.LogResponse, error) {
	var out server.LogResponse
	if err := c.do(ctx, http.MethodPost, "/api/habits/"+url.PathEscape(habitID)+"/log", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Toggle flips the done state of date (YYYY-MM-DD).
func (c *Client) Toggle(ctx context.Context, habitID, date string) (*server.ToggleResponse, error) {
	var out server.ToggleResponse
	path := "/api/habits/" + url.PathEscape(habitID) + "/toggle"
	if err := c.do(ctx, http.MethodPost, path, server.ToggleRequest{Date: date}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Graph fetches the contribution graph. days <= 0 uses the server default.
func (c *Client) Graph(ctx context.Context, habitID string, days int) (*server.GraphResponse, error) {
	path := "/api/habits/" + url.PathEscape(habitID) + "/graph"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var out server.GraphResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
