package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ldi/clipflow/pkg/models"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// Client talks to the ClipFlow backend.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New constructs a client. A zero timeout means requests are bounded only
// by their context.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Origin is the scheme://host[:port] the backend serves output files from.
func (c *Client) Origin() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must include scheme and host", c.BaseURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// ListTasks calls GET /api/tasks?userID=.
func (c *Client) ListTasks(ctx context.Context, userID string) ([]models.Task, error) {
	endpoint, err := c.resolve("/api/tasks")
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userID", userID)
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, http.MethodGet, u.String())
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0)
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// GetTask calls GET /api/task/{id}.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	endpoint, err := c.resolve("/api/task/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}
	var t models.Task
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &t, nil
}

// DeleteTask calls DELETE /api/task/{id}. The response body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	endpoint, err := c.resolve("/api/task/" + url.PathEscape(id))
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodDelete, endpoint)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: method,
			Path:   req.URL.Path,
			Code:   resp.StatusCode,
			Body:   string(body),
		}
	}
	return body, nil
}

func (c *Client) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}
