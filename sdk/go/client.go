package samadhansdk

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
)

// Client is a minimal Samadhan HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Grievance represents the API grievance model.
type Grievance struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	CategoryLabel string  `json:"category_label"`
	Sentiment     string  `json:"sentiment"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	SubmittedBy   string  `json:"submitted_by"`
	ContactNumber string  `json:"contact_number"`
	Location      string  `json:"location"`
	Summary       string  `json:"summary,omitempty"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	ActionTaken   *string `json:"action_taken,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// SubmitRequest carries intake fields for a new grievance.
type SubmitRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	SubmittedBy   string `json:"submitted_by"`
	ContactNumber string `json:"contact_number"`
	Location      string `json:"location"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// DepartmentStats is one row of the per-department dashboard.
type DepartmentStats struct {
	Department      string `json:"department"`
	Label           string `json:"label"`
	Total           int    `json:"total"`
	Open            int    `json:"open"`
	Processing      int    `json:"processing"`
	Resolved        int    `json:"resolved"`
	PercentResolved int    `json:"percent_resolved"`
}

// Stats is the aggregate dashboard view.
type Stats struct {
	Departments []DepartmentStats `json:"departments"`
	ByPriority  map[string]int    `json:"by_priority"`
	ByStatus    map[string]int    `json:"by_status"`
	Overall     struct {
		Total    int `json:"total"`
		Open     int `json:"open"`
		Resolved int `json:"resolved"`
		Critical int `json:"critical"`
	} `json:"overall"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedGrievances wraps list responses with cursors.
type PaginatedGrievances struct {
	Items      []Grievance `json:"items"`
	NextCursor string      `json:"next_cursor"`
}

// Submit files a new grievance.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (Grievance, error) {
	var resp Grievance
	err := c.do(ctx, http.MethodPost, "v1/grievances", req, &resp)
	return resp, err
}

// Get fetches a grievance by id.
func (c *Client) Get(ctx context.Context, id string) (Grievance, error) {
	var resp Grievance
	err := c.do(ctx, http.MethodGet, "v1/grievances/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// List returns a page of grievances. Filters may be empty.
func (c *Client) List(ctx context.Context, status, category string, limit int, cursor string) (PaginatedGrievances, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v1/grievances"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedGrievances
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SetStatus moves a grievance to the given workflow status.
func (c *Client) SetStatus(ctx context.Context, id, status string) (Grievance, error) {
	var resp Grievance
	endpoint := fmt.Sprintf("v1/grievances/%s/status", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// Assign sets or clears the handling officer.
func (c *Client) Assign(ctx context.Context, id, assignee string) (Grievance, error) {
	var resp Grievance
	endpoint := fmt.Sprintf("v1/grievances/%s/assignment", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"assigned_to": assignee}, &resp)
	return resp, err
}

// Suggestions returns handling advisories for a grievance.
func (c *Client) Suggestions(ctx context.Context, id string) ([]string, error) {
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	endpoint := fmt.Sprintf("v1/grievances/%s/suggestions", url.PathEscape(id))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Suggestions, err
}

// Stats returns the aggregate dashboard view.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "v1/stats", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v1/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
