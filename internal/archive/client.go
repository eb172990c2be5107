// Package archive is the HTTP client for the upstream archive API that owns
// ingestion points and import jobs.
package archive

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
)

// Config holds archive client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("archive API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("archive API error: status %d", e.StatusCode)
}

// Client calls the archive API. The bearer token is supplied per call so one
// client serves every user.
type Client struct {
	client *resty.Client
}

// NewClient creates a new archive API client.
func NewClient(cfg Config) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.RetryCount > 0 {
		client.SetRetryCount(cfg.RetryCount)
		client.SetRetryWaitTime(200 * time.Millisecond)
		client.AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	}
	return &Client{client: client}
}

// Page is one page of a list endpoint.
type Page struct {
	Items    []domain.RawResource `json:"items"`
	NextPage *int                 `json:"next_page"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Path returns the collection path for kind, e.g. /import-jobs.
func Path(kind domain.ResourceKind) string {
	return "/" + strings.ReplaceAll(string(kind), "_", "-")
}

// List fetches one page of kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - token: caller's bearer token; empty sends no Authorization header.
//   - kind: resource kind to list.
//   - page: 1-based page number.
//   - limit: page size.
// Returns:
//   - *Page: items and the next page number, nil when done.
//   - error: transport error or *StatusError.
func (c *Client) List(ctx context.Context, token string, kind domain.ResourceKind, page, limit int) (*Page, error) {
	var result Page
	var failure errorBody
	req := c.request(ctx, token).
		SetQueryParam("page", strconv.Itoa(page)).
		SetResult(&result).
		SetError(&failure)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := req.Get(Path(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to call archive API: %w", err)
	}
	if resp.IsError() {
		return nil, statusError(resp, failure)
	}
	if result.Items == nil {
		result.Items = []domain.RawResource{}
	}
	return &result, nil
}

// Get fetches a single item of kind.
// Returns a NOT_FOUND app error when the archive answers 404.
func (c *Client) Get(ctx context.Context, token string, kind domain.ResourceKind, id string) (domain.RawResource, error) {
	var result domain.RawResource
	var failure errorBody
	resp, err := c.request(ctx, token).
		SetPathParam("id", id).
		SetResult(&result).
		SetError(&failure).
		Get(Path(kind) + "/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to call archive API: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, apperr.NotFound("%s %q not found upstream", kind, id)
	}
	if resp.IsError() {
		return nil, statusError(resp, failure)
	}
	if result == nil {
		return nil, fmt.Errorf("archive API returned an empty body for %s %q", kind, id)
	}
	return result, nil
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	req := c.client.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func statusError(resp *resty.Response, body errorBody) error {
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	return &StatusError{StatusCode: resp.StatusCode(), Message: msg}
}
