package cli

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

	"github.com/google/uuid"

	appintegration "github.com/erp/storesync/internal/application/integration"
	reportapp "github.com/erp/storesync/internal/application/report"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/erp/storesync/internal/interfaces/http/handler"
)

const apiBasePath = "/api/v1"

// APIError is a non-success response of the storesync API
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.RequestID != "" {
		msg += " request " + e.RequestID
	}
	return msg
}

// Client calls the storesync REST API and unwraps its response envelope.
type Client struct {
	baseURL      string
	organization string
	httpClient   *http.Client
	debug        io.Writer
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithOrganization sets the X-Tenant-ID header on every request
func WithOrganization(orgID string) ClientOption {
	return func(c *Client) {
		c.organization = orgID
	}
}

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the API served at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *dto.ErrorInfo  `json:"error,omitempty"`
}

// StartSync queues a sync job for a store and returns its id
func (c *Client) StartSync(ctx context.Context, storeID, orgID uuid.UUID, req handler.StartSyncRequest) (uuid.UUID, error) {
	var resp handler.StartSyncResponse
	path := fmt.Sprintf("/sync/%s/%s", storeID, orgID)
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.JobID, nil
}

// GetJob returns the summary of one sync job
func (c *Client) GetJob(ctx context.Context, jobID uuid.UUID) (integration.SyncSummary, error) {
	var summary integration.SyncSummary
	err := c.do(ctx, http.MethodGet, "/sync/jobs/"+jobID.String(), nil, nil, &summary)
	return summary, err
}

// ListJobs returns the jobs the server remembers, optionally for one store
func (c *Client) ListJobs(ctx context.Context, storeID uuid.UUID) ([]integration.SyncSummary, error) {
	query := url.Values{}
	if storeID != uuid.Nil {
		query.Set("storeId", storeID.String())
	}
	var jobs []integration.SyncSummary
	err := c.do(ctx, http.MethodGet, "/sync/jobs", query, nil, &jobs)
	return jobs, err
}

// WaitJob polls a job until it reaches a terminal status
func (c *Client) WaitJob(ctx context.Context, jobID uuid.UUID, interval time.Duration) (integration.SyncSummary, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		summary, err := c.GetJob(ctx, jobID)
		if err != nil {
			return summary, err
		}
		if summary.Status.IsTerminal() {
			return summary, nil
		}
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case <-ticker.C:
		}
	}
}

// RetrySync re-pushes one local record to its store
func (c *Client) RetrySync(ctx context.Context, entityType integration.EntityType, localID uuid.UUID) (appintegration.SyncResult, error) {
	var result appintegration.SyncResult
	path := fmt.Sprintf("/%ss/%s/retry-sync", entityType, localID)
	err := c.do(ctx, http.MethodPost, path, nil, nil, &result)
	return result, err
}

// RevenueQuery selects the revenue report
type RevenueQuery struct {
	Currency string
	From     string
	To       string
}

// Revenue reads the organization revenue report
func (c *Client) Revenue(ctx context.Context, q RevenueQuery) (reportapp.RevenueResponse, error) {
	query := url.Values{}
	query.Set("organizationId", c.organization)
	if q.Currency != "" {
		query.Set("currency", q.Currency)
	}
	if q.From != "" {
		query.Set("from", q.From)
	}
	if q.To != "" {
		query.Set("to", q.To)
	}
	var resp reportapp.RevenueResponse
	err := c.do(ctx, http.MethodGet, "/reports/revenue", query, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + apiBasePath + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.organization != "" {
		req.Header.Set(logger.TenantHeader, c.organization)
	}

	if c.debug != nil {
		fmt.Fprintf(c.debug, "> %s %s\n", method, target)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if c.debug != nil {
		fmt.Fprintf(c.debug, "< %s\n", resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.RequestID = env.Error.RequestID
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", path, err)
	}
	return nil
}
