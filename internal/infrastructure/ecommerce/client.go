package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
)

// Headers sent with every request
const (
	HeaderAPIKey         = "X-Api-Key"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderStoreID        = "X-Store-ID"
)

// Client implements integration.RemoteClient against the platform REST API
// for a single store. It performs exactly one HTTP call per operation.
type Client struct {
	creds      StoreCredentials
	config     ClientConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

func newClient(creds StoreCredentials, cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		creds:      creds,
		config:     cfg,
		baseURL:    strings.TrimRight(creds.BaseURL, "/") + cfg.APIPrefix,
		httpClient: httpClient,
		logger:     logger.With(zap.String("store_id", creds.StoreID.String())),
		now:        time.Now,
	}
}

// Create posts a new record. The payload's external reference is sent as
// the idempotency key so a replayed create returns the original record.
func (c *Client) Create(ctx context.Context, et integration.EntityType, payload integration.Payload) (*integration.RemoteResult, error) {
	const op = "create"
	path, err := resourcePath(et)
	if err != nil {
		return nil, err
	}
	body, err := encodePayload(et, payload)
	if err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteRejected, 0, err.Error())
	}

	headers := http.Header{}
	if ref := payload.ExternalReference(); ref != "" {
		headers.Set(HeaderIdempotencyKey, ref)
	}

	raw, err := c.do(ctx, op, et, http.MethodPost, path, nil, body, headers)
	if err != nil {
		return nil, err
	}
	return c.recordResult(op, et, raw)
}

// Update replaces the remote record identified by remoteID
func (c *Client) Update(ctx context.Context, et integration.EntityType, remoteID string, payload integration.Payload) (*integration.RemoteResult, error) {
	const op = "update"
	path, err := resourcePath(et)
	if err != nil {
		return nil, err
	}
	if remoteID == "" {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteRejected, 0, "remote id is required")
	}
	body, err := encodePayload(et, payload)
	if err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteRejected, 0, err.Error())
	}

	raw, err := c.do(ctx, op, et, http.MethodPut, path+"/"+url.PathEscape(remoteID), nil, body, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &integration.RemoteResult{RemoteID: remoteID}, nil
	}
	return c.recordResult(op, et, raw)
}

// Delete removes the remote record identified by remoteID
func (c *Client) Delete(ctx context.Context, et integration.EntityType, remoteID string) (*integration.RemoteResult, error) {
	const op = "delete"
	path, err := resourcePath(et)
	if err != nil {
		return nil, err
	}
	if remoteID == "" {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteRejected, 0, "remote id is required")
	}

	raw, err := c.do(ctx, op, et, http.MethodDelete, path+"/"+url.PathEscape(remoteID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return &integration.RemoteResult{RemoteID: remoteID, Raw: raw}, nil
}

// List returns one page of records starting at cursor ("" for the first page)
func (c *Client) List(ctx context.Context, et integration.EntityType, cursor string) (*integration.Page, error) {
	const op = "list"
	path, err := resourcePath(et)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.config.PageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	raw, err := c.do(ctx, op, et, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteInvalidResponse, http.StatusOK, "failed to parse list response: "+err.Error())
	}
	if resp.NextCursor != "" && resp.NextCursor == cursor {
		// a cursor that does not advance would loop forever
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteInvalidResponse, http.StatusOK, "next cursor did not advance")
	}

	page := &integration.Page{
		Items:      make([]integration.RemoteItem, 0, len(resp.Data)),
		NextCursor: resp.NextCursor,
	}
	for i, itemRaw := range resp.Data {
		item, err := decodeItem(et, itemRaw)
		if err != nil {
			decodeErr := integration.NewRemoteError(op, et, integration.ErrRemoteInvalidResponse, http.StatusOK,
				fmt.Sprintf("item %d: %v", i, err))
			item = integration.RemoteItem{RemoteID: peekID(itemRaw), Raw: itemRaw, DecodeErr: decodeErr}
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// FindByExternalRef looks up a record created with the given external reference
func (c *Client) FindByExternalRef(ctx context.Context, et integration.EntityType, externalRef string) (*integration.RemoteResult, error) {
	const op = "find"
	path, err := resourcePath(et)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("external_ref", externalRef)
	query.Set("limit", "1")

	raw, err := c.do(ctx, op, et, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteInvalidResponse, http.StatusOK, "failed to parse lookup response: "+err.Error())
	}
	if len(resp.Data) == 0 {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteNotFound, http.StatusOK, "no record with external reference "+externalRef)
	}
	return c.recordResult(op, et, resp.Data[0])
}

// peekID returns the id of an undecodable item when one can still be read
func peekID(raw []byte) string {
	var env recordEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	id, err := parseID(env.ID)
	if err != nil {
		return ""
	}
	return id
}

// recordResult extracts the assigned id from a single record body
func (c *Client) recordResult(op string, et integration.EntityType, raw []byte) (*integration.RemoteResult, error) {
	var env recordEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteInvalidResponse, 0, "failed to parse response: "+err.Error())
	}
	id, err := parseID(env.ID)
	if err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteInvalidResponse, 0, "response "+err.Error())
	}
	return &integration.RemoteResult{RemoteID: id, Raw: raw}, nil
}

// do sends one request under the per-call timeout and returns the body of a 2xx response
func (c *Client) do(
	ctx context.Context,
	op string,
	et integration.EntityType,
	method, path string,
	query url.Values,
	body []byte,
	headers http.Header,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteRejected, 0, "failed to create request: "+err.Error())
	}

	token, err := c.signToken()
	if err != nil {
		return nil, integration.NewRemoteError(op, et, integration.ErrRemoteAuthFailed, 0, "failed to sign token: "+err.Error())
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderAPIKey, c.creds.APIKey)
	req.Header.Set(HeaderStoreID, c.creds.StoreID.String())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rerr := transportError(op, et, err)
		c.logger.Debug("remote call failed",
			zap.String("op", op),
			zap.String("entity_type", string(et)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(rerr),
		)
		return nil, rerr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(op, et, err)
	}

	c.logger.Debug("remote call",
		zap.String("op", op),
		zap.String("entity_type", string(et)),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, et, resp.StatusCode, respBody)
	}
	return respBody, nil
}

// signToken issues a short lived HS256 token signed with the store API secret
func (c *Client) signToken() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.creds.APIKey,
		Subject:   c.creds.StoreID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TokenTTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.creds.APISecret))
}

// statusError maps a non-2xx response onto a RemoteError kind
func statusError(op string, et integration.EntityType, status int, body []byte) *integration.RemoteError {
	msg := http.StatusText(status)
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.text() != "" {
		msg = er.text()
	}

	var kind error
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = integration.ErrRemoteAuthFailed
	case status == http.StatusNotFound, status == http.StatusGone:
		kind = integration.ErrRemoteNotFound
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		kind = integration.ErrRemoteTimeout
	case status == http.StatusTooManyRequests:
		kind = integration.ErrRemoteRateLimited
	case status >= 500:
		kind = integration.ErrRemoteUnavailable
	default:
		kind = integration.ErrRemoteRejected
	}
	return integration.NewRemoteError(op, et, kind, status, msg)
}

// transportError classifies a failure below HTTP
func transportError(op string, et integration.EntityType, err error) *integration.RemoteError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return integration.NewRemoteError(op, et, integration.ErrRemoteTimeout, 0, err.Error())
	case errors.As(err, &netErr) && netErr.Timeout():
		return integration.NewRemoteError(op, et, integration.ErrRemoteTimeout, 0, err.Error())
	default:
		return integration.NewRemoteError(op, et, integration.ErrRemoteUnavailable, 0, err.Error())
	}
}

// Ensure Client implements RemoteClient
var _ integration.RemoteClient = (*Client)(nil)
