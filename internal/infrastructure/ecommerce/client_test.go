package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/domain/shared/valueobject"
)

const (
	testAPIKey    = "ck_test"
	testAPISecret = "cs_test_secret"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type fakePlatform struct {
	mu       sync.Mutex
	requests []capturedRequest
	handler  func(w http.ResponseWriter, r *http.Request, body []byte)
}

func (p *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	p.mu.Lock()
	p.requests = append(p.requests, capturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	p.mu.Unlock()
	p.handler(w, r, body)
}

func (p *fakePlatform) last() capturedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func setupClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte), mutate ...func(*ClientConfig)) (*Client, *fakePlatform) {
	t.Helper()
	platform := &fakePlatform{handler: handler}
	server := httptest.NewServer(platform)
	t.Cleanup(server.Close)

	cfg := ClientConfig{PageSize: 2, CallTimeout: 2 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	factory, err := NewClientFactory(cfg, nil)
	require.NoError(t, err)

	rc, err := factory.NewClient(StoreCredentials{
		StoreID:   uuid.New(),
		BaseURL:   server.URL + "/",
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
	})
	require.NoError(t, err)
	return rc.(*Client), platform
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sampleCustomer() integration.CustomerPayload {
	return integration.CustomerPayload{
		ExternalRef: "11111111-2222-3333-4444-555555555555",
		Email:       "ada@example.com",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Billing:     valueobject.Address{Line1: "1 Analytical St", City: "London", Country: "GB"},
	}
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr error
	}{
		{name: "zero config gets defaults", config: ClientConfig{}},
		{name: "page size upper bound", config: ClientConfig{PageSize: 501}, wantErr: ErrInvalidPageSize},
		{name: "negative page size", config: ClientConfig{PageSize: -1}, wantErr: ErrInvalidPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultAPIPrefix, tt.config.APIPrefix)
			assert.Equal(t, 100, tt.config.PageSize)
			assert.Equal(t, 5*time.Minute, tt.config.TokenTTL)
		})
	}
}

func TestClientFactory_RejectsIncompleteCredentials(t *testing.T) {
	factory, err := NewClientFactory(ClientConfig{}, nil)
	require.NoError(t, err)

	_, err = factory.NewClient(StoreCredentials{StoreID: uuid.New(), BaseURL: "https://shop.example.com"})
	assert.ErrorIs(t, err, integration.ErrCredentialsMissing)

	_, err = factory.NewClient(StoreCredentials{StoreID: uuid.New(), BaseURL: "not a url", APIKey: "k", APISecret: "s"})
	assert.ErrorIs(t, err, integration.ErrInvalidBaseURL)
}

// ---------------------------------------------------------------------------
// Operation Tests
// ---------------------------------------------------------------------------

func TestClient_Create(t *testing.T) {
	client, platform := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": 4711, "email": "ada@example.com"})
	})

	result, err := client.Create(context.Background(), integration.EntityTypeCustomer, sampleCustomer())
	require.NoError(t, err)
	assert.Equal(t, "4711", result.RemoteID)

	req := platform.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/customers", req.Path)
	assert.Equal(t, sampleCustomer().ExternalRef, req.Header.Get(HeaderIdempotencyKey))
	assert.Equal(t, testAPIKey, req.Header.Get(HeaderAPIKey))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, "ada@example.com", sent["email"])
	assert.Equal(t, sampleCustomer().ExternalRef, sent["external_ref"])
	assert.Equal(t, "London", sent["billing"].(map[string]any)["city"])
}

func TestClient_BearerTokenIsSignedWithStoreSecret(t *testing.T) {
	client, platform := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c-1"})
	})

	_, err := client.Create(context.Background(), integration.EntityTypeCustomer, sampleCustomer())
	require.NoError(t, err)

	auth := platform.last().Header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "))

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), claims, func(tk *jwt.Token) (any, error) {
		return []byte(testAPISecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, testAPIKey, claims.Issuer)
	assert.Equal(t, client.creds.StoreID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	client, platform := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		switch r.Method {
		case http.MethodPut:
			writeJSON(w, http.StatusOK, map[string]any{"id": "ord 9"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	order := integration.OrderPayload{
		ExternalRef: uuid.NewString(),
		OrderNumber: "SO-1",
		Status:      "processing",
		Currency:    "EUR",
		Lines: []integration.OrderLinePayload{
			{Name: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("14.99"), Total: decimal.RequireFromString("29.98")},
		},
		Total: decimal.RequireFromString("29.98"),
	}

	res, err := client.Update(context.Background(), integration.EntityTypeOrder, "ord 9", order)
	require.NoError(t, err)
	assert.Equal(t, "ord 9", res.RemoteID)
	req := platform.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/v1/orders/ord 9", req.Path)
	assert.Empty(t, req.Header.Get(HeaderIdempotencyKey))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, "SO-1", sent["number"])
	assert.Equal(t, "29.98", sent["total"])

	res, err = client.Delete(context.Background(), integration.EntityTypeOrder, "ord 9")
	require.NoError(t, err)
	assert.Equal(t, "ord 9", res.RemoteID)
	assert.Equal(t, http.MethodDelete, platform.last().Method)
}

func TestClient_RejectsMismatchedPayload(t *testing.T) {
	client, platform := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1})
	})

	_, err := client.Create(context.Background(), integration.EntityTypeOrder, sampleCustomer())
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrRemoteRejected)
	assert.False(t, integration.IsRetryable(err))
	assert.Empty(t, platform.requests, "no request is sent for an invalid payload")

	_, err = client.Update(context.Background(), integration.EntityTypeCustomer, "", sampleCustomer())
	assert.ErrorIs(t, err, integration.ErrRemoteRejected)
}

func TestClient_ListFollowsCursor(t *testing.T) {
	client, platform := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		switch r.URL.Query().Get("cursor") {
		case "":
			writeJSON(w, http.StatusOK, map[string]any{
				"data": []map[string]any{
					{"id": 1, "email": "a@example.com"},
					{"id": "2", "email": "b@example.com", "shipping": map[string]any{"country": "DE"}},
				},
				"next_cursor": "page-2",
			})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"data": []map[string]any{{"id": 3, "email": "c@example.com"}},
			})
		}
	})

	ctx := context.Background()
	first, err := client.List(ctx, integration.EntityTypeCustomer, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore())
	assert.Equal(t, "1", first.Items[0].RemoteID)
	assert.Equal(t, "2", first.Items[1].RemoteID)
	cust := first.Items[1].Payload.(integration.CustomerPayload)
	assert.Equal(t, "b@example.com", cust.Email)
	assert.Equal(t, "DE", cust.Shipping.Country)
	assert.Contains(t, platform.last().Query, "limit=2")

	second, err := client.List(ctx, integration.EntityTypeCustomer, first.NextCursor)
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.False(t, second.HasMore())
	assert.Contains(t, platform.last().Query, "cursor=page-2")
}

func TestClient_ListRejectsStuckCursor(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}, "next_cursor": "same"})
	})

	_, err := client.List(context.Background(), integration.EntityTypeOrder, "same")
	assert.ErrorIs(t, err, integration.ErrRemoteInvalidResponse)
}

func TestClient_ListKeepsPageWhenOneItemIsUnreadable(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"id": 1, "email": "a@example.com"},
				{"email": "no-id@example.com"},
				{"id": 3, "email": "c@example.com"},
			},
			"next_cursor": "p2",
		})
	})

	page, err := client.List(context.Background(), integration.EntityTypeCustomer, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "p2", page.NextCursor)

	assert.NoError(t, page.Items[0].DecodeErr)
	assert.Equal(t, "1", page.Items[0].RemoteID)

	bad := page.Items[1]
	assert.ErrorIs(t, bad.DecodeErr, integration.ErrRemoteInvalidResponse)
	assert.Empty(t, bad.RemoteID)
	assert.Nil(t, bad.Payload)
	assert.Contains(t, string(bad.Raw), "no-id@example.com")

	assert.NoError(t, page.Items[2].DecodeErr)
	assert.Equal(t, "3", page.Items[2].RemoteID)
}

func TestClient_ListUnreadableOrderKeepsItsID(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{"id": "o-9", "number": "1009", "total": "not-a-number"}},
		})
	})

	page, err := client.List(context.Background(), integration.EntityTypeOrder, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "o-9", page.Items[0].RemoteID)
	assert.ErrorIs(t, page.Items[0].DecodeErr, integration.ErrRemoteInvalidResponse)
}

func TestClient_ListDecodesOrders(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{
				"id":       "o-1",
				"number":   "1001",
				"status":   "completed",
				"currency": "USD",
				"line_items": []map[string]any{
					{"name": "Cable", "quantity": 1, "unit_price": "10.00", "total": "10.00"},
				},
				"total":     "10.00",
				"placed_at": "2024-02-01T10:00:00Z",
			}},
		})
	})

	page, err := client.List(context.Background(), integration.EntityTypeOrder, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	order := page.Items[0].Payload.(integration.OrderPayload)
	assert.Equal(t, "1001", order.NaturalKey())
	assert.True(t, decimal.RequireFromString("10").Equal(order.Total))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 1, order.Lines[0].Quantity)
	require.NotNil(t, order.PlacedAt)
	assert.Equal(t, 2024, order.PlacedAt.Year())
}

func TestClient_FindByExternalRef(t *testing.T) {
	client, platform := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		if r.URL.Query().Get("external_ref") == "known" {
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": 77}}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	})

	res, err := client.FindByExternalRef(context.Background(), integration.EntityTypeCustomer, "known")
	require.NoError(t, err)
	assert.Equal(t, "77", res.RemoteID)
	assert.Contains(t, platform.last().Query, "external_ref=known")

	_, err = client.FindByExternalRef(context.Background(), integration.EntityTypeCustomer, "unknown")
	assert.ErrorIs(t, err, integration.ErrRemoteNotFound)
}

// ---------------------------------------------------------------------------
// Error Mapping Tests
// ---------------------------------------------------------------------------

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  error
		retryable bool
		wantMsg   string
	}{
		{name: "validation", status: 422, body: `{"message":"email is invalid"}`, wantKind: integration.ErrRemoteRejected, wantMsg: "email is invalid"},
		{name: "bad request nested error", status: 400, body: `{"error":{"code":"bad","message":"missing number"}}`, wantKind: integration.ErrRemoteRejected, wantMsg: "missing number"},
		{name: "unauthorized", status: 401, wantKind: integration.ErrRemoteAuthFailed},
		{name: "forbidden", status: 403, wantKind: integration.ErrRemoteAuthFailed},
		{name: "not found", status: 404, wantKind: integration.ErrRemoteNotFound},
		{name: "rate limited", status: 429, wantKind: integration.ErrRemoteRateLimited, retryable: true},
		{name: "server error", status: 500, body: "oops", wantKind: integration.ErrRemoteUnavailable, retryable: true, wantMsg: "Internal Server Error"},
		{name: "bad gateway", status: 502, wantKind: integration.ErrRemoteUnavailable, retryable: true},
		{name: "gateway timeout", status: 504, wantKind: integration.ErrRemoteTimeout, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Create(context.Background(), integration.EntityTypeCustomer, sampleCustomer())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.retryable, integration.IsRetryable(err))

			re, ok := integration.AsRemoteError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, re.StatusCode)
			assert.Equal(t, "create", re.Op)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, re.Message)
			}
		})
	}
}

func TestClient_CallTimeout(t *testing.T) {
	release := make(chan struct{})
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(c *ClientConfig) { c.CallTimeout = 50 * time.Millisecond })
	defer close(release)

	start := time.Now()
	_, err := client.Create(context.Background(), integration.EntityTypeCustomer, sampleCustomer())
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrRemoteTimeout)
	assert.True(t, integration.IsRetryable(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_TransportFailureIsRetryable(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {})
	client.baseURL = "http://127.0.0.1:1/api/v1"

	_, err := client.List(context.Background(), integration.EntityTypeCustomer, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)
	assert.True(t, integration.IsRetryable(err))
}

func TestClient_InvalidResponseBody(t *testing.T) {
	client, _ := setupClient(t, func(w http.ResponseWriter, r *http.Request, body []byte) {
		writeJSON(w, http.StatusCreated, map[string]any{"email": "no id here"})
	})

	_, err := client.Create(context.Background(), integration.EntityTypeCustomer, sampleCustomer())
	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrRemoteInvalidResponse))
}
