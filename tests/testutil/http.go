package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
)

// Envelope is dto.Response with the payload kept raw for typed decoding.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *dto.ErrorInfo  `json:"error,omitempty"`
	Meta    *dto.Meta       `json:"meta,omitempty"`
}

// DoJSON serves one request against handler. body is JSON encoded when not
// nil and orgID, when set, is sent as the tenant header.
func DoJSON(t *testing.T, handler http.Handler, method, path string, orgID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if orgID != uuid.Nil {
		req.Header.Set(logger.TenantHeader, orgID.String())
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeEnvelope parses the response envelope.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Response is not an envelope: %s", w.Body.String())
	return env
}

// DecodeData asserts a successful response with the given status and
// decodes its data.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, "Unexpected status, body: %s", w.Body.String())

	env := DecodeEnvelope(t, w)
	require.True(t, env.Success, "Expected success response")

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), "Failed to decode data")
	return out
}

// AssertErrorResponse checks the status and error code of a failed response.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, "Unexpected status, body: %s", w.Body.String())

	env := DecodeEnvelope(t, w)
	assert.False(t, env.Success, "Expected error response")
	if assert.NotNil(t, env.Error, "Expected error object") {
		assert.Equal(t, dto.NormalizeErrorCode(code), env.Error.Code)
	}
}
