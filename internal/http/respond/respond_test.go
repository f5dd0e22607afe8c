package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := map[apperr.Kind]int{
		apperr.Validation:           http.StatusBadRequest,
		apperr.InvalidLinkedAccount: http.StatusBadRequest,
		apperr.Unauthenticated:      http.StatusUnauthorized,
		apperr.InvalidPin:           http.StatusUnauthorized,
		apperr.Unauthorized:         http.StatusForbidden,
		apperr.NotFound:             http.StatusNotFound,
		apperr.Conflict:             http.StatusConflict,
		apperr.InsufficientFunds:    http.StatusUnprocessableEntity,
		apperr.GenerationExhausted:  http.StatusServiceUnavailable,
		apperr.StorageUnavailable:   http.StatusServiceUnavailable,
		apperr.InvariantViolation:   http.StatusInternalServerError,
		apperr.Internal:             http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, Status(kind), kind)
	}
}

func TestFailHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Fail(c, apperr.Wrap(apperr.Internal, errors.New("pq: password authentication failed"), "lookup failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
	assert.Equal(t, "internal", body.Kind)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestFailKeepsClientMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Fail(c, apperr.New(apperr.InsufficientFunds, "insufficient funds in the selected account"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "insufficient funds in the selected account", body.Message)
	assert.Equal(t, "insufficient_funds", body.Kind)
}
