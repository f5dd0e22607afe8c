package respond

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(c *gin.Context, status int, kind apperr.Kind, message string, data any) {
	c.AbortWithStatusJSON(status, Envelope{Code: status, Message: message, Kind: string(kind), Data: data})
}

// Fail writes err using the status its kind maps to. Messages of server-side
// failures are replaced by a generic text.
func Fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := Status(kind)
	message := apperr.MessageOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		if kind == apperr.Internal || kind == apperr.InvariantViolation {
			message = "internal server error"
		}
	}
	Error(c, status, kind, message, nil)
}

// Status maps an error kind to an HTTP status code.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.InvalidLinkedAccount:
		return http.StatusBadRequest
	case apperr.Unauthenticated, apperr.InvalidPin:
		return http.StatusUnauthorized
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.InsufficientFunds:
		return http.StatusUnprocessableEntity
	case apperr.GenerationExhausted, apperr.StorageUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
