package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/stretchr/testify/assert"
)

type stubParser struct {
	actor auth.Actor
	err   error
}

func (s stubParser) Parse(string) (auth.Actor, error) { return s.actor, s.err }

func newRouter(parser TokenParser, capability auth.Capability) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://bank.example"}))
	r.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	protected := r.Group("/", Authenticate(parser), RequireCapability(capability))
	protected.GET("/secure", func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c).ID)
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		parser     stubParser
		capability auth.Capability
		want       int
	}{
		{"missing header", "", stubParser{}, auth.CapReadOwn, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubParser{}, auth.CapReadOwn, http.StatusUnauthorized},
		{"bad token", "Bearer abc", stubParser{err: errors.New("expired")}, auth.CapReadOwn, http.StatusUnauthorized},
		{"user ok", "Bearer abc", stubParser{actor: auth.Actor{ID: "u1", Role: models.RoleUser}}, auth.CapReadOwn, http.StatusOK},
		{"user not admin", "Bearer abc", stubParser{actor: auth.Actor{ID: "u1", Role: models.RoleUser}}, auth.CapAdmin, http.StatusForbidden},
		{"admin ok", "bearer abc", stubParser{actor: auth.Actor{ID: "a1", Role: models.RoleAdmin}}, auth.CapAdmin, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(tc.parser, tc.capability)
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, tc.parser.actor.ID, w.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(stubParser{}, auth.CapReadOwn)

	req := httptest.NewRequest(http.MethodOptions, "/open", nil)
	req.Header.Set("Origin", "https://bank.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://bank.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Pin string `json:"pin" validate:"required,len=4,numeric"`
	}
	errs := ValidateRequest(payload{Pin: "12"})
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "Pin", errs[0].Field)
		assert.Equal(t, "len", errs[0].Type)
	}
	assert.Empty(t, ValidateRequest(payload{Pin: "1234"}))
}
