package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/http/respond"
)

const actorKey = "actor"

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(raw string) (auth.Actor, error)
}

// Authenticate resolves the bearer token into an actor stored on the context.
func Authenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respond.Fail(c, apperr.New(apperr.Unauthenticated, "authorization header required"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			respond.Fail(c, apperr.New(apperr.Unauthenticated, "invalid authorization header format"))
			return
		}
		actor, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			respond.Fail(c, apperr.New(apperr.Unauthenticated, "invalid or expired token"))
			return
		}
		SetActor(c, actor)
		c.Next()
	}
}

// RequireCapability rejects requests whose actor lacks capability.
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Authorize(Actor(c), capability); err != nil {
			respond.Fail(c, err)
			return
		}
		c.Next()
	}
}

// SetActor stores actor on the request context.
func SetActor(c *gin.Context, actor auth.Actor) {
	c.Set(actorKey, actor)
}

// Actor returns the authenticated actor, or the zero Actor.
func Actor(c *gin.Context) auth.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return auth.Actor{}
	}
	actor, _ := v.(auth.Actor)
	return actor
}
