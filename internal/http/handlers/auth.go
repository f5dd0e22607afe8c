package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/http/respond"
	"github.com/hongminglow/hometown-ledger/internal/middleware"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/models/dto"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

// AuthHandler owns the login endpoint.
type AuthHandler struct {
	store  storage.Store
	tokens *auth.TokenManager
	hasher auth.Hasher
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.Store, tokens *auth.TokenManager, hasher auth.Hasher) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, hasher: hasher}
}

// Register attaches auth routes.
func (h *AuthHandler) Register(r gin.IRoutes) {
	r.POST("/login", h.handleLogin)
}

func (h *AuthHandler) handleLogin(c *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	user, err := h.findUser(c.Request.Context(), identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(c, http.StatusUnauthorized, apperr.Unauthenticated, "invalid credentials", nil)
			return
		}
		log.Printf("login failed: error fetching user %s: %v", identifier, err)
		respond.Fail(c, apperr.FromStorage(err, "user"))
		return
	}
	if !h.hasher.Compare(user.PasswordHash, req.Password) {
		respond.Error(c, http.StatusUnauthorized, apperr.Unauthenticated, "invalid credentials", nil)
		return
	}
	if user.Status == models.UserBlocked || user.Status == models.UserSuspended {
		respond.Error(c, http.StatusForbidden, apperr.Unauthorized, "account is "+string(user.Status), nil)
		return
	}
	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Printf("login failed: sign token for %s: %v", user.ID, err)
		respond.Error(c, http.StatusInternalServerError, apperr.Internal, "failed to generate token", nil)
		return
	}
	respond.JSON(c, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
}

func (h *AuthHandler) findUser(ctx context.Context, identifier string) (models.User, error) {
	var user models.User
	err := h.store.Read(ctx, func(repo storage.Repository) error {
		var err error
		user, err = repo.FindUserByLogin(ctx, identifier)
		return err
	})
	return user, err
}
