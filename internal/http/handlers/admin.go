package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hongminglow/hometown-ledger/internal/admin"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/http/respond"
	"github.com/hongminglow/hometown-ledger/internal/middleware"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/models/dto"
	"github.com/hongminglow/hometown-ledger/internal/storage"
)

// AdminService is the set of privileged operations exposed over HTTP.
type AdminService interface {
	CreateUser(ctx context.Context, actor auth.Actor, req admin.NewUserRequest) (models.User, error)
	GetUser(ctx context.Context, actor auth.Actor, userID string) (models.User, error)
	FindUser(ctx context.Context, actor auth.Actor, identifier string) (models.User, error)
	ListUsers(ctx context.Context, actor auth.Actor, limit int) ([]models.User, error)
	DeleteUser(ctx context.Context, actor auth.Actor, userID string) (admin.DeleteSummary, error)
	SetUserStatus(ctx context.Context, actor auth.Actor, userID string, status models.UserStatus) (models.User, error)
	ResetTransferPin(ctx context.Context, actor auth.Actor, userID, pin string, notify bool) (bool, error)
	CreditOrDebit(ctx context.Context, actor auth.Actor, req admin.FundsRequest) (admin.FundsResult, error)
	IssueCard(ctx context.Context, actor auth.Actor, req admin.IssueCardRequest) (models.Card, error)
	ListTransactions(ctx context.Context, actor auth.Actor, filter storage.TransactionFilter) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, actor auth.Actor, id string) (models.Transaction, error)
	OverrideTransactionStatus(ctx context.Context, actor auth.Actor, req admin.StatusOverride) (models.Transaction, error)
	ListMessages(ctx context.Context, actor auth.Actor, userID string, limit int) ([]models.Message, error)
}

// AdminHandler serves the operator API.
type AdminHandler struct {
	svc AdminService
}

func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Register attaches routes; r must already authenticate and gate callers.
func (h *AdminHandler) Register(r gin.IRoutes) {
	r.GET("/users", h.ListUsers)
	r.GET("/find-user", h.FindUser)
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUser)
	r.DELETE("/users/:id", h.DeleteUser)
	r.PUT("/users/:id/status", h.SetUserStatus)
	r.PUT("/users/:id/transfer-pin", h.ResetTransferPin)
	r.POST("/funds", h.AdjustFunds)
	r.POST("/cards", h.IssueCard)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	r.PUT("/transactions/:id/status", h.OverrideStatus)
	r.GET("/messages", h.ListMessages)
}

func queryLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return limit
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context(), middleware.Actor(c), queryLimit(c))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respond.JSON(c, http.StatusOK, "users", users)
}

func (h *AdminHandler) FindUser(c *gin.Context) {
	user, err := h.svc.FindUser(c.Request.Context(), middleware.Actor(c), c.Query("identifier"))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "user", user)
}

func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	user, err := h.svc.CreateUser(c.Request.Context(), middleware.Actor(c), admin.NewUserRequest{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		FullName:      req.FullName,
		Phone:         req.Phone,
		Currency:      req.Currency,
		RoutingNumber: req.RoutingNumber,
		TransferPin:   req.TransferPin,
	})
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "User created successfully", user)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "user", user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	summary, err := h.svc.DeleteUser(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "User and associated data deleted", summary)
}

func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	var req dto.UserStatusRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	user, err := h.svc.SetUserStatus(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.Status)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "User status updated", user)
}

func (h *AdminHandler) ResetTransferPin(c *gin.Context) {
	var req dto.PinResetRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	sent, err := h.svc.ResetTransferPin(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.NewPin, req.Notify)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Transfer PIN updated", dto.PinResetResponse{NotificationSent: sent})
}

func (h *AdminHandler) AdjustFunds(c *gin.Context) {
	var req dto.FundsRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	result, err := h.svc.CreditOrDebit(c.Request.Context(), middleware.Actor(c), admin.FundsRequest{
		UserID:      req.UserID,
		AccountType: models.AccountType(req.AccountType),
		Direction:   admin.Direction(req.Direction),
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Funds adjusted", result)
}

func (h *AdminHandler) IssueCard(c *gin.Context) {
	var req dto.IssueCardRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	card, err := h.svc.IssueCard(c.Request.Context(), middleware.Actor(c), admin.IssueCardRequest{
		UserID:        req.UserID,
		CardType:      models.CardType(req.CardType),
		LinkedAccount: req.LinkedAccount,
		Design:        req.Design,
	})
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Card generated", card)
}

func (h *AdminHandler) ListTransactions(c *gin.Context) {
	txs, err := h.svc.ListTransactions(c.Request.Context(), middleware.Actor(c), storage.TransactionFilter{
		UserID: c.Query("userId"),
		Status: models.TransactionStatus(c.Query("status")),
		Search: c.Query("search"),
		Limit:  queryLimit(c),
	})
	if err != nil {
		respond.Fail(c, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	respond.JSON(c, http.StatusOK, "transactions", txs)
}

func (h *AdminHandler) GetTransaction(c *gin.Context) {
	tx, err := h.svc.GetTransaction(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "transaction", tx)
}

func (h *AdminHandler) OverrideStatus(c *gin.Context) {
	var req dto.StatusRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	tx, err := h.svc.OverrideTransactionStatus(c.Request.Context(), middleware.Actor(c), admin.StatusOverride{
		TransactionID: c.Param("id"),
		Status:        models.TransactionStatus(req.Status),
		Note:          req.Note,
		Notify:        req.Notify,
	})
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Transaction status updated", tx)
}

func (h *AdminHandler) ListMessages(c *gin.Context) {
	msgs, err := h.svc.ListMessages(c.Request.Context(), middleware.Actor(c), c.Query("userId"), queryLimit(c))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	respond.JSON(c, http.StatusOK, "messages", msgs)
}
