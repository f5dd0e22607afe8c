package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/http/respond"
	"github.com/hongminglow/hometown-ledger/internal/ledger"
	"github.com/hongminglow/hometown-ledger/internal/middleware"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/models/dto"
)

// LedgerService is the customer-facing part of the ledger engine.
type LedgerService interface {
	Transfer(ctx context.Context, actor auth.Actor, req ledger.TransferRequest) (ledger.TransferResult, error)
	History(ctx context.Context, actor auth.Actor, limit int) ([]models.Transaction, error)
	Overview(ctx context.Context, actor auth.Actor) (ledger.Overview, error)
}

// LedgerHandler serves transfers and the caller's own account data.
type LedgerHandler struct {
	ledger LedgerService
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(svc LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: svc}
}

// Register attaches routes; r must already authenticate callers.
func (h *LedgerHandler) Register(r gin.IRoutes) {
	r.POST("/transactions/transfer", h.Transfer)
	r.GET("/transactions", h.History)
	r.GET("/accounts", h.Accounts)
}

func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	details, err := ledger.ParseDetails(req.TransferType, req.BankName, req.RoutingNumber, req.SwiftCode, req.IBAN)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	result, err := h.ledger.Transfer(c.Request.Context(), middleware.Actor(c), ledger.TransferRequest{
		FromAccount:      req.FromAccountNumber,
		RecipientName:    req.RecipientName,
		RecipientAccount: req.RecipientAccount,
		Amount:           req.Amount,
		Memo:             req.Memo,
		Pin:              req.TransferPin,
		Details:          details,
	})
	if err != nil {
		respond.Fail(c, err)
		return
	}
	message := "Transfer completed successfully"
	if result.Status != models.StatusCompleted {
		message = "Transfer initiated successfully! Your transfer is currently being processed."
	}
	respond.JSON(c, http.StatusOK, message, result)
}

func (h *LedgerHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	txs, err := h.ledger.History(c.Request.Context(), middleware.Actor(c), limit)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	respond.JSON(c, http.StatusOK, "transactions", txs)
}

func (h *LedgerHandler) Accounts(c *gin.Context) {
	overview, err := h.ledger.Overview(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "accounts", overview)
}
