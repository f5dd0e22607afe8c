package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/http/respond"
	"github.com/hongminglow/hometown-ledger/internal/middleware"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/models/dto"
)

// SupportService opens support tickets and lets operators work them.
type SupportService interface {
	Submit(ctx context.Context, actor auth.Actor, subject, body, category string) (models.Message, error)
	Open(ctx context.Context, actor auth.Actor, id string) (models.Message, error)
	SetStatus(ctx context.Context, actor auth.Actor, id string, status models.TicketStatus) (models.Message, error)
	Reply(ctx context.Context, actor auth.Actor, ticketID, body string) (models.Message, error)
}

// MessageHandler accepts support messages from customers and serves the
// operator side of the ticket desk.
type MessageHandler struct {
	support SupportService
}

func NewMessageHandler(svc SupportService) *MessageHandler {
	return &MessageHandler{support: svc}
}

func (h *MessageHandler) Register(r gin.IRoutes) {
	r.POST("/messages", h.Create)
}

// RegisterAdmin attaches the ticket desk; r must already gate on the admin capability.
func (h *MessageHandler) RegisterAdmin(r gin.IRoutes) {
	r.GET("/messages/:id", h.Open)
	r.PUT("/messages/:id/status", h.SetStatus)
	r.POST("/messages/:id/reply", h.Reply)
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req dto.MessageRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	msg, err := h.support.Submit(c.Request.Context(), middleware.Actor(c), req.Subject, req.Body, req.Category)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "message sent", msg)
}

func (h *MessageHandler) Open(c *gin.Context) {
	msg, err := h.support.Open(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "message", msg)
}

func (h *MessageHandler) SetStatus(c *gin.Context) {
	var req dto.TicketStatusRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	msg, err := h.support.SetStatus(c.Request.Context(), middleware.Actor(c), c.Param("id"), models.TicketStatus(req.Status))
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, "Message/ticket status updated successfully!", msg)
}

func (h *MessageHandler) Reply(c *gin.Context) {
	var req dto.ReplyRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	reply, err := h.support.Reply(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.Body)
	if err != nil {
		respond.Fail(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, "Reply sent successfully!", reply)
}
