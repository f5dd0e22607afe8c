package dto

import (
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type FundsRequest struct {
	UserID      string          `json:"userId" validate:"required"`
	AccountType string          `json:"accountType" validate:"required,oneof=checking savings"`
	Direction   string          `json:"direction" validate:"required,oneof=credit debit"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=200"`
}

type StatusRequest struct {
	Status string `json:"newStatus" validate:"required"`
	Note   string `json:"adminNoteMessage" validate:"max=500"`
	Notify bool   `json:"sendTransactionStatusEmail"`
}

type IssueCardRequest struct {
	UserID        string `json:"userId" validate:"required"`
	CardType      string `json:"cardType" validate:"required,oneof=debit credit"`
	LinkedAccount string `json:"linkedAccountNumber"`
	Design        string `json:"design" validate:"max=40"`
}

type CreateUserRequest struct {
	Username      string `json:"username" validate:"required,max=60"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	FullName      string `json:"fullName" validate:"required,max=120"`
	Phone         string `json:"phone" validate:"max=30"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
	RoutingNumber string `json:"routingNumber" validate:"omitempty,len=9,numeric"`
	TransferPin   string `json:"transferPin" validate:"omitempty,len=4,numeric"`
}

type PinResetRequest struct {
	NewPin string `json:"newPin" validate:"required,len=4,numeric"`
	Notify bool   `json:"sendEmailNotification"`
}

type UserStatusRequest struct {
	Status models.UserStatus `json:"status" validate:"required"`
}

type PinResetResponse struct {
	NotificationSent bool `json:"notificationSent"`
}
