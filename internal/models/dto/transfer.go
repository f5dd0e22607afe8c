package dto

import "github.com/shopspring/decimal"

type TransferRequest struct {
	FromAccountNumber string          `json:"fromAccountNumber" validate:"required,numeric"`
	TransferType      string          `json:"transferType"`
	RecipientName     string          `json:"recipientName" validate:"required,max=120"`
	RecipientAccount  string          `json:"recipientAccount" validate:"required,max=34"`
	Amount            decimal.Decimal `json:"amount"`
	Memo              string          `json:"memo" validate:"max=140"`
	BankName          string          `json:"bankName" validate:"max=120"`
	RoutingNumber     string          `json:"routingNumber"`
	SwiftCode         string          `json:"swiftCode"`
	IBAN              string          `json:"iban"`
	TransferPin       string          `json:"transferPin" validate:"required,len=4,numeric"`
}

type MessageRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Body     string `json:"body" validate:"required,max=5000"`
	Category string `json:"category" validate:"max=40"`
}

type TicketStatusRequest struct {
	Status string `json:"ticketStatus" validate:"required,oneof=open in_progress resolved closed"`
}

type ReplyRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}
