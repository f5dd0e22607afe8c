package auth

import (
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/models"
)

// Actor is a verified caller identity.
type Actor struct {
	ID   string
	Role models.Role
}

// Capability is an operation class checked by Authorize.
type Capability string

const (
	CapTransfer    Capability = "transfer"
	CapReadOwn     Capability = "read_own"
	CapSendMessage Capability = "send_message"
	CapAdmin       Capability = "admin"
)

var grants = map[models.Role]map[Capability]bool{
	models.RoleUser: {
		CapTransfer:    true,
		CapReadOwn:     true,
		CapSendMessage: true,
	},
	models.RoleAdmin: {
		CapTransfer:    true,
		CapReadOwn:     true,
		CapSendMessage: true,
		CapAdmin:       true,
	},
}

// Authorize is the single capability gate. It returns nil, an Unauthenticated
// error for a missing identity, or an Unauthorized error.
func Authorize(actor Actor, capability Capability) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if !grants[actor.Role][capability] {
		return apperr.New(apperr.Unauthorized, "not permitted to %s", capability)
	}
	return nil
}
