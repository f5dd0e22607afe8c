package support

import (
	"context"
	"strings"
	"testing"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/hongminglow/hometown-ledger/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.WithinTx(ctx, func(repo storage.Repository) error {
		return repo.CreateUser(ctx, models.User{
			ID: "u1", Username: "alice", Email: "alice@example.com", RoutingNumber: "111111111",
			Checking: models.Account{Number: "1000000001"}, Savings: models.Account{Number: "1000000002"},
		})
	}))
	svc := NewService(store)
	actor := auth.Actor{ID: "u1", Role: models.RoleUser}

	msg, err := svc.Submit(ctx, actor, " Card lost ", "Please block my card", "")
	require.NoError(t, err)
	assert.Equal(t, "Card lost", msg.Subject)
	assert.Equal(t, "general", msg.Category)
	assert.Equal(t, models.TicketOpen, msg.Status)

	require.NoError(t, store.Read(ctx, func(repo storage.Repository) error {
		list, err := repo.ListMessages(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	}))

	_, err = svc.Submit(ctx, actor, "", "body", "")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = svc.Submit(ctx, actor, "s", strings.Repeat("x", maxBodyLength+1), "")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = svc.Submit(ctx, auth.Actor{ID: "ghost", Role: models.RoleUser}, "s", "b", "")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = svc.Submit(ctx, auth.Actor{}, "s", "b", "")
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestTicketWorkflow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.WithinTx(ctx, func(repo storage.Repository) error {
		return repo.CreateUser(ctx, models.User{
			ID: "u1", Username: "alice", Email: "alice@example.com", RoutingNumber: "111111111",
			Checking: models.Account{Number: "1000000001"}, Savings: models.Account{Number: "1000000002"},
		})
	}))
	svc := NewService(store)
	customer := auth.Actor{ID: "u1", Role: models.RoleUser}
	operator := auth.Actor{ID: "admin-1", Role: models.RoleAdmin}

	ticket, err := svc.Submit(ctx, customer, "Statement", "Where is my statement?", "billing")
	require.NoError(t, err)
	assert.False(t, ticket.Read)

	opened, err := svc.Open(ctx, operator, ticket.ID)
	require.NoError(t, err)
	assert.True(t, opened.Read)

	reply, err := svc.Reply(ctx, operator, ticket.ID, "  It is on its way.  ")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", reply.SenderID)
	assert.Equal(t, "u1", reply.RecipientID)
	assert.Equal(t, "RE: Statement", reply.Subject)
	assert.Equal(t, "It is on its way.", reply.Body)
	assert.Equal(t, "billing", reply.Category)
	assert.Equal(t, models.TicketInProgress, reply.Status)

	second, err := svc.Reply(ctx, operator, ticket.ID, "Follow-up")
	require.NoError(t, err)
	assert.Equal(t, "RE: Statement", second.Subject)
	assert.Equal(t, models.TicketInProgress, second.Status)

	resolved, err := svc.SetStatus(ctx, operator, ticket.ID, models.TicketResolved)
	require.NoError(t, err)
	assert.Equal(t, models.TicketResolved, resolved.Status)
	assert.True(t, resolved.Read)

	require.NoError(t, store.Read(ctx, func(repo storage.Repository) error {
		got, err := repo.GetMessage(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TicketResolved, got.Status)
		assert.True(t, got.Read)

		inbox, err := repo.ListMessages(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Len(t, inbox, 3)
		return nil
	}))
}

func TestTicketWorkflowRejections(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore())
	customer := auth.Actor{ID: "u1", Role: models.RoleUser}
	operator := auth.Actor{ID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.Open(ctx, customer, "m1")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))

	_, err = svc.Open(ctx, operator, "missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = svc.SetStatus(ctx, operator, "missing", "archived")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = svc.SetStatus(ctx, operator, "missing", models.TicketClosed)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = svc.Reply(ctx, operator, "missing", "   ")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = svc.Reply(ctx, operator, "missing", "hello")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "RE: Card", replySubject("Card"))
	assert.Equal(t, "Re: Card", replySubject("Re: Card"))
}
