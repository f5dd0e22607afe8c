package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/http/respond"
	"github.com/hongminglow/hometown-ledger/internal/ledger"
	"github.com/hongminglow/hometown-ledger/internal/middleware"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/hongminglow/hometown-ledger/internal/storage/memory"
)

var (
	customer = auth.Actor{ID: "user-1", Role: models.RoleUser}
	operator = auth.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func fakeAuth(actor auth.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetActor(c, actor)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, respond.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env respond.Envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type mockLedger struct {
	transferFn func(ctx context.Context, actor auth.Actor, req ledger.TransferRequest) (ledger.TransferResult, error)
	historyFn  func(ctx context.Context, actor auth.Actor, limit int) ([]models.Transaction, error)
}

func (m *mockLedger) Transfer(ctx context.Context, actor auth.Actor, req ledger.TransferRequest) (ledger.TransferResult, error) {
	return m.transferFn(ctx, actor, req)
}

func (m *mockLedger) History(ctx context.Context, actor auth.Actor, limit int) ([]models.Transaction, error) {
	return m.historyFn(ctx, actor, limit)
}

func (m *mockLedger) Overview(context.Context, auth.Actor) (ledger.Overview, error) {
	return ledger.Overview{}, nil
}

func ledgerRouter(svc LedgerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewLedgerHandler(svc).Register(r.Group("/api", fakeAuth(customer)))
	return r
}

func validTransfer() map[string]any {
	return map[string]any{
		"fromAccountNumber": "1000000001",
		"recipientName":     "Bob",
		"recipientAccount":  "2000000001",
		"amount":            "25.50",
		"transferPin":       "4321",
	}
}

func TestTransferHandler(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[string]any)
		result   ledger.TransferResult
		err      error
		want     int
		wantKind apperr.Kind
	}{
		{name: "completed", result: ledger.TransferResult{TransactionID: "tx-1", Status: models.StatusCompleted}, want: http.StatusOK},
		{name: "processing", mutate: func(b map[string]any) { b["transferType"] = ledger.TypeACH; b["routingNumber"] = "021000021" },
			result: ledger.TransferResult{TransactionID: "tx-2", Status: models.StatusProcessing}, want: http.StatusOK},
		{name: "missing pin", mutate: func(b map[string]any) { delete(b, "transferPin") }, want: http.StatusBadRequest, wantKind: apperr.Validation},
		{name: "unknown type", mutate: func(b map[string]any) { b["transferType"] = "pigeon" }, want: http.StatusBadRequest, wantKind: apperr.Validation},
		{name: "wrong pin", err: apperr.New(apperr.InvalidPin, "invalid transfer PIN"), want: http.StatusUnauthorized, wantKind: apperr.InvalidPin},
		{name: "short funds", err: apperr.New(apperr.InsufficientFunds, "insufficient funds"), want: http.StatusUnprocessableEntity, wantKind: apperr.InsufficientFunds},
		{name: "store down", err: apperr.New(apperr.StorageUnavailable, "storage unavailable"), want: http.StatusServiceUnavailable, wantKind: apperr.StorageUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got ledger.TransferRequest
			svc := &mockLedger{transferFn: func(_ context.Context, actor auth.Actor, req ledger.TransferRequest) (ledger.TransferResult, error) {
				assert.Equal(t, customer, actor)
				got = req
				return tc.result, tc.err
			}}
			body := validTransfer()
			if tc.mutate != nil {
				tc.mutate(body)
			}
			w, env := doJSON(t, ledgerRouter(svc), http.MethodPost, "/api/transactions/transfer", body)
			require.Equal(t, tc.want, w.Code, w.Body.String())
			assert.Equal(t, string(tc.wantKind), env.Kind)
			if tc.want == http.StatusOK {
				assert.True(t, got.Amount.Equal(decimal.RequireFromString("25.50")))
				assert.Equal(t, "4321", got.Pin)
			}
		})
	}
}

func TestTransferHandlerPassesDetails(t *testing.T) {
	var got ledger.TransferRequest
	svc := &mockLedger{transferFn: func(_ context.Context, _ auth.Actor, req ledger.TransferRequest) (ledger.TransferResult, error) {
		got = req
		return ledger.TransferResult{Status: models.StatusProcessing}, nil
	}}
	body := validTransfer()
	body["transferType"] = ledger.TypeInternationalBank
	body["swiftCode"] = "deut de ff"
	body["iban"] = "de89 3704 0044 0532 0130 00"

	w, env := doJSON(t, ledgerRouter(svc), http.MethodPost, "/api/transactions/transfer", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, env.Message, "being processed")
	details, ok := got.Details.(ledger.InternationalDetails)
	require.True(t, ok)
	assert.Equal(t, "DEUTDEFF", details.SwiftCode)
	assert.Equal(t, "DE89370400440532013000", details.IBAN)
}

func TestHistoryHandler(t *testing.T) {
	var gotLimit int
	svc := &mockLedger{historyFn: func(_ context.Context, _ auth.Actor, limit int) ([]models.Transaction, error) {
		gotLimit = limit
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?limit=7", nil)
	w := httptest.NewRecorder()
	ledgerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, gotLimit)
	assert.JSONEq(t, `{"code":200,"message":"transactions","data":[]}`, w.Body.String())
}

type mockSupport struct {
	submitFn func(ctx context.Context, actor auth.Actor, subject, body, category string) (models.Message, error)
	statusFn func(ctx context.Context, actor auth.Actor, id string, status models.TicketStatus) (models.Message, error)
	replyFn  func(ctx context.Context, actor auth.Actor, ticketID, body string) (models.Message, error)
}

func (m *mockSupport) Submit(ctx context.Context, actor auth.Actor, subject, body, category string) (models.Message, error) {
	return m.submitFn(ctx, actor, subject, body, category)
}

func (m *mockSupport) Open(_ context.Context, _ auth.Actor, id string) (models.Message, error) {
	if id != "m1" {
		return models.Message{}, apperr.New(apperr.NotFound, "ticket not found")
	}
	return models.Message{ID: id, Read: true, Status: models.TicketOpen}, nil
}

func (m *mockSupport) SetStatus(ctx context.Context, actor auth.Actor, id string, status models.TicketStatus) (models.Message, error) {
	return m.statusFn(ctx, actor, id, status)
}

func (m *mockSupport) Reply(ctx context.Context, actor auth.Actor, ticketID, body string) (models.Message, error) {
	return m.replyFn(ctx, actor, ticketID, body)
}

func TestMessageHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &mockSupport{submitFn: func(_ context.Context, actor auth.Actor, subject, body, category string) (models.Message, error) {
		return models.Message{ID: "m1", SenderID: actor.ID, Subject: subject, Body: body, Category: "general"}, nil
	}}
	r := gin.New()
	NewMessageHandler(svc).Register(r.Group("/api", fakeAuth(customer)))

	w, _ := doJSON(t, r, http.MethodPost, "/api/messages", map[string]string{"subject": "Card", "body": "lost it"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := doJSON(t, r, http.MethodPost, "/api/messages", map[string]string{"body": "no subject"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperr.Validation), env.Kind)
}

func TestTicketDesk(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var gotStatus models.TicketStatus
	var gotBody string
	svc := &mockSupport{
		statusFn: func(_ context.Context, _ auth.Actor, id string, status models.TicketStatus) (models.Message, error) {
			gotStatus = status
			return models.Message{ID: id, Status: status}, nil
		},
		replyFn: func(_ context.Context, actor auth.Actor, ticketID, body string) (models.Message, error) {
			gotBody = body
			return models.Message{ID: "m2", SenderID: actor.ID, Subject: "RE: Card", Body: body}, nil
		},
	}
	r := gin.New()
	NewMessageHandler(svc).RegisterAdmin(r.Group("/api/admin", fakeAuth(operator)))

	w, _ := doJSON(t, r, http.MethodGet, "/api/admin/messages/m1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, r, http.MethodGet, "/api/admin/messages/m9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(apperr.NotFound), env.Kind)

	w, _ = doJSON(t, r, http.MethodPut, "/api/admin/messages/m1/status", map[string]string{"ticketStatus": "resolved"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TicketResolved, gotStatus)

	w, _ = doJSON(t, r, http.MethodPut, "/api/admin/messages/m1/status", map[string]string{"ticketStatus": "snoozed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/admin/messages/m1/reply", map[string]string{"body": "card replaced"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "card replaced", gotBody)

	w, _ = doJSON(t, r, http.MethodPost, "/api/admin/messages/m1/reply", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)

	ctx := context.Background()
	users := []models.User{
		{ID: "u-active", Username: "alice", Email: "alice@example.com", Role: models.RoleUser, Status: models.UserActive, PasswordHash: hash, RoutingNumber: "111111111",
			Checking: models.Account{Number: "1000000001"}, Savings: models.Account{Number: "1000000002"}},
		{ID: "u-blocked", Username: "mallory", Email: "mallory@example.com", Role: models.RoleUser, Status: models.UserBlocked, PasswordHash: hash, RoutingNumber: "222222222",
			Checking: models.Account{Number: "2000000001"}, Savings: models.Account{Number: "2000000002"}},
	}
	require.NoError(t, store.WithinTx(ctx, func(repo storage.Repository) error {
		for _, u := range users {
			if err := repo.CreateUser(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}))

	tokens := auth.NewTokenManager("test-secret", "hometown-ledger", time.Hour)
	r := gin.New()
	NewAuthHandler(store, tokens, hasher).Register(r)

	tests := []struct {
		name       string
		identifier string
		password   string
		want       int
	}{
		{"by username", "alice", "correct horse", http.StatusOK},
		{"by email any case", "  Alice@Example.com ", "correct horse", http.StatusOK},
		{"wrong password", "alice", "battery staple", http.StatusUnauthorized},
		{"unknown user", "nobody", "correct horse", http.StatusUnauthorized},
		{"blocked user", "mallory", "correct horse", http.StatusForbidden},
		{"missing password", "alice", "", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			raw, _ := json.Marshal(map[string]string{"identifier": tc.identifier, "password": tc.password})
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			require.Equal(t, tc.want, w.Code, w.Body.String())
			if tc.want != http.StatusOK {
				return
			}
			var out struct {
				Data struct {
					Token string      `json:"token"`
					User  models.User `json:"user"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, "u-active", out.Data.User.ID)
			assert.NotContains(t, w.Body.String(), hash)

			actor, err := tokens.Parse(out.Data.Token)
			require.NoError(t, err)
			assert.Equal(t, auth.Actor{ID: "u-active", Role: models.RoleUser}, actor)
		})
	}
}
