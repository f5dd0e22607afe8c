package admin

import (
	"context"
	"sync"
	"testing"

	"github.com/hongminglow/hometown-ledger/internal/accounts"
	"github.com/hongminglow/hometown-ledger/internal/apperr"
	"github.com/hongminglow/hometown-ledger/internal/auth"
	"github.com/hongminglow/hometown-ledger/internal/ids"
	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/hongminglow/hometown-ledger/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// racingStore simulates a concurrent writer that commits the same generated
// identifier between the existence check and the insert: the pre-checks see
// nothing, but the next `collisions` inserts of field are rejected.
type racingStore struct {
	storage.Store
	field string

	mu         sync.Mutex
	collisions int
	inserts    int
}

func (s *racingStore) WithinTx(ctx context.Context, fn func(storage.Repository) error) error {
	return s.Store.WithinTx(ctx, func(repo storage.Repository) error {
		return fn(racingRepo{Repository: repo, store: s})
	})
}

func (s *racingStore) collide(field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if field != s.field {
		return nil
	}
	s.inserts++
	if s.collisions > 0 {
		s.collisions--
		return &storage.ConflictError{Field: field}
	}
	return nil
}

type racingRepo struct {
	storage.Repository
	store *racingStore
}

func (r racingRepo) CreateUser(ctx context.Context, user models.User) error {
	if err := r.store.collide(storage.FieldAccountNumber); err != nil {
		return err
	}
	if err := r.store.collide(storage.FieldRoutingNumber); err != nil {
		return err
	}
	return r.Repository.CreateUser(ctx, user)
}

func (r racingRepo) AddCard(ctx context.Context, userID string, card models.Card) error {
	if err := r.store.collide(storage.FieldCardNumber); err != nil {
		return err
	}
	return r.Repository.AddCard(ctx, userID, card)
}

func newRacingService(t *testing.T, field string, collisions int) (*Service, *racingStore) {
	t.Helper()
	store := &racingStore{Store: memory.NewStore(), field: field, collisions: collisions}
	gen := ids.NewGenerator()
	svc := NewService(Config{
		Store:     store,
		Accounts:  accounts.NewService(gen),
		Generator: gen,
		Hasher:    auth.BcryptHasher{Cost: bcrypt.MinCost},
		Notifier:  &outbox{},
	})
	return svc, store
}

func userCount(t *testing.T, store storage.Store) int {
	t.Helper()
	var users []models.User
	require.NoError(t, store.Read(context.Background(), func(repo storage.Repository) error {
		var err error
		users, err = repo.ListUsers(context.Background(), 100)
		return err
	}))
	return len(users)
}

func newRequest(username string) NewUserRequest {
	return NewUserRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
		FullName: "Racing " + username,
	}
}

func TestCreateUserRetriesInsertCollision(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"account number", storage.FieldAccountNumber},
		{"generated routing number", storage.FieldRoutingNumber},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newRacingService(t, tc.field, unitAttempts-1)
			user, err := svc.CreateUser(context.Background(), operator, newRequest("erin"))
			require.NoError(t, err)
			assert.Equal(t, "erin", user.Username)
			assert.Equal(t, unitAttempts, store.inserts)
			assert.Equal(t, 1, userCount(t, store))
		})
	}
}

func TestCreateUserExhaustsRetries(t *testing.T) {
	svc, store := newRacingService(t, storage.FieldAccountNumber, unitAttempts)
	_, err := svc.CreateUser(context.Background(), operator, newRequest("frank"))
	require.Error(t, err)
	assert.Equal(t, apperr.GenerationExhausted, apperr.KindOf(err))
	assert.Equal(t, unitAttempts, store.inserts)
	assert.Zero(t, userCount(t, store))
}

func TestCreateUserSuppliedRoutingIsNotRetried(t *testing.T) {
	svc, store := newRacingService(t, storage.FieldRoutingNumber, 1)
	req := newRequest("gina")
	req.RoutingNumber = "123456789"
	_, err := svc.CreateUser(context.Background(), operator, req)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, 1, store.inserts)
}

func TestIssueCardRetriesInsertCollision(t *testing.T) {
	svc, store := newRacingService(t, storage.FieldCardNumber, unitAttempts-1)
	user, err := svc.CreateUser(context.Background(), operator, newRequest("hank"))
	require.NoError(t, err)

	card, err := svc.IssueCard(context.Background(), operator, IssueCardRequest{
		UserID: user.ID, CardType: models.DebitCard, LinkedAccount: user.Checking.Number,
	})
	require.NoError(t, err)
	assert.Equal(t, unitAttempts, store.inserts)

	got, err := svc.GetUser(context.Background(), operator, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, card.Number, got.Cards[0].Number)
}

func TestIssueCardExhaustsRetries(t *testing.T) {
	svc, _ := newRacingService(t, storage.FieldCardNumber, unitAttempts)
	user, err := svc.CreateUser(context.Background(), operator, newRequest("ivy"))
	require.NoError(t, err)

	_, err = svc.IssueCard(context.Background(), operator, IssueCardRequest{UserID: user.ID, CardType: models.CreditCard})
	assert.Equal(t, apperr.GenerationExhausted, apperr.KindOf(err))

	got, err := svc.GetUser(context.Background(), operator, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Cards)
}
