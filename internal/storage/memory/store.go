// Package memory is an in-process storage.Store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store keeps every record in maps guarded by a single mutex. Units of work
// are serialised; WithinTx operates on a copy that replaces the live state
// only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	users        map[string]models.User
	accountOwner map[string]string
	transactions map[string]models.Transaction
	txOrder      []string
	messages     []models.Message
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		users:        make(map[string]models.User),
		accountOwner: make(map[string]string),
		transactions: make(map[string]models.Transaction),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// Read runs fn against the live state.
func (s *Store) Read(ctx context.Context, fn func(storage.Repository) error) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{st: s.state})
}

// WithinTx runs fn against a private copy and swaps it in on success.
func (s *Store) WithinTx(ctx context.Context, fn func(storage.Repository) error) error {
	if err := alive(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(&repo{st: draft}); err != nil {
		return err
	}
	if err := alive(ctx); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

func (st *state) clone() *state {
	out := &state{
		users:        make(map[string]models.User, len(st.users)),
		accountOwner: make(map[string]string, len(st.accountOwner)),
		transactions: make(map[string]models.Transaction, len(st.transactions)),
		txOrder:      append([]string(nil), st.txOrder...),
		messages:     append([]models.Message(nil), st.messages...),
	}
	for id, u := range st.users {
		u.Cards = append([]models.Card(nil), u.Cards...)
		out.users[id] = u
	}
	for number, owner := range st.accountOwner {
		out.accountOwner[number] = owner
	}
	for id, tx := range st.transactions {
		tx.Notes = append([]models.AdminNote(nil), tx.Notes...)
		out.transactions[id] = tx
	}
	return out
}

type repo struct {
	st *state
}

func (r *repo) CreateUser(_ context.Context, user models.User) error {
	if _, ok := r.st.users[user.ID]; ok {
		return storage.ErrAlreadyExists
	}
	for _, existing := range r.st.users {
		switch {
		case strings.EqualFold(existing.Username, user.Username):
			return &storage.ConflictError{Field: storage.FieldUsername}
		case strings.EqualFold(existing.Email, user.Email):
			return &storage.ConflictError{Field: storage.FieldEmail}
		case existing.RoutingNumber == user.RoutingNumber:
			return &storage.ConflictError{Field: storage.FieldRoutingNumber}
		}
	}
	if user.Checking.Number == user.Savings.Number {
		return &storage.ConflictError{Field: storage.FieldAccountNumber}
	}
	for _, number := range []string{user.Checking.Number, user.Savings.Number} {
		if _, ok := r.st.accountOwner[number]; ok {
			return &storage.ConflictError{Field: storage.FieldAccountNumber}
		}
	}
	for _, card := range user.Cards {
		if r.cardExists(card.Number) {
			return &storage.ConflictError{Field: storage.FieldCardNumber}
		}
	}
	user.Cards = append([]models.Card(nil), user.Cards...)
	r.st.users[user.ID] = user
	r.st.accountOwner[user.Checking.Number] = user.ID
	r.st.accountOwner[user.Savings.Number] = user.ID
	return nil
}

func (r *repo) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	u.Cards = append([]models.Card(nil), u.Cards...)
	return u, nil
}

// LockUser is GetUser: the store mutex already excludes other units.
func (r *repo) LockUser(ctx context.Context, id string) (models.User, error) {
	return r.GetUser(ctx, id)
}

func (r *repo) FindUserByLogin(ctx context.Context, identifier string) (models.User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier) {
			return r.GetUser(ctx, u.ID)
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (r *repo) FindUserByRoutingNumber(ctx context.Context, number string) (models.User, error) {
	for _, u := range r.st.users {
		if u.RoutingNumber == number {
			return r.GetUser(ctx, u.ID)
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (r *repo) ListUsers(_ context.Context, limit int) ([]models.User, error) {
	out := make([]models.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *repo) SetUserStatus(_ context.Context, id string, status models.UserStatus) error {
	u, ok := r.st.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Status = status
	r.st.users[id] = u
	return nil
}

func (r *repo) SetTransferPin(_ context.Context, id, pinHash string) error {
	u, ok := r.st.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.TransferPinHash = pinHash
	r.st.users[id] = u
	return nil
}

func (r *repo) DeleteUser(_ context.Context, id string) error {
	u, ok := r.st.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(r.st.accountOwner, u.Checking.Number)
	delete(r.st.accountOwner, u.Savings.Number)
	delete(r.st.users, id)
	return nil
}

func (r *repo) AccountNumberExists(_ context.Context, number string) (bool, error) {
	_, ok := r.st.accountOwner[number]
	return ok, nil
}

func (r *repo) RoutingNumberExists(_ context.Context, number string) (bool, error) {
	for _, u := range r.st.users {
		if u.RoutingNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) FindAccount(_ context.Context, number string) (storage.OwnedAccount, error) {
	owner, ok := r.st.accountOwner[number]
	if !ok {
		return storage.OwnedAccount{}, storage.ErrNotFound
	}
	u := r.st.users[owner]
	acct, _ := u.AccountByNumber(number)
	return storage.OwnedAccount{UserID: u.ID, FullName: u.FullName, Account: acct}, nil
}

func (r *repo) AdjustBalance(_ context.Context, number string, delta decimal.Decimal) (decimal.Decimal, error) {
	owner, ok := r.st.accountOwner[number]
	if !ok {
		return decimal.Zero, storage.ErrNotFound
	}
	u := r.st.users[owner]
	target := &u.Checking
	if u.Savings.Number == number {
		target = &u.Savings
	}
	next := target.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, storage.ErrInsufficientFunds
	}
	if next.GreaterThan(models.MaxAmount) {
		return decimal.Zero, storage.ErrOutOfRange
	}
	target.Balance = next
	r.st.users[owner] = u
	return next, nil
}

func (r *repo) cardExists(number string) bool {
	for _, u := range r.st.users {
		for _, c := range u.Cards {
			if c.Number == number {
				return true
			}
		}
	}
	return false
}

func (r *repo) CardNumberExists(_ context.Context, number string) (bool, error) {
	return r.cardExists(number), nil
}

func (r *repo) AddCard(_ context.Context, userID string, card models.Card) error {
	u, ok := r.st.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	if r.cardExists(card.Number) {
		return &storage.ConflictError{Field: storage.FieldCardNumber}
	}
	u.Cards = append(append([]models.Card(nil), u.Cards...), card)
	r.st.users[userID] = u
	return nil
}

func (r *repo) InsertTransaction(_ context.Context, tx models.Transaction) error {
	if _, ok := r.st.transactions[tx.ID]; ok {
		return storage.ErrAlreadyExists
	}
	if _, ok := r.st.users[tx.UserID]; !ok {
		return storage.ErrNotFound
	}
	tx.Notes = append([]models.AdminNote(nil), tx.Notes...)
	r.st.transactions[tx.ID] = tx
	r.st.txOrder = append(r.st.txOrder, tx.ID)
	return nil
}

func (r *repo) GetTransaction(_ context.Context, id string) (models.Transaction, error) {
	tx, ok := r.st.transactions[id]
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	tx.Notes = append([]models.AdminNote(nil), tx.Notes...)
	return tx, nil
}

func (r *repo) UpdateTransaction(_ context.Context, tx models.Transaction) error {
	if _, ok := r.st.transactions[tx.ID]; !ok {
		return storage.ErrNotFound
	}
	tx.Notes = append([]models.AdminNote(nil), tx.Notes...)
	r.st.transactions[tx.ID] = tx
	return nil
}

func (r *repo) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]models.Transaction, error) {
	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []models.Transaction
	// newest first; txOrder is insertion order
	for i := len(r.st.txOrder) - 1; i >= 0; i-- {
		tx, ok := r.st.transactions[r.st.txOrder[i]]
		if !ok {
			continue
		}
		if filter.UserID != "" && tx.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if needle != "" && !matches(tx, needle) {
			continue
		}
		tx.Notes = append([]models.AdminNote(nil), tx.Notes...)
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(tx models.Transaction, needle string) bool {
	for _, field := range []string{tx.Description, tx.FromAccount, tx.ToAccount} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (r *repo) DeleteTransactionsByUser(_ context.Context, userID string) (int, error) {
	removed := 0
	kept := r.st.txOrder[:0:0]
	for _, id := range r.st.txOrder {
		if r.st.transactions[id].UserID == userID {
			delete(r.st.transactions, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.st.txOrder = kept
	return removed, nil
}

func (r *repo) DetachCounterparty(_ context.Context, userID string) error {
	for id, tx := range r.st.transactions {
		if tx.CounterpartyUserID == userID {
			tx.CounterpartyUserID = ""
			r.st.transactions[id] = tx
		}
	}
	return nil
}

func (r *repo) CreateMessage(_ context.Context, msg models.Message) error {
	r.st.messages = append(r.st.messages, msg)
	return nil
}

func (r *repo) GetMessage(_ context.Context, id string) (models.Message, error) {
	for _, m := range r.st.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Message{}, storage.ErrNotFound
}

func (r *repo) UpdateMessage(_ context.Context, msg models.Message) error {
	for i, m := range r.st.messages {
		if m.ID == msg.ID {
			m.Status = msg.Status
			m.Read = msg.Read
			r.st.messages[i] = m
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *repo) ListMessages(_ context.Context, userID string, limit int) ([]models.Message, error) {
	var out []models.Message
	for i := len(r.st.messages) - 1; i >= 0; i-- {
		m := r.st.messages[i]
		if userID != "" && m.SenderID != userID && m.RecipientID != userID {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *repo) DeleteMessagesByUser(_ context.Context, userID string) (int, error) {
	kept := r.st.messages[:0:0]
	removed := 0
	for _, m := range r.st.messages {
		if m.SenderID == userID || m.RecipientID == userID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	r.st.messages = kept
	return removed, nil
}
