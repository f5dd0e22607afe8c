package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hongminglow/hometown-ledger/internal/models"
	"github.com/hongminglow/hometown-ledger/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// unitQuerier runs every statement under the unit-of-work context, which
// carries the store deadline. A statement context that is already done
// wins so a caller's cancellation still applies.
type unitQuerier struct {
	q    querier
	unit context.Context
}

func (u unitQuerier) scope(ctx context.Context) context.Context {
	if ctx.Err() != nil {
		return ctx
	}
	return u.unit
}

func (u unitQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return u.q.Exec(u.scope(ctx), sql, args...)
}

func (u unitQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return u.q.Query(u.scope(ctx), sql, args...)
}

func (u unitQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return u.q.QueryRow(u.scope(ctx), sql, args...)
}

type repo struct {
	q querier
}

const userColumns = `id, username, email, full_name, phone, role, routing_number, status, password_hash, transfer_pin_hash, created_at, updated_at`

func (r *repo) CreateUser(ctx context.Context, user models.User) error {
	const insertUser = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, insertUser,
		user.ID, user.Username, user.Email, user.FullName, user.Phone, user.Role, user.RoutingNumber,
		user.Status, user.PasswordHash, user.TransferPinHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return translate(err)
	}

	const insertAccount = `
		INSERT INTO accounts (account_number, user_id, account_type, balance, currency, status, opened_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`
	for _, acct := range []models.Account{user.Checking, user.Savings} {
		if _, err := r.q.Exec(ctx, insertAccount,
			acct.Number, user.ID, acct.Type, acct.Balance.String(), acct.Currency, acct.Status, acct.OpenedAt); err != nil {
			return translate(err)
		}
	}
	for _, card := range user.Cards {
		if err := r.AddCard(ctx, user.ID, card); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) GetUser(ctx context.Context, id string) (models.User, error) {
	return r.loadUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *repo) LockUser(ctx context.Context, id string) (models.User, error) {
	return r.loadUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *repo) FindUserByLogin(ctx context.Context, identifier string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users
		WHERE lower(username) = lower($1) OR lower(email) = lower($1)
		LIMIT 1`
	return r.loadUser(ctx, query, identifier)
}

func (r *repo) FindUserByRoutingNumber(ctx context.Context, number string) (models.User, error) {
	return r.loadUser(ctx, `SELECT `+userColumns+` FROM users WHERE routing_number = $1`, number)
}

func (r *repo) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, translate(err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, translate(err)
	}
	for i := range users {
		if err := r.loadHoldings(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *repo) loadUser(ctx context.Context, query string, arg string) (models.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		return models.User{}, translate(err)
	}
	if err := r.loadHoldings(ctx, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Phone, &user.Role,
		&user.RoutingNumber, &user.Status, &user.PasswordHash, &user.TransferPinHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// loadHoldings fills in the embedded accounts and cards of user.
func (r *repo) loadHoldings(ctx context.Context, user *models.User) error {
	const accountsQuery = `
		SELECT account_number, account_type, balance::text, currency, status, opened_at
		FROM accounts WHERE user_id = $1`
	rows, err := r.q.Query(ctx, accountsQuery, user.ID)
	if err != nil {
		return translate(err)
	}
	accts, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return translate(err)
	}
	for _, acct := range accts {
		switch acct.Type {
		case models.Checking:
			user.Checking = acct
		case models.Savings:
			user.Savings = acct
		}
	}

	const cardsQuery = `
		SELECT id, card_type, card_number, last_four, holder_name, expires, cvv_hash, status, design, linked_account, issued_at
		FROM cards WHERE user_id = $1 ORDER BY issued_at`
	rows, err = r.q.Query(ctx, cardsQuery, user.ID)
	if err != nil {
		return translate(err)
	}
	user.Cards, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Card, error) {
		var c models.Card
		err := row.Scan(&c.ID, &c.Type, &c.Number, &c.LastFour, &c.HolderName, &c.Expires, &c.CVVHash,
			&c.Status, &c.Design, &c.LinkedAccount, &c.IssuedAt)
		return c, err
	})
	return translate(err)
}

func scanAccount(row pgx.CollectableRow) (models.Account, error) {
	var (
		acct    models.Account
		balance string
	)
	if err := row.Scan(&acct.Number, &acct.Type, &balance, &acct.Currency, &acct.Status, &acct.OpenedAt); err != nil {
		return models.Account{}, err
	}
	var err error
	acct.Balance, err = decimal.NewFromString(balance)
	return acct, err
}

func (r *repo) SetUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	return r.execOne(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

func (r *repo) SetTransferPin(ctx context.Context, id, pinHash string) error {
	return r.execOne(ctx, `UPDATE users SET transfer_pin_hash = $2, updated_at = NOW() WHERE id = $1`, id, pinHash)
}

func (r *repo) DeleteUser(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

// execOne runs a statement expected to touch exactly one row.
func (r *repo) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *repo) exists(ctx context.Context, sql string, arg string) (bool, error) {
	var found bool
	if err := r.q.QueryRow(ctx, sql, arg).Scan(&found); err != nil {
		return false, translate(err)
	}
	return found, nil
}

func (r *repo) AccountNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, number)
}

func (r *repo) RoutingNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE routing_number = $1)`, number)
}

func (r *repo) CardNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE card_number = $1)`, number)
}

func (r *repo) FindAccount(ctx context.Context, number string) (storage.OwnedAccount, error) {
	const query = `
		SELECT a.account_number, a.account_type, a.balance::text, a.currency, a.status, a.opened_at, u.id, u.full_name
		FROM accounts a JOIN users u ON u.id = a.user_id
		WHERE a.account_number = $1`
	var (
		owned   storage.OwnedAccount
		balance string
	)
	err := r.q.QueryRow(ctx, query, number).Scan(&owned.Account.Number, &owned.Account.Type, &balance,
		&owned.Account.Currency, &owned.Account.Status, &owned.Account.OpenedAt, &owned.UserID, &owned.FullName)
	if err != nil {
		return storage.OwnedAccount{}, translate(err)
	}
	if owned.Account.Balance, err = decimal.NewFromString(balance); err != nil {
		return storage.OwnedAccount{}, err
	}
	return owned, nil
}

func (r *repo) AdjustBalance(ctx context.Context, number string, delta decimal.Decimal) (decimal.Decimal, error) {
	const update = `
		UPDATE accounts SET balance = balance + $2::numeric
		WHERE account_number = $1 AND balance + $2::numeric >= 0
		RETURNING balance::text`
	var balance string
	err := r.q.QueryRow(ctx, update, number, delta.String()).Scan(&balance)
	if err == nil {
		return decimal.NewFromString(balance)
	}
	err = translate(err)
	if err != storage.ErrNotFound {
		return decimal.Zero, err
	}
	found, existsErr := r.AccountNumberExists(ctx, number)
	if existsErr != nil {
		return decimal.Zero, existsErr
	}
	if found {
		return decimal.Zero, storage.ErrInsufficientFunds
	}
	return decimal.Zero, storage.ErrNotFound
}

func (r *repo) AddCard(ctx context.Context, userID string, card models.Card) error {
	const insert = `
		INSERT INTO cards (id, user_id, card_type, card_number, last_four, holder_name, expires, cvv_hash, status, design, linked_account, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, insert, card.ID, userID, card.Type, card.Number, card.LastFour, card.HolderName,
		card.Expires, card.CVVHash, card.Status, card.Design, card.LinkedAccount, card.IssuedAt)
	var pgErr *pgconn.PgError
	if asPgErr(err, &pgErr) && pgErr.Code == "23503" {
		return storage.ErrNotFound
	}
	return translate(err)
}

const transactionColumns = `id, user_id, COALESCE(counterparty_user_id, ''), tx_type, amount::text, currency, status, description,
	from_account, to_account, account_type, external_recipient_name, external_bank_name, external_routing_number,
	external_swift_code, external_iban, balance_after::text, admin_notes::text, created_at, updated_at`

func (r *repo) InsertTransaction(ctx context.Context, tx models.Transaction) error {
	notes, err := encodeNotes(tx.Notes)
	if err != nil {
		return err
	}
	const insert = `
		INSERT INTO transactions (id, user_id, counterparty_user_id, tx_type, amount, currency, status, description,
			from_account, to_account, account_type, external_recipient_name, external_bank_name, external_routing_number,
			external_swift_code, external_iban, balance_after, admin_notes, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17::numeric, $18::jsonb, $19, $20)`
	_, err = r.q.Exec(ctx, insert, tx.ID, tx.UserID, tx.CounterpartyUserID, tx.Type, tx.Amount.String(), tx.Currency,
		tx.Status, tx.Description, tx.FromAccount, tx.ToAccount, string(tx.AccountType), tx.External.RecipientName,
		tx.External.BankName, tx.External.RoutingNumber, tx.External.SwiftCode, tx.External.IBAN,
		tx.BalanceAfter.String(), notes, tx.CreatedAt, tx.UpdatedAt)
	var pgErr *pgconn.PgError
	if asPgErr(err, &pgErr) && pgErr.Code == "23503" {
		return storage.ErrNotFound
	}
	return translate(err)
}

func (r *repo) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	rows, err := r.q.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		return models.Transaction{}, translate(err)
	}
	tx, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	return tx, translate(err)
}

// UpdateTransaction persists the mutable fields: status, counterparty and notes.
func (r *repo) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	notes, err := encodeNotes(tx.Notes)
	if err != nil {
		return err
	}
	const update = `
		UPDATE transactions
		SET status = $2, counterparty_user_id = NULLIF($3, ''), admin_notes = $4::jsonb, updated_at = $5
		WHERE id = $1`
	return r.execOne(ctx, update, tx.ID, tx.Status, tx.CounterpartyUserID, notes, tx.UpdatedAt)
}

func (r *repo) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(description ILIKE $%[1]d OR from_account ILIKE $%[1]d OR to_account ILIKE $%[1]d)", "%"+escapeLike(search)+"%")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	out, err := pgx.CollectRows(rows, scanTransaction)
	return out, translate(err)
}

func (r *repo) DeleteTransactionsByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *repo) DetachCounterparty(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `UPDATE transactions SET counterparty_user_id = NULL WHERE counterparty_user_id = $1`, userID)
	return translate(err)
}

func scanTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var (
		tx                   models.Transaction
		amount, after, notes string
		accountType          string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.CounterpartyUserID, &tx.Type, &amount, &tx.Currency, &tx.Status,
		&tx.Description, &tx.FromAccount, &tx.ToAccount, &accountType, &tx.External.RecipientName,
		&tx.External.BankName, &tx.External.RoutingNumber, &tx.External.SwiftCode, &tx.External.IBAN,
		&after, &notes, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.AccountType = models.AccountType(accountType)
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return models.Transaction{}, err
	}
	if tx.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return models.Transaction{}, err
	}
	if err := json.Unmarshal([]byte(notes), &tx.Notes); err != nil {
		return models.Transaction{}, fmt.Errorf("decode admin notes: %w", err)
	}
	return tx, nil
}

func encodeNotes(notes []models.AdminNote) (string, error) {
	if notes == nil {
		notes = []models.AdminNote{}
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("encode admin notes: %w", err)
	}
	return string(raw), nil
}

func (r *repo) CreateMessage(ctx context.Context, msg models.Message) error {
	const insert = `
		INSERT INTO messages (id, sender_id, recipient_id, subject, body, category, ticket_status, read_by_recipient, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, insert, msg.ID, msg.SenderID, msg.RecipientID, msg.Subject, msg.Body, msg.Category,
		msg.Status, msg.Read, msg.CreatedAt)
	return translate(err)
}

const messageColumns = `id, sender_id, COALESCE(recipient_id, ''), subject, body, category, ticket_status, read_by_recipient, created_at`

func scanMessage(row pgx.Row) (models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Subject, &m.Body, &m.Category, &m.Status, &m.Read, &m.CreatedAt)
	return m, err
}

func (r *repo) GetMessage(ctx context.Context, id string) (models.Message, error) {
	m, err := scanMessage(r.q.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	return m, translate(err)
}

func (r *repo) UpdateMessage(ctx context.Context, msg models.Message) error {
	return r.execOne(ctx, `UPDATE messages SET ticket_status = $2, read_by_recipient = $3 WHERE id = $1`,
		msg.ID, msg.Status, msg.Read)
}

func (r *repo) ListMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE ($1::text = '' OR sender_id = $1 OR recipient_id = $1)
		ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		return scanMessage(row)
	})
	return out, translate(err)
}

func (r *repo) DeleteMessagesByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM messages WHERE sender_id = $1 OR recipient_id = $1`, userID)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
