package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/koru-app/koru/internal/models"
)

// CreateConnection inserts a bank connection for a user
func (d *Database) CreateConnection(ctx context.Context, conn *models.Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO connections (id, user_id, provider, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"),
		conn.ID, conn.UserID, conn.Provider, conn.Status, conn.CreatedAt, conn.UpdatedAt,
	)
	return err
}

// ListConnections returns all connections owned by a user
func (d *Database) ListConnections(ctx context.Context, userID string) ([]*models.Connection, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(
		"SELECT id, user_id, provider, status, created_at, updated_at FROM connections WHERE user_id = ? ORDER BY created_at"),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		c := &models.Connection{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Provider, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// CreateAccount inserts an account under a connection
func (d *Database) CreateAccount(ctx context.Context, acc *models.Account) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	now := time.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO accounts (id, connection_id, name, currency, account_type, balance_offset, iban, bban, bic, owner_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		acc.ID, acc.ConnectionID, acc.Name, acc.Currency, acc.AccountType, acc.BalanceOffset,
		acc.IBAN, acc.BBAN, acc.BIC, acc.OwnerName, acc.CreatedAt, acc.UpdatedAt,
	)
	return err
}

// ListAccounts returns all accounts owned by a user, across connections
func (d *Database) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT a.id, a.connection_id, a.name, a.currency, a.account_type, a.balance_offset,
		       a.iban, a.bban, a.bic, a.owner_name, a.created_at, a.updated_at
		FROM accounts a
		JOIN connections c ON c.id = a.connection_id
		WHERE c.user_id = ?
		ORDER BY a.created_at`),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(&a.ID, &a.ConnectionID, &a.Name, &a.Currency, &a.AccountType, &a.BalanceOffset,
			&a.IBAN, &a.BBAN, &a.BIC, &a.OwnerName, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountBelongsToUser reports whether the account is reachable through one
// of the user's connections.
func (d *Database) AccountBelongsToUser(ctx context.Context, accountID, userID string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, d.rebind(`
		SELECT EXISTS(
			SELECT 1 FROM accounts a
			JOIN connections c ON c.id = a.connection_id
			WHERE a.id = ? AND c.user_id = ?
		)`),
		accountID, userID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CreateTransaction inserts a booked transaction
func (d *Database) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.ProcessingStatus == "" {
		tx.ProcessingStatus = models.ProcessingStatusUnprocessed
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO transactions (id, account_id, amount, currency, native_amount, processing_status, opposing_name, opposing_iban, booking_time, value_time, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		tx.ID, tx.AccountID, tx.Amount, tx.Currency, tx.NativeAmount, tx.ProcessingStatus,
		tx.OpposingName, tx.OpposingIBAN, tx.BookingTime, tx.ValueTime, tx.CreatedAt, tx.UpdatedAt,
	)
	return err
}

// ListTransactions returns the user's transactions ordered by booking time
// descending, resolved through the account → connection join.
func (d *Database) ListTransactions(ctx context.Context, userID string, offset, limit int) ([]*models.Transaction, error) {
	rows, err := d.db.QueryContext(ctx, d.rebind(`
		SELECT t.id, t.account_id, t.amount, t.currency, t.native_amount, t.processing_status,
		       t.opposing_name, t.opposing_iban, t.booking_time, t.value_time, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN connections c ON c.id = a.connection_id
		WHERE c.user_id = ?
		ORDER BY t.booking_time DESC
		LIMIT ? OFFSET ?`),
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Currency, &t.NativeAmount, &t.ProcessingStatus,
			&t.OpposingName, &t.OpposingIBAN, &t.BookingTime, &t.ValueTime, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
