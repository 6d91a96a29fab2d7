package models

import (
	"strings"
	"time"
)

// User represents a user account in the database. A user only exists here
// after their email address has been confirmed; unconfirmed signups live in
// the pending-signup cache until they confirm or expire.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// GivenName returns the first word of the user's first name, used as the
// salutation in outbound email.
func (u *User) GivenName() string {
	name := strings.TrimSpace(u.FirstName)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}

// ConnectionStatus represents the state of a bank connection
type ConnectionStatus string

const (
	ConnectionStatusPending ConnectionStatus = "pending"
	ConnectionStatusActive  ConnectionStatus = "active"
	ConnectionStatusExpired ConnectionStatus = "expired"
)

// Connection represents a link between a user and a bank-data provider.
// Accounts reference their connection by ID only; the graph is resolved
// with explicit joins, never embedded back-pointers.
type Connection struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Provider  string           `json:"provider" db:"provider"`
	Status    ConnectionStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// AccountType represents the kind of account being tracked
type AccountType string

const (
	AccountTypeBank       AccountType = "bank"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account represents a single bank account under a connection
type Account struct {
	ID            string      `json:"id" db:"id"`
	ConnectionID  string      `json:"connection_id" db:"connection_id"`
	Name          string      `json:"name" db:"name"`
	Currency      string      `json:"currency" db:"currency"`
	AccountType   AccountType `json:"account_type" db:"account_type"`
	BalanceOffset float64     `json:"balance_offset" db:"balance_offset"`
	IBAN          *string     `json:"iban" db:"iban"`
	BBAN          *string     `json:"bban" db:"bban"`
	BIC           *string     `json:"bic,omitempty" db:"bic"`
	OwnerName     *string     `json:"owner_name,omitempty" db:"owner_name"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// ProcessingStatus tracks how far a transaction has moved through the
// out-of-band enrichment pipeline.
type ProcessingStatus string

const (
	ProcessingStatusUnprocessed ProcessingStatus = "unprocessed"
	ProcessingStatusEnriched    ProcessingStatus = "enriched"
)

// Transaction represents a single booked transaction on an account
type Transaction struct {
	ID               string           `json:"id" db:"id"`
	AccountID        string           `json:"account_id" db:"account_id"`
	Amount           float64          `json:"amount" db:"amount"`
	Currency         string           `json:"currency" db:"currency"`
	NativeAmount     float64          `json:"native_amount" db:"native_amount"`
	ProcessingStatus ProcessingStatus `json:"processing_status" db:"processing_status"`
	OpposingName     *string          `json:"opposing_name" db:"opposing_name"`
	OpposingIBAN     *string          `json:"opposing_iban" db:"opposing_iban"`
	BookingTime      time.Time        `json:"booking_time" db:"booking_time"`
	ValueTime        time.Time        `json:"value_time" db:"value_time"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}
