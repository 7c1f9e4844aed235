// Package storage defines the persistence contract shared by the memory and
// postgres backends. Every mutation of account state runs inside InTx so a
// ledger effect and its audit row commit or fail together.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/ledger"
)

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	// AccountID matches transactions where the account is source or destination.
	AccountID *uuid.UUID
	Type      ledger.TransactionType
	From      *time.Time
	To        *time.Time
	ParentID  *uuid.UUID
	Limit     int
}

// TaxReserveFilter narrows ListTaxReserves. Zero values match everything.
type TaxReserveFilter struct {
	BusinessAccountID     *uuid.UUID
	SourceTransactionID   *uuid.UUID
	TransferTransactionID *uuid.UUID
	// Pending selects reserves by transfer status when set.
	Pending *bool
}

// InvestmentFilter narrows ListInvestments. Zero values match everything.
type InvestmentFilter struct {
	AccountID *uuid.UUID
	// Ticker matches exactly; tickers are stored upper case.
	Ticker string
}

// TaxPaymentFilter narrows ListTaxPayments. Zero values match everything.
type TaxPaymentFilter struct {
	// Year matches payments whose period starts in that year.
	Year int
}

// Reader is the read side of the store.
type Reader interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)

	ListCreditCards(ctx context.Context) ([]ledger.CreditCard, error)
	GetCreditCard(ctx context.Context, id uuid.UUID) (ledger.CreditCard, error)
	CardByAccount(ctx context.Context, accountID uuid.UUID) (ledger.CreditCard, error)

	// ListTransactions returns newest first (date, then creation time).
	ListTransactions(ctx context.Context, f TransactionFilter) ([]ledger.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error)

	ListTaxReserves(ctx context.Context, f TaxReserveFilter) ([]ledger.TaxReserve, error)

	ListCredits(ctx context.Context) ([]ledger.Credit, error)
	GetCredit(ctx context.Context, id uuid.UUID) (ledger.Credit, error)
	ListMortgages(ctx context.Context) ([]ledger.Mortgage, error)
	GetMortgage(ctx context.Context, id uuid.UUID) (ledger.Mortgage, error)
	// ListMortgagePayments returns payments oldest first.
	ListMortgagePayments(ctx context.Context, mortgageID uuid.UUID) ([]ledger.MortgagePayment, error)

	// ListInvestments orders by asset type, then ticker.
	ListInvestments(ctx context.Context, f InvestmentFilter) ([]ledger.Investment, error)
	GetInvestment(ctx context.Context, id uuid.UUID) (ledger.Investment, error)
	// ListInvestmentTransactions returns a position's history oldest first.
	ListInvestmentTransactions(ctx context.Context, investmentID uuid.UUID) ([]ledger.InvestmentTransaction, error)
	GetInvestmentTransaction(ctx context.Context, id uuid.UUID) (ledger.InvestmentTransaction, error)

	// ListTaxPayments orders by due date.
	ListTaxPayments(ctx context.Context, f TaxPaymentFilter) ([]ledger.TaxPayment, error)
	GetTaxPayment(ctx context.Context, id uuid.UUID) (ledger.TaxPayment, error)
}

// Writer is the write side; only reachable inside InTx.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) error
	UpdateAccount(ctx context.Context, a ledger.Account) error
	// DeleteAccount removes the account with its card, the transactions that
	// reference it, its tax reserves and investments, and clears links to it.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	CreateCreditCard(ctx context.Context, c ledger.CreditCard) error
	UpdateCreditCard(ctx context.Context, c ledger.CreditCard) error

	CreateTransaction(ctx context.Context, t ledger.Transaction) error
	UpdateTransaction(ctx context.Context, t ledger.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	CreateTaxReserve(ctx context.Context, r ledger.TaxReserve) error
	UpdateTaxReserve(ctx context.Context, r ledger.TaxReserve) error
	DeleteTaxReserve(ctx context.Context, id uuid.UUID) error

	CreateCredit(ctx context.Context, c ledger.Credit) error
	UpdateCredit(ctx context.Context, c ledger.Credit) error
	DeleteCredit(ctx context.Context, id uuid.UUID) error

	CreateMortgage(ctx context.Context, m ledger.Mortgage) error
	UpdateMortgage(ctx context.Context, m ledger.Mortgage) error
	// DeleteMortgage also removes the mortgage's payment history.
	DeleteMortgage(ctx context.Context, id uuid.UUID) error
	CreateMortgagePayment(ctx context.Context, p ledger.MortgagePayment) error

	CreateInvestment(ctx context.Context, i ledger.Investment) error
	UpdateInvestment(ctx context.Context, i ledger.Investment) error
	// DeleteInvestment also removes the position's history.
	DeleteInvestment(ctx context.Context, id uuid.UUID) error
	CreateInvestmentTransaction(ctx context.Context, t ledger.InvestmentTransaction) error
	DeleteInvestmentTransaction(ctx context.Context, id uuid.UUID) error

	CreateTaxPayment(ctx context.Context, p ledger.TaxPayment) error
	UpdateTaxPayment(ctx context.Context, p ledger.TaxPayment) error
	DeleteTaxPayment(ctx context.Context, id uuid.UUID) error
}

// Tx is a unit of work. Reads through a Tx observe its own writes.
type Tx interface {
	Reader
	Writer
}

// Store is implemented by every backend.
type Store interface {
	Reader
	// InTx runs fn atomically. Writes are committed only when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ready(ctx context.Context) error
}
