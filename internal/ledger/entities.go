package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AccountType enumerates the kinds of money containers a household tracks.
type AccountType string

const (
	AccountTypeDebit      AccountType = "debit"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeSavings    AccountType = "savings"
	// AccountTypeBusiness is a sole-proprietor account whose income is taxed at TaxRate.
	AccountTypeBusiness AccountType = "business"
	// AccountTypeTaxReserve holds money set aside for future tax payments.
	AccountTypeTaxReserve AccountType = "tax_reserve"
	AccountTypeInvestment AccountType = "investment"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeDebit, AccountTypeCreditCard, AccountTypeCash, AccountTypeSavings,
		AccountTypeBusiness, AccountTypeTaxReserve, AccountTypeInvestment:
		return true
	}
	return false
}

// TransactionType classifies the effect a transaction has on its accounts.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense || t == TransactionTransfer
}

// Account is a single mutable-balance container.
// For credit cards Balance is not authoritative; see CreditCard.CurrentDebt.
type Account struct {
	ID          uuid.UUID
	Name        string
	Type        AccountType
	Balance     float64
	CreditLimit float64
	BankName    string
	Icon        string
	Color       string
	// TaxRate is a percentage applied to income on business accounts.
	TaxRate            float64
	LinkedTaxAccountID *uuid.UUID
	CreatedAt          time.Time
}

// IsBusiness reports whether income on the account reserves tax.
func (a Account) IsBusiness() bool { return a.Type == AccountTypeBusiness }

// CreditCard carries the debt and terms of a credit_card account (one-to-one).
type CreditCard struct {
	ID                uuid.UUID
	AccountID         uuid.UUID
	CreditLimit       float64
	CurrentDebt       float64
	MinPaymentPercent float64
	GracePeriodDays   int
	InterestRate      float64
	StatementDay      int
	PaymentDueDay     int
	CashbackPercent   float64
}

// AvailableLimit may be negative when the card is over its limit.
func (c CreditCard) AvailableLimit() float64 { return c.CreditLimit - c.CurrentDebt }

// MinPayment is the minimum monthly payment on the current debt.
func (c CreditCard) MinPayment() float64 { return c.CurrentDebt * c.MinPaymentPercent / 100 }

// Utilization returns debt as a percentage of the limit, 0 when there is no limit.
func (c CreditCard) Utilization() float64 {
	if c.CreditLimit <= 0 {
		return 0
	}
	return c.CurrentDebt / c.CreditLimit * 100
}

// Transaction is the audit record whose effect the ledger applies to account state.
type Transaction struct {
	ID          uuid.UUID
	Type        TransactionType
	Amount      float64
	Date        time.Time
	Description string
	AccountID   uuid.UUID
	ToAccountID *uuid.UUID
	CategoryID  *uuid.UUID
	StoreID     *uuid.UUID
	Tags        []string
	// IsTaxTransfer marks transfers that move reserved tax to a tax account.
	IsTaxTransfer bool
	// ParentID links a system-generated transaction to the transaction that produced it.
	ParentID *uuid.UUID
	// CardPayoff is the debt actually removed from a destination credit card.
	// It can be less than Amount when the payment exceeded the debt.
	CardPayoff float64
	CreatedAt  time.Time
}

// System reports whether the transaction was generated by the ledger itself.
func (t Transaction) System() bool { return t.ParentID != nil }

// TaxReserve records the tax liability computed for one business income.
type TaxReserve struct {
	ID                uuid.UUID
	BusinessAccountID uuid.UUID
	TaxAccountID      uuid.UUID
	// SourceTransactionID is the income transaction the reserve was computed from.
	SourceTransactionID uuid.UUID
	// TransferTransactionID is the transfer that moved the reserve, when transferred.
	TransferTransactionID *uuid.UUID
	IncomeAmount          float64
	TaxAmount             float64
	TaxRate               float64
	Date                  time.Time
	IsTransferred         bool
	CreatedAt             time.Time
}

// DebtKind distinguishes consumer credits from mortgages.
type DebtKind string

const (
	DebtCredit   DebtKind = "credit"
	DebtMortgage DebtKind = "mortgage"
)

// PaymentType is the amortization scheme of a debt.
type PaymentType string

const (
	PaymentAnnuity        PaymentType = "annuity"
	PaymentDifferentiated PaymentType = "differentiated"
)

// Valid reports whether p is a known scheme.
func (p PaymentType) Valid() bool { return p == PaymentAnnuity || p == PaymentDifferentiated }

// ReduceType selects what an extra payment shortens.
type ReduceType string

const (
	ReduceTerm    ReduceType = "term"
	ReducePayment ReduceType = "payment"
)

// Valid reports whether r is a known strategy.
func (r ReduceType) Valid() bool { return r == ReduceTerm || r == ReducePayment }

// Debt holds the terms shared by credits and mortgages.
type Debt struct {
	ID                 uuid.UUID
	Kind               DebtKind
	Name               string
	BankName           string
	OriginalAmount     float64
	RemainingAmount    float64
	InterestRate       float64
	TermMonths         int
	RemainingMonths    int
	MonthlyPayment     float64
	PaymentType        PaymentType
	PaymentDay         int
	StartDate          time.Time
	NextPaymentDate    time.Time
	ExtraPaymentsTotal float64
	CreatedAt          time.Time
}

// MonthlyRate converts the annual percentage rate into a monthly fraction.
func (d Debt) MonthlyRate() float64 { return d.InterestRate / 100 / 12 }

// Credit is a consumer loan.
type Credit struct {
	Debt
	CreditType string
}

// Mortgage is a property loan with its own payment history.
type Mortgage struct {
	Debt
	PropertyAddress   string
	PropertyValue     float64
	DownPayment       float64
	InsuranceYearly   float64
	PropertyTaxYearly float64
}

// MortgagePayment is an append-only record of one applied payment.
type MortgagePayment struct {
	ID         uuid.UUID
	MortgageID uuid.UUID
	Date       time.Time
	Amount     float64
	Principal  float64
	Interest   float64
	IsExtra    bool
	ReduceType ReduceType
	CreatedAt  time.Time
}

// InvestmentOp is the kind of an investment history record.
type InvestmentOp string

const (
	InvestmentBuy      InvestmentOp = "buy"
	InvestmentSell     InvestmentOp = "sell"
	InvestmentDividend InvestmentOp = "dividend"
)

// Investment is a position in one ticker held on an investment account.
// Quantity, AvgBuyPrice and DividendsReceived follow from the position's history.
type Investment struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Ticker      string
	Name        string
	AssetType   string
	Quantity    float64
	AvgBuyPrice float64
	// CurrentPrice is the last known market price, used for valuation only.
	CurrentPrice      float64
	Currency          string
	Sector            string
	DividendsReceived float64
	LastUpdated       time.Time
	CreatedAt         time.Time
}

// Invested is the cost basis of the held quantity.
func (i Investment) Invested() float64 { return i.Quantity * i.AvgBuyPrice }

// CurrentValue is the held quantity at CurrentPrice.
func (i Investment) CurrentValue() float64 { return i.Quantity * i.CurrentPrice }

// InvestmentTransaction records one buy, sell or dividend of a position.
type InvestmentTransaction struct {
	ID           uuid.UUID
	InvestmentID uuid.UUID
	Type         InvestmentOp
	// Quantity and Price are zero for dividends.
	Quantity    float64
	Price       float64
	TotalAmount float64
	// Commission holds the withheld tax for dividends.
	Commission float64
	Date       time.Time
	Notes      string
	CreatedAt  time.Time
}

// TaxPayment is a scheduled tax obligation for a period.
type TaxPayment struct {
	ID          uuid.UUID
	TaxType     string
	Amount      float64
	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	PaidDate    *time.Time
	IsPaid      bool
	Description string
	CreatedAt   time.Time
}

// Overdue reports whether the payment is unpaid past its due date.
func (p TaxPayment) Overdue(today time.Time) bool { return !p.IsPaid && p.DueDate.Before(today) }
