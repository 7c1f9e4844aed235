package v1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/ledger"
)

const dateLayout = "2006-01-02"

// date accepts YYYY-MM-DD or RFC3339 and renders as YYYY-MM-DD.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = amortization.Day(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

func (d date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *date) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

// currency rounds float amounts to the minor units of an ISO 4217 currency.
type currency struct {
	code string
}

func newCurrency(code string) (currency, error) {
	zero, err := money.NewAmountFromMinorUnits(code, 0)
	if err != nil {
		return currency{}, fmt.Errorf("currency %q: %w", code, err)
	}
	return currency{code: zero.Curr().Code()}, nil
}

// round returns f rounded to the currency's minor unit. Values the amount
// type cannot hold are returned unchanged.
func (c currency) round(f float64) float64 {
	a, err := money.NewAmountFromFloat64(c.code, f)
	if err != nil {
		return f
	}
	r, ok := a.RoundToCurr().Float64()
	if !ok {
		return f
	}
	return r
}

// --- requests ---

type postAccountRequest struct {
	Name               string             `json:"name"`
	Type               ledger.AccountType `json:"account_type"`
	Balance            float64            `json:"balance"`
	CreditLimit        float64            `json:"credit_limit"`
	BankName           string             `json:"bank_name"`
	Icon               string             `json:"icon"`
	Color              string             `json:"color"`
	TaxRate            float64            `json:"tax_rate"`
	LinkedTaxAccountID *uuid.UUID         `json:"linked_tax_account_id"`
	CurrentDebt        float64            `json:"current_debt"`
	MinPaymentPercent  *float64           `json:"min_payment_percent"`
	GracePeriodDays    *int               `json:"grace_period_days"`
	InterestRate       float64            `json:"interest_rate"`
	StatementDay       *int               `json:"statement_day"`
	PaymentDueDay      *int               `json:"payment_due_day"`
	CashbackPercent    float64            `json:"cashback_percent"`
}

type patchAccountRequest struct {
	Name               *string    `json:"name"`
	BankName           *string    `json:"bank_name"`
	Icon               *string    `json:"icon"`
	Color              *string    `json:"color"`
	CreditLimit        *float64   `json:"credit_limit"`
	TaxRate            *float64   `json:"tax_rate"`
	LinkedTaxAccountID *uuid.UUID `json:"linked_tax_account_id"`
	UnlinkTaxAccount   bool       `json:"unlink_tax_account"`
}

type patchCardRequest struct {
	CreditLimit       *float64 `json:"credit_limit"`
	MinPaymentPercent *float64 `json:"min_payment_percent"`
	GracePeriodDays   *int     `json:"grace_period_days"`
	InterestRate      *float64 `json:"interest_rate"`
	StatementDay      *int     `json:"statement_day"`
	PaymentDueDay     *int     `json:"payment_due_day"`
	CashbackPercent   *float64 `json:"cashback_percent"`
}

type payCardRequest struct {
	FromAccountID uuid.UUID `json:"from_account_id"`
	Amount        float64   `json:"amount"`
	Date          *date     `json:"date"`
}

type cardDebtRequest struct {
	CurrentDebt float64 `json:"current_debt"`
}

type transactionRequest struct {
	Type        ledger.TransactionType `json:"type"`
	Amount      float64                `json:"amount"`
	Date        *date                  `json:"date"`
	Description string                 `json:"description"`
	AccountID   uuid.UUID              `json:"account_id"`
	ToAccountID *uuid.UUID             `json:"to_account_id"`
	CategoryID  *uuid.UUID             `json:"category_id"`
	StoreID     *uuid.UUID             `json:"store_id"`
	Tags        []string               `json:"tags"`
}

type taxTransferRequest struct {
	BusinessAccountID uuid.UUID `json:"business_account_id"`
}

type debtTermsRequest struct {
	Name            string             `json:"name"`
	BankName        string             `json:"bank_name"`
	OriginalAmount  float64            `json:"original_amount"`
	RemainingAmount *float64           `json:"remaining_amount"`
	InterestRate    float64            `json:"interest_rate"`
	TermMonths      int                `json:"term_months"`
	RemainingMonths *int               `json:"remaining_months"`
	MonthlyPayment  float64            `json:"monthly_payment"`
	PaymentType     ledger.PaymentType `json:"payment_type"`
	PaymentDay      int                `json:"payment_day"`
	StartDate       *date              `json:"start_date"`
}

type postCreditRequest struct {
	debtTermsRequest
	CreditType string `json:"credit_type"`
}

type postMortgageRequest struct {
	debtTermsRequest
	PropertyAddress   string  `json:"property_address"`
	PropertyValue     float64 `json:"property_value"`
	DownPayment       float64 `json:"down_payment"`
	InsuranceYearly   float64 `json:"insurance_yearly"`
	PropertyTaxYearly float64 `json:"property_tax_yearly"`
}

type debtPatchRequest struct {
	Name            *string             `json:"name"`
	BankName        *string             `json:"bank_name"`
	OriginalAmount  *float64            `json:"original_amount"`
	RemainingAmount *float64            `json:"remaining_amount"`
	InterestRate    *float64            `json:"interest_rate"`
	TermMonths      *int                `json:"term_months"`
	RemainingMonths *int                `json:"remaining_months"`
	MonthlyPayment  *float64            `json:"monthly_payment"`
	PaymentType     *ledger.PaymentType `json:"payment_type"`
	PaymentDay      *int                `json:"payment_day"`
	StartDate       *date               `json:"start_date"`
	NextPaymentDate *date               `json:"next_payment_date"`
}

type patchCreditRequest struct {
	debtPatchRequest
	CreditType *string `json:"credit_type"`
}

type patchMortgageRequest struct {
	debtPatchRequest
	PropertyAddress   *string  `json:"property_address"`
	PropertyValue     *float64 `json:"property_value"`
	DownPayment       *float64 `json:"down_payment"`
	InsuranceYearly   *float64 `json:"insurance_yearly"`
	PropertyTaxYearly *float64 `json:"property_tax_yearly"`
}

type payDebtRequest struct {
	Amount     float64           `json:"amount"`
	IsExtra    bool              `json:"is_extra"`
	ReduceType ledger.ReduceType `json:"reduce_type"`
	Date       *date             `json:"date"`
}

type creditCalcRequest struct {
	Amount       float64            `json:"amount"`
	InterestRate float64            `json:"interest_rate"`
	TermMonths   int                `json:"term_months"`
	PaymentType  ledger.PaymentType `json:"payment_type"`
	ExtraPayment float64            `json:"extra_payment"`
	StartDate    *date              `json:"start_date"`
	PaymentDay   int                `json:"payment_day"`
}

type mortgageCalcRequest struct {
	PropertyValue float64            `json:"property_value"`
	DownPayment   float64            `json:"down_payment"`
	InterestRate  float64            `json:"interest_rate"`
	TermMonths    int                `json:"term_months"`
	PaymentType   ledger.PaymentType `json:"payment_type"`
}

// --- responses ---

type cardResponse struct {
	ID                uuid.UUID `json:"id"`
	AccountID         uuid.UUID `json:"account_id"`
	CreditLimit       float64   `json:"credit_limit"`
	CurrentDebt       float64   `json:"current_debt"`
	AvailableLimit    float64   `json:"available_limit"`
	MinPayment        float64   `json:"min_payment"`
	MinPaymentPercent float64   `json:"min_payment_percent"`
	Utilization       float64   `json:"utilization"`
	GracePeriodDays   int       `json:"grace_period_days"`
	InterestRate      float64   `json:"interest_rate"`
	StatementDay      int       `json:"statement_day"`
	PaymentDueDay     int       `json:"payment_due_day"`
	CashbackPercent   float64   `json:"cashback_percent"`
}

type accountResponse struct {
	ID                     uuid.UUID          `json:"id"`
	Name                   string             `json:"name"`
	Type                   ledger.AccountType `json:"account_type"`
	Currency               string             `json:"currency"`
	Balance                float64            `json:"balance"`
	CreditLimit            float64            `json:"credit_limit"`
	BankName               string             `json:"bank_name"`
	Icon                   string             `json:"icon"`
	Color                  string             `json:"color"`
	TaxRate                float64            `json:"tax_rate"`
	LinkedTaxAccountID     *uuid.UUID         `json:"linked_tax_account_id"`
	Card                   *cardResponse      `json:"card,omitempty"`
	PendingTax             *float64           `json:"pending_tax,omitempty"`
	LinkedBusinessAccounts []uuid.UUID        `json:"linked_business_accounts,omitempty"`
	Portfolio              *accountPortfolio  `json:"portfolio,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
}

type accountPortfolio struct {
	TotalInvested    float64 `json:"total_invested"`
	TotalCurrent     float64 `json:"total_current"`
	Profit           float64 `json:"profit"`
	ProfitPercent    float64 `json:"profit_percent"`
	InvestmentsCount int     `json:"investments_count"`
}

type transactionResponse struct {
	ID            uuid.UUID              `json:"id"`
	Type          ledger.TransactionType `json:"type"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	Date          date                   `json:"date"`
	Description   string                 `json:"description"`
	AccountID     uuid.UUID              `json:"account_id"`
	ToAccountID   *uuid.UUID             `json:"to_account_id"`
	CategoryID    *uuid.UUID             `json:"category_id"`
	StoreID       *uuid.UUID             `json:"store_id"`
	Tags          []string               `json:"tags"`
	IsTaxTransfer bool                   `json:"is_tax_transfer"`
	ParentID      *uuid.UUID             `json:"parent_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

type taxReserveResponse struct {
	ID                    uuid.UUID  `json:"id"`
	BusinessAccountID     uuid.UUID  `json:"business_account_id"`
	TaxAccountID          uuid.UUID  `json:"tax_account_id"`
	SourceTransactionID   uuid.UUID  `json:"source_transaction_id"`
	TransferTransactionID *uuid.UUID `json:"transfer_transaction_id"`
	IncomeAmount          float64    `json:"income_amount"`
	TaxAmount             float64    `json:"tax_amount"`
	TaxRate               float64    `json:"tax_rate"`
	Date                  date       `json:"date"`
	IsTransferred         bool       `json:"is_transferred"`
}

type taxTransferResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Reserves    int                 `json:"reserves"`
	Amount      float64             `json:"amount"`
}

type debtResponse struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	BankName           string             `json:"bank_name"`
	Currency           string             `json:"currency"`
	OriginalAmount     float64            `json:"original_amount"`
	RemainingAmount    float64            `json:"remaining_amount"`
	InterestRate       float64            `json:"interest_rate"`
	TermMonths         int                `json:"term_months"`
	RemainingMonths    int                `json:"remaining_months"`
	MonthlyPayment     float64            `json:"monthly_payment"`
	PaymentType        ledger.PaymentType `json:"payment_type"`
	PaymentDay         int                `json:"payment_day"`
	StartDate          date               `json:"start_date"`
	NextPaymentDate    date               `json:"next_payment_date"`
	ExtraPaymentsTotal float64            `json:"extra_payments_total"`
	MonthsPaid         int                `json:"months_paid"`
	TotalPaid          float64            `json:"total_paid"`
	Progress           float64            `json:"progress"`
	DaysUntilPayment   int                `json:"days_until_payment"`
	IsPaymentSoon      bool               `json:"is_payment_soon"`
	CreatedAt          time.Time          `json:"created_at"`
}

type creditResponse struct {
	debtResponse
	CreditType           string  `json:"credit_type"`
	PaidInterest         float64 `json:"paid_interest"`
	TotalOverpayment     float64 `json:"total_overpayment"`
	RemainingOverpayment float64 `json:"remaining_overpayment"`
}

type mortgageResponse struct {
	debtResponse
	PropertyAddress   string  `json:"property_address"`
	PropertyValue     float64 `json:"property_value"`
	DownPayment       float64 `json:"down_payment"`
	InsuranceYearly   float64 `json:"insurance_yearly"`
	PropertyTaxYearly float64 `json:"property_tax_yearly"`
	Overpayment       float64 `json:"overpayment"`
	MonthsSaved       int     `json:"months_saved"`
	MonthlyExtraCosts float64 `json:"monthly_extra_costs"`
	TotalMonthlyCost  float64 `json:"total_monthly_cost"`
	Equity            float64 `json:"equity"`
}

type inferenceResponse struct {
	MonthsPassed    int     `json:"months_passed"`
	RemainingAmount float64 `json:"remaining_amount"`
	RemainingMonths int     `json:"remaining_months"`
	MonthlyPayment  float64 `json:"monthly_payment"`
	Degenerate      bool    `json:"degenerate"`
}

type createdDebtResponse struct {
	ID        uuid.UUID         `json:"id"`
	Inference inferenceResponse `json:"inferred"`
}

type paymentResponse struct {
	RemainingAmount float64 `json:"remaining_amount"`
	RemainingMonths int     `json:"remaining_months"`
	MonthlyPayment  float64 `json:"monthly_payment"`
	NextPaymentDate date    `json:"next_payment_date"`
	Principal       float64 `json:"principal"`
	Interest        float64 `json:"interest"`
	Degenerate      bool    `json:"degenerate"`
}

type mortgagePaymentResponse struct {
	ID         uuid.UUID         `json:"id"`
	Date       date              `json:"date"`
	Amount     float64           `json:"amount"`
	Principal  float64           `json:"principal"`
	Interest   float64           `json:"interest"`
	IsExtra    bool              `json:"is_extra"`
	ReduceType ledger.ReduceType `json:"reduce_type"`
}

type scheduleRow struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Remaining float64 `json:"remaining"`
	TotalPaid float64 `json:"total_paid"`
	IsPaid    bool    `json:"is_paid"`
}

type strategyResponse struct {
	TermMonths      int     `json:"term_months"`
	RemainingMonths int     `json:"remaining_months"`
	MonthlyPayment  float64 `json:"monthly_payment"`
	TotalPayment    float64 `json:"total_payment"`
	Overpayment     float64 `json:"overpayment"`
	Savings         float64 `json:"savings,omitempty"`
	MonthsSaved     int     `json:"months_saved,omitempty"`
}

type creditCalcResponse struct {
	MonthlyPayment   float64                     `json:"monthly_payment"`
	TotalPayment     float64                     `json:"total_payment"`
	Overpayment      float64                     `json:"overpayment"`
	MonthsPassed     int                         `json:"months_passed"`
	CurrentRemaining float64                     `json:"current_remaining"`
	RemainingMonths  int                         `json:"remaining_months"`
	PaidPrincipal    float64                     `json:"paid_principal"`
	PaidInterest     float64                     `json:"paid_interest"`
	Schedule         []scheduleRow               `json:"schedule"`
	Strategies       map[string]strategyResponse `json:"strategies"`
	Degenerate       bool                        `json:"degenerate"`
}

type mortgageCalcResponse struct {
	LoanAmount         float64       `json:"loan_amount"`
	MonthlyPayment     float64       `json:"monthly_payment"`
	MonthlyPaymentLast float64       `json:"monthly_payment_last"`
	TotalPayment       float64       `json:"total_payment"`
	Overpayment        float64       `json:"overpayment"`
	Schedule           []scheduleRow `json:"schedule"`
	Degenerate         bool          `json:"degenerate"`
}

// --- investments ---

type investmentRequest struct {
	AccountID    uuid.UUID `json:"account_id"`
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name"`
	AssetType    string    `json:"asset_type"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	CurrentPrice *float64  `json:"current_price"`
	Currency     string    `json:"currency"`
	Sector       string    `json:"sector"`
	Commission   float64   `json:"commission"`
	Date         *date     `json:"date"`
	Notes        string    `json:"notes"`
}

type patchInvestmentRequest struct {
	Name         *string  `json:"name"`
	AssetType    *string  `json:"asset_type"`
	CurrentPrice *float64 `json:"current_price"`
	Currency     *string  `json:"currency"`
	Sector       *string  `json:"sector"`
}

type tradeRequest struct {
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Date       *date   `json:"date"`
	Notes      string  `json:"notes"`
}

type dividendRequest struct {
	Amount float64 `json:"amount"`
	Tax    float64 `json:"tax"`
	Date   *date   `json:"date"`
	Notes  string  `json:"notes"`
}

type investmentTxResponse struct {
	ID          uuid.UUID           `json:"id"`
	Type        ledger.InvestmentOp `json:"type"`
	Quantity    float64             `json:"quantity"`
	Price       float64             `json:"price"`
	TotalAmount float64             `json:"total_amount"`
	Commission  float64             `json:"commission"`
	Date        date                `json:"date"`
	Notes       string              `json:"notes"`
}

type investmentResponse struct {
	ID                  uuid.UUID              `json:"id"`
	AccountID           uuid.UUID              `json:"account_id"`
	Ticker              string                 `json:"ticker"`
	Name                string                 `json:"name"`
	AssetType           string                 `json:"asset_type"`
	Quantity            float64                `json:"quantity"`
	AvgBuyPrice         float64                `json:"avg_buy_price"`
	CurrentPrice        float64                `json:"current_price"`
	Currency            string                 `json:"currency"`
	Sector              string                 `json:"sector"`
	DividendsReceived   float64                `json:"dividends_received"`
	Invested            float64                `json:"invested"`
	CurrentValue        float64                `json:"current_value"`
	Profit              float64                `json:"profit"`
	ProfitPercent       float64                `json:"profit_percent"`
	TotalReturn         float64                `json:"total_return"`
	TotalBoughtQuantity float64                `json:"total_bought_quantity"`
	TotalSpent          float64                `json:"total_spent"`
	Transactions        []investmentTxResponse `json:"transactions,omitempty"`
	LastUpdated         time.Time              `json:"last_updated"`
	CreatedAt           time.Time              `json:"created_at"`
}

type saleResponse struct {
	Profit            float64 `json:"profit"`
	ProfitPercent     float64 `json:"profit_percent"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	Closed            bool    `json:"closed"`
}

type bucketResponse struct {
	Invested float64 `json:"invested"`
	Current  float64 `json:"current"`
	Count    int     `json:"count"`
}

type portfolioResponse struct {
	TotalInvested      float64                   `json:"total_invested"`
	TotalCurrent       float64                   `json:"total_current"`
	TotalProfit        float64                   `json:"total_profit"`
	TotalProfitPercent float64                   `json:"total_profit_percent"`
	TotalDividends     float64                   `json:"total_dividends"`
	TotalReturn        float64                   `json:"total_return"`
	PositionsCount     int                       `json:"positions_count"`
	ByType             map[string]bucketResponse `json:"by_type"`
	BySector           map[string]bucketResponse `json:"by_sector"`
	ByCurrency         map[string]bucketResponse `json:"by_currency"`
}

// --- tax payments ---

type taxPaymentRequest struct {
	TaxType     string  `json:"tax_type"`
	Amount      float64 `json:"amount"`
	PeriodStart *date   `json:"period_start"`
	PeriodEnd   *date   `json:"period_end"`
	DueDate     *date   `json:"due_date"`
	Description string  `json:"description"`
}

type patchTaxPaymentRequest struct {
	TaxType     *string  `json:"tax_type"`
	Amount      *float64 `json:"amount"`
	PeriodStart *date    `json:"period_start"`
	PeriodEnd   *date    `json:"period_end"`
	DueDate     *date    `json:"due_date"`
	Description *string  `json:"description"`
}

type payTaxRequest struct {
	Date *date `json:"date"`
}

type taxPaymentResponse struct {
	ID          uuid.UUID `json:"id"`
	TaxType     string    `json:"tax_type"`
	Amount      float64   `json:"amount"`
	PeriodStart date      `json:"period_start"`
	PeriodEnd   date      `json:"period_end"`
	DueDate     date      `json:"due_date"`
	PaidDate    *date     `json:"paid_date"`
	IsPaid      bool      `json:"is_paid"`
	IsOverdue   bool      `json:"is_overdue"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type reserveTotalsResponse struct {
	AccountID   uuid.UUID `json:"account_id"`
	AccountName string    `json:"account_name"`
	TotalIncome float64   `json:"total_income"`
	TotalTax    float64   `json:"total_tax"`
	PendingTax  float64   `json:"pending_tax"`
}

type reserveAccountResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Balance float64   `json:"balance"`
}

type taxOverviewResponse struct {
	Year            int                      `json:"year"`
	Payments        []taxPaymentResponse     `json:"payments"`
	Reserves        []reserveTotalsResponse  `json:"reserves"`
	ReserveAccounts []reserveAccountResponse `json:"tax_accounts"`
	Summary         taxSummaryResponse       `json:"summary"`
}

type taxSummaryResponse struct {
	TotalPaid              float64 `json:"total_paid"`
	TotalPending           float64 `json:"total_pending"`
	TotalReserves          float64 `json:"total_reserves"`
	TotalInReserveAccounts float64 `json:"total_in_reserve_accounts"`
}
