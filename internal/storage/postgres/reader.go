package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
)

// reader implements storage.Reader over a pool or a transaction.
type reader struct {
	db dbtx
	// lock appends FOR UPDATE to single-row reads.
	lock bool
}

const (
	accountCols     = `id, name, type, balance, credit_limit, bank_name, icon, color, tax_rate, linked_tax_account_id, created_at`
	cardCols        = `id, account_id, credit_limit, current_debt, min_payment_percent, grace_period_days, interest_rate, statement_day, payment_due_day, cashback_percent`
	transactionCols = `id, type, amount, date, description, account_id, to_account_id, category_id, store_id, tags, is_tax_transfer, parent_id, card_payoff, created_at`
	reserveCols     = `id, business_account_id, tax_account_id, source_transaction_id, transfer_transaction_id, income_amount, tax_amount, tax_rate, date, is_transferred, created_at`
	debtCols        = `id, name, bank_name, original_amount, remaining_amount, interest_rate, term_months, remaining_months, monthly_payment, payment_type, payment_day, start_date, next_payment_date, extra_payments_total, created_at`
	creditCols      = debtCols + `, credit_type`
	mortgageCols    = debtCols + `, property_address, property_value, down_payment, insurance_yearly, property_tax_yearly`
	paymentCols     = `id, mortgage_id, date, amount, principal, interest, is_extra, reduce_type, created_at`
	investmentCols  = `id, account_id, ticker, name, asset_type, quantity, avg_buy_price, current_price, currency, sector, dividends_received, last_updated, created_at`
	invTxCols       = `id, investment_id, type, quantity, price, total_amount, commission, date, notes, created_at`
	taxPaymentCols  = `id, tax_type, amount, period_start, period_end, due_date, paid_date, is_paid, description, created_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func (r reader) forUpdate() string {
	if r.lock {
		return " for update"
	}
	return ""
}

func scanAccount(row scanner) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.CreditLimit, &a.BankName, &a.Icon, &a.Color, &a.TaxRate, &a.LinkedTaxAccountID, &a.CreatedAt)
	return a, err
}

func scanCard(row scanner) (ledger.CreditCard, error) {
	var c ledger.CreditCard
	err := row.Scan(&c.ID, &c.AccountID, &c.CreditLimit, &c.CurrentDebt, &c.MinPaymentPercent, &c.GracePeriodDays, &c.InterestRate, &c.StatementDay, &c.PaymentDueDay, &c.CashbackPercent)
	return c, err
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	err := row.Scan(&t.ID, &t.Type, &t.Amount, &t.Date, &t.Description, &t.AccountID, &t.ToAccountID, &t.CategoryID, &t.StoreID, &t.Tags, &t.IsTaxTransfer, &t.ParentID, &t.CardPayoff, &t.CreatedAt)
	return t, err
}

func scanReserve(row scanner) (ledger.TaxReserve, error) {
	var r ledger.TaxReserve
	err := row.Scan(&r.ID, &r.BusinessAccountID, &r.TaxAccountID, &r.SourceTransactionID, &r.TransferTransactionID, &r.IncomeAmount, &r.TaxAmount, &r.TaxRate, &r.Date, &r.IsTransferred, &r.CreatedAt)
	return r, err
}

func debtDest(d *ledger.Debt) []any {
	return []any{&d.ID, &d.Name, &d.BankName, &d.OriginalAmount, &d.RemainingAmount, &d.InterestRate, &d.TermMonths, &d.RemainingMonths, &d.MonthlyPayment, &d.PaymentType, &d.PaymentDay, &d.StartDate, &d.NextPaymentDate, &d.ExtraPaymentsTotal, &d.CreatedAt}
}

func scanCredit(row scanner) (ledger.Credit, error) {
	var c ledger.Credit
	dest := append(debtDest(&c.Debt), &c.CreditType)
	err := row.Scan(dest...)
	c.Kind = ledger.DebtCredit
	return c, err
}

func scanMortgage(row scanner) (ledger.Mortgage, error) {
	var m ledger.Mortgage
	dest := append(debtDest(&m.Debt), &m.PropertyAddress, &m.PropertyValue, &m.DownPayment, &m.InsuranceYearly, &m.PropertyTaxYearly)
	err := row.Scan(dest...)
	m.Kind = ledger.DebtMortgage
	return m, err
}

func scanPayment(row scanner) (ledger.MortgagePayment, error) {
	var p ledger.MortgagePayment
	err := row.Scan(&p.ID, &p.MortgageID, &p.Date, &p.Amount, &p.Principal, &p.Interest, &p.IsExtra, &p.ReduceType, &p.CreatedAt)
	return p, err
}

func scanInvestment(row scanner) (ledger.Investment, error) {
	var i ledger.Investment
	err := row.Scan(&i.ID, &i.AccountID, &i.Ticker, &i.Name, &i.AssetType, &i.Quantity, &i.AvgBuyPrice, &i.CurrentPrice, &i.Currency, &i.Sector, &i.DividendsReceived, &i.LastUpdated, &i.CreatedAt)
	return i, err
}

func scanInvestmentTransaction(row scanner) (ledger.InvestmentTransaction, error) {
	var t ledger.InvestmentTransaction
	err := row.Scan(&t.ID, &t.InvestmentID, &t.Type, &t.Quantity, &t.Price, &t.TotalAmount, &t.Commission, &t.Date, &t.Notes, &t.CreatedAt)
	return t, err
}

func scanTaxPayment(row scanner) (ledger.TaxPayment, error) {
	var p ledger.TaxPayment
	err := row.Scan(&p.ID, &p.TaxType, &p.Amount, &p.PeriodStart, &p.PeriodEnd, &p.DueDate, &p.PaidDate, &p.IsPaid, &p.Description, &p.CreatedAt)
	return p, err
}

// collect drains rows through scan.
func collect[T any](rows pgx.Rows, err error, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- accounts and cards ---

func (r reader) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := r.db.Query(ctx, `select `+accountCols+` from accounts order by type, name`)
	return collect(rows, err, scanAccount)
}

func (r reader) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `select `+accountCols+` from accounts where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.Account{}, mapErr(err)
	}
	return a, nil
}

func (r reader) ListCreditCards(ctx context.Context) ([]ledger.CreditCard, error) {
	rows, err := r.db.Query(ctx, `select `+cardCols+` from credit_cards order by id`)
	return collect(rows, err, scanCard)
}

func (r reader) GetCreditCard(ctx context.Context, id uuid.UUID) (ledger.CreditCard, error) {
	c, err := scanCard(r.db.QueryRow(ctx, `select `+cardCols+` from credit_cards where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.CreditCard{}, mapErr(err)
	}
	return c, nil
}

func (r reader) CardByAccount(ctx context.Context, accountID uuid.UUID) (ledger.CreditCard, error) {
	c, err := scanCard(r.db.QueryRow(ctx, `select `+cardCols+` from credit_cards where account_id = $1`+r.forUpdate(), accountID))
	if err != nil {
		return ledger.CreditCard{}, mapErr(err)
	}
	return c, nil
}

// --- transactions ---

// where accumulates numbered predicates.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " where " + strings.Join(w.clauses, " and ")
}

func (r reader) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]ledger.Transaction, error) {
	var w where
	if f.AccountID != nil {
		w.add(`(account_id = ? or to_account_id = ?)`, *f.AccountID)
	}
	if f.Type != "" {
		w.add(`type = ?`, f.Type)
	}
	if f.From != nil {
		w.add(`date >= ?`, *f.From)
	}
	if f.To != nil {
		w.add(`date <= ?`, *f.To)
	}
	if f.ParentID != nil {
		w.add(`parent_id = ?`, *f.ParentID)
	}
	q := `select ` + transactionCols + ` from transactions` + w.String() + ` order by date desc, created_at desc, id desc`
	if f.Limit > 0 {
		q += ` limit ` + strconv.Itoa(f.Limit)
	}
	rows, err := r.db.Query(ctx, q, w.args...)
	return collect(rows, err, scanTransaction)
}

func (r reader) GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `select `+transactionCols+` from transactions where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.Transaction{}, mapErr(err)
	}
	return t, nil
}

// --- tax reserves ---

func (r reader) ListTaxReserves(ctx context.Context, f storage.TaxReserveFilter) ([]ledger.TaxReserve, error) {
	var w where
	if f.BusinessAccountID != nil {
		w.add(`business_account_id = ?`, *f.BusinessAccountID)
	}
	if f.SourceTransactionID != nil {
		w.add(`source_transaction_id = ?`, *f.SourceTransactionID)
	}
	if f.TransferTransactionID != nil {
		w.add(`transfer_transaction_id = ?`, *f.TransferTransactionID)
	}
	if f.Pending != nil {
		w.add(`is_transferred = ?`, !*f.Pending)
	}
	q := `select ` + reserveCols + ` from tax_reserves` + w.String() + ` order by date desc, created_at desc`
	if r.lock {
		q += ` for update`
	}
	rows, err := r.db.Query(ctx, q, w.args...)
	return collect(rows, err, scanReserve)
}

// --- debts ---

func (r reader) ListCredits(ctx context.Context) ([]ledger.Credit, error) {
	rows, err := r.db.Query(ctx, `select `+creditCols+` from credits order by created_at`)
	return collect(rows, err, scanCredit)
}

func (r reader) GetCredit(ctx context.Context, id uuid.UUID) (ledger.Credit, error) {
	c, err := scanCredit(r.db.QueryRow(ctx, `select `+creditCols+` from credits where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.Credit{}, mapErr(err)
	}
	return c, nil
}

func (r reader) ListMortgages(ctx context.Context) ([]ledger.Mortgage, error) {
	rows, err := r.db.Query(ctx, `select `+mortgageCols+` from mortgages order by created_at`)
	return collect(rows, err, scanMortgage)
}

func (r reader) GetMortgage(ctx context.Context, id uuid.UUID) (ledger.Mortgage, error) {
	m, err := scanMortgage(r.db.QueryRow(ctx, `select `+mortgageCols+` from mortgages where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.Mortgage{}, mapErr(err)
	}
	return m, nil
}

func (r reader) ListMortgagePayments(ctx context.Context, mortgageID uuid.UUID) ([]ledger.MortgagePayment, error) {
	rows, err := r.db.Query(ctx, `select `+paymentCols+` from mortgage_payments where mortgage_id = $1 order by date, created_at`, mortgageID)
	return collect(rows, err, scanPayment)
}

// --- investments ---

func (r reader) ListInvestments(ctx context.Context, f storage.InvestmentFilter) ([]ledger.Investment, error) {
	var w where
	if f.AccountID != nil {
		w.add(`account_id = ?`, *f.AccountID)
	}
	if f.Ticker != "" {
		w.add(`ticker = ?`, f.Ticker)
	}
	rows, err := r.db.Query(ctx, `select `+investmentCols+` from investments`+w.String()+` order by asset_type, ticker`, w.args...)
	return collect(rows, err, scanInvestment)
}

func (r reader) GetInvestment(ctx context.Context, id uuid.UUID) (ledger.Investment, error) {
	i, err := scanInvestment(r.db.QueryRow(ctx, `select `+investmentCols+` from investments where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.Investment{}, mapErr(err)
	}
	return i, nil
}

func (r reader) ListInvestmentTransactions(ctx context.Context, investmentID uuid.UUID) ([]ledger.InvestmentTransaction, error) {
	rows, err := r.db.Query(ctx, `select `+invTxCols+` from investment_transactions where investment_id = $1 order by date, created_at`, investmentID)
	return collect(rows, err, scanInvestmentTransaction)
}

func (r reader) GetInvestmentTransaction(ctx context.Context, id uuid.UUID) (ledger.InvestmentTransaction, error) {
	t, err := scanInvestmentTransaction(r.db.QueryRow(ctx, `select `+invTxCols+` from investment_transactions where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.InvestmentTransaction{}, mapErr(err)
	}
	return t, nil
}

// --- tax payments ---

func (r reader) ListTaxPayments(ctx context.Context, f storage.TaxPaymentFilter) ([]ledger.TaxPayment, error) {
	var w where
	if f.Year != 0 {
		w.add(`extract(year from period_start) = ?`, f.Year)
	}
	rows, err := r.db.Query(ctx, `select `+taxPaymentCols+` from tax_payments`+w.String()+` order by due_date, created_at`, w.args...)
	return collect(rows, err, scanTaxPayment)
}

func (r reader) GetTaxPayment(ctx context.Context, id uuid.UUID) (ledger.TaxPayment, error) {
	p, err := scanTaxPayment(r.db.QueryRow(ctx, `select `+taxPaymentCols+` from tax_payments where id = $1`+r.forUpdate(), id))
	if err != nil {
		return ledger.TaxPayment{}, mapErr(err)
	}
	return p, nil
}
