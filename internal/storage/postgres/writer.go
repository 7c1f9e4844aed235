package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/ledger"
)

// writer implements storage.Tx on top of a pgx.Tx.
type writer struct {
	reader
}

func (w *writer) exec(ctx context.Context, sql string, args ...any) error {
	_, err := w.db.Exec(ctx, sql, args...)
	return mapErr(err)
}

func (w *writer) update(ctx context.Context, sql string, args ...any) error {
	return mapErr(mustAffect(w.db.Exec(ctx, sql, args...)))
}

// --- accounts and cards ---

func (w *writer) CreateAccount(ctx context.Context, a ledger.Account) error {
	return w.exec(ctx, `
        insert into accounts (`+accountCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `, a.ID, a.Name, a.Type, a.Balance, a.CreditLimit, a.BankName, a.Icon, a.Color, a.TaxRate, a.LinkedTaxAccountID, a.CreatedAt)
}

func (w *writer) UpdateAccount(ctx context.Context, a ledger.Account) error {
	return w.update(ctx, `
        update accounts
        set name=$1, type=$2, balance=$3, credit_limit=$4, bank_name=$5, icon=$6, color=$7, tax_rate=$8, linked_tax_account_id=$9
        where id=$10
    `, a.Name, a.Type, a.Balance, a.CreditLimit, a.BankName, a.Icon, a.Color, a.TaxRate, a.LinkedTaxAccountID, a.ID)
}

// DeleteAccount relies on the schema: cards, transactions, reserves and
// investments cascade and linked_tax_account_id is set null.
func (w *writer) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from accounts where id=$1`, id)
}

func (w *writer) CreateCreditCard(ctx context.Context, c ledger.CreditCard) error {
	return w.exec(ctx, `
        insert into credit_cards (`+cardCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, c.ID, c.AccountID, c.CreditLimit, c.CurrentDebt, c.MinPaymentPercent, c.GracePeriodDays, c.InterestRate, c.StatementDay, c.PaymentDueDay, c.CashbackPercent)
}

func (w *writer) UpdateCreditCard(ctx context.Context, c ledger.CreditCard) error {
	return w.update(ctx, `
        update credit_cards
        set credit_limit=$1, current_debt=$2, min_payment_percent=$3, grace_period_days=$4, interest_rate=$5,
            statement_day=$6, payment_due_day=$7, cashback_percent=$8
        where id=$9
    `, c.CreditLimit, c.CurrentDebt, c.MinPaymentPercent, c.GracePeriodDays, c.InterestRate, c.StatementDay, c.PaymentDueDay, c.CashbackPercent, c.ID)
}

// --- transactions ---

func tags(t ledger.Transaction) []string {
	if t.Tags == nil {
		return []string{}
	}
	return t.Tags
}

func (w *writer) CreateTransaction(ctx context.Context, t ledger.Transaction) error {
	return w.exec(ctx, `
        insert into transactions (`+transactionCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, t.ID, t.Type, t.Amount, t.Date, t.Description, t.AccountID, t.ToAccountID, t.CategoryID, t.StoreID, tags(t), t.IsTaxTransfer, t.ParentID, t.CardPayoff, t.CreatedAt)
}

func (w *writer) UpdateTransaction(ctx context.Context, t ledger.Transaction) error {
	return w.update(ctx, `
        update transactions
        set type=$1, amount=$2, date=$3, description=$4, account_id=$5, to_account_id=$6, category_id=$7,
            store_id=$8, tags=$9, is_tax_transfer=$10, card_payoff=$11
        where id=$12
    `, t.Type, t.Amount, t.Date, t.Description, t.AccountID, t.ToAccountID, t.CategoryID, t.StoreID, tags(t), t.IsTaxTransfer, t.CardPayoff, t.ID)
}

func (w *writer) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from transactions where id=$1`, id)
}

// --- tax reserves ---

func (w *writer) CreateTaxReserve(ctx context.Context, r ledger.TaxReserve) error {
	return w.exec(ctx, `
        insert into tax_reserves (`+reserveCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `, r.ID, r.BusinessAccountID, r.TaxAccountID, r.SourceTransactionID, r.TransferTransactionID, r.IncomeAmount, r.TaxAmount, r.TaxRate, r.Date, r.IsTransferred, r.CreatedAt)
}

func (w *writer) UpdateTaxReserve(ctx context.Context, r ledger.TaxReserve) error {
	return w.update(ctx, `
        update tax_reserves
        set transfer_transaction_id=$1, income_amount=$2, tax_amount=$3, tax_rate=$4, date=$5, is_transferred=$6
        where id=$7
    `, r.TransferTransactionID, r.IncomeAmount, r.TaxAmount, r.TaxRate, r.Date, r.IsTransferred, r.ID)
}

func (w *writer) DeleteTaxReserve(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from tax_reserves where id=$1`, id)
}

// --- debts ---

// debtArgs binds $1..$14 in debtCols order, without created_at.
func debtArgs(d ledger.Debt) []any {
	return []any{d.ID, d.Name, d.BankName, d.OriginalAmount, d.RemainingAmount, d.InterestRate, d.TermMonths, d.RemainingMonths, d.MonthlyPayment, d.PaymentType, d.PaymentDay, d.StartDate, d.NextPaymentDate, d.ExtraPaymentsTotal}
}

func (w *writer) CreateCredit(ctx context.Context, c ledger.Credit) error {
	args := append(debtArgs(c.Debt), c.CreatedAt, c.CreditType)
	return w.exec(ctx, `
        insert into credits (`+creditCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    `, args...)
}

const debtSet = `name=$2, bank_name=$3, original_amount=$4, remaining_amount=$5, interest_rate=$6, term_months=$7,
            remaining_months=$8, monthly_payment=$9, payment_type=$10, payment_day=$11, start_date=$12,
            next_payment_date=$13, extra_payments_total=$14`

func (w *writer) UpdateCredit(ctx context.Context, c ledger.Credit) error {
	args := append(debtArgs(c.Debt), c.CreditType)
	return w.update(ctx, `
        update credits
        set `+debtSet+`, credit_type=$15
        where id=$1
    `, args...)
}

func (w *writer) DeleteCredit(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from credits where id=$1`, id)
}

func (w *writer) CreateMortgage(ctx context.Context, m ledger.Mortgage) error {
	args := append(debtArgs(m.Debt), m.CreatedAt, m.PropertyAddress, m.PropertyValue, m.DownPayment, m.InsuranceYearly, m.PropertyTaxYearly)
	return w.exec(ctx, `
        insert into mortgages (`+mortgageCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    `, args...)
}

func (w *writer) UpdateMortgage(ctx context.Context, m ledger.Mortgage) error {
	args := append(debtArgs(m.Debt), m.PropertyAddress, m.PropertyValue, m.DownPayment, m.InsuranceYearly, m.PropertyTaxYearly)
	return w.update(ctx, `
        update mortgages
        set `+debtSet+`, property_address=$15, property_value=$16, down_payment=$17,
            insurance_yearly=$18, property_tax_yearly=$19
        where id=$1
    `, args...)
}

func (w *writer) DeleteMortgage(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from mortgages where id=$1`, id)
}

func (w *writer) CreateMortgagePayment(ctx context.Context, p ledger.MortgagePayment) error {
	return w.exec(ctx, `
        insert into mortgage_payments (`+paymentCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, p.ID, p.MortgageID, p.Date, p.Amount, p.Principal, p.Interest, p.IsExtra, p.ReduceType, p.CreatedAt)
}

// --- investments ---

func (w *writer) CreateInvestment(ctx context.Context, i ledger.Investment) error {
	return w.exec(ctx, `
        insert into investments (`+investmentCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `, i.ID, i.AccountID, i.Ticker, i.Name, i.AssetType, i.Quantity, i.AvgBuyPrice, i.CurrentPrice, i.Currency, i.Sector, i.DividendsReceived, i.LastUpdated, i.CreatedAt)
}

func (w *writer) UpdateInvestment(ctx context.Context, i ledger.Investment) error {
	return w.update(ctx, `
        update investments
        set name=$1, asset_type=$2, quantity=$3, avg_buy_price=$4, current_price=$5, currency=$6, sector=$7,
            dividends_received=$8, last_updated=$9
        where id=$10
    `, i.Name, i.AssetType, i.Quantity, i.AvgBuyPrice, i.CurrentPrice, i.Currency, i.Sector, i.DividendsReceived, i.LastUpdated, i.ID)
}

func (w *writer) DeleteInvestment(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from investments where id=$1`, id)
}

func (w *writer) CreateInvestmentTransaction(ctx context.Context, t ledger.InvestmentTransaction) error {
	return w.exec(ctx, `
        insert into investment_transactions (`+invTxCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, t.ID, t.InvestmentID, t.Type, t.Quantity, t.Price, t.TotalAmount, t.Commission, t.Date, t.Notes, t.CreatedAt)
}

func (w *writer) DeleteInvestmentTransaction(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from investment_transactions where id=$1`, id)
}

// --- tax payments ---

func (w *writer) CreateTaxPayment(ctx context.Context, p ledger.TaxPayment) error {
	return w.exec(ctx, `
        insert into tax_payments (`+taxPaymentCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, p.ID, p.TaxType, p.Amount, p.PeriodStart, p.PeriodEnd, p.DueDate, p.PaidDate, p.IsPaid, p.Description, p.CreatedAt)
}

func (w *writer) UpdateTaxPayment(ctx context.Context, p ledger.TaxPayment) error {
	return w.update(ctx, `
        update tax_payments
        set tax_type=$1, amount=$2, period_start=$3, period_end=$4, due_date=$5, paid_date=$6, is_paid=$7, description=$8
        where id=$9
    `, p.TaxType, p.Amount, p.PeriodStart, p.PeriodEnd, p.DueDate, p.PaidDate, p.IsPaid, p.Description, p.ID)
}

func (w *writer) DeleteTaxPayment(ctx context.Context, id uuid.UUID) error {
	return w.update(ctx, `delete from tax_payments where id=$1`, id)
}
