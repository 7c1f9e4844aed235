// Package taxes keeps scheduled tax payments and the yearly tax overview
// that puts them next to the reserves set aside from business income.
package taxes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
)

// ErrAlreadyPaid is returned when paying a payment twice.
var ErrAlreadyPaid = fmt.Errorf("tax payment already paid: %w", errs.ErrConflict)

type Input struct {
	TaxType     string
	Amount      float64
	PeriodStart time.Time
	PeriodEnd   time.Time
	DueDate     time.Time
	Description string
}

// Patch edits a payment. Nil fields are left unchanged.
type Patch struct {
	TaxType     *string
	Amount      *float64
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	DueDate     *time.Time
	Description *string
}

// PaymentView is a payment with its overdue flag as of today.
type PaymentView struct {
	ledger.TaxPayment
	Overdue bool
}

// ReserveTotals sums one business account's reserves for the year.
type ReserveTotals struct {
	AccountID   uuid.UUID
	AccountName string
	TotalIncome float64
	TotalTax    float64
	PendingTax  float64
}

// Overview is the tax picture of one year.
type Overview struct {
	Year            int
	Payments        []PaymentView
	Reserves        []ReserveTotals
	ReserveAccounts []ledger.Account
	TotalPaid       float64
	TotalPending    float64
	// TotalReserves is the tax still pending transfer across business accounts.
	TotalReserves          float64
	TotalInReserveAccounts float64
}

type Service interface {
	Create(ctx context.Context, in Input) (ledger.TaxPayment, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.TaxPayment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (PaymentView, error)
	// Pay marks the payment paid on date, today when zero.
	Pay(ctx context.Context, id uuid.UUID, date time.Time) (ledger.TaxPayment, error)
	// Overview defaults to the current year when year is zero.
	Overview(ctx context.Context, year int) (Overview, error)
}

type service struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

func New(store storage.Store, logger *slog.Logger, opts ...Option) Service {
	s := &service{store: store, log: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func validate(p ledger.TaxPayment) error {
	if p.TaxType == "" {
		return fmt.Errorf("tax_type is required: %w", errs.ErrInvalid)
	}
	if p.Amount <= 0 {
		return errs.ErrInvalidAmount
	}
	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() || p.DueDate.IsZero() {
		return fmt.Errorf("period_start, period_end and due_date are required: %w", errs.ErrInvalid)
	}
	if p.PeriodEnd.Before(p.PeriodStart) {
		return fmt.Errorf("period_end before period_start: %w", errs.ErrInvalid)
	}
	return nil
}

func (s *service) Create(ctx context.Context, in Input) (ledger.TaxPayment, error) {
	p := ledger.TaxPayment{
		ID:          uuid.New(),
		TaxType:     strings.TrimSpace(in.TaxType),
		Amount:      in.Amount,
		PeriodStart: dayOrZero(in.PeriodStart),
		PeriodEnd:   dayOrZero(in.PeriodEnd),
		DueDate:     dayOrZero(in.DueDate),
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
	}
	if err := validate(p); err != nil {
		return ledger.TaxPayment{}, err
	}
	if err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateTaxPayment(ctx, p)
	}); err != nil {
		return ledger.TaxPayment{}, err
	}
	s.log.Info("tax payment created", "id", p.ID, "tax_type", p.TaxType, "amount", p.Amount, "due", p.DueDate)
	return p, nil
}

func dayOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return amortization.Day(t)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch Patch) (ledger.TaxPayment, error) {
	var p ledger.TaxPayment
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = tx.GetTaxPayment(ctx, id)
		if err != nil {
			return err
		}
		if patch.TaxType != nil {
			p.TaxType = strings.TrimSpace(*patch.TaxType)
		}
		if patch.Amount != nil {
			p.Amount = *patch.Amount
		}
		if patch.PeriodStart != nil {
			p.PeriodStart = dayOrZero(*patch.PeriodStart)
		}
		if patch.PeriodEnd != nil {
			p.PeriodEnd = dayOrZero(*patch.PeriodEnd)
		}
		if patch.DueDate != nil {
			p.DueDate = dayOrZero(*patch.DueDate)
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if err := validate(p); err != nil {
			return err
		}
		return tx.UpdateTaxPayment(ctx, p)
	})
	if err != nil {
		return ledger.TaxPayment{}, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteTaxPayment(ctx, id)
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (PaymentView, error) {
	p, err := s.store.GetTaxPayment(ctx, id)
	if err != nil {
		return PaymentView{}, err
	}
	return PaymentView{TaxPayment: p, Overdue: p.Overdue(amortization.Day(s.now()))}, nil
}

func (s *service) Pay(ctx context.Context, id uuid.UUID, date time.Time) (ledger.TaxPayment, error) {
	paid := amortization.Day(s.now())
	if !date.IsZero() {
		paid = amortization.Day(date)
	}
	var p ledger.TaxPayment
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		p, err = tx.GetTaxPayment(ctx, id)
		if err != nil {
			return err
		}
		if p.IsPaid {
			return ErrAlreadyPaid
		}
		p.IsPaid = true
		p.PaidDate = &paid
		return tx.UpdateTaxPayment(ctx, p)
	})
	if err != nil {
		return ledger.TaxPayment{}, err
	}
	s.log.Info("tax payment paid", "id", p.ID, "amount", p.Amount, "paid_date", paid, "late", paid.After(p.DueDate))
	return p, nil
}

func (s *service) Overview(ctx context.Context, year int) (Overview, error) {
	today := amortization.Day(s.now())
	if year == 0 {
		year = today.Year()
	}
	out := Overview{Year: year}

	payments, err := s.store.ListTaxPayments(ctx, storage.TaxPaymentFilter{Year: year})
	if err != nil {
		return Overview{}, err
	}
	out.Payments = make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		out.Payments = append(out.Payments, PaymentView{TaxPayment: p, Overdue: p.Overdue(today)})
		if p.IsPaid {
			out.TotalPaid += p.Amount
		} else {
			out.TotalPending += p.Amount
		}
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return Overview{}, err
	}
	names := make(map[uuid.UUID]string, len(accounts))
	out.ReserveAccounts = make([]ledger.Account, 0)
	for _, a := range accounts {
		names[a.ID] = a.Name
		if a.Type == ledger.AccountTypeTaxReserve {
			out.ReserveAccounts = append(out.ReserveAccounts, a)
			out.TotalInReserveAccounts += a.Balance
		}
	}

	reserves, err := s.store.ListTaxReserves(ctx, storage.TaxReserveFilter{})
	if err != nil {
		return Overview{}, err
	}
	byAccount := map[uuid.UUID]*ReserveTotals{}
	for _, r := range reserves {
		if r.Date.Year() != year {
			continue
		}
		t, ok := byAccount[r.BusinessAccountID]
		if !ok {
			t = &ReserveTotals{AccountID: r.BusinessAccountID, AccountName: names[r.BusinessAccountID]}
			byAccount[r.BusinessAccountID] = t
		}
		t.TotalIncome += r.IncomeAmount
		t.TotalTax += r.TaxAmount
		if !r.IsTransferred {
			t.PendingTax += r.TaxAmount
			out.TotalReserves += r.TaxAmount
		}
	}
	out.Reserves = make([]ReserveTotals, 0, len(byAccount))
	for _, t := range byAccount {
		out.Reserves = append(out.Reserves, *t)
	}
	sort.Slice(out.Reserves, func(i, j int) bool { return out.Reserves[i].AccountName < out.Reserves[j].AccountName })
	return out, nil
}
