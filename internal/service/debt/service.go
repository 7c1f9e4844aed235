// Package debt tracks consumer credits and mortgages: creation with inferred
// progress, payments with term or payment reduction, and derived views.
package debt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/metrics"
	"github.com/tinoosan/homeledger/internal/storage"
)

type CreditInput struct {
	Terms
	CreditType string
}

type MortgageInput struct {
	Terms
	PropertyAddress   string
	PropertyValue     float64
	DownPayment       float64
	InsuranceYearly   float64
	PropertyTaxYearly float64
}

// PaymentInput describes one payment against a debt.
type PaymentInput struct {
	Amount     float64
	IsExtra    bool
	ReduceType ledger.ReduceType
	// Date defaults to today; it is recorded on mortgage payment history.
	Date time.Time
}

// PaymentResult is the debt state after a payment.
type PaymentResult struct {
	RemainingAmount float64
	RemainingMonths int
	MonthlyPayment  float64
	NextPaymentDate time.Time
	Principal       float64
	Interest        float64
	Degenerate      bool
}

// Patch edits loan terms. Nil fields are left unchanged.
type Patch struct {
	Name            *string
	BankName        *string
	OriginalAmount  *float64
	RemainingAmount *float64
	InterestRate    *float64
	TermMonths      *int
	RemainingMonths *int
	MonthlyPayment  *float64
	PaymentType     *ledger.PaymentType
	PaymentDay      *int
	StartDate       *time.Time
	NextPaymentDate *time.Time
}

type CreditPatch struct {
	Patch
	CreditType *string
}

type MortgagePatch struct {
	Patch
	PropertyAddress   *string
	PropertyValue     *float64
	DownPayment       *float64
	InsuranceYearly   *float64
	PropertyTaxYearly *float64
}

type Service interface {
	CreateCredit(ctx context.Context, in CreditInput) (ledger.Credit, Inference, error)
	UpdateCredit(ctx context.Context, id uuid.UUID, p CreditPatch) (ledger.Credit, error)
	DeleteCredit(ctx context.Context, id uuid.UUID) error
	GetCredit(ctx context.Context, id uuid.UUID) (CreditView, error)
	ListCredits(ctx context.Context) ([]CreditView, error)
	PayCredit(ctx context.Context, id uuid.UUID, in PaymentInput) (PaymentResult, error)

	CreateMortgage(ctx context.Context, in MortgageInput) (ledger.Mortgage, Inference, error)
	UpdateMortgage(ctx context.Context, id uuid.UUID, p MortgagePatch) (ledger.Mortgage, error)
	DeleteMortgage(ctx context.Context, id uuid.UUID) error
	GetMortgage(ctx context.Context, id uuid.UUID) (MortgageView, error)
	ListMortgages(ctx context.Context) ([]MortgageView, error)
	PayMortgage(ctx context.Context, id uuid.UUID, in PaymentInput) (PaymentResult, error)
	MortgagePayments(ctx context.Context, id uuid.UUID) ([]ledger.MortgagePayment, error)
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

func (s *service) degenerate(kind ledger.DebtKind, id uuid.UUID, op string) {
	metrics.AmortizationDegenerate.Inc()
	s.log.Warn("payment does not cover interest; kept bounded fallback", "kind", kind, "id", id, "op", op)
}

// --- credits ---

func (s *service) CreateCredit(ctx context.Context, in CreditInput) (ledger.Credit, Inference, error) {
	d, inf, err := plan(ledger.DebtCredit, in.Terms, s.now())
	if err != nil {
		return ledger.Credit{}, Inference{}, err
	}
	d.ID = uuid.New()
	d.CreatedAt = s.now().UTC()
	c := ledger.Credit{Debt: d, CreditType: in.CreditType}
	if c.CreditType == "" {
		c.CreditType = "consumer"
	}
	if err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateCredit(ctx, c)
	}); err != nil {
		return ledger.Credit{}, Inference{}, err
	}
	if inf.Degenerate {
		s.degenerate(ledger.DebtCredit, c.ID, "create")
	}
	s.log.Info("credit created", "id", c.ID, "remaining", c.RemainingAmount, "remaining_months", c.RemainingMonths, "months_passed", inf.MonthsPassed)
	return c, inf, nil
}

func (s *service) UpdateCredit(ctx context.Context, id uuid.UUID, p CreditPatch) (ledger.Credit, error) {
	var c ledger.Credit
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		c, err = tx.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if err := p.apply(&c.Debt); err != nil {
			return err
		}
		if p.CreditType != nil {
			c.CreditType = *p.CreditType
		}
		return tx.UpdateCredit(ctx, c)
	})
	if err != nil {
		return ledger.Credit{}, err
	}
	return c, nil
}

func (s *service) DeleteCredit(ctx context.Context, id uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteCredit(ctx, id)
	})
}

func (s *service) GetCredit(ctx context.Context, id uuid.UUID) (CreditView, error) {
	c, err := s.store.GetCredit(ctx, id)
	if err != nil {
		return CreditView{}, err
	}
	return NewCreditView(c, s.now()), nil
}

func (s *service) ListCredits(ctx context.Context) ([]CreditView, error) {
	cs, err := s.store.ListCredits(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	out := make([]CreditView, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewCreditView(c, today))
	}
	sortByNextPayment(out, func(v CreditView) time.Time { return v.NextPaymentDate })
	return out, nil
}

func (s *service) PayCredit(ctx context.Context, id uuid.UUID, in PaymentInput) (PaymentResult, error) {
	if in.Amount <= 0 {
		return PaymentResult{}, errs.ErrInvalidAmount
	}
	var res PaymentResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		c, err := tx.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		p := Pay(&c.Debt, in.Amount, in.IsExtra, reduceOrDefault(in.ReduceType))
		res = result(c.Debt, p)
		return tx.UpdateCredit(ctx, c)
	})
	if err != nil {
		return PaymentResult{}, err
	}
	s.paid(ledger.DebtCredit, id, in, res)
	return res, nil
}

// --- mortgages ---

func (s *service) CreateMortgage(ctx context.Context, in MortgageInput) (ledger.Mortgage, Inference, error) {
	if in.PropertyValue < 0 || in.DownPayment < 0 || in.InsuranceYearly < 0 || in.PropertyTaxYearly < 0 {
		return ledger.Mortgage{}, Inference{}, errs.ErrInvalidAmount
	}
	if in.OriginalAmount == 0 && in.PropertyValue > in.DownPayment {
		in.OriginalAmount = in.PropertyValue - in.DownPayment
	}
	d, inf, err := plan(ledger.DebtMortgage, in.Terms, s.now())
	if err != nil {
		return ledger.Mortgage{}, Inference{}, err
	}
	d.ID = uuid.New()
	d.CreatedAt = s.now().UTC()
	m := ledger.Mortgage{
		Debt:              d,
		PropertyAddress:   in.PropertyAddress,
		PropertyValue:     in.PropertyValue,
		DownPayment:       in.DownPayment,
		InsuranceYearly:   in.InsuranceYearly,
		PropertyTaxYearly: in.PropertyTaxYearly,
	}
	if err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateMortgage(ctx, m)
	}); err != nil {
		return ledger.Mortgage{}, Inference{}, err
	}
	if inf.Degenerate {
		s.degenerate(ledger.DebtMortgage, m.ID, "create")
	}
	s.log.Info("mortgage created", "id", m.ID, "remaining", m.RemainingAmount, "remaining_months", m.RemainingMonths)
	return m, inf, nil
}

func (s *service) UpdateMortgage(ctx context.Context, id uuid.UUID, p MortgagePatch) (ledger.Mortgage, error) {
	var m ledger.Mortgage
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		m, err = tx.GetMortgage(ctx, id)
		if err != nil {
			return err
		}
		if err := p.apply(&m.Debt); err != nil {
			return err
		}
		for _, f := range []struct {
			src *float64
			dst *float64
		}{
			{p.PropertyValue, &m.PropertyValue},
			{p.DownPayment, &m.DownPayment},
			{p.InsuranceYearly, &m.InsuranceYearly},
			{p.PropertyTaxYearly, &m.PropertyTaxYearly},
		} {
			if f.src == nil {
				continue
			}
			if *f.src < 0 {
				return errs.ErrInvalidAmount
			}
			*f.dst = *f.src
		}
		if p.PropertyAddress != nil {
			m.PropertyAddress = *p.PropertyAddress
		}
		return tx.UpdateMortgage(ctx, m)
	})
	if err != nil {
		return ledger.Mortgage{}, err
	}
	return m, nil
}

func (s *service) DeleteMortgage(ctx context.Context, id uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteMortgage(ctx, id)
	})
}

func (s *service) GetMortgage(ctx context.Context, id uuid.UUID) (MortgageView, error) {
	m, err := s.store.GetMortgage(ctx, id)
	if err != nil {
		return MortgageView{}, err
	}
	return NewMortgageView(m, s.now()), nil
}

func (s *service) ListMortgages(ctx context.Context) ([]MortgageView, error) {
	ms, err := s.store.ListMortgages(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	out := make([]MortgageView, 0, len(ms))
	for _, m := range ms {
		out = append(out, NewMortgageView(m, today))
	}
	return out, nil
}

func (s *service) PayMortgage(ctx context.Context, id uuid.UUID, in PaymentInput) (PaymentResult, error) {
	if in.Amount <= 0 {
		return PaymentResult{}, errs.ErrInvalidAmount
	}
	reduce := reduceOrDefault(in.ReduceType)
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	var res PaymentResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		m, err := tx.GetMortgage(ctx, id)
		if err != nil {
			return err
		}
		p := Pay(&m.Debt, in.Amount, in.IsExtra, reduce)
		res = result(m.Debt, p)
		if err := tx.UpdateMortgage(ctx, m); err != nil {
			return err
		}
		return tx.CreateMortgagePayment(ctx, ledger.MortgagePayment{
			ID:         uuid.New(),
			MortgageID: m.ID,
			Date:       amortization.Day(date),
			Amount:     in.Amount,
			Principal:  p.Principal,
			Interest:   p.Interest,
			IsExtra:    in.IsExtra,
			ReduceType: reduce,
			CreatedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return PaymentResult{}, err
	}
	s.paid(ledger.DebtMortgage, id, in, res)
	return res, nil
}

// MortgagePayments returns the payment history newest first.
func (s *service) MortgagePayments(ctx context.Context, id uuid.UUID) ([]ledger.MortgagePayment, error) {
	if _, err := s.store.GetMortgage(ctx, id); err != nil {
		return nil, err
	}
	ps, err := s.store.ListMortgagePayments(ctx, id)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(ps)-1; i < j; i, j = i+1, j-1 {
		ps[i], ps[j] = ps[j], ps[i]
	}
	return ps, nil
}

// --- helpers ---

func reduceOrDefault(r ledger.ReduceType) ledger.ReduceType {
	if r == "" {
		return ledger.ReduceTerm
	}
	return r
}

func result(d ledger.Debt, p Payment) PaymentResult {
	return PaymentResult{
		RemainingAmount: d.RemainingAmount,
		RemainingMonths: d.RemainingMonths,
		MonthlyPayment:  d.MonthlyPayment,
		NextPaymentDate: d.NextPaymentDate,
		Principal:       p.Principal,
		Interest:        p.Interest,
		Degenerate:      p.Degenerate,
	}
}

func (s *service) paid(kind ledger.DebtKind, id uuid.UUID, in PaymentInput, res PaymentResult) {
	metrics.DebtPayments.WithLabelValues(string(kind), metrics.Bool(in.IsExtra)).Inc()
	if res.Degenerate {
		s.degenerate(kind, id, "pay")
	}
	s.log.Info("debt payment applied", "kind", kind, "id", id, "amount", in.Amount, "extra", in.IsExtra,
		"remaining", res.RemainingAmount, "remaining_months", res.RemainingMonths)
}

// apply copies the set fields onto d and re-validates the terms.
func (p Patch) apply(d *ledger.Debt) error {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.BankName != nil {
		d.BankName = *p.BankName
	}
	if p.OriginalAmount != nil {
		d.OriginalAmount = *p.OriginalAmount
	}
	if p.RemainingAmount != nil {
		d.RemainingAmount = *p.RemainingAmount
	}
	if p.InterestRate != nil {
		d.InterestRate = *p.InterestRate
	}
	if p.TermMonths != nil {
		d.TermMonths = *p.TermMonths
	}
	if p.RemainingMonths != nil {
		d.RemainingMonths = *p.RemainingMonths
	}
	if p.MonthlyPayment != nil {
		d.MonthlyPayment = *p.MonthlyPayment
	}
	if p.PaymentType != nil {
		d.PaymentType = *p.PaymentType
	}
	if p.PaymentDay != nil {
		d.PaymentDay = *p.PaymentDay
	}
	if p.StartDate != nil {
		d.StartDate = amortization.Day(*p.StartDate)
	}
	if p.NextPaymentDate != nil {
		d.NextPaymentDate = amortization.Day(*p.NextPaymentDate)
	}
	remainingMonths := d.RemainingMonths
	if err := validateTerms(Terms{
		Name:            d.Name,
		OriginalAmount:  d.OriginalAmount,
		InterestRate:    d.InterestRate,
		TermMonths:      d.TermMonths,
		PaymentType:     d.PaymentType,
		MonthlyPayment:  d.MonthlyPayment,
		PaymentDay:      d.PaymentDay,
		RemainingAmount: &d.RemainingAmount,
		RemainingMonths: &remainingMonths,
	}); err != nil {
		return fmt.Errorf("update terms: %w", err)
	}
	return nil
}
