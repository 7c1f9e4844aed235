package debt

import (
	"fmt"
	"math"
	"time"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
)

// Payment is the split computed for one applied payment.
type Payment struct {
	Principal float64
	Interest  float64
	// Degenerate is set when the term could not be re-solved because the
	// payment no longer covers interest; the previous term was kept.
	Degenerate bool
}

// Pay applies amount to d in place. Regular payments cover the month's
// interest first; extra payments go entirely to principal and then shorten
// the term or lower the payment according to reduce.
func Pay(d *ledger.Debt, amount float64, isExtra bool, reduce ledger.ReduceType) Payment {
	rate := d.MonthlyRate()
	var p Payment
	if !isExtra {
		p.Interest = math.Min(d.RemainingAmount*rate, amount)
	}
	p.Principal = math.Min(amount-p.Interest, d.RemainingAmount)
	if p.Principal < 0 {
		p.Principal = 0
	}
	d.RemainingAmount = math.Max(0, d.RemainingAmount-p.Principal)

	if isExtra {
		d.ExtraPaymentsTotal += amount
		switch reduce {
		case ledger.ReducePayment:
			d.MonthlyPayment = amortization.ReducedPayment(d.PaymentType, d.RemainingAmount, rate, d.RemainingMonths, d.MonthlyPayment)
		default:
			if d.RemainingMonths > 1 {
				var n int
				if d.PaymentType == ledger.PaymentDifferentiated {
					n, p.Degenerate = amortization.InstallmentMonths(d.RemainingAmount, d.OriginalAmount/float64(d.TermMonths), d.RemainingMonths)
				} else {
					n, p.Degenerate = amortization.RemainingMonths(d.RemainingAmount, rate, d.MonthlyPayment, d.RemainingMonths)
				}
				d.RemainingMonths = min(d.RemainingMonths, max(1, n))
			}
		}
	} else {
		d.RemainingMonths = max(0, d.RemainingMonths-1)
	}
	if d.RemainingAmount == 0 {
		d.RemainingMonths = 0
	} else {
		d.NextPaymentDate = amortization.AdvanceMonth(d.NextPaymentDate, d.PaymentDay)
	}
	return p
}

// Terms are the user-supplied loan terms shared by credits and mortgages.
type Terms struct {
	Name           string
	BankName       string
	OriginalAmount float64
	InterestRate   float64
	TermMonths     int
	PaymentType    ledger.PaymentType
	// MonthlyPayment is derived from the terms when zero.
	MonthlyPayment float64
	// PaymentDay defaults to the start date's day of month.
	PaymentDay int
	// StartDate defaults to today.
	StartDate time.Time
	// RemainingAmount is reconstructed from elapsed payments when nil.
	RemainingAmount *float64
	// RemainingMonths is solved from the remaining amount when nil.
	RemainingMonths *int
}

// Inference reports what was derived from the terms at creation.
type Inference struct {
	MonthsPassed    int
	RemainingAmount float64
	RemainingMonths int
	MonthlyPayment  float64
	Degenerate      bool
}

func validateTerms(t Terms) error {
	if t.Name == "" {
		return fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if t.OriginalAmount <= 0 || t.MonthlyPayment < 0 {
		return errs.ErrInvalidAmount
	}
	if t.RemainingAmount != nil && *t.RemainingAmount < 0 {
		return errs.ErrInvalidAmount
	}
	if err := amortization.CheckTerm(t.TermMonths); err != nil {
		return err
	}
	if t.RemainingMonths != nil && (*t.RemainingMonths < 0 || *t.RemainingMonths > amortization.MaxTermMonths) {
		return errs.ErrInvalidTerm
	}
	if t.InterestRate < 0 {
		return fmt.Errorf("interest_rate must not be negative: %w", errs.ErrInvalid)
	}
	if t.PaymentType != "" && !t.PaymentType.Valid() {
		return fmt.Errorf("payment_type %q: %w", t.PaymentType, errs.ErrInvalid)
	}
	if t.PaymentDay < 0 || t.PaymentDay > 31 {
		return fmt.Errorf("payment_day must be within 1..31: %w", errs.ErrInvalid)
	}
	return nil
}

// plan builds the debt row for t as of today, inferring what was not given.
func plan(kind ledger.DebtKind, t Terms, today time.Time) (ledger.Debt, Inference, error) {
	if err := validateTerms(t); err != nil {
		return ledger.Debt{}, Inference{}, err
	}
	today = amortization.Day(today)
	start := today
	if !t.StartDate.IsZero() {
		start = amortization.Day(t.StartDate)
	}
	day := t.PaymentDay
	if day == 0 {
		day = start.Day()
	}
	scheme := t.PaymentType
	if scheme == "" {
		scheme = ledger.PaymentAnnuity
	}
	rate := amortization.MonthlyRate(t.InterestRate)

	inf := Inference{MonthlyPayment: t.MonthlyPayment}
	if inf.MonthlyPayment <= 0 {
		m, err := amortization.FirstPayment(scheme, t.OriginalAmount, rate, t.TermMonths)
		if err != nil {
			return ledger.Debt{}, Inference{}, err
		}
		inf.MonthlyPayment = m
	}
	inf.MonthsPassed = amortization.MonthsElapsed(start, day, today)
	fallback := max(0, t.TermMonths-inf.MonthsPassed)
	installment := t.OriginalAmount / float64(t.TermMonths)

	if t.RemainingAmount != nil {
		inf.RemainingAmount = *t.RemainingAmount
		if scheme == ledger.PaymentDifferentiated {
			inf.RemainingMonths, inf.Degenerate = amortization.InstallmentMonths(inf.RemainingAmount, installment, fallback)
		} else {
			inf.RemainingMonths, inf.Degenerate = amortization.RemainingMonths(inf.RemainingAmount, rate, inf.MonthlyPayment, fallback)
		}
	} else {
		if scheme == ledger.PaymentDifferentiated {
			inf.RemainingAmount = math.Max(0, t.OriginalAmount-installment*float64(inf.MonthsPassed))
		} else {
			inf.RemainingAmount, _, inf.Degenerate = amortization.Replay(t.OriginalAmount, rate, inf.MonthlyPayment, inf.MonthsPassed)
		}
		inf.RemainingMonths = fallback
	}
	if t.RemainingMonths != nil {
		inf.RemainingMonths = *t.RemainingMonths
	}

	return ledger.Debt{
		Kind:            kind,
		Name:            t.Name,
		BankName:        t.BankName,
		OriginalAmount:  t.OriginalAmount,
		RemainingAmount: inf.RemainingAmount,
		InterestRate:    t.InterestRate,
		TermMonths:      t.TermMonths,
		RemainingMonths: inf.RemainingMonths,
		MonthlyPayment:  inf.MonthlyPayment,
		PaymentType:     scheme,
		PaymentDay:      day,
		StartDate:       start,
		NextPaymentDate: amortization.NextPaymentDate(today, day),
	}, inf, nil
}
