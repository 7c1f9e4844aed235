package amortization

import (
	"fmt"
	"time"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
)

// CreditQuery is the input of the credit calculator.
type CreditQuery struct {
	Principal  float64
	AnnualRate float64
	TermMonths int
	Scheme     ledger.PaymentType
	// Extra is a recurring extra payment applied after the elapsed months.
	Extra float64
	// StartDate is optional; without it nothing has elapsed.
	StartDate  *time.Time
	PaymentDay int
	Today      time.Time
}

// Strategy summarises one way of repaying the loan.
type Strategy struct {
	TermMonths      int
	RemainingMonths int
	MonthlyPayment  float64
	TotalPayment    float64
	Overpayment     float64
	Savings         float64
	MonthsSaved     int
}

// CreditCalculation is the result of ComputeSchedule.
type CreditCalculation struct {
	MonthlyPayment   float64
	TotalPayment     float64
	Overpayment      float64
	MonthsPassed     int
	RemainingMonths  int
	CurrentRemaining float64
	PaidPrincipal    float64
	PaidInterest     float64
	Schedule         []Row
	Base             Strategy
	// WithExtra is nil when no extra payment was requested.
	WithExtra  *Strategy
	Degenerate bool
}

// ComputeSchedule runs the credit calculator: the base plan, the progress
// made since StartDate and, with an extra payment, the accelerated plan.
func ComputeSchedule(q CreditQuery) (CreditCalculation, error) {
	if q.Principal <= 0 || q.Extra < 0 {
		return CreditCalculation{}, errs.ErrInvalidAmount
	}
	if err := CheckTerm(q.TermMonths); err != nil {
		return CreditCalculation{}, err
	}
	if q.AnnualRate < 0 {
		return CreditCalculation{}, fmt.Errorf("annual_rate must not be negative: %w", errs.ErrInvalid)
	}
	scheme := q.Scheme
	if scheme == "" {
		scheme = ledger.PaymentAnnuity
	}
	rate := MonthlyRate(q.AnnualRate)

	elapsed := 0
	if q.StartDate != nil {
		day := q.PaymentDay
		if day == 0 {
			day = q.StartDate.Day()
		}
		elapsed = MonthsElapsed(*q.StartDate, day, q.Today)
	}

	base, err := Generate(Plan{Principal: q.Principal, MonthlyRate: rate, TermMonths: q.TermMonths, Scheme: scheme})
	if err != nil {
		return CreditCalculation{}, err
	}
	sched, err := Generate(Plan{
		Principal:   q.Principal,
		MonthlyRate: rate,
		TermMonths:  q.TermMonths,
		Scheme:      scheme,
		Extra:       q.Extra,
		Elapsed:     elapsed,
	})
	if err != nil {
		return CreditCalculation{}, err
	}

	baseTotal, baseInterest := base.Totals()
	out := CreditCalculation{
		MonthlyPayment:   base.MonthlyPayment,
		TotalPayment:     baseTotal,
		Overpayment:      baseInterest,
		MonthsPassed:     elapsed,
		RemainingMonths:  max(0, q.TermMonths-elapsed),
		CurrentRemaining: q.Principal,
		Schedule:         sched.Rows,
		Degenerate:       base.Degenerate || sched.Degenerate,
	}
	for _, r := range sched.Rows {
		if r.Month > elapsed {
			break
		}
		out.PaidPrincipal += r.Principal
		out.PaidInterest += r.Interest
		out.CurrentRemaining = r.Remaining
	}
	out.Base = Strategy{
		TermMonths:      q.TermMonths,
		RemainingMonths: out.RemainingMonths,
		MonthlyPayment:  base.MonthlyPayment,
		TotalPayment:    baseTotal,
		Overpayment:     baseInterest,
	}
	if q.Extra > 0 {
		total, interest := sched.Totals()
		term := len(sched.Rows)
		out.WithExtra = &Strategy{
			TermMonths:      term,
			RemainingMonths: max(0, term-elapsed),
			MonthlyPayment:  base.MonthlyPayment + q.Extra,
			TotalPayment:    total,
			Overpayment:     interest,
			Savings:         baseInterest - interest,
			MonthsSaved:     max(0, len(base.Rows)-term),
		}
	}
	return out, nil
}

// MortgageQuery is the input of the mortgage calculator.
type MortgageQuery struct {
	PropertyValue float64
	DownPayment   float64
	AnnualRate    float64
	TermMonths    int
	Scheme        ledger.PaymentType
}

// MortgageCalculation is the result of CalculateMortgage.
type MortgageCalculation struct {
	LoanAmount float64
	// MonthlyPayment is the first payment; it equals LastPayment for annuities.
	MonthlyPayment float64
	LastPayment    float64
	TotalPayment   float64
	Overpayment    float64
	// Schedule holds milestone rows only.
	Schedule   []Row
	Degenerate bool
}

// CalculateMortgage computes the plan for financing PropertyValue less DownPayment.
func CalculateMortgage(q MortgageQuery) (MortgageCalculation, error) {
	if q.PropertyValue <= 0 || q.DownPayment < 0 {
		return MortgageCalculation{}, errs.ErrInvalidAmount
	}
	loan := q.PropertyValue - q.DownPayment
	if loan <= 0 {
		return MortgageCalculation{}, errs.ErrInvalidAmount
	}
	if err := CheckTerm(q.TermMonths); err != nil {
		return MortgageCalculation{}, err
	}
	if q.AnnualRate < 0 {
		return MortgageCalculation{}, fmt.Errorf("annual_rate must not be negative: %w", errs.ErrInvalid)
	}
	s, err := Generate(Plan{Principal: loan, MonthlyRate: MonthlyRate(q.AnnualRate), TermMonths: q.TermMonths, Scheme: q.Scheme})
	if err != nil {
		return MortgageCalculation{}, err
	}
	total, interest := s.Totals()
	out := MortgageCalculation{
		LoanAmount:   loan,
		TotalPayment: total,
		Overpayment:  interest,
		Schedule:     Milestones(s.Rows, q.TermMonths),
		Degenerate:   s.Degenerate,
	}
	if len(s.Rows) > 0 {
		out.MonthlyPayment = s.Rows[0].Payment
		out.LastPayment = s.Rows[len(s.Rows)-1].Payment
	}
	return out, nil
}
