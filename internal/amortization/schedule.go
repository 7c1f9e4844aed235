package amortization

import (
	"fmt"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
)

// MaxTermMonths is the longest term accepted anywhere, a hundred years.
const MaxTermMonths = 1200

// CheckTerm rejects terms outside 1..MaxTermMonths.
func CheckTerm(months int) error {
	if months <= 0 || months > MaxTermMonths {
		return fmt.Errorf("term_months must be within 1..%d: %w", MaxTermMonths, errs.ErrInvalidTerm)
	}
	return nil
}

// Row is one month of a repayment schedule. Values are full precision;
// rounding belongs to the presentation layer.
type Row struct {
	Month     int
	Payment   float64
	Principal float64
	Interest  float64
	Remaining float64
	// TotalPaid is the running sum of principal and interest up to this row.
	TotalPaid float64
	// IsPaid marks rows that fall inside the already elapsed months.
	IsPaid bool
}

// Plan describes the loan a schedule is generated for.
type Plan struct {
	Principal   float64
	MonthlyRate float64
	TermMonths  int
	Scheme      ledger.PaymentType
	// MonthlyPayment overrides the annuity payment; zero derives it from the terms.
	MonthlyPayment float64
	// Extra is paid on top of every installment after Elapsed months.
	Extra   float64
	Elapsed int
}

// Schedule is the generated month-by-month plan.
type Schedule struct {
	MonthlyPayment float64
	Rows           []Row
	// Degenerate is set when the installment stopped covering interest and
	// generation was cut short.
	Degenerate bool
}

// Remaining returns the balance after the last generated row.
func (s Schedule) Remaining(principal float64) float64 {
	if len(s.Rows) == 0 {
		return principal
	}
	return s.Rows[len(s.Rows)-1].Remaining
}

// Totals sums payments and interest across the schedule.
func (s Schedule) Totals() (payment, interest float64) {
	for _, r := range s.Rows {
		payment += r.Payment
		interest += r.Interest
	}
	return payment, interest
}

// Generate builds the schedule for p. It stops once the balance is within
// Epsilon or after twice the nominal term, whichever comes first.
func Generate(p Plan) (Schedule, error) {
	if err := CheckTerm(p.TermMonths); err != nil {
		return Schedule{}, err
	}
	if p.Principal <= 0 {
		return Schedule{}, errs.ErrInvalidAmount
	}
	scheme := p.Scheme
	if scheme == "" {
		scheme = ledger.PaymentAnnuity
	}
	payment := p.MonthlyPayment
	if payment <= 0 {
		var err error
		payment, err = FirstPayment(scheme, p.Principal, p.MonthlyRate, p.TermMonths)
		if err != nil {
			return Schedule{}, err
		}
	}
	installment := p.Principal / float64(p.TermMonths)

	out := Schedule{MonthlyPayment: payment}
	remaining := p.Principal
	var totalPaid float64
	limit := 2 * p.TermMonths
	for month := 1; remaining > Epsilon && month <= limit; month++ {
		interest := remaining * p.MonthlyRate
		var principal float64
		if scheme == ledger.PaymentDifferentiated {
			principal = installment
		} else {
			principal = payment - interest
		}
		if p.Extra > 0 && month > p.Elapsed {
			principal += p.Extra
		}
		if principal <= 0 {
			out.Degenerate = true
			break
		}
		if principal > remaining {
			principal = remaining
		}
		remaining -= principal
		totalPaid += principal + interest
		out.Rows = append(out.Rows, Row{
			Month:     month,
			Payment:   principal + interest,
			Principal: principal,
			Interest:  interest,
			Remaining: remaining,
			TotalPaid: totalPaid,
			IsPaid:    month <= p.Elapsed,
		})
	}
	return out, nil
}

// Replay applies months fixed payments to principal and returns the balance
// left and the interest paid along the way. Months in which the payment does
// not cover interest leave the balance unchanged and mark the replay degenerate.
func Replay(principal, rate, payment float64, months int) (remaining, paidInterest float64, degenerate bool) {
	remaining = principal
	for i := 0; i < months && remaining > 0; i++ {
		interest := remaining * rate
		step := payment - interest
		if step <= 0 {
			degenerate = true
			continue
		}
		paidInterest += interest
		remaining -= step
		if remaining < 0 {
			remaining = 0
		}
	}
	return remaining, paidInterest, degenerate
}

// Milestones keeps the first and last year of rows plus every twelfth month.
func Milestones(rows []Row, termMonths int) []Row {
	var out []Row
	for _, r := range rows {
		if r.Month <= 12 || r.Month > termMonths-12 || r.Month%12 == 0 {
			out = append(out, r)
		}
	}
	return out
}
