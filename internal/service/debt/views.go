package debt

import (
	"math"
	"sort"
	"time"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/ledger"
)

// soonDays is the horizon within which a payment is flagged as due soon.
const soonDays = 5

// Progress is derived from a debt's stored state as of a given day.
type Progress struct {
	MonthsPaid       int
	TotalPaid        float64
	ProgressPercent  float64
	DaysUntilPayment int
	IsPaymentSoon    bool
}

type CreditView struct {
	ledger.Credit
	Progress
	PaidInterest         float64
	TotalOverpayment     float64
	RemainingOverpayment float64
}

type MortgageView struct {
	ledger.Mortgage
	Progress
	Overpayment       float64
	MonthsSaved       int
	MonthlyExtraCosts float64
	TotalMonthlyCost  float64
	Equity            float64
}

func progress(d ledger.Debt, today time.Time) Progress {
	p := Progress{
		MonthsPaid: max(0, d.TermMonths-d.RemainingMonths),
		TotalPaid:  d.OriginalAmount - d.RemainingAmount,
	}
	if d.OriginalAmount > 0 {
		p.ProgressPercent = math.Round(p.TotalPaid/d.OriginalAmount*1000) / 10
	}
	if !d.NextPaymentDate.IsZero() {
		p.DaysUntilPayment = amortization.DaysUntil(d.NextPaymentDate, today)
		p.IsPaymentSoon = p.DaysUntilPayment <= soonDays
	}
	return p
}

// interest returns the lifetime interest of the plan and the part of it
// already paid after monthsPaid installments.
func interest(d ledger.Debt, monthsPaid int) (total, paid float64) {
	rate := d.MonthlyRate()
	if d.PaymentType != ledger.PaymentDifferentiated {
		total = d.MonthlyPayment*float64(d.TermMonths) - d.OriginalAmount
		_, paid, _ = amortization.Replay(d.OriginalAmount, rate, d.MonthlyPayment, monthsPaid)
		return total, paid
	}
	s, err := amortization.Generate(amortization.Plan{
		Principal:   d.OriginalAmount,
		MonthlyRate: rate,
		TermMonths:  d.TermMonths,
		Scheme:      ledger.PaymentDifferentiated,
	})
	if err != nil {
		return 0, 0
	}
	for _, r := range s.Rows {
		total += r.Interest
		if r.Month <= monthsPaid {
			paid += r.Interest
		}
	}
	return total, paid
}

// NewCreditView derives the progress and interest figures of c.
func NewCreditView(c ledger.Credit, today time.Time) CreditView {
	v := CreditView{Credit: c, Progress: progress(c.Debt, today)}
	v.TotalOverpayment, v.PaidInterest = interest(c.Debt, v.MonthsPaid)
	v.RemainingOverpayment = v.TotalOverpayment - v.PaidInterest
	return v
}

// NewMortgageView derives progress, ownership and carrying cost figures of m.
func NewMortgageView(m ledger.Mortgage, today time.Time) MortgageView {
	v := MortgageView{Mortgage: m, Progress: progress(m.Debt, today)}
	v.Overpayment, _ = interest(m.Debt, v.MonthsPaid)
	if m.ExtraPaymentsTotal > 0 && m.MonthlyPayment > 0 {
		v.MonthsSaved = int(math.Floor(m.ExtraPaymentsTotal / m.MonthlyPayment))
	}
	v.MonthlyExtraCosts = (m.InsuranceYearly + m.PropertyTaxYearly) / 12
	v.TotalMonthlyCost = m.MonthlyPayment + v.MonthlyExtraCosts
	v.Equity = m.PropertyValue - m.RemainingAmount
	return v
}

func sortByNextPayment[T any](vs []T, next func(T) time.Time) {
	sort.SliceStable(vs, func(i, j int) bool { return next(vs[i]).Before(next(vs[j])) })
}
