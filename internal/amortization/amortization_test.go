package amortization

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
)

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestAnnuityPayment(t *testing.T) {
	m, err := AnnuityPayment(120000, MonthlyRate(12), 12)
	require.NoError(t, err)
	assert.InDelta(t, 10661.85, m, 0.01)

	m, err = AnnuityPayment(1200, 0, 12)
	require.NoError(t, err)
	assert.InDelta(t, 100, m, 1e-9)

	if _, err := AnnuityPayment(1000, 0.01, 0); !errors.Is(err, errs.ErrInvalidTerm) {
		t.Fatalf("expected ErrInvalidTerm, got %v", err)
	}
}

func TestGenerateAnnuityRepaysPrincipal(t *testing.T) {
	s, err := Generate(Plan{Principal: 120000, MonthlyRate: 0.01, TermMonths: 12})
	require.NoError(t, err)
	require.Len(t, s.Rows, 12)
	assert.False(t, s.Degenerate)

	var principal float64
	for _, r := range s.Rows {
		principal += r.Principal
		assert.InDelta(t, r.Payment, r.Principal+r.Interest, 1e-9)
	}
	assert.InDelta(t, 120000, principal, Epsilon)
	assert.InDelta(t, 0, s.Rows[11].Remaining, Epsilon)
	assert.InDelta(t, 1200, s.Rows[0].Interest, 1e-9)
	assert.InDelta(t, s.Rows[11].TotalPaid, 10661.85*12, 0.1)
}

func TestGenerateDifferentiated(t *testing.T) {
	s, err := Generate(Plan{Principal: 120000, MonthlyRate: 0.01, TermMonths: 12, Scheme: ledger.PaymentDifferentiated})
	require.NoError(t, err)
	require.Len(t, s.Rows, 12)
	for _, r := range s.Rows {
		assert.InDelta(t, 10000, r.Principal, 1e-6)
	}
	assert.InDelta(t, 11200, s.Rows[0].Payment, 1e-6)
	assert.InDelta(t, 10100, s.Rows[11].Payment, 1e-6)
	for i := 1; i < len(s.Rows); i++ {
		if s.Rows[i].Payment >= s.Rows[i-1].Payment {
			t.Fatalf("payment did not decrease at month %d", s.Rows[i].Month)
		}
	}
	_, interest := s.Totals()
	assert.InDelta(t, 7800, interest, 1e-6)
}

func TestGenerateExtraShortensTerm(t *testing.T) {
	base, err := Generate(Plan{Principal: 100000, MonthlyRate: 0.01, TermMonths: 24})
	require.NoError(t, err)
	fast, err := Generate(Plan{Principal: 100000, MonthlyRate: 0.01, TermMonths: 24, Extra: 5000, Elapsed: 3})
	require.NoError(t, err)

	assert.Less(t, len(fast.Rows), len(base.Rows))
	for i := 0; i < 3; i++ {
		assert.InDelta(t, base.Rows[i].Principal, fast.Rows[i].Principal, 1e-9)
		assert.True(t, fast.Rows[i].IsPaid)
	}
	assert.Greater(t, fast.Rows[3].Principal, base.Rows[3].Principal)
	last := fast.Rows[len(fast.Rows)-1]
	assert.InDelta(t, 0, last.Remaining, Epsilon)
}

func TestGenerateDegenerate(t *testing.T) {
	s, err := Generate(Plan{Principal: 100000, MonthlyRate: 0.01, TermMonths: 12, MonthlyPayment: 900})
	require.NoError(t, err)
	assert.True(t, s.Degenerate)
	assert.Empty(t, s.Rows)

	_, err = Generate(Plan{Principal: 100000, MonthlyRate: 0.01})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
}

func TestRemainingMonths(t *testing.T) {
	m, _ := AnnuityPayment(120000, 0.01, 12)
	n, degenerate := RemainingMonths(120000, 0.01, m, 12)
	assert.False(t, degenerate)
	assert.Equal(t, 12, n)

	n, _ = RemainingMonths(60000, 0.01, m, 12)
	assert.LessOrEqual(t, n, 12)
	assert.Greater(t, n, 0)

	n, degenerate = RemainingMonths(100000, 0.01, 500, 7)
	assert.True(t, degenerate)
	assert.Equal(t, 7, n)

	n, _ = RemainingMonths(1000, 0, 300, 12)
	assert.Equal(t, 4, n)

	n, _ = RemainingMonths(0.005, 0.01, 300, 12)
	assert.Equal(t, 0, n)
}

func TestReducedPayment(t *testing.T) {
	m, _ := AnnuityPayment(120000, 0.01, 12)
	p := ReducedPayment(ledger.PaymentAnnuity, 60000, 0.01, 12, m)
	assert.InDelta(t, m/2, p, 0.01)
	assert.Equal(t, m, ReducedPayment(ledger.PaymentAnnuity, 60000, 0.01, 0, m))
	assert.InDelta(t, 5600, ReducedPayment(ledger.PaymentDifferentiated, 60000, 0.01, 12, m), 1e-9)
}

func TestReplay(t *testing.T) {
	m, _ := AnnuityPayment(120000, 0.01, 12)
	rem, interest, degenerate := Replay(120000, 0.01, m, 12)
	assert.False(t, degenerate)
	assert.InDelta(t, 0, rem, Epsilon)
	assert.InDelta(t, m*12-120000, interest, 0.01)

	rem, _, degenerate = Replay(100000, 0.01, 900, 3)
	assert.True(t, degenerate)
	assert.Equal(t, 100000.0, rem)
}

func TestMonthsElapsed(t *testing.T) {
	start := date(2024, time.January, 15)
	assert.Equal(t, 4, MonthsElapsed(start, 15, date(2024, time.June, 10)))
	assert.Equal(t, 5, MonthsElapsed(start, 15, date(2024, time.June, 15)))
	assert.Equal(t, 0, MonthsElapsed(start, 15, date(2023, time.December, 1)))
	assert.Equal(t, 12, MonthsElapsed(start, 15, date(2025, time.January, 20)))
}

func TestMonthsElapsedLateMonthPaymentDay(t *testing.T) {
	start := date(2024, time.January, 31)
	// Payment day 31 falls due on the 28th, so February's installment counts by the 29th.
	assert.Equal(t, 1, MonthsElapsed(start, 31, date(2024, time.February, 29)))
	assert.Equal(t, 1, MonthsElapsed(start, 30, date(2024, time.February, 28)))
	assert.Equal(t, 0, MonthsElapsed(start, 31, date(2024, time.February, 27)))
	assert.Equal(t, 2, MonthsElapsed(start, 31, date(2024, time.March, 28)))
}

func TestTermUpperBound(t *testing.T) {
	_, err := Generate(Plan{Principal: 1000, MonthlyRate: 0.01, TermMonths: 1 << 50})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
	_, err = Generate(Plan{Principal: 1000, MonthlyRate: 0.01, TermMonths: MaxTermMonths + 1})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)

	s, err := Generate(Plan{Principal: 1000, MonthlyRate: 0.001, TermMonths: MaxTermMonths})
	require.NoError(t, err)
	assert.Len(t, s.Rows, MaxTermMonths)

	_, err = ComputeSchedule(CreditQuery{Principal: 1000, AnnualRate: 10, TermMonths: 1 << 62})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
	_, err = CalculateMortgage(MortgageQuery{PropertyValue: 1000, AnnualRate: 10, TermMonths: 1 << 62})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
}

func TestCalculatorsRejectNegativeRate(t *testing.T) {
	_, err := ComputeSchedule(CreditQuery{Principal: 1000, AnnualRate: -5, TermMonths: 12})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = CalculateMortgage(MortgageQuery{PropertyValue: 1000, DownPayment: 100, AnnualRate: -5, TermMonths: 12})
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestNextPaymentDate(t *testing.T) {
	assert.Equal(t, date(2024, time.February, 28), NextPaymentDate(date(2024, time.January, 31), 31))
	assert.Equal(t, date(2024, time.March, 10), NextPaymentDate(date(2024, time.March, 5), 10))
	assert.Equal(t, date(2024, time.April, 10), NextPaymentDate(date(2024, time.March, 10), 10))
	assert.Equal(t, date(2025, time.January, 5), AdvanceMonth(date(2024, time.December, 5), 5))
	assert.Equal(t, 3, DaysUntil(date(2024, time.March, 8), date(2024, time.March, 5)))
}

func TestComputeSchedule(t *testing.T) {
	start := date(2024, time.January, 10)
	calc, err := ComputeSchedule(CreditQuery{
		Principal:  120000,
		AnnualRate: 12,
		TermMonths: 12,
		Extra:      2000,
		StartDate:  &start,
		PaymentDay: 10,
		Today:      date(2024, time.April, 12),
	})
	require.NoError(t, err)
	assert.InDelta(t, 10661.85, calc.MonthlyPayment, 0.01)
	assert.Equal(t, 3, calc.MonthsPassed)
	assert.Equal(t, 9, calc.RemainingMonths)
	assert.InDelta(t, calc.Schedule[2].Remaining, calc.CurrentRemaining, 1e-9)
	assert.InDelta(t, 120000-calc.CurrentRemaining, calc.PaidPrincipal, 1e-6)

	require.NotNil(t, calc.WithExtra)
	assert.Less(t, calc.WithExtra.TermMonths, 12)
	assert.Greater(t, calc.WithExtra.Savings, 0.0)
	assert.Equal(t, 12-calc.WithExtra.TermMonths, calc.WithExtra.MonthsSaved)
	assert.InDelta(t, calc.MonthlyPayment+2000, calc.WithExtra.MonthlyPayment, 1e-9)

	noExtra, err := ComputeSchedule(CreditQuery{Principal: 1000, AnnualRate: 10, TermMonths: 10})
	require.NoError(t, err)
	assert.Nil(t, noExtra.WithExtra)
	assert.Equal(t, 0, noExtra.MonthsPassed)
	assert.Equal(t, 1000.0, noExtra.CurrentRemaining)

	_, err = ComputeSchedule(CreditQuery{Principal: 1000, AnnualRate: 10})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
}

func TestCalculateMortgage(t *testing.T) {
	calc, err := CalculateMortgage(MortgageQuery{PropertyValue: 5_000_000, DownPayment: 1_000_000, AnnualRate: 9, TermMonths: 240})
	require.NoError(t, err)
	assert.Equal(t, 4_000_000.0, calc.LoanAmount)
	assert.InDelta(t, calc.MonthlyPayment, calc.LastPayment, 0.01)
	// 12 first, 12 last and every twelfth month in between (24..228).
	assert.Len(t, calc.Schedule, 12+12+18)
	assert.InDelta(t, calc.TotalPayment-4_000_000, calc.Overpayment, 0.01)

	_, err = CalculateMortgage(MortgageQuery{PropertyValue: 100, DownPayment: 100, AnnualRate: 9, TermMonths: 12})
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}
