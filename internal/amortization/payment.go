// Package amortization computes loan payments and schedules for annuity and
// differentiated (equal principal) repayment. Everything here is pure: no
// clocks are read and no state is kept, so callers pass "today" explicitly.
package amortization

import (
	"math"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
)

// Epsilon is the currency tolerance below which a balance counts as repaid.
const Epsilon = 0.01

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualPercent float64) float64 { return annualPercent / 100 / 12 }

// AnnuityPayment returns the fixed monthly payment that repays principal over months.
func AnnuityPayment(principal, rate float64, months int) (float64, error) {
	if months <= 0 {
		return 0, errs.ErrInvalidTerm
	}
	if rate == 0 {
		return principal / float64(months), nil
	}
	f := math.Pow(1+rate, float64(months))
	return principal * rate * f / (f - 1), nil
}

// DifferentiatedPayment returns the payment due when remaining is outstanding
// under an equal-principal scheme with the given fixed installment.
func DifferentiatedPayment(installment, remaining, rate float64) float64 {
	return installment + remaining*rate
}

// FirstPayment returns the first monthly payment of a fresh loan under scheme.
func FirstPayment(scheme ledger.PaymentType, principal, rate float64, months int) (float64, error) {
	if scheme == ledger.PaymentDifferentiated {
		if months <= 0 {
			return 0, errs.ErrInvalidTerm
		}
		return DifferentiatedPayment(principal/float64(months), principal, rate), nil
	}
	return AnnuityPayment(principal, rate, months)
}

// RemainingMonths re-solves the term for balance at a fixed payment
// (term-reduction strategy). When the payment does not cover the accruing
// interest the result is fallback and degenerate is true.
func RemainingMonths(balance, rate, payment float64, fallback int) (months int, degenerate bool) {
	if balance <= Epsilon {
		return 0, false
	}
	if payment <= 0 {
		return fallback, true
	}
	if rate == 0 {
		return ceil(balance / payment), false
	}
	if payment <= balance*rate {
		return fallback, true
	}
	n := -math.Log(1-balance*rate/payment) / math.Log(1+rate)
	return ceil(n), false
}

// InstallmentMonths re-solves the term of an equal-principal loan.
func InstallmentMonths(balance, installment float64, fallback int) (months int, degenerate bool) {
	if balance <= Epsilon {
		return 0, false
	}
	if installment <= 0 {
		return fallback, true
	}
	return ceil(balance / installment), false
}

// ReducedPayment recomputes the payment for balance over the same remaining
// months (payment-reduction strategy). With no months left current is kept.
func ReducedPayment(scheme ledger.PaymentType, balance, rate float64, remainingMonths int, current float64) float64 {
	if remainingMonths <= 0 {
		return current
	}
	p, err := FirstPayment(scheme, balance, rate, remainingMonths)
	if err != nil {
		return current
	}
	return p
}

// ceil rounds up while absorbing floating noise just above an integer.
func ceil(x float64) int {
	return int(math.Ceil(x - 1e-9))
}
