package debt

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage/memory"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var fixedNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, testLogger(), WithClock(func() time.Time { return fixedNow })), st
}

func zeroRateDebt() ledger.Debt {
	return ledger.Debt{
		ID:              uuid.New(),
		Name:            "Car",
		OriginalAmount:  120000,
		RemainingAmount: 120000,
		TermMonths:      12,
		RemainingMonths: 12,
		MonthlyPayment:  10000,
		PaymentType:     ledger.PaymentAnnuity,
		PaymentDay:      20,
		NextPaymentDate: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestPayRegular(t *testing.T) {
	d := zeroRateDebt()
	p := Pay(&d, 10000, false, ledger.ReduceTerm)
	assert.InDelta(t, 10000, p.Principal, 1e-9)
	assert.Zero(t, p.Interest)
	assert.InDelta(t, 110000, d.RemainingAmount, 1e-9)
	assert.Equal(t, 11, d.RemainingMonths)
	assert.Equal(t, time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC), d.NextPaymentDate)
}

func TestPayRegularSplitsInterest(t *testing.T) {
	d := zeroRateDebt()
	d.InterestRate = 12
	p := Pay(&d, 10000, false, ledger.ReduceTerm)
	assert.InDelta(t, 1200, p.Interest, 1e-9)
	assert.InDelta(t, 8800, p.Principal, 1e-9)
	assert.InDelta(t, 111200, d.RemainingAmount, 1e-9)
}

func TestPayExtraReducesTerm(t *testing.T) {
	d := zeroRateDebt()
	p := Pay(&d, 30000, true, ledger.ReduceTerm)
	assert.InDelta(t, 30000, p.Principal, 1e-9)
	assert.InDelta(t, 90000, d.RemainingAmount, 1e-9)
	assert.Equal(t, 9, d.RemainingMonths)
	assert.InDelta(t, 10000, d.MonthlyPayment, 1e-9)
	assert.InDelta(t, 30000, d.ExtraPaymentsTotal, 1e-9)
}

func TestPayExtraReducesPayment(t *testing.T) {
	d := zeroRateDebt()
	Pay(&d, 30000, true, ledger.ReducePayment)
	assert.Equal(t, 12, d.RemainingMonths)
	assert.InDelta(t, 7500, d.MonthlyPayment, 1e-9)
}

func TestPayExtraDifferentiatedUsesInstallment(t *testing.T) {
	d := zeroRateDebt()
	d.PaymentType = ledger.PaymentDifferentiated
	Pay(&d, 35000, true, ledger.ReduceTerm)
	// 85000 left at 10000 principal per month.
	assert.Equal(t, 9, d.RemainingMonths)
}

func TestPayExtraNeverExtendsTerm(t *testing.T) {
	d := zeroRateDebt()
	d.InterestRate = 24
	d.MonthlyPayment = 1000
	d.RemainingAmount = 100000
	p := Pay(&d, 100, true, ledger.ReduceTerm)
	assert.True(t, p.Degenerate)
	assert.Equal(t, 12, d.RemainingMonths)
}

func TestPayOffClearsTerm(t *testing.T) {
	d := zeroRateDebt()
	d.RemainingAmount = 5000
	next := d.NextPaymentDate
	p := Pay(&d, 10000, false, ledger.ReduceTerm)
	assert.InDelta(t, 5000, p.Principal, 1e-9)
	assert.Zero(t, d.RemainingAmount)
	assert.Zero(t, d.RemainingMonths)
	assert.Equal(t, next, d.NextPaymentDate)
}

func TestCreateCreditInfersProgress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	c, inf, err := svc.CreateCredit(ctx, CreditInput{Terms: Terms{
		Name:           "Car",
		OriginalAmount: 120000,
		TermMonths:     12,
		StartDate:      time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	assert.Equal(t, 4, inf.MonthsPassed)
	assert.InDelta(t, 10000, c.MonthlyPayment, 1e-9)
	assert.InDelta(t, 80000, c.RemainingAmount, 1e-9)
	assert.Equal(t, 8, c.RemainingMonths)
	assert.Equal(t, 20, c.PaymentDay)
	assert.Equal(t, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), c.NextPaymentDate)
	assert.Equal(t, "consumer", c.CreditType)

	v, err := svc.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, v.MonthsPaid)
	assert.InDelta(t, 40000, v.TotalPaid, 1e-9)
	assert.InDelta(t, 33.3, v.ProgressPercent, 1e-9)
	assert.Equal(t, 31, v.DaysUntilPayment)
	assert.False(t, v.IsPaymentSoon)
	assert.InDelta(t, 0, v.TotalOverpayment, 1e-6)
}

func TestCreateCreditWithGivenRemaining(t *testing.T) {
	svc, _ := newService(t)
	remaining := 50000.0
	c, _, err := svc.CreateCredit(context.Background(), CreditInput{Terms: Terms{
		Name:            "Loan",
		OriginalAmount:  120000,
		TermMonths:      12,
		MonthlyPayment:  10000,
		RemainingAmount: &remaining,
	}})
	require.NoError(t, err)
	assert.Equal(t, 5, c.RemainingMonths)
}

func TestCreateCreditValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.CreateCredit(ctx, CreditInput{Terms: Terms{Name: "x", OriginalAmount: 0, TermMonths: 12}})
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	_, _, err = svc.CreateCredit(ctx, CreditInput{Terms: Terms{Name: "x", OriginalAmount: 100, TermMonths: 0}})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
	_, _, err = svc.CreateCredit(ctx, CreditInput{Terms: Terms{OriginalAmount: 100, TermMonths: 12}})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, _, err = svc.CreateCredit(ctx, CreditInput{Terms: Terms{Name: "x", OriginalAmount: 100, TermMonths: 1 << 40}})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
	_, _, err = svc.CreateCredit(ctx, CreditInput{Terms: Terms{Name: "x", OriginalAmount: 100, TermMonths: amortization.MaxTermMonths + 1}})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)
}

func TestPayCredit(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	c := ledger.Credit{Debt: zeroRateDebt(), CreditType: "car"}
	c.Kind = ledger.DebtCredit
	st.SeedCredit(c)

	res, err := svc.PayCredit(ctx, c.ID, PaymentInput{Amount: 30000, IsExtra: true})
	require.NoError(t, err)
	assert.Equal(t, 9, res.RemainingMonths)
	assert.InDelta(t, 90000, res.RemainingAmount, 1e-9)

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.RemainingMonths)

	_, err = svc.PayCredit(ctx, c.ID, PaymentInput{Amount: 0})
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	_, err = svc.PayCredit(ctx, uuid.New(), PaymentInput{Amount: 10})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateCreditRevalidates(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	c := ledger.Credit{Debt: zeroRateDebt()}
	st.SeedCredit(c)

	bad := -1
	_, err := svc.UpdateCredit(ctx, c.ID, CreditPatch{Patch: Patch{TermMonths: &bad}})
	assert.ErrorIs(t, err, errs.ErrInvalidTerm)

	name := "Renamed"
	kind := "auto"
	got, err := svc.UpdateCredit(ctx, c.ID, CreditPatch{Patch: Patch{Name: &name}, CreditType: &kind})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "auto", got.CreditType)
	assert.Equal(t, 12, got.RemainingMonths)
}

func TestMortgageLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	m, _, err := svc.CreateMortgage(ctx, MortgageInput{
		Terms: Terms{
			Name:       "Flat",
			TermMonths: 240,
			StartDate:  fixedNow,
		},
		PropertyValue:     5000000,
		DownPayment:       1000000,
		InsuranceYearly:   12000,
		PropertyTaxYearly: 6000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 4000000, m.OriginalAmount, 1e-6)
	assert.Equal(t, 240, m.RemainingMonths)

	_, err = svc.PayMortgage(ctx, m.ID, PaymentInput{Amount: 60000, IsExtra: true, Date: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = svc.PayMortgage(ctx, m.ID, PaymentInput{Amount: m.MonthlyPayment, Date: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	ps, err := svc.MortgagePayments(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.False(t, ps[0].IsExtra)
	assert.True(t, ps[1].IsExtra)
	assert.Equal(t, ledger.ReduceTerm, ps[1].ReduceType)

	v, err := svc.GetMortgage(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, v.MonthsSaved)
	assert.InDelta(t, 1500, v.MonthlyExtraCosts, 1e-9)
	assert.InDelta(t, m.MonthlyPayment+1500, v.TotalMonthlyCost, 1e-9)
	assert.InDelta(t, 5000000-v.RemainingAmount, v.Equity, 1e-6)
	assert.Less(t, v.RemainingMonths, 240)

	require.NoError(t, svc.DeleteMortgage(ctx, m.ID))
	_, err = svc.MortgagePayments(ctx, m.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListCreditsSortedByNextPayment(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	late := ledger.Credit{Debt: zeroRateDebt()}
	early := ledger.Credit{Debt: zeroRateDebt()}
	early.NextPaymentDate = time.Date(2024, 5, 22, 0, 0, 0, 0, time.UTC)
	st.SeedCredit(late)
	st.SeedCredit(early)

	vs, err := svc.ListCredits(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, early.ID, vs[0].ID)
	assert.True(t, vs[0].IsPaymentSoon)
	assert.Equal(t, 2, vs[0].DaysUntilPayment)
}
