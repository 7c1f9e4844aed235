package taxes

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
	"github.com/tinoosan/homeledger/internal/storage/memory"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var fixedNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func newService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, testLogger(), WithClock(func() time.Time { return fixedNow })), st
}

func quarter(y int, q int, amount float64) Input {
	start := day(y, time.Month(3*(q-1)+1), 1)
	return Input{
		TaxType:     "usn",
		Amount:      amount,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 3, -1),
		DueDate:     start.AddDate(0, 3, 27),
	}
}

func TestCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	p, err := svc.Create(ctx, quarter(2024, 1, 9000))
	require.NoError(t, err)
	assert.Equal(t, day(2024, time.April, 28), p.DueDate)
	assert.False(t, p.IsPaid)

	_, err = svc.Create(ctx, Input{Amount: 10, PeriodStart: fixedNow, PeriodEnd: fixedNow, DueDate: fixedNow})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	bad := quarter(2024, 1, 0)
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	bad = quarter(2024, 1, 10)
	bad.PeriodEnd = bad.PeriodStart.AddDate(0, 0, -1)
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	bad = quarter(2024, 1, 10)
	bad.DueDate = time.Time{}
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestUpdatePayAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	p, err := svc.Create(ctx, quarter(2024, 1, 9000))
	require.NoError(t, err)

	v, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, v.Overdue)

	amount := 9500.0
	due := day(2024, time.June, 1)
	p, err = svc.Update(ctx, p.ID, Patch{Amount: &amount, DueDate: &due})
	require.NoError(t, err)
	assert.InDelta(t, 9500, p.Amount, 1e-9)
	v, _ = svc.Get(ctx, p.ID)
	assert.False(t, v.Overdue)

	zero := 0.0
	_, err = svc.Update(ctx, p.ID, Patch{Amount: &zero})
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)

	p, err = svc.Pay(ctx, p.ID, time.Time{})
	require.NoError(t, err)
	assert.True(t, p.IsPaid)
	require.NotNil(t, p.PaidDate)
	assert.Equal(t, day(2024, time.May, 20), *p.PaidDate)

	_, err = svc.Pay(ctx, p.ID, time.Time{})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.ErrorIs(t, err, errs.ErrConflict)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), errs.ErrNotFound)
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	q1, err := svc.Create(ctx, quarter(2024, 1, 9000))
	require.NoError(t, err)
	_, err = svc.Create(ctx, quarter(2024, 2, 12000))
	require.NoError(t, err)
	_, err = svc.Create(ctx, quarter(2023, 4, 7000))
	require.NoError(t, err)
	_, err = svc.Pay(ctx, q1.ID, day(2024, time.April, 25))
	require.NoError(t, err)

	taxAcc := ledger.Account{ID: uuid.New(), Name: "Tax", Type: ledger.AccountTypeTaxReserve, Balance: 600}
	shop := ledger.Account{ID: uuid.New(), Name: "Shop", Type: ledger.AccountTypeBusiness, TaxRate: 6, LinkedTaxAccountID: &taxAcc.ID}
	st.SeedAccount(taxAcc)
	st.SeedAccount(shop)
	transfer := uuid.New()
	reserves := []ledger.TaxReserve{
		{ID: uuid.New(), BusinessAccountID: shop.ID, TaxAccountID: taxAcc.ID, IncomeAmount: 10000, TaxAmount: 600, TaxRate: 6, Date: day(2024, time.March, 3), IsTransferred: true, TransferTransactionID: &transfer},
		{ID: uuid.New(), BusinessAccountID: shop.ID, TaxAccountID: taxAcc.ID, IncomeAmount: 5000, TaxAmount: 300, TaxRate: 6, Date: day(2024, time.May, 3)},
		{ID: uuid.New(), BusinessAccountID: shop.ID, TaxAccountID: taxAcc.ID, IncomeAmount: 1000, TaxAmount: 60, TaxRate: 6, Date: day(2023, time.December, 3)},
	}
	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, r := range reserves {
			if err := tx.CreateTaxReserve(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	o, err := svc.Overview(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2024, o.Year)
	require.Len(t, o.Payments, 2)
	assert.Equal(t, q1.ID, o.Payments[0].ID)
	assert.False(t, o.Payments[0].Overdue)
	assert.False(t, o.Payments[1].Overdue)
	assert.InDelta(t, 9000, o.TotalPaid, 1e-9)
	assert.InDelta(t, 12000, o.TotalPending, 1e-9)

	require.Len(t, o.Reserves, 1)
	assert.Equal(t, ReserveTotals{AccountID: shop.ID, AccountName: "Shop", TotalIncome: 15000, TotalTax: 900, PendingTax: 300}, o.Reserves[0])
	assert.InDelta(t, 300, o.TotalReserves, 1e-9)
	require.Len(t, o.ReserveAccounts, 1)
	assert.InDelta(t, 600, o.TotalInReserveAccounts, 1e-9)

	last, err := svc.Overview(ctx, 2023)
	require.NoError(t, err)
	require.Len(t, last.Payments, 1)
	assert.True(t, last.Payments[0].Overdue)
	assert.InDelta(t, 60, last.TotalReserves, 1e-9)
}
