package account

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

func newService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func TestCreateCreditCardAccount(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	v, err := svc.Create(ctx, Input{
		Name:        "Platinum",
		Type:        ledger.AccountTypeCreditCard,
		CreditLimit: 100000,
		Card:        CardTerms{CurrentDebt: -25000},
	})
	require.NoError(t, err)
	require.NotNil(t, v.Card)
	assert.InDelta(t, 25000, v.Card.CurrentDebt, 1e-9)
	assert.InDelta(t, -25000, v.Balance, 1e-9)
	assert.InDelta(t, 75000, v.AvailableLimit, 1e-9)
	assert.InDelta(t, 1250, v.MinPayment, 1e-9)
	assert.InDelta(t, 25, v.Utilization, 1e-9)
	assert.Equal(t, DefaultPaymentDueDay, v.Card.PaymentDueDay)

	cards, err := st.ListCreditCards(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Create(ctx, Input{Name: "Main"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "main"})
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, Input{Name: ""})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = svc.Create(ctx, Input{Name: "x", Type: "crypto"})
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = svc.Create(ctx, Input{Name: "x", Type: ledger.AccountTypeBusiness, TaxRate: 120})
	assert.ErrorIs(t, err, errs.ErrInvalid)

	debit, err := svc.Create(ctx, Input{Name: "Debit"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Name: "Biz", Type: ledger.AccountTypeBusiness, TaxRate: 6, LinkedTaxAccountID: &debit.ID})
	assert.ErrorIs(t, err, errs.ErrUnprocessable)
}

func TestBusinessAndTaxViews(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	tax, err := svc.Create(ctx, Input{Name: "Tax", Type: ledger.AccountTypeTaxReserve})
	require.NoError(t, err)
	biz, err := svc.Create(ctx, Input{Name: "Biz", Type: ledger.AccountTypeBusiness, TaxRate: 6, LinkedTaxAccountID: &tax.ID})
	require.NoError(t, err)

	require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateTaxReserve(ctx, ledger.TaxReserve{
			ID: uuid.New(), BusinessAccountID: biz.ID, TaxAccountID: tax.ID,
			SourceTransactionID: uuid.New(), IncomeAmount: 10000, TaxAmount: 600, TaxRate: 6,
			Date: time.Now().UTC(),
		})
	}))

	bv, err := svc.Get(ctx, biz.ID)
	require.NoError(t, err)
	assert.InDelta(t, 600, bv.PendingTax, 1e-9)

	tv, err := svc.Get(ctx, tax.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{biz.ID}, tv.LinkedBusinessAccounts)
}

func TestUpdateKeepsBalance(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	a, err := svc.Create(ctx, Input{Name: "Wallet", Type: ledger.AccountTypeCash, Balance: 500})
	require.NoError(t, err)

	name := "Pocket"
	v, err := svc.Update(ctx, a.ID, Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Pocket", v.Name)
	assert.InDelta(t, 500, v.Balance, 1e-9)

	_, err = svc.Update(ctx, uuid.New(), Patch{Name: &name})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListOrdersAndFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	for _, in := range []Input{
		{Name: "B", Type: ledger.AccountTypeSavings},
		{Name: "Z", Type: ledger.AccountTypeCash},
		{Name: "A", Type: ledger.AccountTypeSavings},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}
	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Z", all[0].Name)
	assert.Equal(t, "A", all[1].Name)

	savings, err := svc.List(ctx, ledger.AccountTypeSavings)
	require.NoError(t, err)
	assert.Len(t, savings, 2)
}

func TestCardTermsAndDebtCorrection(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	v, err := svc.Create(ctx, Input{Name: "Card", Type: ledger.AccountTypeCreditCard, CreditLimit: 1000})
	require.NoError(t, err)

	limit := 2000.0
	c, err := svc.UpdateCard(ctx, v.Card.ID, CardPatch{CreditLimit: &limit})
	require.NoError(t, err)
	assert.InDelta(t, 2000, c.CreditLimit, 1e-9)
	a, err := st.GetAccount(ctx, v.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2000, a.CreditLimit, 1e-9)

	bad := 0
	_, err = svc.UpdateCard(ctx, v.Card.ID, CardPatch{StatementDay: &bad})
	assert.ErrorIs(t, err, errs.ErrInvalid)

	c, err = svc.SetCardDebt(ctx, v.Card.ID, -300)
	require.NoError(t, err)
	assert.InDelta(t, 300, c.CurrentDebt, 1e-9)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	v, err := svc.Create(ctx, Input{Name: "Card", Type: ledger.AccountTypeCreditCard})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, v.ID))
	_, err = svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	cards, err := st.ListCreditCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}
