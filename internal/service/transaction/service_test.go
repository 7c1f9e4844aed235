package transaction

import (
	"context"
	"errors"
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

type fixture struct {
	store    *memory.Store
	svc      Service
	debit    ledger.Account
	business ledger.Account
	tax      ledger.Account
	card     ledger.Account
	cc       ledger.CreditCard
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	st := memory.New()
	f := fixture{store: st}
	f.debit = ledger.Account{ID: uuid.New(), Name: "Debit", Type: ledger.AccountTypeDebit, Balance: 100000}
	f.tax = ledger.Account{ID: uuid.New(), Name: "Tax", Type: ledger.AccountTypeTaxReserve}
	f.business = ledger.Account{ID: uuid.New(), Name: "Business", Type: ledger.AccountTypeBusiness, TaxRate: 6, LinkedTaxAccountID: &f.tax.ID}
	f.card = ledger.Account{ID: uuid.New(), Name: "Card", Type: ledger.AccountTypeCreditCard, CreditLimit: 50000}
	f.cc = ledger.CreditCard{ID: uuid.New(), AccountID: f.card.ID, CreditLimit: 50000, MinPaymentPercent: 5}
	for _, a := range []ledger.Account{f.debit, f.tax, f.business, f.card} {
		st.SeedAccount(a)
	}
	st.SeedCreditCard(f.cc)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.svc = New(st, testLogger(), opts...)
	return f
}

func (f fixture) balance(t *testing.T, id uuid.UUID) float64 {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}

func (f fixture) debt(t *testing.T) float64 {
	t.Helper()
	c, err := f.store.GetCreditCard(context.Background(), f.cc.ID)
	require.NoError(t, err)
	return c.CurrentDebt
}

func TestBusinessIncomeReservesTax(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	income, err := f.svc.Create(ctx, Input{Type: ledger.TransactionIncome, Amount: 100000, AccountID: f.business.ID})
	require.NoError(t, err)

	assert.InDelta(t, 94000, f.balance(t, f.business.ID), 1e-6)
	assert.InDelta(t, 6000, f.balance(t, f.tax.ID), 1e-6)

	rs, err := f.svc.ListTaxReserves(ctx, storage.TaxReserveFilter{})
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.True(t, rs[0].IsTransferred)
	assert.InDelta(t, 6000, rs[0].TaxAmount, 1e-9)

	children, _ := f.svc.List(ctx, storage.TransactionFilter{ParentID: &income.ID})
	require.Len(t, children, 1)
	assert.True(t, children[0].IsTaxTransfer)

	// system transfers cannot be edited or deleted on their own
	if err := f.svc.Delete(ctx, children[0].ID); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("expected ErrImmutable, got %v", err)
	}

	// deleting the income reverses the whole side effect
	require.NoError(t, f.svc.Delete(ctx, income.ID))
	assert.InDelta(t, 0, f.balance(t, f.business.ID), 1e-6)
	assert.InDelta(t, 0, f.balance(t, f.tax.ID), 1e-6)
	rs, _ = f.svc.ListTaxReserves(ctx, storage.TaxReserveFilter{})
	assert.Empty(t, rs)
	all, _ := f.svc.List(ctx, storage.TransactionFilter{})
	assert.Empty(t, all)
}

func TestEditIncomeRecomputesTax(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	income, err := f.svc.Create(ctx, Input{Type: ledger.TransactionIncome, Amount: 1000, AccountID: f.business.ID})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, income.ID, Input{Type: ledger.TransactionIncome, Amount: 2000, AccountID: f.business.ID})
	require.NoError(t, err)
	assert.InDelta(t, 1880, f.balance(t, f.business.ID), 1e-6)
	assert.InDelta(t, 120, f.balance(t, f.tax.ID), 1e-6)
	rs, _ := f.svc.ListTaxReserves(ctx, storage.TaxReserveFilter{})
	require.Len(t, rs, 1)
	assert.InDelta(t, 120, rs[0].TaxAmount, 1e-9)
}

func TestPendingReservesAndSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithTaxAutoTransfer(false))

	for _, amt := range []float64{1000, 3000} {
		_, err := f.svc.Create(ctx, Input{Type: ledger.TransactionIncome, Amount: amt, AccountID: f.business.ID})
		require.NoError(t, err)
	}
	assert.InDelta(t, 4000, f.balance(t, f.business.ID), 1e-6)
	pending := true
	rs, _ := f.svc.ListTaxReserves(ctx, storage.TaxReserveFilter{Pending: &pending})
	require.Len(t, rs, 2)

	out, err := f.svc.TransferTaxReserve(ctx, f.business.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Reserves)
	assert.InDelta(t, 240, out.Amount, 1e-9)
	assert.InDelta(t, 3760, f.balance(t, f.business.ID), 1e-6)
	assert.InDelta(t, 240, f.balance(t, f.tax.ID), 1e-6)

	_, err = f.svc.TransferTaxReserve(ctx, f.business.ID)
	assert.ErrorIs(t, err, ErrNothingPending)
	assert.ErrorIs(t, err, errs.ErrUnprocessable)

	// deleting the sweep puts the money back and reopens the reserves
	require.NoError(t, f.svc.Delete(ctx, out.Transaction.ID))
	assert.InDelta(t, 4000, f.balance(t, f.business.ID), 1e-6)
	rs, _ = f.svc.ListTaxReserves(ctx, storage.TaxReserveFilter{Pending: &pending})
	assert.Len(t, rs, 2)
}

func TestSweptIncomeCannotBeChanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithTaxAutoTransfer(false))

	inc, err := f.svc.Create(ctx, Input{Type: ledger.TransactionIncome, Amount: 1000, AccountID: f.business.ID})
	require.NoError(t, err)
	out, err := f.svc.TransferTaxReserve(ctx, f.business.ID)
	require.NoError(t, err)
	assert.InDelta(t, 940, f.balance(t, f.business.ID), 1e-9)
	assert.InDelta(t, 60, f.balance(t, f.tax.ID), 1e-9)

	err = f.svc.Delete(ctx, inc.ID)
	assert.ErrorIs(t, err, ErrReserveSwept)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = f.svc.Update(ctx, inc.ID, Input{Type: ledger.TransactionIncome, Amount: 2000, AccountID: f.business.ID})
	assert.ErrorIs(t, err, errs.ErrConflict)

	// nothing moved
	assert.InDelta(t, 940, f.balance(t, f.business.ID), 1e-9)
	assert.InDelta(t, 60, f.balance(t, f.tax.ID), 1e-9)
	rs, _ := f.svc.ListTaxReserves(ctx, storage.TaxReserveFilter{SourceTransactionID: &inc.ID})
	require.Len(t, rs, 1)
	assert.True(t, rs[0].IsTransferred)

	// once the sweep is gone the income can go too
	require.NoError(t, f.svc.Delete(ctx, out.Transaction.ID))
	require.NoError(t, f.svc.Delete(ctx, inc.ID))
	assert.InDelta(t, 0, f.balance(t, f.business.ID), 1e-9)
	assert.InDelta(t, 0, f.balance(t, f.tax.ID), 1e-9)
}

func TestCardExpenseAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	exp, err := f.svc.Create(ctx, Input{Type: ledger.TransactionExpense, Amount: 5000, AccountID: f.card.ID})
	require.NoError(t, err)

	c, _ := f.store.GetCreditCard(ctx, f.cc.ID)
	assert.InDelta(t, 5000, c.CurrentDebt, 1e-9)
	assert.InDelta(t, 45000, c.AvailableLimit(), 1e-9)

	require.NoError(t, f.svc.Delete(ctx, exp.ID))
	assert.InDelta(t, 0, f.debt(t), 1e-9)
}

func TestTransferPaysOffCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cc := f.cc
	cc.CurrentDebt = 20000
	f.store.SeedCreditCard(cc)

	tr, err := f.svc.Create(ctx, Input{Type: ledger.TransactionTransfer, Amount: 20000, AccountID: f.debit.ID, ToAccountID: &f.card.ID})
	require.NoError(t, err)
	assert.InDelta(t, 0, f.debt(t), 1e-9)
	assert.InDelta(t, 80000, f.balance(t, f.debit.ID), 1e-9)
	assert.InDelta(t, 20000, tr.CardPayoff, 1e-9)
}

func TestOverpaymentRollbackRestoresDebt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cc := f.cc
	cc.CurrentDebt = 300
	f.store.SeedCreditCard(cc)

	tr, err := f.svc.PayCreditCard(ctx, f.cc.ID, f.debit.ID, 1000, time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 0, f.debt(t), 1e-9)
	assert.InDelta(t, 300, tr.CardPayoff, 1e-9)

	require.NoError(t, f.svc.Delete(ctx, tr.ID))
	assert.InDelta(t, 300, f.debt(t), 1e-9)
	assert.InDelta(t, 100000, f.balance(t, f.debit.ID), 1e-9)
}

// Every combination of type and account kinds must roll back to the exact
// pre-apply state.
func TestApplyRollbackInverse(t *testing.T) {
	ctx := context.Background()
	kinds := []ledger.AccountType{ledger.AccountTypeDebit, ledger.AccountTypeCreditCard, ledger.AccountTypeBusiness, ledger.AccountTypeTaxReserve}
	for _, typ := range []ledger.TransactionType{ledger.TransactionIncome, ledger.TransactionExpense, ledger.TransactionTransfer} {
		for _, srcKind := range kinds {
			for _, dstKind := range kinds {
				st := memory.New()
				src := ledger.Account{ID: uuid.New(), Type: srcKind, Balance: 500}
				dst := ledger.Account{ID: uuid.New(), Type: dstKind, Balance: -70}
				st.SeedAccount(src)
				st.SeedAccount(dst)
				if srcKind == ledger.AccountTypeCreditCard {
					st.SeedCreditCard(ledger.CreditCard{ID: uuid.New(), AccountID: src.ID, CurrentDebt: 40})
				}
				if dstKind == ledger.AccountTypeCreditCard {
					st.SeedCreditCard(ledger.CreditCard{ID: uuid.New(), AccountID: dst.ID, CurrentDebt: 90})
				}
				before := snapshot(t, st)
				tr := ledger.Transaction{ID: uuid.New(), Type: typ, Amount: 123.45, AccountID: src.ID}
				if typ == ledger.TransactionTransfer {
					tr.ToAccountID = &dst.ID
				}
				err := st.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
					if err := Apply(ctx, tx, &tr); err != nil {
						return err
					}
					return Rollback(ctx, tx, tr)
				})
				require.NoError(t, err)
				after := snapshot(t, st)
				for k, v := range before {
					assert.InDelta(t, v, after[k], 1e-6, "%s %s->%s %s", typ, srcKind, dstKind, k)
				}
				for _, c := range mustCards(t, st) {
					assert.GreaterOrEqual(t, c.CurrentDebt, 0.0)
				}
			}
		}
	}
}

func snapshot(t *testing.T, st *memory.Store) map[string]float64 {
	t.Helper()
	out := map[string]float64{}
	accs, err := st.ListAccounts(context.Background())
	require.NoError(t, err)
	for _, a := range accs {
		out["balance:"+a.ID.String()] = a.Balance
	}
	for _, c := range mustCards(t, st) {
		out["debt:"+c.ID.String()] = c.CurrentDebt
	}
	return out
}

func mustCards(t *testing.T, st *memory.Store) []ledger.CreditCard {
	t.Helper()
	cs, err := st.ListCreditCards(context.Background())
	require.NoError(t, err)
	return cs
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	acc := uuid.New()
	cases := []struct {
		name string
		in   Input
		want error
	}{
		{"zero amount", Input{Type: ledger.TransactionExpense, Amount: 0, AccountID: acc}, errs.ErrInvalidAmount},
		{"negative amount", Input{Type: ledger.TransactionExpense, Amount: -5, AccountID: acc}, errs.ErrInvalidAmount},
		{"bad type", Input{Type: "gift", Amount: 5, AccountID: acc}, errs.ErrInvalid},
		{"transfer without target", Input{Type: ledger.TransactionTransfer, Amount: 5, AccountID: acc}, errs.ErrInvalid},
		{"transfer to self", Input{Type: ledger.TransactionTransfer, Amount: 5, AccountID: acc, ToAccountID: &acc}, errs.ErrInvalid},
		{"bad tag", Input{Type: ledger.TransactionExpense, Amount: 5, AccountID: acc, Tags: []string{"!"}}, ErrInvalidTag},
	}
	for _, tc := range cases {
		if err := f.svc.Validate(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if err := f.svc.Validate(Input{Type: ledger.TransactionExpense, Amount: 5, AccountID: acc, Tags: []string{"Food & Drink"}}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
}

func TestCreateUnknownAccountLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	missing := uuid.New()
	_, err := f.svc.Create(ctx, Input{Type: ledger.TransactionTransfer, Amount: 10, AccountID: f.debit.ID, ToAccountID: &missing})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.InDelta(t, 100000, f.balance(t, f.debit.ID), 1e-9)
	all, _ := f.svc.List(ctx, storage.TransactionFilter{})
	assert.Empty(t, all)
}

func TestCreateNormalisesTagsAndDate(t *testing.T) {
	f := newFixture(t)
	tr, err := f.svc.Create(context.Background(), Input{Type: ledger.TransactionExpense, Amount: 10, AccountID: f.debit.ID, Tags: []string{"Food & Drink", "food_drink", "Rent"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"food_drink", "rent"}, tr.Tags)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), tr.Date)
}
