package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
)

func TestInTxDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc := ledger.Account{ID: uuid.New(), Name: "Cash", Type: ledger.AccountTypeCash, Balance: 10}
	s.SeedAccount(acc)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.GetAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		a.Balance = 999
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		// reads inside the unit see its own writes
		if got, _ := tx.GetAccount(ctx, acc.ID); got.Balance != 999 {
			t.Fatalf("tx read balance %v", got.Balance)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.GetAccount(ctx, acc.ID)
	if got.Balance != 10 {
		t.Fatalf("balance leaked from failed unit: %v", got.Balance)
	}

	if err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		a, _ := tx.GetAccount(ctx, acc.ID)
		a.Balance = 20
		return tx.UpdateAccount(ctx, a)
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, _ = s.GetAccount(ctx, acc.ID)
	if got.Balance != 20 {
		t.Fatalf("balance not committed: %v", got.Balance)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	tax := ledger.Account{ID: uuid.New(), Name: "Tax", Type: ledger.AccountTypeTaxReserve}
	biz := ledger.Account{ID: uuid.New(), Name: "Biz", Type: ledger.AccountTypeBusiness, TaxRate: 6, LinkedTaxAccountID: &tax.ID}
	other := ledger.Account{ID: uuid.New(), Name: "Cash", Type: ledger.AccountTypeCash}
	s.SeedAccount(tax)
	s.SeedAccount(biz)
	s.SeedAccount(other)

	in := ledger.Transaction{ID: uuid.New(), Type: ledger.TransactionTransfer, Amount: 5, Date: time.Now(), AccountID: other.ID, ToAccountID: &tax.ID}
	keep := ledger.Transaction{ID: uuid.New(), Type: ledger.TransactionIncome, Amount: 5, Date: time.Now(), AccountID: other.ID}
	reserve := ledger.TaxReserve{ID: uuid.New(), BusinessAccountID: biz.ID, TaxAccountID: tax.ID}
	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.CreateTransaction(ctx, in); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, keep); err != nil {
			return err
		}
		return tx.CreateTaxReserve(ctx, reserve)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.DeleteAccount(ctx, tax.ID) }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, in.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("referencing transaction should be gone, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, keep.ID); err != nil {
		t.Fatalf("unrelated transaction removed: %v", err)
	}
	rs, _ := s.ListTaxReserves(ctx, storage.TaxReserveFilter{})
	if len(rs) != 0 {
		t.Fatalf("expected reserves removed, got %d", len(rs))
	}
	b, _ := s.GetAccount(ctx, biz.ID)
	if b.LinkedTaxAccountID != nil {
		t.Fatalf("link to deleted account not cleared")
	}
}

func TestListTransactionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := uuid.New()
	b := uuid.New()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txs := []ledger.Transaction{
		{ID: uuid.New(), Type: ledger.TransactionExpense, Amount: 1, Date: day, AccountID: a},
		{ID: uuid.New(), Type: ledger.TransactionTransfer, Amount: 2, Date: day.AddDate(0, 0, 2), AccountID: b, ToAccountID: &a},
		{ID: uuid.New(), Type: ledger.TransactionIncome, Amount: 3, Date: day.AddDate(0, 0, 1), AccountID: b},
	}
	_ = s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, x := range txs {
			if err := tx.CreateTransaction(ctx, x); err != nil {
				return err
			}
		}
		return nil
	})
	got, _ := s.ListTransactions(ctx, storage.TransactionFilter{AccountID: &a})
	if len(got) != 2 || got[0].Amount != 2 || got[1].Amount != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
	got, _ = s.ListTransactions(ctx, storage.TransactionFilter{Limit: 1})
	if len(got) != 1 || got[0].Amount != 2 {
		t.Fatalf("limit/order broken: %+v", got)
	}
}

func TestInvestmentsCascadeWithAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	broker := ledger.Account{ID: uuid.New(), Name: "Broker", Type: ledger.AccountTypeInvestment}
	s.SeedAccount(broker)
	pos := ledger.Investment{ID: uuid.New(), AccountID: broker.ID, Ticker: "SBER", Name: "Sberbank", AssetType: "stock", Quantity: 10, AvgBuyPrice: 250}
	buy := ledger.InvestmentTransaction{ID: uuid.New(), InvestmentID: pos.ID, Type: ledger.InvestmentBuy, Quantity: 10, Price: 250, TotalAmount: 2500}
	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.CreateInvestment(ctx, pos); err != nil {
			return err
		}
		return tx.CreateInvestmentTransaction(ctx, buy)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	dup := pos
	dup.ID = uuid.New()
	err = s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.CreateInvestment(ctx, dup) })
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected a second SBER position to conflict, got %v", err)
	}

	if err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.DeleteAccount(ctx, broker.ID) }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetInvestment(ctx, pos.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("position should be gone, got %v", err)
	}
	if _, err := s.GetInvestmentTransaction(ctx, buy.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("history should be gone, got %v", err)
	}
}

func TestListTaxPaymentsByYear(t *testing.T) {
	ctx := context.Background()
	s := New()
	mk := func(start, due time.Time) ledger.TaxPayment {
		return ledger.TaxPayment{ID: uuid.New(), TaxType: "usn", Amount: 100, PeriodStart: start, PeriodEnd: start.AddDate(0, 3, -1), DueDate: due}
	}
	q2 := mk(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 7, 28, 0, 0, 0, 0, time.UTC))
	q1 := mk(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 28, 0, 0, 0, 0, time.UTC))
	old := mk(time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 28, 0, 0, 0, 0, time.UTC))
	_ = s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		for _, p := range []ledger.TaxPayment{q2, q1, old} {
			if err := tx.CreateTaxPayment(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	got, _ := s.ListTaxPayments(ctx, storage.TaxPaymentFilter{Year: 2024})
	if len(got) != 2 || got[0].ID != q1.ID || got[1].ID != q2.ID {
		t.Fatalf("unexpected 2024 payments: %+v", got)
	}
	all, _ := s.ListTaxPayments(ctx, storage.TaxPaymentFilter{})
	if len(all) != 3 || all[0].ID != old.ID {
		t.Fatalf("unexpected payments: %+v", all)
	}
}
