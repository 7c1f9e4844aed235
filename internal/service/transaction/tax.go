package transaction

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/metrics"
	"github.com/tinoosan/homeledger/internal/storage"
)

// ErrNothingPending is returned when a business account has no reserve left to transfer.
var ErrNothingPending = fmt.Errorf("no pending tax reserves: %w", errs.ErrUnprocessable)

// reserveTax records the tax owed on a business income and, in auto-transfer
// mode, moves it to the linked tax account with a system transfer.
func (s *service) reserveTax(ctx context.Context, tx storage.Tx, income ledger.Transaction) error {
	biz, err := tx.GetAccount(ctx, income.AccountID)
	if err != nil {
		return err
	}
	if !biz.IsBusiness() || biz.TaxRate <= 0 || biz.LinkedTaxAccountID == nil {
		return nil
	}
	taxAcc, err := tx.GetAccount(ctx, *biz.LinkedTaxAccountID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	r := ledger.TaxReserve{
		ID:                  uuid.New(),
		BusinessAccountID:   biz.ID,
		TaxAccountID:        taxAcc.ID,
		SourceTransactionID: income.ID,
		IncomeAmount:        income.Amount,
		TaxAmount:           income.Amount * biz.TaxRate / 100,
		TaxRate:             biz.TaxRate,
		Date:                income.Date,
		CreatedAt:           s.now().UTC(),
	}
	if r.TaxAmount <= 0 {
		return nil
	}
	if s.autoTransfer {
		parent := income.ID
		transfer := ledger.Transaction{
			ID:            uuid.New(),
			Type:          ledger.TransactionTransfer,
			Amount:        r.TaxAmount,
			Date:          income.Date,
			Description:   "Tax reserve " + strconv.FormatFloat(biz.TaxRate, 'f', -1, 64) + "%",
			AccountID:     biz.ID,
			ToAccountID:   &taxAcc.ID,
			IsTaxTransfer: true,
			ParentID:      &parent,
			CreatedAt:     r.CreatedAt,
		}
		if err := Apply(ctx, tx, &transfer); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, transfer); err != nil {
			return err
		}
		r.IsTransferred = true
		r.TransferTransactionID = &transfer.ID
	}
	if err := tx.CreateTaxReserve(ctx, r); err != nil {
		return err
	}
	metrics.TaxReservesCreated.Inc()
	s.log.Info("tax reserved", "business_account_id", biz.ID, "tax", r.TaxAmount, "transferred", r.IsTransferred)
	return nil
}

// reopenReserves marks the reserves swept by transferID as pending again.
func (s *service) reopenReserves(ctx context.Context, tx storage.Tx, transferID uuid.UUID) error {
	rs, err := tx.ListTaxReserves(ctx, storage.TaxReserveFilter{TransferTransactionID: &transferID})
	if err != nil {
		return err
	}
	for _, r := range rs {
		r.IsTransferred = false
		r.TransferTransactionID = nil
		if err := tx.UpdateTaxReserve(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// TransferTaxReserve sweeps every pending reserve of a business account into
// its linked tax account with one transfer.
func (s *service) TransferTaxReserve(ctx context.Context, businessAccountID uuid.UUID) (TaxTransfer, error) {
	var out TaxTransfer
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		biz, err := tx.GetAccount(ctx, businessAccountID)
		if err != nil {
			return err
		}
		if !biz.IsBusiness() {
			return fmt.Errorf("account is not a business account: %w", errs.ErrInvalid)
		}
		if biz.LinkedTaxAccountID == nil {
			return fmt.Errorf("no linked tax account: %w", errs.ErrUnprocessable)
		}
		pending := true
		rs, err := tx.ListTaxReserves(ctx, storage.TaxReserveFilter{BusinessAccountID: &biz.ID, Pending: &pending})
		if err != nil {
			return err
		}
		var total float64
		for _, r := range rs {
			total += r.TaxAmount
		}
		if len(rs) == 0 || total <= 0 {
			return ErrNothingPending
		}
		now := s.now()
		t := ledger.Transaction{
			ID:            uuid.New(),
			Type:          ledger.TransactionTransfer,
			Amount:        total,
			Date:          amortization.Day(now),
			Description:   "Tax reserve transfer",
			AccountID:     biz.ID,
			ToAccountID:   biz.LinkedTaxAccountID,
			IsTaxTransfer: true,
			CreatedAt:     now.UTC(),
		}
		if err := Apply(ctx, tx, &t); err != nil {
			return err
		}
		if err := tx.CreateTransaction(ctx, t); err != nil {
			return err
		}
		for _, r := range rs {
			r.IsTransferred = true
			r.TransferTransactionID = &t.ID
			if err := tx.UpdateTaxReserve(ctx, r); err != nil {
				return err
			}
		}
		out = TaxTransfer{Transaction: t, Reserves: len(rs), Amount: total}
		return nil
	})
	if err != nil {
		return TaxTransfer{}, err
	}
	metrics.TransactionsApplied.WithLabelValues(string(ledger.TransactionTransfer), "apply").Inc()
	s.log.Info("tax reserves transferred", "business_account_id", businessAccountID, "amount", out.Amount, "reserves", out.Reserves)
	return out, nil
}

func (s *service) ListTaxReserves(ctx context.Context, f storage.TaxReserveFilter) ([]ledger.TaxReserve, error) {
	return s.store.ListTaxReserves(ctx, f)
}
