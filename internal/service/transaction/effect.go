package transaction

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
)

// Apply adds the effect of t to account and card state. For transfers into a
// credit card the debt actually paid off is recorded in t.CardPayoff.
func Apply(ctx context.Context, tx storage.Tx, t *ledger.Transaction) error {
	return transition(ctx, tx, t, 1)
}

// Rollback removes an effect previously added by Apply.
func Rollback(ctx context.Context, tx storage.Tx, t ledger.Transaction) error {
	return transition(ctx, tx, &t, -1)
}

// transition is the single mutation path for balances and card debt. sign is
// +1 to apply and -1 to roll back.
func transition(ctx context.Context, tx storage.Tx, t *ledger.Transaction, sign float64) error {
	if t.Amount <= 0 {
		return errs.ErrInvalidAmount
	}
	src, err := tx.GetAccount(ctx, t.AccountID)
	if err != nil {
		return fmt.Errorf("source account: %w", err)
	}
	amount := sign * t.Amount

	switch t.Type {
	case ledger.TransactionIncome:
		src.Balance += amount
		return tx.UpdateAccount(ctx, src)

	case ledger.TransactionExpense:
		src.Balance -= amount
		if err := tx.UpdateAccount(ctx, src); err != nil {
			return err
		}
		if src.Type == ledger.AccountTypeCreditCard {
			_, err := adjustDebt(ctx, tx, src.ID, amount)
			return err
		}
		return nil

	case ledger.TransactionTransfer:
		if t.ToAccountID == nil {
			return fmt.Errorf("transfer without destination: %w", errs.ErrInvalid)
		}
		dst, err := tx.GetAccount(ctx, *t.ToAccountID)
		if err != nil {
			return fmt.Errorf("destination account: %w", err)
		}
		src.Balance -= amount
		if err := tx.UpdateAccount(ctx, src); err != nil {
			return err
		}
		if src.Type == ledger.AccountTypeCreditCard {
			if _, err := adjustDebt(ctx, tx, src.ID, amount); err != nil {
				return err
			}
		}
		if dst.Type != ledger.AccountTypeCreditCard {
			dst.Balance += amount
			return tx.UpdateAccount(ctx, dst)
		}
		if sign > 0 {
			paid, err := adjustDebt(ctx, tx, dst.ID, -t.Amount)
			if err != nil {
				return err
			}
			t.CardPayoff = paid
			return nil
		}
		_, err = adjustDebt(ctx, tx, dst.ID, t.CardPayoff)
		return err
	}
	return fmt.Errorf("transaction type %q: %w", t.Type, errs.ErrInvalid)
}

// adjustDebt moves the card's debt by delta, clamped at zero, and returns the
// absolute change actually made. Accounts without a card row are left alone.
func adjustDebt(ctx context.Context, tx storage.Tx, accountID uuid.UUID, delta float64) (float64, error) {
	card, err := tx.CardByAccount(ctx, accountID)
	if errors.Is(err, errs.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	before := card.CurrentDebt
	card.CurrentDebt = math.Max(0, before+delta)
	if err := tx.UpdateCreditCard(ctx, card); err != nil {
		return 0, err
	}
	return math.Abs(card.CurrentDebt - before), nil
}
