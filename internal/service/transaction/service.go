// Package transaction implements the ledger: transactions are the audit log
// and every create, edit and delete moves account balances and card debt
// through the same apply/rollback transition.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/metrics"
	"github.com/tinoosan/homeledger/internal/slug"
	"github.com/tinoosan/homeledger/internal/storage"
)

// Input carries the user-editable fields of a transaction.
type Input struct {
	Type        ledger.TransactionType
	Amount      float64
	Date        time.Time
	Description string
	AccountID   uuid.UUID
	ToAccountID *uuid.UUID
	CategoryID  *uuid.UUID
	StoreID     *uuid.UUID
	Tags        []string
}

// TaxTransfer is the outcome of sweeping pending tax reserves.
type TaxTransfer struct {
	Transaction ledger.Transaction
	Reserves    int
	Amount      float64
}

type Service interface {
	Validate(in Input) error
	Create(ctx context.Context, in Input) (ledger.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (ledger.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (ledger.Transaction, error)
	List(ctx context.Context, f storage.TransactionFilter) ([]ledger.Transaction, error)
	PayCreditCard(ctx context.Context, cardID, fromAccountID uuid.UUID, amount float64, date time.Time) (ledger.Transaction, error)
	TransferTaxReserve(ctx context.Context, businessAccountID uuid.UUID) (TaxTransfer, error)
	ListTaxReserves(ctx context.Context, f storage.TaxReserveFilter) ([]ledger.TaxReserve, error)
}

type service struct {
	store        storage.Store
	log          *slog.Logger
	now          func() time.Time
	autoTransfer bool
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithTaxAutoTransfer controls whether business income moves its tax to the
// linked tax account immediately (the default) or leaves a pending reserve.
func WithTaxAutoTransfer(on bool) Option { return func(s *service) { s.autoTransfer = on } }

func New(store storage.Store, logger *slog.Logger, opts ...Option) Service {
	s := &service{store: store, log: logger, now: time.Now, autoTransfer: true}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// ErrInvalidTag is returned for tags that do not normalise to a slug.
var ErrInvalidTag = errors.New("invalid tag")

// ErrReserveSwept blocks changes to an income whose tax was already moved by
// a manual tax transfer; that transfer has to be deleted first.
var ErrReserveSwept = fmt.Errorf("tax reserve already transferred: %w", errs.ErrConflict)

func (s *service) Validate(in Input) error {
	if !in.Type.Valid() {
		return fmt.Errorf("type %q: %w", in.Type, errs.ErrInvalid)
	}
	if in.Amount <= 0 {
		return errs.ErrInvalidAmount
	}
	if in.AccountID == uuid.Nil {
		return fmt.Errorf("account_id is required: %w", errs.ErrInvalid)
	}
	switch {
	case in.Type == ledger.TransactionTransfer && in.ToAccountID == nil:
		return fmt.Errorf("to_account_id is required for transfers: %w", errs.ErrInvalid)
	case in.Type == ledger.TransactionTransfer && *in.ToAccountID == in.AccountID:
		return fmt.Errorf("transfer to the same account: %w", errs.ErrInvalid)
	case in.Type != ledger.TransactionTransfer && in.ToAccountID != nil:
		return fmt.Errorf("to_account_id is only valid for transfers: %w", errs.ErrInvalid)
	}
	for _, tag := range in.Tags {
		if !slug.IsSlug(slug.Slugify(tag)) {
			return fmt.Errorf("%q: %w", tag, ErrInvalidTag)
		}
	}
	return nil
}

// normalizeTags slugifies and de-duplicates, keeping first-seen order.
func normalizeTags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = slug.Slugify(strings.TrimSpace(t))
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// fill copies the editable fields of in onto t.
func (s *service) fill(t *ledger.Transaction, in Input) {
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	t.Type = in.Type
	t.Amount = in.Amount
	t.Date = amortization.Day(date)
	t.Description = strings.TrimSpace(in.Description)
	t.AccountID = in.AccountID
	t.ToAccountID = in.ToAccountID
	t.CategoryID = in.CategoryID
	t.StoreID = in.StoreID
	t.Tags = normalizeTags(in.Tags)
	t.CardPayoff = 0
}

func (s *service) Create(ctx context.Context, in Input) (ledger.Transaction, error) {
	if err := s.Validate(in); err != nil {
		return ledger.Transaction{}, err
	}
	t := ledger.Transaction{ID: uuid.New(), CreatedAt: s.now().UTC()}
	s.fill(&t, in)
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return s.create(ctx, tx, &t)
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	metrics.TransactionsApplied.WithLabelValues(string(t.Type), "apply").Inc()
	s.log.Info("transaction applied", "id", t.ID, "type", t.Type, "amount", t.Amount, "account_id", t.AccountID)
	return t, nil
}

// create applies and persists t, then derives its tax reserve.
func (s *service) create(ctx context.Context, tx storage.Tx, t *ledger.Transaction) error {
	if err := Apply(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.CreateTransaction(ctx, *t); err != nil {
		return err
	}
	if t.Type == ledger.TransactionIncome {
		return s.reserveTax(ctx, tx, *t)
	}
	return nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in Input) (ledger.Transaction, error) {
	if err := s.Validate(in); err != nil {
		return ledger.Transaction{}, err
	}
	var old, t ledger.Transaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		old, err = tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.System() || old.IsTaxTransfer {
			return errs.ErrImmutable
		}
		if err := s.unwind(ctx, tx, old); err != nil {
			return err
		}
		t = old
		s.fill(&t, in)
		if err := Apply(ctx, tx, &t); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		if t.Type == ledger.TransactionIncome {
			return s.reserveTax(ctx, tx, t)
		}
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	metrics.TransactionsApplied.WithLabelValues(string(old.Type), "rollback").Inc()
	metrics.TransactionsApplied.WithLabelValues(string(t.Type), "apply").Inc()
	s.log.Info("transaction updated", "id", t.ID, "type", t.Type, "amount", t.Amount, "previous_amount", old.Amount)
	return t, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	var old ledger.Transaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		old, err = tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if old.System() {
			return errs.ErrImmutable
		}
		if err := s.unwind(ctx, tx, old); err != nil {
			return err
		}
		if old.IsTaxTransfer {
			if err := s.reopenReserves(ctx, tx, old.ID); err != nil {
				return err
			}
		}
		return tx.DeleteTransaction(ctx, old.ID)
	})
	if err != nil {
		return err
	}
	metrics.TransactionsApplied.WithLabelValues(string(old.Type), "rollback").Inc()
	s.log.Info("transaction deleted", "id", old.ID, "type", old.Type, "amount", old.Amount)
	return nil
}

// unwind rolls back t together with everything derived from it: its tax
// reserve and the system transfers it produced.
func (s *service) unwind(ctx context.Context, tx storage.Tx, t ledger.Transaction) error {
	reserves, err := tx.ListTaxReserves(ctx, storage.TaxReserveFilter{SourceTransactionID: &t.ID})
	if err != nil {
		return err
	}
	children, err := tx.ListTransactions(ctx, storage.TransactionFilter{ParentID: &t.ID})
	if err != nil {
		return err
	}
	own := make(map[uuid.UUID]bool, len(children))
	for _, c := range children {
		own[c.ID] = true
	}
	for _, r := range reserves {
		if r.TransferTransactionID != nil && !own[*r.TransferTransactionID] {
			return fmt.Errorf("reserve %s moved by transfer %s: %w", r.ID, *r.TransferTransactionID, ErrReserveSwept)
		}
	}
	for _, r := range reserves {
		if err := tx.DeleteTaxReserve(ctx, r.ID); err != nil {
			return err
		}
	}
	for _, c := range children {
		if err := Rollback(ctx, tx, c); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, c.ID); err != nil {
			return err
		}
	}
	return Rollback(ctx, tx, t)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *service) List(ctx context.Context, f storage.TransactionFilter) ([]ledger.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// PayCreditCard records a transfer from fromAccountID into the card's account.
func (s *service) PayCreditCard(ctx context.Context, cardID, fromAccountID uuid.UUID, amount float64, date time.Time) (ledger.Transaction, error) {
	var t ledger.Transaction
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		card, err := tx.GetCreditCard(ctx, cardID)
		if err != nil {
			return err
		}
		in := Input{
			Type:        ledger.TransactionTransfer,
			Amount:      amount,
			Date:        date,
			Description: "Credit card payment",
			AccountID:   fromAccountID,
			ToAccountID: &card.AccountID,
		}
		if err := s.Validate(in); err != nil {
			return err
		}
		t = ledger.Transaction{ID: uuid.New(), CreatedAt: s.now().UTC()}
		s.fill(&t, in)
		return s.create(ctx, tx, &t)
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	metrics.TransactionsApplied.WithLabelValues(string(t.Type), "apply").Inc()
	s.log.Info("credit card paid", "card_id", cardID, "amount", amount, "paid_off", t.CardPayoff)
	return t, nil
}
