// Package account implements the account rules: validated creation with a
// card row for credit cards, descriptive edits that never touch the balance,
// cascading deletes and the derived per-type views.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
)

// Card defaults for new credit_card accounts.
const (
	DefaultMinPaymentPercent = 5
	DefaultGracePeriodDays   = 55
	DefaultStatementDay      = 1
	DefaultPaymentDueDay     = 20
)

// ErrNameExists indicates another account already uses the name.
var ErrNameExists = fmt.Errorf("account name already exists: %w", errs.ErrConflict)

// CardTerms are the credit card fields supplied on creation. Nil fields take the defaults.
type CardTerms struct {
	MinPaymentPercent *float64
	GracePeriodDays   *int
	InterestRate      float64
	StatementDay      *int
	PaymentDueDay     *int
	CashbackPercent   float64
	// CurrentDebt is stored as an absolute value.
	CurrentDebt float64
}

// Input is the payload of Create. Balance is the opening balance and is
// accepted only here.
type Input struct {
	Name               string
	Type               ledger.AccountType
	Balance            float64
	CreditLimit        float64
	BankName           string
	Icon               string
	Color              string
	TaxRate            float64
	LinkedTaxAccountID *uuid.UUID
	Card               CardTerms
}

// Patch edits descriptive fields. Nil fields are left unchanged.
type Patch struct {
	Name               *string
	BankName           *string
	Icon               *string
	Color              *string
	CreditLimit        *float64
	TaxRate            *float64
	LinkedTaxAccountID *uuid.UUID
	// UnlinkTaxAccount clears LinkedTaxAccountID.
	UnlinkTaxAccount bool
}

// CardPatch edits credit card terms. Nil fields are left unchanged.
type CardPatch struct {
	CreditLimit       *float64
	MinPaymentPercent *float64
	GracePeriodDays   *int
	InterestRate      *float64
	StatementDay      *int
	PaymentDueDay     *int
	CashbackPercent   *float64
}

// View is an account with the figures derived from its type.
type View struct {
	ledger.Account
	Card           *ledger.CreditCard
	AvailableLimit float64
	MinPayment     float64
	Utilization    float64
	// PendingTax is the untransferred tax of a business account.
	PendingTax float64
	// LinkedBusinessAccounts lists the business accounts feeding a tax reserve account.
	LinkedBusinessAccounts []uuid.UUID
	// Portfolio totals the positions held on an investment account.
	Portfolio *Portfolio
}

// Portfolio is the cost basis and market value of an account's positions.
type Portfolio struct {
	Invested float64
	Current  float64
	Count    int
}

// Profit is the unrealised gain of the positions.
func (p Portfolio) Profit() float64 { return p.Current - p.Invested }

type Service interface {
	Create(ctx context.Context, in Input) (View, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (View, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (View, error)
	// List returns accounts ordered by type then name; typ filters when set.
	List(ctx context.Context, typ ledger.AccountType) ([]View, error)

	ListCards(ctx context.Context) ([]ledger.CreditCard, error)
	UpdateCard(ctx context.Context, cardID uuid.UUID, p CardPatch) (ledger.CreditCard, error)
	// SetCardDebt overwrites the card debt with abs(debt).
	SetCardDebt(ctx context.Context, cardID uuid.UUID, debt float64) (ledger.CreditCard, error)
}

type service struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store storage.Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, log: logger, now: time.Now}
}

func (s *service) Create(ctx context.Context, in Input) (View, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Type == "" {
		in.Type = ledger.AccountTypeDebit
	}
	if err := validate(in.Name, in.Type, in.CreditLimit, in.TaxRate); err != nil {
		return View{}, err
	}
	a := ledger.Account{
		ID:                 uuid.New(),
		Name:               in.Name,
		Type:               in.Type,
		Balance:            in.Balance,
		CreditLimit:        in.CreditLimit,
		BankName:           in.BankName,
		Icon:               in.Icon,
		Color:              in.Color,
		TaxRate:            in.TaxRate,
		LinkedTaxAccountID: in.LinkedTaxAccountID,
		CreatedAt:          s.now().UTC(),
	}
	var card *ledger.CreditCard
	if a.Type == ledger.AccountTypeCreditCard {
		c, err := newCard(a, in.Card)
		if err != nil {
			return View{}, err
		}
		a.Balance = 0
		card = &c
	}
	var v View
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := uniqueName(ctx, tx, a.ID, a.Name); err != nil {
			return err
		}
		if err := checkTaxLink(ctx, tx, a); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		if card != nil {
			if err := tx.CreateCreditCard(ctx, *card); err != nil {
				return err
			}
		}
		var err error
		v, err = view(ctx, tx, a)
		return err
	})
	if err != nil {
		return View{}, err
	}
	s.log.Info("account created", "id", a.ID, "type", a.Type)
	return v, nil
}

func newCard(a ledger.Account, t CardTerms) (ledger.CreditCard, error) {
	c := ledger.CreditCard{
		ID:                uuid.New(),
		AccountID:         a.ID,
		CreditLimit:       a.CreditLimit,
		CurrentDebt:       math.Abs(t.CurrentDebt),
		MinPaymentPercent: DefaultMinPaymentPercent,
		GracePeriodDays:   DefaultGracePeriodDays,
		InterestRate:      t.InterestRate,
		StatementDay:      DefaultStatementDay,
		PaymentDueDay:     DefaultPaymentDueDay,
		CashbackPercent:   t.CashbackPercent,
	}
	if t.MinPaymentPercent != nil {
		c.MinPaymentPercent = *t.MinPaymentPercent
	}
	if t.GracePeriodDays != nil {
		c.GracePeriodDays = *t.GracePeriodDays
	}
	if t.StatementDay != nil {
		c.StatementDay = *t.StatementDay
	}
	if t.PaymentDueDay != nil {
		c.PaymentDueDay = *t.PaymentDueDay
	}
	return c, validateCard(c)
}

func validate(name string, typ ledger.AccountType, limit, taxRate float64) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", errs.ErrInvalid)
	}
	if !typ.Valid() {
		return fmt.Errorf("account type %q: %w", typ, errs.ErrInvalid)
	}
	if limit < 0 {
		return fmt.Errorf("credit_limit must not be negative: %w", errs.ErrInvalid)
	}
	if taxRate < 0 || taxRate > 100 {
		return fmt.Errorf("tax_rate must be within 0..100: %w", errs.ErrInvalid)
	}
	return nil
}

func validateCard(c ledger.CreditCard) error {
	switch {
	case c.CreditLimit < 0:
		return fmt.Errorf("credit_limit must not be negative: %w", errs.ErrInvalid)
	case c.MinPaymentPercent < 0 || c.MinPaymentPercent > 100,
		c.CashbackPercent < 0 || c.CashbackPercent > 100,
		c.InterestRate < 0:
		return fmt.Errorf("card percentages out of range: %w", errs.ErrInvalid)
	case c.GracePeriodDays < 0:
		return fmt.Errorf("grace_period_days must not be negative: %w", errs.ErrInvalid)
	case c.StatementDay < 1 || c.StatementDay > 31, c.PaymentDueDay < 1 || c.PaymentDueDay > 31:
		return fmt.Errorf("card days must be within 1..31: %w", errs.ErrInvalid)
	}
	return nil
}

// uniqueName compares names case-insensitively across all other accounts.
func uniqueName(ctx context.Context, r storage.Reader, self uuid.UUID, name string) error {
	existing, err := r.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a.ID != self && strings.EqualFold(a.Name, name) {
			return ErrNameExists
		}
	}
	return nil
}

// checkTaxLink requires the linked account to exist and be a tax reserve.
func checkTaxLink(ctx context.Context, r storage.Reader, a ledger.Account) error {
	if a.LinkedTaxAccountID == nil {
		return nil
	}
	if *a.LinkedTaxAccountID == a.ID {
		return fmt.Errorf("account cannot be its own tax account: %w", errs.ErrInvalid)
	}
	t, err := r.GetAccount(ctx, *a.LinkedTaxAccountID)
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("linked tax account not found: %w", errs.ErrUnprocessable)
	}
	if err != nil {
		return err
	}
	if t.Type != ledger.AccountTypeTaxReserve {
		return fmt.Errorf("linked account is not a tax reserve: %w", errs.ErrUnprocessable)
	}
	return nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, p Patch) (View, error) {
	var v View
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			a.Name = strings.TrimSpace(*p.Name)
		}
		if p.BankName != nil {
			a.BankName = *p.BankName
		}
		if p.Icon != nil {
			a.Icon = *p.Icon
		}
		if p.Color != nil {
			a.Color = *p.Color
		}
		if p.CreditLimit != nil {
			a.CreditLimit = *p.CreditLimit
		}
		if p.TaxRate != nil {
			a.TaxRate = *p.TaxRate
		}
		switch {
		case p.UnlinkTaxAccount:
			a.LinkedTaxAccountID = nil
		case p.LinkedTaxAccountID != nil:
			a.LinkedTaxAccountID = p.LinkedTaxAccountID
		}
		if err := validate(a.Name, a.Type, a.CreditLimit, a.TaxRate); err != nil {
			return err
		}
		if p.Name != nil {
			if err := uniqueName(ctx, tx, a.ID, a.Name); err != nil {
				return err
			}
		}
		if err := checkTaxLink(ctx, tx, a); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		if p.CreditLimit != nil && a.Type == ledger.AccountTypeCreditCard {
			if c, err := tx.CardByAccount(ctx, a.ID); err == nil {
				c.CreditLimit = a.CreditLimit
				if err := tx.UpdateCreditCard(ctx, c); err != nil {
					return err
				}
			} else if !errors.Is(err, errs.ErrNotFound) {
				return err
			}
		}
		v, err = view(ctx, tx, a)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return v, nil
}

// Delete removes the account and everything that references it. Balances of
// counterparties touched by removed transactions are left as they are.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("account deleted", "id", id)
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return View{}, err
	}
	return view(ctx, s.store, a)
}

func (s *service) List(ctx context.Context, typ ledger.AccountType) ([]View, error) {
	if typ != "" && !typ.Valid() {
		return nil, fmt.Errorf("account type %q: %w", typ, errs.ErrInvalid)
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Type != accounts[j].Type {
			return accounts[i].Type < accounts[j].Type
		}
		return accounts[i].Name < accounts[j].Name
	})
	out := make([]View, 0, len(accounts))
	for _, a := range accounts {
		if typ != "" && a.Type != typ {
			continue
		}
		v, err := view(ctx, s.store, a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// view derives the per-type figures of a.
func view(ctx context.Context, r storage.Reader, a ledger.Account) (View, error) {
	v := View{Account: a}
	switch a.Type {
	case ledger.AccountTypeCreditCard:
		c, err := r.CardByAccount(ctx, a.ID)
		if errors.Is(err, errs.ErrNotFound) {
			return v, nil
		}
		if err != nil {
			return View{}, err
		}
		v.Card = &c
		v.Balance = -c.CurrentDebt
		v.CreditLimit = c.CreditLimit
		v.AvailableLimit = c.AvailableLimit()
		v.MinPayment = c.MinPayment()
		v.Utilization = c.Utilization()
	case ledger.AccountTypeBusiness:
		pending := true
		rs, err := r.ListTaxReserves(ctx, storage.TaxReserveFilter{BusinessAccountID: &a.ID, Pending: &pending})
		if err != nil {
			return View{}, err
		}
		for _, res := range rs {
			v.PendingTax += res.TaxAmount
		}
	case ledger.AccountTypeTaxReserve:
		all, err := r.ListAccounts(ctx)
		if err != nil {
			return View{}, err
		}
		for _, b := range all {
			if b.LinkedTaxAccountID != nil && *b.LinkedTaxAccountID == a.ID {
				v.LinkedBusinessAccounts = append(v.LinkedBusinessAccounts, b.ID)
			}
		}
	case ledger.AccountTypeInvestment:
		invs, err := r.ListInvestments(ctx, storage.InvestmentFilter{AccountID: &a.ID})
		if err != nil {
			return View{}, err
		}
		p := &Portfolio{Count: len(invs)}
		for _, inv := range invs {
			p.Invested += inv.Invested()
			p.Current += inv.CurrentValue()
		}
		v.Portfolio = p
	}
	return v, nil
}

func (s *service) ListCards(ctx context.Context) ([]ledger.CreditCard, error) {
	return s.store.ListCreditCards(ctx)
}

func (s *service) UpdateCard(ctx context.Context, cardID uuid.UUID, p CardPatch) (ledger.CreditCard, error) {
	var c ledger.CreditCard
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		c, err = tx.GetCreditCard(ctx, cardID)
		if err != nil {
			return err
		}
		if p.CreditLimit != nil {
			c.CreditLimit = *p.CreditLimit
		}
		if p.MinPaymentPercent != nil {
			c.MinPaymentPercent = *p.MinPaymentPercent
		}
		if p.GracePeriodDays != nil {
			c.GracePeriodDays = *p.GracePeriodDays
		}
		if p.InterestRate != nil {
			c.InterestRate = *p.InterestRate
		}
		if p.StatementDay != nil {
			c.StatementDay = *p.StatementDay
		}
		if p.PaymentDueDay != nil {
			c.PaymentDueDay = *p.PaymentDueDay
		}
		if p.CashbackPercent != nil {
			c.CashbackPercent = *p.CashbackPercent
		}
		if err := validateCard(c); err != nil {
			return err
		}
		if err := tx.UpdateCreditCard(ctx, c); err != nil {
			return err
		}
		if p.CreditLimit == nil {
			return nil
		}
		a, err := tx.GetAccount(ctx, c.AccountID)
		if err != nil {
			return err
		}
		a.CreditLimit = c.CreditLimit
		return tx.UpdateAccount(ctx, a)
	})
	if err != nil {
		return ledger.CreditCard{}, err
	}
	return c, nil
}

func (s *service) SetCardDebt(ctx context.Context, cardID uuid.UUID, debt float64) (ledger.CreditCard, error) {
	var c ledger.CreditCard
	var before float64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		c, err = tx.GetCreditCard(ctx, cardID)
		if err != nil {
			return err
		}
		before = c.CurrentDebt
		c.CurrentDebt = math.Abs(debt)
		return tx.UpdateCreditCard(ctx, c)
	})
	if err != nil {
		return ledger.CreditCard{}, err
	}
	s.log.Info("card debt corrected", "card_id", cardID, "previous", before, "debt", c.CurrentDebt)
	return c, nil
}
