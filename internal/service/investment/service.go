// Package investment tracks positions on investment accounts: buys that
// re-weight the average price, sales that realise profit against it,
// dividends, and portfolio summaries. Positions do not move account balances.
package investment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/metrics"
	"github.com/tinoosan/homeledger/internal/storage"
)

const (
	DefaultAssetType = "stock"
	// otherSector groups positions without a sector in summaries.
	otherSector = "other"
)

// Input opens a position or, when the ticker is already held on the
// account, adds to it.
type Input struct {
	AccountID uuid.UUID
	Ticker    string
	Name      string
	AssetType string
	Quantity  float64
	Price     float64
	// CurrentPrice defaults to Price.
	CurrentPrice *float64
	Currency     string
	Sector       string
	Commission   float64
	Date         time.Time
	Notes        string
}

// Trade is one buy or sale of an existing position.
type Trade struct {
	Quantity   float64
	Price      float64
	Commission float64
	Date       time.Time
	Notes      string
}

// Dividend is a payout received on a position.
type Dividend struct {
	Amount float64
	// Tax withheld from the payout.
	Tax   float64
	Date  time.Time
	Notes string
}

// Patch edits descriptive fields and the market price. Quantity, average
// price and dividends only change through the position's history.
type Patch struct {
	Name         *string
	AssetType    *string
	CurrentPrice *float64
	Currency     *string
	Sector       *string
}

// View is a position with its valuation and history, newest record first.
type View struct {
	ledger.Investment
	CurrentValue  float64
	Profit        float64
	ProfitPercent float64
	// TotalReturn adds dividends to the unrealised profit.
	TotalReturn         float64
	Transactions        []ledger.InvestmentTransaction
	TotalBoughtQuantity float64
	TotalSpent          float64
}

// Sale is the outcome of Sell.
type Sale struct {
	Profit            float64
	ProfitPercent     float64
	RemainingQuantity float64
	// Closed is set when the position was sold out and removed.
	Closed bool
}

// Bucket aggregates positions of one summary group.
type Bucket struct {
	Invested float64
	Current  float64
	Count    int
}

// Summary is the portfolio across all investment accounts.
type Summary struct {
	TotalInvested      float64
	TotalCurrent       float64
	TotalProfit        float64
	TotalProfitPercent float64
	TotalDividends     float64
	TotalReturn        float64
	PositionsCount     int
	ByType             map[string]Bucket
	BySector           map[string]Bucket
	ByCurrency         map[string]Bucket
}

type Service interface {
	// Create reports created=false when it added to an existing position.
	Create(ctx context.Context, in Input) (v View, created bool, err error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (View, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (View, error)
	// List returns every position, or those of accountID when set.
	List(ctx context.Context, accountID *uuid.UUID) ([]View, error)

	Buy(ctx context.Context, id uuid.UUID, t Trade) (ledger.Investment, error)
	Sell(ctx context.Context, id uuid.UUID, t Trade) (Sale, error)
	AddDividend(ctx context.Context, id uuid.UUID, d Dividend) (ledger.Investment, error)
	History(ctx context.Context, id uuid.UUID) ([]ledger.InvestmentTransaction, error)
	// DeleteTransaction removes one record and rebuilds the position from the rest.
	DeleteTransaction(ctx context.Context, txID uuid.UUID) error

	Summary(ctx context.Context) (Summary, error)
}

type service struct {
	store    storage.Store
	log      *slog.Logger
	now      func() time.Time
	currency string
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithCurrency sets the currency of positions created without one.
func WithCurrency(code string) Option { return func(s *service) { s.currency = code } }

func New(store storage.Store, logger *slog.Logger, opts ...Option) Service {
	s := &service{store: store, log: logger, now: time.Now, currency: "RUB"}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *service) day(d time.Time) time.Time {
	if d.IsZero() {
		return amortization.Day(s.now())
	}
	return amortization.Day(d)
}

func validTrade(t Trade) error {
	if t.Quantity <= 0 || t.Price <= 0 {
		return fmt.Errorf("quantity and price must be positive: %w", errs.ErrInvalidAmount)
	}
	if t.Commission < 0 {
		return fmt.Errorf("commission must not be negative: %w", errs.ErrInvalidAmount)
	}
	return nil
}

func (s *service) record(ctx context.Context, tx storage.Tx, id uuid.UUID, op ledger.InvestmentOp, t Trade) error {
	return tx.CreateInvestmentTransaction(ctx, ledger.InvestmentTransaction{
		ID:           uuid.New(),
		InvestmentID: id,
		Type:         op,
		Quantity:     t.Quantity,
		Price:        t.Price,
		TotalAmount:  t.Quantity * t.Price,
		Commission:   t.Commission,
		Date:         s.day(t.Date),
		Notes:        t.Notes,
		CreatedAt:    s.now().UTC(),
	})
}

func (s *service) Create(ctx context.Context, in Input) (View, bool, error) {
	in.Ticker = strings.ToUpper(strings.TrimSpace(in.Ticker))
	in.Name = strings.TrimSpace(in.Name)
	if in.Ticker == "" {
		return View{}, false, fmt.Errorf("ticker is required: %w", errs.ErrInvalid)
	}
	trade := Trade{Quantity: in.Quantity, Price: in.Price, Commission: in.Commission, Date: in.Date, Notes: in.Notes}
	if err := validTrade(trade); err != nil {
		return View{}, false, err
	}
	if in.CurrentPrice != nil && *in.CurrentPrice < 0 {
		return View{}, false, fmt.Errorf("current_price must not be negative: %w", errs.ErrInvalidAmount)
	}
	current := in.Price
	if in.CurrentPrice != nil {
		current = *in.CurrentPrice
	}
	now := s.now().UTC()
	var (
		v       View
		created bool
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		acc, err := tx.GetAccount(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if acc.Type != ledger.AccountTypeInvestment {
			return fmt.Errorf("account %s is not an investment account: %w", acc.ID, errs.ErrInvalid)
		}
		held, err := tx.ListInvestments(ctx, storage.InvestmentFilter{AccountID: &acc.ID, Ticker: in.Ticker})
		if err != nil {
			return err
		}
		var p ledger.Investment
		if len(held) > 0 {
			p = held[0]
			addLot(&p, in.Quantity, in.Price)
			p.CurrentPrice = current
			p.LastUpdated = now
			if err := tx.UpdateInvestment(ctx, p); err != nil {
				return err
			}
		} else {
			if in.Name == "" {
				return fmt.Errorf("name is required: %w", errs.ErrInvalid)
			}
			p = ledger.Investment{
				ID:           uuid.New(),
				AccountID:    acc.ID,
				Ticker:       in.Ticker,
				Name:         in.Name,
				AssetType:    normalizeAssetType(in.AssetType),
				CurrentPrice: current,
				Currency:     strings.ToUpper(in.Currency),
				Sector:       strings.TrimSpace(in.Sector),
				LastUpdated:  now,
				CreatedAt:    now,
			}
			if p.Currency == "" {
				p.Currency = s.currency
			}
			addLot(&p, in.Quantity, in.Price)
			if err := tx.CreateInvestment(ctx, p); err != nil {
				return err
			}
			created = true
		}
		if err := s.record(ctx, tx, p.ID, ledger.InvestmentBuy, trade); err != nil {
			return err
		}
		v, err = view(ctx, tx, p)
		return err
	})
	if err != nil {
		return View{}, false, err
	}
	metrics.InvestmentOps.WithLabelValues(string(ledger.InvestmentBuy)).Inc()
	s.log.Info("investment bought", "id", v.ID, "ticker", v.Ticker, "quantity", in.Quantity, "price", in.Price, "new_position", created)
	return v, created, nil
}

func normalizeAssetType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return DefaultAssetType
	}
	return t
}

func (s *service) Update(ctx context.Context, id uuid.UUID, p Patch) (View, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return View{}, fmt.Errorf("name must not be empty: %w", errs.ErrInvalid)
	}
	if p.CurrentPrice != nil && *p.CurrentPrice < 0 {
		return View{}, fmt.Errorf("current_price must not be negative: %w", errs.ErrInvalidAmount)
	}
	var v View
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		inv, err := tx.GetInvestment(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			inv.Name = strings.TrimSpace(*p.Name)
		}
		if p.AssetType != nil {
			inv.AssetType = normalizeAssetType(*p.AssetType)
		}
		if p.CurrentPrice != nil {
			inv.CurrentPrice = *p.CurrentPrice
		}
		if p.Currency != nil {
			inv.Currency = strings.ToUpper(*p.Currency)
		}
		if p.Sector != nil {
			inv.Sector = strings.TrimSpace(*p.Sector)
		}
		inv.LastUpdated = s.now().UTC()
		if err := tx.UpdateInvestment(ctx, inv); err != nil {
			return err
		}
		v, err = view(ctx, tx, inv)
		return err
	})
	if err != nil {
		return View{}, err
	}
	return v, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteInvestment(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("investment deleted", "id", id)
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	inv, err := s.store.GetInvestment(ctx, id)
	if err != nil {
		return View{}, err
	}
	return view(ctx, s.store, inv)
}

func (s *service) List(ctx context.Context, accountID *uuid.UUID) ([]View, error) {
	invs, err := s.store.ListInvestments(ctx, storage.InvestmentFilter{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(invs))
	for _, inv := range invs {
		v, err := view(ctx, s.store, inv)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *service) Buy(ctx context.Context, id uuid.UUID, t Trade) (ledger.Investment, error) {
	if err := validTrade(t); err != nil {
		return ledger.Investment{}, err
	}
	var inv ledger.Investment
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		inv, err = tx.GetInvestment(ctx, id)
		if err != nil {
			return err
		}
		addLot(&inv, t.Quantity, t.Price)
		inv.CurrentPrice = t.Price
		inv.LastUpdated = s.now().UTC()
		if err := tx.UpdateInvestment(ctx, inv); err != nil {
			return err
		}
		return s.record(ctx, tx, inv.ID, ledger.InvestmentBuy, t)
	})
	if err != nil {
		return ledger.Investment{}, err
	}
	metrics.InvestmentOps.WithLabelValues(string(ledger.InvestmentBuy)).Inc()
	s.log.Info("investment bought", "id", inv.ID, "ticker", inv.Ticker, "quantity", t.Quantity, "price", t.Price, "avg_buy_price", inv.AvgBuyPrice)
	return inv, nil
}

// Sell realises profit against the average buy price. A sold-out position is
// removed together with its history.
func (s *service) Sell(ctx context.Context, id uuid.UUID, t Trade) (Sale, error) {
	if err := validTrade(t); err != nil {
		return Sale{}, err
	}
	var out Sale
	var inv ledger.Investment
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		inv, err = tx.GetInvestment(ctx, id)
		if err != nil {
			return err
		}
		basis := t.Quantity * inv.AvgBuyPrice
		profit, err := removeLot(&inv, t.Quantity, t.Price, t.Commission)
		if err != nil {
			return err
		}
		out = Sale{Profit: profit, ProfitPercent: ProfitPercent(profit, basis), RemainingQuantity: inv.Quantity}
		if inv.Quantity == 0 {
			out.Closed = true
			return tx.DeleteInvestment(ctx, inv.ID)
		}
		inv.CurrentPrice = t.Price
		inv.LastUpdated = s.now().UTC()
		if err := tx.UpdateInvestment(ctx, inv); err != nil {
			return err
		}
		if t.Notes == "" {
			t.Notes = fmt.Sprintf("profit %.2f", profit)
		}
		return s.record(ctx, tx, inv.ID, ledger.InvestmentSell, t)
	})
	if err != nil {
		return Sale{}, err
	}
	metrics.InvestmentOps.WithLabelValues(string(ledger.InvestmentSell)).Inc()
	s.log.Info("investment sold", "id", id, "ticker", inv.Ticker, "quantity", t.Quantity, "price", t.Price, "profit", out.Profit, "closed", out.Closed)
	return out, nil
}

func (s *service) AddDividend(ctx context.Context, id uuid.UUID, d Dividend) (ledger.Investment, error) {
	if d.Amount <= 0 {
		return ledger.Investment{}, fmt.Errorf("dividend amount must be positive: %w", errs.ErrInvalidAmount)
	}
	if d.Tax < 0 {
		return ledger.Investment{}, fmt.Errorf("dividend tax must not be negative: %w", errs.ErrInvalidAmount)
	}
	var inv ledger.Investment
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		inv, err = tx.GetInvestment(ctx, id)
		if err != nil {
			return err
		}
		inv.DividendsReceived += d.Amount
		inv.LastUpdated = s.now().UTC()
		if err := tx.UpdateInvestment(ctx, inv); err != nil {
			return err
		}
		return tx.CreateInvestmentTransaction(ctx, ledger.InvestmentTransaction{
			ID:           uuid.New(),
			InvestmentID: inv.ID,
			Type:         ledger.InvestmentDividend,
			TotalAmount:  d.Amount,
			Commission:   d.Tax,
			Date:         s.day(d.Date),
			Notes:        d.Notes,
			CreatedAt:    s.now().UTC(),
		})
	})
	if err != nil {
		return ledger.Investment{}, err
	}
	metrics.InvestmentOps.WithLabelValues(string(ledger.InvestmentDividend)).Inc()
	s.log.Info("dividend recorded", "id", inv.ID, "ticker", inv.Ticker, "amount", d.Amount, "total", inv.DividendsReceived)
	return inv, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]ledger.InvestmentTransaction, error) {
	if _, err := s.store.GetInvestment(ctx, id); err != nil {
		return nil, err
	}
	hist, err := s.store.ListInvestmentTransactions(ctx, id)
	if err != nil {
		return nil, err
	}
	return newestFirst(hist), nil
}

func (s *service) DeleteTransaction(ctx context.Context, txID uuid.UUID) error {
	var inv ledger.Investment
	closed := false
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		rec, err := tx.GetInvestmentTransaction(ctx, txID)
		if err != nil {
			return err
		}
		inv, err = tx.GetInvestment(ctx, rec.InvestmentID)
		if err != nil {
			return err
		}
		hist, err := tx.ListInvestmentTransactions(ctx, inv.ID)
		if err != nil {
			return err
		}
		rest := make([]ledger.InvestmentTransaction, 0, len(hist))
		for _, h := range hist {
			if h.ID != rec.ID {
				rest = append(rest, h)
			}
		}
		rebuilt, err := replay(inv, rest)
		if err != nil {
			return err
		}
		if rebuilt.Quantity == 0 {
			closed = true
			return tx.DeleteInvestment(ctx, inv.ID)
		}
		if err := tx.DeleteInvestmentTransaction(ctx, rec.ID); err != nil {
			return err
		}
		rebuilt.LastUpdated = s.now().UTC()
		return tx.UpdateInvestment(ctx, rebuilt)
	})
	if err != nil {
		return err
	}
	s.log.Info("investment record deleted", "id", txID, "investment_id", inv.ID, "closed", closed)
	return nil
}

func (s *service) Summary(ctx context.Context) (Summary, error) {
	invs, err := s.store.ListInvestments(ctx, storage.InvestmentFilter{})
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		PositionsCount: len(invs),
		ByType:         map[string]Bucket{},
		BySector:       map[string]Bucket{},
		ByCurrency:     map[string]Bucket{},
	}
	add := func(m map[string]Bucket, key string, inv ledger.Investment) {
		b := m[key]
		b.Invested += inv.Invested()
		b.Current += inv.CurrentValue()
		b.Count++
		m[key] = b
	}
	for _, inv := range invs {
		out.TotalInvested += inv.Invested()
		out.TotalCurrent += inv.CurrentValue()
		out.TotalDividends += inv.DividendsReceived
		sector := inv.Sector
		if sector == "" {
			sector = otherSector
		}
		add(out.ByType, inv.AssetType, inv)
		add(out.BySector, sector, inv)
		add(out.ByCurrency, inv.Currency, inv)
	}
	out.TotalProfit = out.TotalCurrent - out.TotalInvested
	out.TotalProfitPercent = ProfitPercent(out.TotalProfit, out.TotalInvested)
	out.TotalReturn = out.TotalProfit + out.TotalDividends
	return out, nil
}

func newestFirst(hist []ledger.InvestmentTransaction) []ledger.InvestmentTransaction {
	out := make([]ledger.InvestmentTransaction, len(hist))
	copy(out, hist)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func view(ctx context.Context, r storage.Reader, inv ledger.Investment) (View, error) {
	hist, err := r.ListInvestmentTransactions(ctx, inv.ID)
	if err != nil {
		return View{}, err
	}
	v := View{
		Investment:   inv,
		CurrentValue: inv.CurrentValue(),
		Transactions: newestFirst(hist),
	}
	v.Profit = v.CurrentValue - inv.Invested()
	v.ProfitPercent = ProfitPercent(v.Profit, inv.Invested())
	v.TotalReturn = v.Profit + inv.DividendsReceived
	for _, h := range hist {
		if h.Type == ledger.InvestmentBuy {
			v.TotalBoughtQuantity += h.Quantity
			v.TotalSpent += h.TotalAmount + h.Commission
		}
	}
	return v, nil
}
