// Package memory provides an in-memory store used for development and tests.
// Units of work run under the store's write lock against a copy of the state,
// which replaces the live state only when the unit succeeds.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/errs"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/storage"
)

// Store is an in-memory implementation of storage.Store guarded by an RWMutex.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New constructs an empty in-memory store.
func New() *Store { return &Store{st: newState()} }

// InTx runs fn against a private copy of the state and publishes it on success.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ready always succeeds.
func (s *Store) Ready(context.Context) error { return nil }

// Seed helpers for local dev/tests.
func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	s.st.accounts[a.ID] = a
	s.mu.Unlock()
}

func (s *Store) SeedCreditCard(c ledger.CreditCard) {
	s.mu.Lock()
	s.st.cards[c.ID] = c
	s.mu.Unlock()
}

func (s *Store) SeedCredit(c ledger.Credit) {
	s.mu.Lock()
	s.st.credits[c.ID] = c
	s.mu.Unlock()
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListAccounts(ctx)
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetAccount(ctx, id)
}

func (s *Store) ListCreditCards(ctx context.Context) ([]ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListCreditCards(ctx)
}

func (s *Store) GetCreditCard(ctx context.Context, id uuid.UUID) (ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetCreditCard(ctx, id)
}

func (s *Store) CardByAccount(ctx context.Context, accountID uuid.UUID) (ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.CardByAccount(ctx, accountID)
}

func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListTransactions(ctx, f)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetTransaction(ctx, id)
}

func (s *Store) ListTaxReserves(ctx context.Context, f storage.TaxReserveFilter) ([]ledger.TaxReserve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListTaxReserves(ctx, f)
}

func (s *Store) ListCredits(ctx context.Context) ([]ledger.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListCredits(ctx)
}

func (s *Store) GetCredit(ctx context.Context, id uuid.UUID) (ledger.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetCredit(ctx, id)
}

func (s *Store) ListMortgages(ctx context.Context) ([]ledger.Mortgage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListMortgages(ctx)
}

func (s *Store) GetMortgage(ctx context.Context, id uuid.UUID) (ledger.Mortgage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetMortgage(ctx, id)
}

func (s *Store) ListMortgagePayments(ctx context.Context, mortgageID uuid.UUID) ([]ledger.MortgagePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListMortgagePayments(ctx, mortgageID)
}

func (s *Store) ListInvestments(ctx context.Context, f storage.InvestmentFilter) ([]ledger.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListInvestments(ctx, f)
}

func (s *Store) GetInvestment(ctx context.Context, id uuid.UUID) (ledger.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetInvestment(ctx, id)
}

func (s *Store) ListInvestmentTransactions(ctx context.Context, investmentID uuid.UUID) ([]ledger.InvestmentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListInvestmentTransactions(ctx, investmentID)
}

func (s *Store) GetInvestmentTransaction(ctx context.Context, id uuid.UUID) (ledger.InvestmentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetInvestmentTransaction(ctx, id)
}

func (s *Store) ListTaxPayments(ctx context.Context, f storage.TaxPaymentFilter) ([]ledger.TaxPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.ListTaxPayments(ctx, f)
}

func (s *Store) GetTaxPayment(ctx context.Context, id uuid.UUID) (ledger.TaxPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.GetTaxPayment(ctx, id)
}

// state is the unsynchronised data set. A cloned state doubles as storage.Tx.
type state struct {
	accounts     map[uuid.UUID]ledger.Account
	cards        map[uuid.UUID]ledger.CreditCard
	transactions map[uuid.UUID]ledger.Transaction
	reserves     map[uuid.UUID]ledger.TaxReserve
	credits      map[uuid.UUID]ledger.Credit
	mortgages    map[uuid.UUID]ledger.Mortgage
	payments     map[uuid.UUID]ledger.MortgagePayment
	investments  map[uuid.UUID]ledger.Investment
	invHistory   map[uuid.UUID]ledger.InvestmentTransaction
	taxPayments  map[uuid.UUID]ledger.TaxPayment
}

func newState() *state {
	return &state{
		accounts:     map[uuid.UUID]ledger.Account{},
		cards:        map[uuid.UUID]ledger.CreditCard{},
		transactions: map[uuid.UUID]ledger.Transaction{},
		reserves:     map[uuid.UUID]ledger.TaxReserve{},
		credits:      map[uuid.UUID]ledger.Credit{},
		mortgages:    map[uuid.UUID]ledger.Mortgage{},
		payments:     map[uuid.UUID]ledger.MortgagePayment{},
		investments:  map[uuid.UUID]ledger.Investment{},
		invHistory:   map[uuid.UUID]ledger.InvestmentTransaction{},
		taxPayments:  map[uuid.UUID]ledger.TaxPayment{},
	}
}

func copyMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies the maps. Stored values are replaced, never mutated in place,
// so a shallow copy of each value is enough.
func (st *state) clone() *state {
	return &state{
		accounts:     copyMap(st.accounts),
		cards:        copyMap(st.cards),
		transactions: copyMap(st.transactions),
		reserves:     copyMap(st.reserves),
		credits:      copyMap(st.credits),
		mortgages:    copyMap(st.mortgages),
		payments:     copyMap(st.payments),
		investments:  copyMap(st.investments),
		invHistory:   copyMap(st.invHistory),
		taxPayments:  copyMap(st.taxPayments),
	}
}

// --- reads ---

func (st *state) ListAccounts(context.Context) ([]ledger.Account, error) {
	out := make([]ledger.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (st *state) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (st *state) ListCreditCards(context.Context) ([]ledger.CreditCard, error) {
	out := make([]ledger.CreditCard, 0, len(st.cards))
	for _, c := range st.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (st *state) GetCreditCard(_ context.Context, id uuid.UUID) (ledger.CreditCard, error) {
	c, ok := st.cards[id]
	if !ok {
		return ledger.CreditCard{}, errs.ErrNotFound
	}
	return c, nil
}

func (st *state) CardByAccount(_ context.Context, accountID uuid.UUID) (ledger.CreditCard, error) {
	for _, c := range st.cards {
		if c.AccountID == accountID {
			return c, nil
		}
	}
	return ledger.CreditCard{}, errs.ErrNotFound
}

func matchesTransaction(t ledger.Transaction, f storage.TransactionFilter) bool {
	if f.AccountID != nil && t.AccountID != *f.AccountID && (t.ToAccountID == nil || *t.ToAccountID != *f.AccountID) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.From != nil && t.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Date.After(*f.To) {
		return false
	}
	if f.ParentID != nil && (t.ParentID == nil || *t.ParentID != *f.ParentID) {
		return false
	}
	return true
}

func (st *state) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]ledger.Transaction, error) {
	out := make([]ledger.Transaction, 0)
	for _, t := range st.transactions {
		if matchesTransaction(t, f) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (st *state) GetTransaction(_ context.Context, id uuid.UUID) (ledger.Transaction, error) {
	t, ok := st.transactions[id]
	if !ok {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func matchesReserve(r ledger.TaxReserve, f storage.TaxReserveFilter) bool {
	if f.BusinessAccountID != nil && r.BusinessAccountID != *f.BusinessAccountID {
		return false
	}
	if f.SourceTransactionID != nil && r.SourceTransactionID != *f.SourceTransactionID {
		return false
	}
	if f.TransferTransactionID != nil && (r.TransferTransactionID == nil || *r.TransferTransactionID != *f.TransferTransactionID) {
		return false
	}
	if f.Pending != nil && r.IsTransferred == *f.Pending {
		return false
	}
	return true
}

func (st *state) ListTaxReserves(_ context.Context, f storage.TaxReserveFilter) ([]ledger.TaxReserve, error) {
	out := make([]ledger.TaxReserve, 0)
	for _, r := range st.reserves {
		if matchesReserve(r, f) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) ListCredits(context.Context) ([]ledger.Credit, error) {
	out := make([]ledger.Credit, 0, len(st.credits))
	for _, c := range st.credits {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) GetCredit(_ context.Context, id uuid.UUID) (ledger.Credit, error) {
	c, ok := st.credits[id]
	if !ok {
		return ledger.Credit{}, errs.ErrNotFound
	}
	return c, nil
}

func (st *state) ListMortgages(context.Context) ([]ledger.Mortgage, error) {
	out := make([]ledger.Mortgage, 0, len(st.mortgages))
	for _, m := range st.mortgages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) GetMortgage(_ context.Context, id uuid.UUID) (ledger.Mortgage, error) {
	m, ok := st.mortgages[id]
	if !ok {
		return ledger.Mortgage{}, errs.ErrNotFound
	}
	return m, nil
}

func (st *state) ListMortgagePayments(_ context.Context, mortgageID uuid.UUID) ([]ledger.MortgagePayment, error) {
	out := make([]ledger.MortgagePayment, 0)
	for _, p := range st.payments {
		if p.MortgageID == mortgageID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) ListInvestments(_ context.Context, f storage.InvestmentFilter) ([]ledger.Investment, error) {
	out := make([]ledger.Investment, 0)
	for _, inv := range st.investments {
		if f.AccountID != nil && inv.AccountID != *f.AccountID {
			continue
		}
		if f.Ticker != "" && inv.Ticker != f.Ticker {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssetType != out[j].AssetType {
			return out[i].AssetType < out[j].AssetType
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

func (st *state) GetInvestment(_ context.Context, id uuid.UUID) (ledger.Investment, error) {
	inv, ok := st.investments[id]
	if !ok {
		return ledger.Investment{}, errs.ErrNotFound
	}
	return inv, nil
}

func (st *state) ListInvestmentTransactions(_ context.Context, investmentID uuid.UUID) ([]ledger.InvestmentTransaction, error) {
	out := make([]ledger.InvestmentTransaction, 0)
	for _, t := range st.invHistory {
		if t.InvestmentID == investmentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) GetInvestmentTransaction(_ context.Context, id uuid.UUID) (ledger.InvestmentTransaction, error) {
	t, ok := st.invHistory[id]
	if !ok {
		return ledger.InvestmentTransaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (st *state) ListTaxPayments(_ context.Context, f storage.TaxPaymentFilter) ([]ledger.TaxPayment, error) {
	out := make([]ledger.TaxPayment, 0)
	for _, p := range st.taxPayments {
		if f.Year != 0 && p.PeriodStart.Year() != f.Year {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) GetTaxPayment(_ context.Context, id uuid.UUID) (ledger.TaxPayment, error) {
	p, ok := st.taxPayments[id]
	if !ok {
		return ledger.TaxPayment{}, errs.ErrNotFound
	}
	return p, nil
}

// --- writes ---

func (st *state) CreateAccount(_ context.Context, a ledger.Account) error {
	if _, ok := st.accounts[a.ID]; ok {
		return errs.ErrConflict
	}
	st.accounts[a.ID] = a
	return nil
}

func (st *state) UpdateAccount(_ context.Context, a ledger.Account) error {
	if _, ok := st.accounts[a.ID]; !ok {
		return errs.ErrNotFound
	}
	st.accounts[a.ID] = a
	return nil
}

func (st *state) DeleteAccount(_ context.Context, id uuid.UUID) error {
	if _, ok := st.accounts[id]; !ok {
		return errs.ErrNotFound
	}
	for tid, t := range st.transactions {
		if t.AccountID == id || (t.ToAccountID != nil && *t.ToAccountID == id) {
			delete(st.transactions, tid)
		}
	}
	for cid, c := range st.cards {
		if c.AccountID == id {
			delete(st.cards, cid)
		}
	}
	for rid, r := range st.reserves {
		if r.BusinessAccountID == id || r.TaxAccountID == id {
			delete(st.reserves, rid)
		}
	}
	for iid, inv := range st.investments {
		if inv.AccountID == id {
			st.dropInvestment(iid)
		}
	}
	for aid, a := range st.accounts {
		if a.LinkedTaxAccountID != nil && *a.LinkedTaxAccountID == id {
			a.LinkedTaxAccountID = nil
			st.accounts[aid] = a
		}
	}
	delete(st.accounts, id)
	return nil
}

func (st *state) CreateCreditCard(_ context.Context, c ledger.CreditCard) error {
	if _, ok := st.accounts[c.AccountID]; !ok {
		return errs.ErrNotFound
	}
	for _, existing := range st.cards {
		if existing.AccountID == c.AccountID {
			return errs.ErrConflict
		}
	}
	st.cards[c.ID] = c
	return nil
}

func (st *state) UpdateCreditCard(_ context.Context, c ledger.CreditCard) error {
	if _, ok := st.cards[c.ID]; !ok {
		return errs.ErrNotFound
	}
	st.cards[c.ID] = c
	return nil
}

func (st *state) CreateTransaction(_ context.Context, t ledger.Transaction) error {
	if _, ok := st.transactions[t.ID]; ok {
		return errs.ErrConflict
	}
	st.transactions[t.ID] = t
	return nil
}

func (st *state) UpdateTransaction(_ context.Context, t ledger.Transaction) error {
	if _, ok := st.transactions[t.ID]; !ok {
		return errs.ErrNotFound
	}
	st.transactions[t.ID] = t
	return nil
}

func (st *state) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	if _, ok := st.transactions[id]; !ok {
		return errs.ErrNotFound
	}
	delete(st.transactions, id)
	return nil
}

func (st *state) CreateTaxReserve(_ context.Context, r ledger.TaxReserve) error {
	if _, ok := st.reserves[r.ID]; ok {
		return errs.ErrConflict
	}
	st.reserves[r.ID] = r
	return nil
}

func (st *state) UpdateTaxReserve(_ context.Context, r ledger.TaxReserve) error {
	if _, ok := st.reserves[r.ID]; !ok {
		return errs.ErrNotFound
	}
	st.reserves[r.ID] = r
	return nil
}

func (st *state) DeleteTaxReserve(_ context.Context, id uuid.UUID) error {
	if _, ok := st.reserves[id]; !ok {
		return errs.ErrNotFound
	}
	delete(st.reserves, id)
	return nil
}

func (st *state) CreateCredit(_ context.Context, c ledger.Credit) error {
	if _, ok := st.credits[c.ID]; ok {
		return errs.ErrConflict
	}
	st.credits[c.ID] = c
	return nil
}

func (st *state) UpdateCredit(_ context.Context, c ledger.Credit) error {
	if _, ok := st.credits[c.ID]; !ok {
		return errs.ErrNotFound
	}
	st.credits[c.ID] = c
	return nil
}

func (st *state) DeleteCredit(_ context.Context, id uuid.UUID) error {
	if _, ok := st.credits[id]; !ok {
		return errs.ErrNotFound
	}
	delete(st.credits, id)
	return nil
}

func (st *state) CreateMortgage(_ context.Context, m ledger.Mortgage) error {
	if _, ok := st.mortgages[m.ID]; ok {
		return errs.ErrConflict
	}
	st.mortgages[m.ID] = m
	return nil
}

func (st *state) UpdateMortgage(_ context.Context, m ledger.Mortgage) error {
	if _, ok := st.mortgages[m.ID]; !ok {
		return errs.ErrNotFound
	}
	st.mortgages[m.ID] = m
	return nil
}

func (st *state) DeleteMortgage(_ context.Context, id uuid.UUID) error {
	if _, ok := st.mortgages[id]; !ok {
		return errs.ErrNotFound
	}
	for pid, p := range st.payments {
		if p.MortgageID == id {
			delete(st.payments, pid)
		}
	}
	delete(st.mortgages, id)
	return nil
}

func (st *state) CreateMortgagePayment(_ context.Context, p ledger.MortgagePayment) error {
	if _, ok := st.mortgages[p.MortgageID]; !ok {
		return errs.ErrNotFound
	}
	st.payments[p.ID] = p
	return nil
}

func (st *state) CreateInvestment(_ context.Context, inv ledger.Investment) error {
	if _, ok := st.accounts[inv.AccountID]; !ok {
		return errs.ErrNotFound
	}
	for _, existing := range st.investments {
		if existing.ID == inv.ID || (existing.AccountID == inv.AccountID && existing.Ticker == inv.Ticker) {
			return errs.ErrConflict
		}
	}
	st.investments[inv.ID] = inv
	return nil
}

func (st *state) UpdateInvestment(_ context.Context, inv ledger.Investment) error {
	if _, ok := st.investments[inv.ID]; !ok {
		return errs.ErrNotFound
	}
	st.investments[inv.ID] = inv
	return nil
}

func (st *state) DeleteInvestment(_ context.Context, id uuid.UUID) error {
	if _, ok := st.investments[id]; !ok {
		return errs.ErrNotFound
	}
	st.dropInvestment(id)
	return nil
}

func (st *state) dropInvestment(id uuid.UUID) {
	for tid, t := range st.invHistory {
		if t.InvestmentID == id {
			delete(st.invHistory, tid)
		}
	}
	delete(st.investments, id)
}

func (st *state) CreateInvestmentTransaction(_ context.Context, t ledger.InvestmentTransaction) error {
	if _, ok := st.investments[t.InvestmentID]; !ok {
		return errs.ErrNotFound
	}
	if _, ok := st.invHistory[t.ID]; ok {
		return errs.ErrConflict
	}
	st.invHistory[t.ID] = t
	return nil
}

func (st *state) DeleteInvestmentTransaction(_ context.Context, id uuid.UUID) error {
	if _, ok := st.invHistory[id]; !ok {
		return errs.ErrNotFound
	}
	delete(st.invHistory, id)
	return nil
}

func (st *state) CreateTaxPayment(_ context.Context, p ledger.TaxPayment) error {
	if _, ok := st.taxPayments[p.ID]; ok {
		return errs.ErrConflict
	}
	st.taxPayments[p.ID] = p
	return nil
}

func (st *state) UpdateTaxPayment(_ context.Context, p ledger.TaxPayment) error {
	if _, ok := st.taxPayments[p.ID]; !ok {
		return errs.ErrNotFound
	}
	st.taxPayments[p.ID] = p
	return nil
}

func (st *state) DeleteTaxPayment(_ context.Context, id uuid.UUID) error {
	if _, ok := st.taxPayments[id]; !ok {
		return errs.ErrNotFound
	}
	delete(st.taxPayments, id)
	return nil
}
