// Account and credit card handlers.
package v1

import (
	"net/http"

	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/service/account"
	"github.com/tinoosan/homeledger/internal/service/investment"
)

func (s *Server) toAccountResponse(v account.View) accountResponse {
	out := accountResponse{
		ID:                     v.ID,
		Name:                   v.Name,
		Type:                   v.Type,
		Currency:               s.curr.code,
		Balance:                s.curr.round(v.Balance),
		CreditLimit:            s.curr.round(v.CreditLimit),
		BankName:               v.BankName,
		Icon:                   v.Icon,
		Color:                  v.Color,
		TaxRate:                v.TaxRate,
		LinkedTaxAccountID:     v.LinkedTaxAccountID,
		LinkedBusinessAccounts: v.LinkedBusinessAccounts,
		CreatedAt:              v.CreatedAt,
	}
	if v.Card != nil {
		c := s.toCardResponse(*v.Card)
		out.Card = &c
	}
	if v.Type == ledger.AccountTypeBusiness {
		pending := s.curr.round(v.PendingTax)
		out.PendingTax = &pending
	}
	if p := v.Portfolio; p != nil {
		out.Portfolio = &accountPortfolio{
			TotalInvested:    s.curr.round(p.Invested),
			TotalCurrent:     s.curr.round(p.Current),
			Profit:           s.curr.round(p.Profit()),
			ProfitPercent:    round2(investment.ProfitPercent(p.Profit(), p.Invested)),
			InvestmentsCount: p.Count,
		}
	}
	return out
}

func (s *Server) toCardResponse(c ledger.CreditCard) cardResponse {
	return cardResponse{
		ID:                c.ID,
		AccountID:         c.AccountID,
		CreditLimit:       s.curr.round(c.CreditLimit),
		CurrentDebt:       s.curr.round(c.CurrentDebt),
		AvailableLimit:    s.curr.round(c.AvailableLimit()),
		MinPayment:        s.curr.round(c.MinPayment()),
		MinPaymentPercent: c.MinPaymentPercent,
		Utilization:       round1(c.Utilization()),
		GracePeriodDays:   c.GracePeriodDays,
		InterestRate:      c.InterestRate,
		StatementDay:      c.StatementDay,
		PaymentDueDay:     c.PaymentDueDay,
		CashbackPercent:   c.CashbackPercent,
	}
}

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostAccount).(account.Input)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	v, err := s.accounts.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toAccountResponse(v))
}

// listAccounts handles GET /v1/accounts?type=...
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	vs, err := s.accounts.List(r.Context(), ledger.AccountType(r.URL.Query().Get("type")))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, s.toAccountResponse(v))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toAccountResponse(v))
}

// patchAccount edits descriptive fields; the balance only moves through transactions.
func (s *Server) patchAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := s.accounts.Update(r.Context(), id, account.Patch{
		Name:               req.Name,
		BankName:           req.BankName,
		Icon:               req.Icon,
		Color:              req.Color,
		CreditLimit:        req.CreditLimit,
		TaxRate:            req.TaxRate,
		LinkedTaxAccountID: req.LinkedTaxAccountID,
		UnlinkTaxAccount:   req.UnlinkTaxAccount,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toAccountResponse(v))
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.accounts.ListCards(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, s.toCardResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) patchCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.accounts.UpdateCard(r.Context(), id, account.CardPatch(req))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toCardResponse(c))
}

// payCard records a transfer from the paying account into the card account.
func (s *Server) payCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req payCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := s.transactions.PayCreditCard(r.Context(), id, req.FromAccountID, req.Amount, req.Date.value())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toTransactionResponse(t))
}

// putCardDebt overwrites the card debt; negative input is stored as its absolute value.
func (s *Server) putCardDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req cardDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.accounts.SetCardDebt(r.Context(), id, req.CurrentDebt)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toCardResponse(c))
}
