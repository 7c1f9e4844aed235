// Investment position handlers.
package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/service/investment"
)

func (s *Server) toInvestmentTx(t ledger.InvestmentTransaction) investmentTxResponse {
	return investmentTxResponse{
		ID:          t.ID,
		Type:        t.Type,
		Quantity:    t.Quantity,
		Price:       t.Price,
		TotalAmount: s.curr.round(t.TotalAmount),
		Commission:  s.curr.round(t.Commission),
		Date:        date{t.Date},
		Notes:       t.Notes,
	}
}

func (s *Server) toInvestmentResponse(v investment.View) investmentResponse {
	out := investmentResponse{
		ID:                  v.ID,
		AccountID:           v.AccountID,
		Ticker:              v.Ticker,
		Name:                v.Name,
		AssetType:           v.AssetType,
		Quantity:            v.Quantity,
		AvgBuyPrice:         v.AvgBuyPrice,
		CurrentPrice:        v.CurrentPrice,
		Currency:            v.Currency,
		Sector:              v.Sector,
		DividendsReceived:   s.curr.round(v.DividendsReceived),
		Invested:            s.curr.round(v.Invested()),
		CurrentValue:        s.curr.round(v.CurrentValue),
		Profit:              s.curr.round(v.Profit),
		ProfitPercent:       round2(v.ProfitPercent),
		TotalReturn:         s.curr.round(v.TotalReturn),
		TotalBoughtQuantity: v.TotalBoughtQuantity,
		TotalSpent:          s.curr.round(v.TotalSpent),
		LastUpdated:         v.LastUpdated,
		CreatedAt:           v.CreatedAt,
	}
	for _, t := range v.Transactions {
		out.Transactions = append(out.Transactions, s.toInvestmentTx(t))
	}
	return out
}

func (s *Server) toBuckets(in map[string]investment.Bucket) map[string]bucketResponse {
	out := make(map[string]bucketResponse, len(in))
	for k, b := range in {
		out[k] = bucketResponse{Invested: s.curr.round(b.Invested), Current: s.curr.round(b.Current), Count: b.Count}
	}
	return out
}

func (req tradeRequest) trade() investment.Trade {
	return investment.Trade{Quantity: req.Quantity, Price: req.Price, Commission: req.Commission, Date: req.Date.value(), Notes: req.Notes}
}

func (s *Server) listInvestments(w http.ResponseWriter, r *http.Request) {
	var accountID *uuid.UUID
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid account_id")
			return
		}
		accountID = &id
	}
	vs, err := s.investments.List(r.Context(), accountID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]investmentResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, s.toInvestmentResponse(v))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, created, err := s.investments.Create(r.Context(), investment.Input{
		AccountID:    req.AccountID,
		Ticker:       req.Ticker,
		Name:         req.Name,
		AssetType:    req.AssetType,
		Quantity:     req.Quantity,
		Price:        req.Price,
		CurrentPrice: req.CurrentPrice,
		Currency:     req.Currency,
		Sector:       req.Sector,
		Commission:   req.Commission,
		Date:         req.Date.value(),
		Notes:        req.Notes,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	toJSON(w, status, s.toInvestmentResponse(v))
}

func (s *Server) investmentSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.investments.Summary(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, portfolioResponse{
		TotalInvested:      s.curr.round(sum.TotalInvested),
		TotalCurrent:       s.curr.round(sum.TotalCurrent),
		TotalProfit:        s.curr.round(sum.TotalProfit),
		TotalProfitPercent: round2(sum.TotalProfitPercent),
		TotalDividends:     s.curr.round(sum.TotalDividends),
		TotalReturn:        s.curr.round(sum.TotalReturn),
		PositionsCount:     sum.PositionsCount,
		ByType:             s.toBuckets(sum.ByType),
		BySector:           s.toBuckets(sum.BySector),
		ByCurrency:         s.toBuckets(sum.ByCurrency),
	})
}

func (s *Server) getInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.investments.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toInvestmentResponse(v))
}

func (s *Server) patchInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchInvestmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := s.investments.Update(r.Context(), id, investment.Patch{
		Name:         req.Name,
		AssetType:    req.AssetType,
		CurrentPrice: req.CurrentPrice,
		Currency:     req.Currency,
		Sector:       req.Sector,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toInvestmentResponse(v))
}

func (s *Server) deleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.investments.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) buyInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.investments.Buy(r.Context(), id, req.trade()); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	s.getInvestment(w, r)
}

func (s *Server) sellInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sale, err := s.investments.Sell(r.Context(), id, req.trade())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, saleResponse{
		Profit:            s.curr.round(sale.Profit),
		ProfitPercent:     round2(sale.ProfitPercent),
		RemainingQuantity: sale.RemainingQuantity,
		Closed:            sale.Closed,
	})
}

func (s *Server) dividendInvestment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req dividendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d := investment.Dividend{Amount: req.Amount, Tax: req.Tax, Date: req.Date.value(), Notes: req.Notes}
	if _, err := s.investments.AddDividend(r.Context(), id, d); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	s.getInvestment(w, r)
}

func (s *Server) investmentHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hist, err := s.investments.History(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]investmentTxResponse, 0, len(hist))
	for _, t := range hist {
		out = append(out, s.toInvestmentTx(t))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) deleteInvestmentTx(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "txID"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.investments.DeleteTransaction(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
