// Tax payment handlers.
package v1

import (
	"net/http"
	"strconv"

	"github.com/tinoosan/homeledger/internal/service/taxes"
)

func (s *Server) toTaxPaymentResponse(v taxes.PaymentView) taxPaymentResponse {
	out := taxPaymentResponse{
		ID:          v.ID,
		TaxType:     v.TaxType,
		Amount:      s.curr.round(v.Amount),
		PeriodStart: date{v.PeriodStart},
		PeriodEnd:   date{v.PeriodEnd},
		DueDate:     date{v.DueDate},
		IsPaid:      v.IsPaid,
		IsOverdue:   v.Overdue,
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
	}
	if v.PaidDate != nil {
		out.PaidDate = &date{*v.PaidDate}
	}
	return out
}

func (req patchTaxPaymentRequest) patch() taxes.Patch {
	p := taxes.Patch{TaxType: req.TaxType, Amount: req.Amount, Description: req.Description}
	if req.PeriodStart != nil {
		p.PeriodStart = &req.PeriodStart.Time
	}
	if req.PeriodEnd != nil {
		p.PeriodEnd = &req.PeriodEnd.Time
	}
	if req.DueDate != nil {
		p.DueDate = &req.DueDate.Time
	}
	return p
}

func (s *Server) taxOverview(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1 || y > 9999 {
			badRequest(w, "invalid year")
			return
		}
		year = y
	}
	o, err := s.taxes.Overview(r.Context(), year)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := taxOverviewResponse{
		Year:            o.Year,
		Payments:        make([]taxPaymentResponse, 0, len(o.Payments)),
		Reserves:        make([]reserveTotalsResponse, 0, len(o.Reserves)),
		ReserveAccounts: make([]reserveAccountResponse, 0, len(o.ReserveAccounts)),
		Summary: taxSummaryResponse{
			TotalPaid:              s.curr.round(o.TotalPaid),
			TotalPending:           s.curr.round(o.TotalPending),
			TotalReserves:          s.curr.round(o.TotalReserves),
			TotalInReserveAccounts: s.curr.round(o.TotalInReserveAccounts),
		},
	}
	for _, p := range o.Payments {
		out.Payments = append(out.Payments, s.toTaxPaymentResponse(p))
	}
	for _, t := range o.Reserves {
		out.Reserves = append(out.Reserves, reserveTotalsResponse{
			AccountID:   t.AccountID,
			AccountName: t.AccountName,
			TotalIncome: s.curr.round(t.TotalIncome),
			TotalTax:    s.curr.round(t.TotalTax),
			PendingTax:  s.curr.round(t.PendingTax),
		})
	}
	for _, a := range o.ReserveAccounts {
		out.ReserveAccounts = append(out.ReserveAccounts, reserveAccountResponse{ID: a.ID, Name: a.Name, Balance: s.curr.round(a.Balance)})
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postTaxPayment(w http.ResponseWriter, r *http.Request) {
	var req taxPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.taxes.Create(r.Context(), taxes.Input{
		TaxType:     req.TaxType,
		Amount:      req.Amount,
		PeriodStart: req.PeriodStart.value(),
		PeriodEnd:   req.PeriodEnd.value(),
		DueDate:     req.DueDate.value(),
		Description: req.Description,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	v, err := s.taxes.Get(r.Context(), p.ID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toTaxPaymentResponse(v))
}

func (s *Server) getTaxPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.taxes.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toTaxPaymentResponse(v))
}

func (s *Server) patchTaxPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchTaxPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.taxes.Update(r.Context(), id, req.patch()); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	s.getTaxPayment(w, r)
}

func (s *Server) deleteTaxPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.taxes.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) payTaxPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req payTaxRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.taxes.Pay(r.Context(), id, req.Date.value()); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	s.getTaxPayment(w, r)
}
