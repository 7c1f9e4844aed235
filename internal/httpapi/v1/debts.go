// Credit and mortgage handlers.
package v1

import (
	"math"
	"net/http"

	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/service/debt"
)

func round1(f float64) float64 { return math.Round(f*10) / 10 }

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func (s *Server) toDebtResponse(d ledger.Debt, p debt.Progress) debtResponse {
	return debtResponse{
		ID:                 d.ID,
		Name:               d.Name,
		BankName:           d.BankName,
		Currency:           s.curr.code,
		OriginalAmount:     s.curr.round(d.OriginalAmount),
		RemainingAmount:    s.curr.round(d.RemainingAmount),
		InterestRate:       d.InterestRate,
		TermMonths:         d.TermMonths,
		RemainingMonths:    d.RemainingMonths,
		MonthlyPayment:     s.curr.round(d.MonthlyPayment),
		PaymentType:        d.PaymentType,
		PaymentDay:         d.PaymentDay,
		StartDate:          date{d.StartDate},
		NextPaymentDate:    date{d.NextPaymentDate},
		ExtraPaymentsTotal: s.curr.round(d.ExtraPaymentsTotal),
		MonthsPaid:         p.MonthsPaid,
		TotalPaid:          s.curr.round(p.TotalPaid),
		Progress:           p.ProgressPercent,
		DaysUntilPayment:   p.DaysUntilPayment,
		IsPaymentSoon:      p.IsPaymentSoon,
		CreatedAt:          d.CreatedAt,
	}
}

func (s *Server) toCreditResponse(v debt.CreditView) creditResponse {
	return creditResponse{
		debtResponse:         s.toDebtResponse(v.Debt, v.Progress),
		CreditType:           v.CreditType,
		PaidInterest:         s.curr.round(v.PaidInterest),
		TotalOverpayment:     s.curr.round(v.TotalOverpayment),
		RemainingOverpayment: s.curr.round(v.RemainingOverpayment),
	}
}

func (s *Server) toMortgageResponse(v debt.MortgageView) mortgageResponse {
	return mortgageResponse{
		debtResponse:      s.toDebtResponse(v.Debt, v.Progress),
		PropertyAddress:   v.PropertyAddress,
		PropertyValue:     s.curr.round(v.PropertyValue),
		DownPayment:       s.curr.round(v.DownPayment),
		InsuranceYearly:   s.curr.round(v.InsuranceYearly),
		PropertyTaxYearly: s.curr.round(v.PropertyTaxYearly),
		Overpayment:       s.curr.round(v.Overpayment),
		MonthsSaved:       v.MonthsSaved,
		MonthlyExtraCosts: s.curr.round(v.MonthlyExtraCosts),
		TotalMonthlyCost:  s.curr.round(v.TotalMonthlyCost),
		Equity:            s.curr.round(v.Equity),
	}
}

func (s *Server) toCreatedDebt(d ledger.Debt, inf debt.Inference) createdDebtResponse {
	return createdDebtResponse{ID: d.ID, Inference: inferenceResponse{
		MonthsPassed:    inf.MonthsPassed,
		RemainingAmount: s.curr.round(inf.RemainingAmount),
		RemainingMonths: inf.RemainingMonths,
		MonthlyPayment:  s.curr.round(inf.MonthlyPayment),
		Degenerate:      inf.Degenerate,
	}}
}

func (s *Server) toPaymentResponse(p debt.PaymentResult) paymentResponse {
	return paymentResponse{
		RemainingAmount: s.curr.round(p.RemainingAmount),
		RemainingMonths: p.RemainingMonths,
		MonthlyPayment:  s.curr.round(p.MonthlyPayment),
		NextPaymentDate: date{p.NextPaymentDate},
		Principal:       s.curr.round(p.Principal),
		Interest:        s.curr.round(p.Interest),
		Degenerate:      p.Degenerate,
	}
}

func (req debtTermsRequest) terms() debt.Terms {
	return debt.Terms{
		Name:            req.Name,
		BankName:        req.BankName,
		OriginalAmount:  req.OriginalAmount,
		InterestRate:    req.InterestRate,
		TermMonths:      req.TermMonths,
		PaymentType:     req.PaymentType,
		MonthlyPayment:  req.MonthlyPayment,
		PaymentDay:      req.PaymentDay,
		StartDate:       req.StartDate.value(),
		RemainingAmount: req.RemainingAmount,
		RemainingMonths: req.RemainingMonths,
	}
}

func (req debtPatchRequest) patch() debt.Patch {
	p := debt.Patch{
		Name:            req.Name,
		BankName:        req.BankName,
		OriginalAmount:  req.OriginalAmount,
		RemainingAmount: req.RemainingAmount,
		InterestRate:    req.InterestRate,
		TermMonths:      req.TermMonths,
		RemainingMonths: req.RemainingMonths,
		MonthlyPayment:  req.MonthlyPayment,
		PaymentType:     req.PaymentType,
		PaymentDay:      req.PaymentDay,
	}
	if req.StartDate != nil {
		p.StartDate = &req.StartDate.Time
	}
	if req.NextPaymentDate != nil {
		p.NextPaymentDate = &req.NextPaymentDate.Time
	}
	return p
}

func (req payDebtRequest) input() (debt.PaymentInput, bool) {
	if req.ReduceType != "" && !req.ReduceType.Valid() {
		return debt.PaymentInput{}, false
	}
	return debt.PaymentInput{Amount: req.Amount, IsExtra: req.IsExtra, ReduceType: req.ReduceType, Date: req.Date.value()}, true
}

// --- credits ---

func (s *Server) listCredits(w http.ResponseWriter, r *http.Request) {
	vs, err := s.debts.ListCredits(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]creditResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, s.toCreditResponse(v))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postCredit(w http.ResponseWriter, r *http.Request) {
	var req postCreditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, inf, err := s.debts.CreateCredit(r.Context(), debt.CreditInput{Terms: req.terms(), CreditType: req.CreditType})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toCreatedDebt(c.Debt, inf))
}

func (s *Server) getCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.debts.GetCredit(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toCreditResponse(v))
}

func (s *Server) patchCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchCreditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.debts.UpdateCredit(r.Context(), id, debt.CreditPatch{Patch: req.patch(), CreditType: req.CreditType}); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	s.getCredit(w, r)
}

func (s *Server) deleteCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.debts.DeleteCredit(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) payCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req payDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input()
	if !ok {
		badRequest(w, "reduce_type must be term or payment")
		return
	}
	res, err := s.debts.PayCredit(r.Context(), id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toPaymentResponse(res))
}

// --- mortgages ---

func (s *Server) listMortgages(w http.ResponseWriter, r *http.Request) {
	vs, err := s.debts.ListMortgages(r.Context())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]mortgageResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, s.toMortgageResponse(v))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postMortgage(w http.ResponseWriter, r *http.Request) {
	var req postMortgageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, inf, err := s.debts.CreateMortgage(r.Context(), debt.MortgageInput{
		Terms:             req.terms(),
		PropertyAddress:   req.PropertyAddress,
		PropertyValue:     req.PropertyValue,
		DownPayment:       req.DownPayment,
		InsuranceYearly:   req.InsuranceYearly,
		PropertyTaxYearly: req.PropertyTaxYearly,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toCreatedDebt(m.Debt, inf))
}

func (s *Server) getMortgage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.debts.GetMortgage(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toMortgageResponse(v))
}

func (s *Server) patchMortgage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req patchMortgageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	_, err := s.debts.UpdateMortgage(r.Context(), id, debt.MortgagePatch{
		Patch:             req.patch(),
		PropertyAddress:   req.PropertyAddress,
		PropertyValue:     req.PropertyValue,
		DownPayment:       req.DownPayment,
		InsuranceYearly:   req.InsuranceYearly,
		PropertyTaxYearly: req.PropertyTaxYearly,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	s.getMortgage(w, r)
}

func (s *Server) deleteMortgage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.debts.DeleteMortgage(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) payMortgage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req payDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input()
	if !ok {
		badRequest(w, "reduce_type must be term or payment")
		return
	}
	res, err := s.debts.PayMortgage(r.Context(), id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toPaymentResponse(res))
}

// listMortgagePayments returns the payment history newest first.
func (s *Server) listMortgagePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ps, err := s.debts.MortgagePayments(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]mortgagePaymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, mortgagePaymentResponse{
			ID:         p.ID,
			Date:       date{p.Date},
			Amount:     s.curr.round(p.Amount),
			Principal:  s.curr.round(p.Principal),
			Interest:   s.curr.round(p.Interest),
			IsExtra:    p.IsExtra,
			ReduceType: p.ReduceType,
		})
	}
	toJSON(w, http.StatusOK, out)
}
