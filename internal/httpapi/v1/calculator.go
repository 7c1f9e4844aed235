// Stateless loan calculators.
package v1

import (
	"net/http"

	"github.com/tinoosan/homeledger/internal/amortization"
	"github.com/tinoosan/homeledger/internal/metrics"
)

// displayRows caps the credit schedule returned to clients.
const displayRows = 36

func (s *Server) toRows(rows []amortization.Row) []scheduleRow {
	out := make([]scheduleRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, scheduleRow{
			Month:     r.Month,
			Payment:   s.curr.round(r.Payment),
			Principal: s.curr.round(r.Principal),
			Interest:  s.curr.round(r.Interest),
			Remaining: s.curr.round(r.Remaining),
			TotalPaid: s.curr.round(r.TotalPaid),
			IsPaid:    r.IsPaid,
		})
	}
	return out
}

func (s *Server) toStrategy(st amortization.Strategy) strategyResponse {
	return strategyResponse{
		TermMonths:      st.TermMonths,
		RemainingMonths: st.RemainingMonths,
		MonthlyPayment:  s.curr.round(st.MonthlyPayment),
		TotalPayment:    s.curr.round(st.TotalPayment),
		Overpayment:     s.curr.round(st.Overpayment),
		Savings:         s.curr.round(st.Savings),
		MonthsSaved:     st.MonthsSaved,
	}
}

func (s *Server) calculateCredit(w http.ResponseWriter, r *http.Request) {
	var req creditCalcRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentType != "" && !req.PaymentType.Valid() {
		badRequest(w, "payment_type must be annuity or differentiated")
		return
	}
	q := amortization.CreditQuery{
		Principal:  req.Amount,
		AnnualRate: req.InterestRate,
		TermMonths: req.TermMonths,
		Scheme:     req.PaymentType,
		Extra:      req.ExtraPayment,
		PaymentDay: req.PaymentDay,
		Today:      s.now(),
	}
	if req.StartDate != nil && !req.StartDate.IsZero() {
		q.StartDate = &req.StartDate.Time
	}
	calc, err := amortization.ComputeSchedule(q)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if calc.Degenerate {
		metrics.AmortizationDegenerate.Inc()
		s.log.Warn("credit calculator hit a degenerate schedule", "amount", req.Amount, "rate", req.InterestRate, "term", req.TermMonths)
	}
	rows := calc.Schedule
	if len(rows) > displayRows {
		rows = rows[:displayRows]
	}
	strategies := map[string]strategyResponse{"base": s.toStrategy(calc.Base)}
	if calc.WithExtra != nil {
		strategies["with_extra"] = s.toStrategy(*calc.WithExtra)
	}
	toJSON(w, http.StatusOK, creditCalcResponse{
		MonthlyPayment:   s.curr.round(calc.MonthlyPayment),
		TotalPayment:     s.curr.round(calc.TotalPayment),
		Overpayment:      s.curr.round(calc.Overpayment),
		MonthsPassed:     calc.MonthsPassed,
		CurrentRemaining: s.curr.round(calc.CurrentRemaining),
		RemainingMonths:  calc.RemainingMonths,
		PaidPrincipal:    s.curr.round(calc.PaidPrincipal),
		PaidInterest:     s.curr.round(calc.PaidInterest),
		Schedule:         s.toRows(rows),
		Strategies:       strategies,
		Degenerate:       calc.Degenerate,
	})
}

func (s *Server) calculateMortgage(w http.ResponseWriter, r *http.Request) {
	var req mortgageCalcRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentType != "" && !req.PaymentType.Valid() {
		badRequest(w, "payment_type must be annuity or differentiated")
		return
	}
	calc, err := amortization.CalculateMortgage(amortization.MortgageQuery{
		PropertyValue: req.PropertyValue,
		DownPayment:   req.DownPayment,
		AnnualRate:    req.InterestRate,
		TermMonths:    req.TermMonths,
		Scheme:        req.PaymentType,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if calc.Degenerate {
		metrics.AmortizationDegenerate.Inc()
	}
	toJSON(w, http.StatusOK, mortgageCalcResponse{
		LoanAmount:         s.curr.round(calc.LoanAmount),
		MonthlyPayment:     s.curr.round(calc.MonthlyPayment),
		MonthlyPaymentLast: s.curr.round(calc.LastPayment),
		TotalPayment:       s.curr.round(calc.TotalPayment),
		Overpayment:        s.curr.round(calc.Overpayment),
		Schedule:           s.toRows(calc.Schedule),
		Degenerate:         calc.Degenerate,
	})
}
