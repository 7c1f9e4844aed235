// Transaction and tax reserve handlers.
package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/service/transaction"
	"github.com/tinoosan/homeledger/internal/storage"
)

func (s *Server) toTransactionResponse(t ledger.Transaction) transactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionResponse{
		ID:            t.ID,
		Type:          t.Type,
		Amount:        s.curr.round(t.Amount),
		Currency:      s.curr.code,
		Date:          date{t.Date},
		Description:   t.Description,
		AccountID:     t.AccountID,
		ToAccountID:   t.ToAccountID,
		CategoryID:    t.CategoryID,
		StoreID:       t.StoreID,
		Tags:          tags,
		IsTaxTransfer: t.IsTaxTransfer,
		ParentID:      t.ParentID,
		CreatedAt:     t.CreatedAt,
	}
}

func (s *Server) toTaxReserveResponse(r ledger.TaxReserve) taxReserveResponse {
	return taxReserveResponse{
		ID:                    r.ID,
		BusinessAccountID:     r.BusinessAccountID,
		TaxAccountID:          r.TaxAccountID,
		SourceTransactionID:   r.SourceTransactionID,
		TransferTransactionID: r.TransferTransactionID,
		IncomeAmount:          s.curr.round(r.IncomeAmount),
		TaxAmount:             s.curr.round(r.TaxAmount),
		TaxRate:               r.TaxRate,
		Date:                  date{r.Date},
		IsTransferred:         r.IsTransferred,
	}
}

func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyTransaction).(transaction.Input)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	t, err := s.transactions.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, s.toTransactionResponse(t))
}

// listTransactions handles GET /v1/transactions?account_id=&type=&from=&to=&limit=
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	f, ok := r.Context().Value(ctxKeyListTransactions).(storage.TransactionFilter)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated query missing", "internal_error")
		return
	}
	ts, err := s.transactions.List(r.Context(), f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, s.toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toTransactionResponse(t))
}

// putTransaction replaces the editable fields, rolling back the old effect first.
func (s *Server) putTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := r.Context().Value(ctxKeyTransaction).(transaction.Input)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validated request missing", "internal_error")
		return
	}
	t, err := s.transactions.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, s.toTransactionResponse(t))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listTaxReserves handles GET /v1/taxes/reserves?business_account_id=&pending=
func (s *Server) listTaxReserves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f storage.TaxReserveFilter
	if raw := q.Get("business_account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid business_account_id")
			return
		}
		f.BusinessAccountID = &id
	}
	switch q.Get("pending") {
	case "":
	case "true", "1":
		pending := true
		f.Pending = &pending
	case "false", "0":
		pending := false
		f.Pending = &pending
	default:
		badRequest(w, "invalid pending")
		return
	}
	rs, err := s.transactions.ListTaxReserves(r.Context(), f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]taxReserveResponse, 0, len(rs))
	for _, res := range rs {
		out = append(out, s.toTaxReserveResponse(res))
	}
	toJSON(w, http.StatusOK, out)
}

// transferTax sweeps the pending reserves of a business account.
func (s *Server) transferTax(w http.ResponseWriter, r *http.Request) {
	var req taxTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BusinessAccountID == uuid.Nil {
		badRequest(w, "business_account_id is required")
		return
	}
	res, err := s.transactions.TransferTaxReserve(r.Context(), req.BusinessAccountID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, taxTransferResponse{
		Transaction: s.toTransactionResponse(res.Transaction),
		Reserves:    res.Reserves,
		Amount:      s.curr.round(res.Amount),
	})
}
