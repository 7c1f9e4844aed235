package v1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/service/account"
	"github.com/tinoosan/homeledger/internal/service/transaction"
	"github.com/tinoosan/homeledger/internal/storage"
)

type ctxKey string

const (
	ctxKeyPostAccount      ctxKey = "validatedPostAccount"
	ctxKeyTransaction      ctxKey = "validatedTransaction"
	ctxKeyListTransactions ctxKey = "validatedListTransactions"
)

// validatePostAccount parses POST /accounts and stores the account.Input.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if req.Name == "" {
				badRequest(w, "name is required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, toAccountInput(req))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateTransaction parses a transaction body and validates it through the
// service so handlers only see well-formed input.
func (s *Server) validateTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req transactionRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			in := toTransactionInput(req)
			if err := s.transactions.Validate(in); err != nil {
				s.writeServiceErr(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyTransaction, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateListTransactions parses the query of GET /transactions.
func (s *Server) validateListTransactions() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var f storage.TransactionFilter
			if raw := q.Get("account_id"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					badRequest(w, "invalid account_id")
					return
				}
				f.AccountID = &id
			}
			if raw := q.Get("type"); raw != "" {
				f.Type = ledger.TransactionType(raw)
				if !f.Type.Valid() {
					badRequest(w, "invalid type")
					return
				}
			}
			for _, p := range []struct {
				key string
				dst **time.Time
			}{{"from", &f.From}, {"to", &f.To}} {
				raw := q.Get(p.key)
				if raw == "" {
					continue
				}
				t, err := time.Parse(dateLayout, raw)
				if err != nil {
					badRequest(w, "invalid "+p.key+", want YYYY-MM-DD")
					return
				}
				*p.dst = &t
			}
			if raw := q.Get("limit"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					badRequest(w, "invalid limit")
					return
				}
				f.Limit = n
			}
			ctx := context.WithValue(r.Context(), ctxKeyListTransactions, f)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func toAccountInput(req postAccountRequest) account.Input {
	return account.Input{
		Name:               req.Name,
		Type:               req.Type,
		Balance:            req.Balance,
		CreditLimit:        req.CreditLimit,
		BankName:           req.BankName,
		Icon:               req.Icon,
		Color:              req.Color,
		TaxRate:            req.TaxRate,
		LinkedTaxAccountID: req.LinkedTaxAccountID,
		Card: account.CardTerms{
			MinPaymentPercent: req.MinPaymentPercent,
			GracePeriodDays:   req.GracePeriodDays,
			InterestRate:      req.InterestRate,
			StatementDay:      req.StatementDay,
			PaymentDueDay:     req.PaymentDueDay,
			CashbackPercent:   req.CashbackPercent,
			CurrentDebt:       req.CurrentDebt,
		},
	}
}

func toTransactionInput(req transactionRequest) transaction.Input {
	return transaction.Input{
		Type:        req.Type,
		Amount:      req.Amount,
		Date:        req.Date.value(),
		Description: req.Description,
		AccountID:   req.AccountID,
		ToAccountID: req.ToAccountID,
		CategoryID:  req.CategoryID,
		StoreID:     req.StoreID,
		Tags:        req.Tags,
	}
}

// pathID parses the {id} URL parameter, writing 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
