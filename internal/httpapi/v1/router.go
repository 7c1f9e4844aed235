// Package v1 wires the HTTP surface of the household ledger.
// Handlers stay thin and delegate business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/homeledger/internal/service/account"
	"github.com/tinoosan/homeledger/internal/service/debt"
	"github.com/tinoosan/homeledger/internal/service/investment"
	"github.com/tinoosan/homeledger/internal/service/taxes"
	"github.com/tinoosan/homeledger/internal/service/transaction"
	"github.com/tinoosan/homeledger/internal/storage"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	accounts     account.Service
	transactions transaction.Service
	debts        debt.Service
	investments  investment.Service
	taxes        taxes.Service
	ready        ReadyChecker
	curr         currency
	auth         authConfig
	idem         *idempotencyCache
	now          func() time.Time
	log          *slog.Logger
	rt           *chi.Mux
}

type settings struct {
	currency     string
	autoTransfer bool
	auth         authConfig
	now          func() time.Time
}

// Option configures the server.
type Option func(*settings)

// WithCurrency sets the ISO 4217 code amounts are rounded and reported in.
func WithCurrency(code string) Option { return func(s *settings) { s.currency = code } }

// WithTaxAutoTransfer is passed through to the transaction service.
func WithTaxAutoTransfer(on bool) Option { return func(s *settings) { s.autoTransfer = on } }

// WithJWT enables HS256 bearer auth on /v1 routes.
func WithJWT(secret, issuer, audience string) Option {
	return func(s *settings) { s.auth = authConfig{secret: secret, issuer: issuer, audience: audience} }
}

// WithClock overrides time.Now in every service.
func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

// New constructs the HTTP server and its services on top of store.
func New(store storage.Store, logger *slog.Logger, opts ...Option) (*Server, error) {
	cfg := settings{currency: "RUB", autoTransfer: true, now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	curr, err := newCurrency(cfg.currency)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		accounts: account.New(store, logger),
		transactions: transaction.New(store, logger,
			transaction.WithClock(cfg.now), transaction.WithTaxAutoTransfer(cfg.autoTransfer)),
		debts: debt.New(store, logger, debt.WithClock(cfg.now)),
		investments: investment.New(store, logger,
			investment.WithClock(cfg.now), investment.WithCurrency(cfg.currency)),
		taxes: taxes.New(store, logger, taxes.WithClock(cfg.now)),
		ready: store,
		curr:  curr,
		auth:  cfg.auth,
		idem:  newIdempotencyCache(),
		now:   cfg.now,
		log:   logger,
		rt:    r,
	}
	s.routes()
	return s, nil
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches per-route middleware.
func (s *Server) routes() {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Route("/v1", func(r chi.Router) {
		if mw := s.auth.middleware(); mw != nil {
			r.Use(mw)
		}

		r.Get("/accounts", s.listAccounts)
		r.With(s.validatePostAccount()).Post("/accounts", s.postAccount)
		r.Get("/accounts/{id}", s.getAccount)
		r.Patch("/accounts/{id}", s.patchAccount)
		r.Delete("/accounts/{id}", s.deleteAccount)

		r.Get("/credit-cards", s.listCards)
		r.Patch("/credit-cards/{id}", s.patchCard)
		r.Post("/credit-cards/{id}/pay", s.payCard)
		r.Put("/credit-cards/{id}/debt", s.putCardDebt)

		r.With(s.validateListTransactions()).Get("/transactions", s.listTransactions)
		r.With(s.idempotent, s.validateTransaction()).Post("/transactions", s.postTransaction)
		r.Get("/transactions/{id}", s.getTransaction)
		r.With(s.validateTransaction()).Put("/transactions/{id}", s.putTransaction)
		r.Delete("/transactions/{id}", s.deleteTransaction)

		r.Get("/taxes", s.taxOverview)
		r.Post("/taxes", s.postTaxPayment)
		r.Get("/taxes/reserves", s.listTaxReserves)
		r.Post("/taxes/transfer", s.transferTax)
		r.Get("/taxes/{id}", s.getTaxPayment)
		r.Patch("/taxes/{id}", s.patchTaxPayment)
		r.Delete("/taxes/{id}", s.deleteTaxPayment)
		r.Post("/taxes/{id}/pay", s.payTaxPayment)

		r.Get("/investments", s.listInvestments)
		r.Post("/investments", s.postInvestment)
		r.Get("/investments/summary", s.investmentSummary)
		r.Delete("/investments/transactions/{txID}", s.deleteInvestmentTx)
		r.Get("/investments/{id}", s.getInvestment)
		r.Patch("/investments/{id}", s.patchInvestment)
		r.Delete("/investments/{id}", s.deleteInvestment)
		r.Post("/investments/{id}/buy", s.buyInvestment)
		r.Post("/investments/{id}/sell", s.sellInvestment)
		r.Post("/investments/{id}/dividend", s.dividendInvestment)
		r.Get("/investments/{id}/transactions", s.investmentHistory)

		r.Get("/credits", s.listCredits)
		r.Post("/credits", s.postCredit)
		r.Get("/credits/{id}", s.getCredit)
		r.Patch("/credits/{id}", s.patchCredit)
		r.Delete("/credits/{id}", s.deleteCredit)
		r.Post("/credits/{id}/pay", s.payCredit)

		r.Get("/mortgages", s.listMortgages)
		r.Post("/mortgages", s.postMortgage)
		r.Get("/mortgages/{id}", s.getMortgage)
		r.Patch("/mortgages/{id}", s.patchMortgage)
		r.Delete("/mortgages/{id}", s.deleteMortgage)
		r.Post("/mortgages/{id}/pay", s.payMortgage)
		r.Get("/mortgages/{id}/payments", s.listMortgagePayments)

		r.Post("/calculator/credit", s.calculateCredit)
		r.Post("/calculator/mortgage", s.calculateMortgage)
	})
}
