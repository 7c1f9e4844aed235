package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/homeledger/internal/config"
	httpapi "github.com/tinoosan/homeledger/internal/httpapi/v1"
	"github.com/tinoosan/homeledger/internal/ledger"
	"github.com/tinoosan/homeledger/internal/service/account"
	"github.com/tinoosan/homeledger/internal/storage"
	"github.com/tinoosan/homeledger/internal/storage/memory"
	pgstore "github.com/tinoosan/homeledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("homeledger exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var store storage.Store
	backend := "memory"
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := pgstore.RunMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied")
		}
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		store, backend = pg, "postgres"
	} else {
		store = memory.New()
	}
	logger.Info("storage backend: " + backend)

	// The in-memory store always starts with a few accounts to play with.
	if cfg.DevSeed || backend == "memory" {
		accs, err := seedDev(ctx, account.New(store, logger))
		if err != nil {
			logger.Error("dev seed failed", "err", err)
		} else if len(accs) > 0 {
			logDevSeed(logger, backend, accs)
			printDevSeedBanner(accs)
		}
	}

	api, err := httpapi.New(store, logger,
		httpapi.WithCurrency(cfg.DefaultCurrency),
		httpapi.WithTaxAutoTransfer(cfg.TaxAutoTransfer),
		httpapi.WithJWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("homeledger listening", "addr", srv.Addr, "currency", cfg.DefaultCurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
			return err
		}
		return nil
	})
	return g.Wait()
}

// seedDev creates a starter set of accounts unless the store already has some.
func seedDev(ctx context.Context, accounts account.Service) ([]account.View, error) {
	existing, err := accounts.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}
	var out []account.View
	create := func(in account.Input) (account.View, error) {
		v, err := accounts.Create(ctx, in)
		if err == nil {
			out = append(out, v)
		}
		return v, err
	}
	if _, err := create(account.Input{Name: "Cash", Type: ledger.AccountTypeCash, Balance: 5000}); err != nil {
		return nil, err
	}
	if _, err := create(account.Input{Name: "Salary card", Type: ledger.AccountTypeDebit, Balance: 50000, BankName: "Demo Bank"}); err != nil {
		return nil, err
	}
	if _, err := create(account.Input{Name: "Credit card", Type: ledger.AccountTypeCreditCard, CreditLimit: 100000, BankName: "Demo Bank"}); err != nil {
		return nil, err
	}
	tax, err := create(account.Input{Name: "Tax reserve", Type: ledger.AccountTypeTaxReserve})
	if err != nil {
		return nil, err
	}
	id := tax.ID
	if _, err := create(account.Input{Name: "Business", Type: ledger.AccountTypeBusiness, TaxRate: 6, LinkedTaxAccountID: &id}); err != nil {
		return nil, err
	}
	return out, nil
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, accs []account.View) {
	ids := map[string]string{}
	for _, a := range accs {
		ids[string(a.Type)+"_account_id"] = a.ID.String()
	}
	l.Info("DEV seed ("+backend+")", "ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(accs []account.View) {
	fmt.Println("==================== DEV SEED ====================")
	for _, a := range accs {
		fmt.Printf("%s_account_id: %s (%s)\n", a.Type, a.ID, a.Name)
	}
	fmt.Println("==================================================")
}

func buildLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
