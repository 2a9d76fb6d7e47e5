package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paystore/internal/conf"
	"paystore/internal/history"
	"paystore/internal/payment"
	"paystore/internal/paymentqueue"
	"paystore/internal/product"
	"paystore/internal/store"
	"paystore/pkg/api"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the purchase daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

// openJournal returns nil when the journal is disabled or unreachable.
func openJournal(cfg *conf.Config) *history.Journal {
	if !cfg.Postgres.Enabled {
		return nil
	}
	journal, err := history.Open(journalConfig(cfg))
	if err != nil {
		glog.Warningf("Failed to open payment journal, continuing without it: %v", err)
		return nil
	}
	return journal
}

func journalConfig(cfg *conf.Config) history.Config {
	return history.Config{
		Host:          cfg.Postgres.Host,
		Port:          cfg.Postgres.Port,
		DB:            cfg.Postgres.DB,
		User:          cfg.Postgres.User,
		Password:      cfg.Postgres.Password,
		RetentionDays: cfg.Postgres.RetentionDays,
	}
}

func serve(cfg *conf.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	queue, err := paymentqueue.Connect(paymentqueue.Config{
		Host:           cfg.Nats.Host,
		Port:           cfg.Nats.Port,
		Username:       cfg.Nats.Username,
		Password:       cfg.Nats.Password,
		SubjectPrefix:  cfg.Nats.SubjectPrefix,
		RequestTimeout: cfg.Nats.RequestTimeout,
	})
	if err != nil {
		return err
	}
	defer queue.Close()

	receipts := paymentqueue.NewReceiptPublisher(queue.Conn(), cfg.Nats.SubjectPrefix)
	products := product.NewCache(product.NewCatalogClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout))

	svcOpts := []payment.Option{payment.WithDelegate(receipts)}
	apiOpts := []api.Option{api.WithResults(receipts)}
	if journal := openJournal(cfg); journal != nil {
		defer journal.Close()
		svcOpts = append(svcOpts, payment.WithJournal(journal))
		apiOpts = append(apiOpts, api.WithJournal(journal))
	}

	svc := payment.NewService(queue, products, store.NewOrders(st), svcOpts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	// completed orders left by a previous run go to the receipt publisher
	if err := svc.RestorePendingOrders(ctx); err != nil {
		glog.Errorf("startup restore sweep failed: %v", err)
	}

	server := api.NewServer(cfg.APIAddress, svc, apiOpts...)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		glog.Infof("received %s, shutting down gracefully", sig)
	case err := <-serverErr:
		if err != nil {
			glog.Errorf("api server stopped: %v", err)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("api server shutdown: %v", err)
	}
	return nil
}
