package main

import (
	"context"
	"fmt"

	"paystore/internal/conf"
	"paystore/internal/models"
	"paystore/internal/payment"
	"paystore/internal/paymentqueue"
	"paystore/internal/store"
	"paystore/pkg/utils"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

// offline is a payment service over the local store without a payment queue.
// It serves the commands that never submit or reconcile.
type offline struct {
	svc     *payment.Service
	closers []func() error
}

func (o *offline) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		if err := o.closers[i](); err != nil {
			glog.Warningf("close: %v", err)
		}
	}
}

func openOffline(ctx context.Context, cfg *conf.Config, opts ...payment.Option) (*offline, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	o := &offline{closers: []func() error{st.Close}}

	if journal := openJournal(cfg); journal != nil {
		o.closers = append(o.closers, journal.Close)
		opts = append(opts, payment.WithJournal(journal))
	}
	o.svc = payment.NewService(nil, nil, store.NewOrders(st), opts...)
	return o, nil
}

func newOrdersCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and manage local orders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every local order record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*configPath)
			if err != nil {
				return err
			}
			o, err := openOffline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer o.Close()

			records, err := o.svc.Orders(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), utils.PrettyJSON(records))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <orderId>",
		Short: "Remove a local order once its receipt is verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*configPath)
			if err != nil {
				return err
			}
			o, err := openOffline(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer o.Close()

			if err := o.svc.RemoveOrder(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s removed\n", args[0])
			return nil
		},
	})
	return cmd
}

func newRestoreCommand(configPath *string) *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Print the receipts of every completed local order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var delegate payment.Delegate = payment.DelegateFuncs{
				Restore: func(r models.Receipt) {
					fmt.Fprint(out, utils.PrettyJSON(r))
				},
			}
			if publish {
				queue, err := paymentqueue.Connect(paymentqueue.Config{
					Host:          cfg.Nats.Host,
					Port:          cfg.Nats.Port,
					Username:      cfg.Nats.Username,
					Password:      cfg.Nats.Password,
					SubjectPrefix: cfg.Nats.SubjectPrefix,
				})
				if err != nil {
					return err
				}
				defer queue.Close()
				delegate = paymentqueue.NewReceiptPublisher(queue.Conn(), cfg.Nats.SubjectPrefix)
			}

			o, err := openOffline(cmd.Context(), cfg, payment.WithDelegate(delegate))
			if err != nil {
				return err
			}
			defer o.Close()

			return o.svc.RestorePendingOrders(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&publish, "publish", false, "publish receipts on the receipts subject instead of printing them")
	return cmd
}
