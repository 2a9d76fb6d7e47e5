package main

import (
	"fmt"
	"time"

	"paystore/internal/conf"
	"paystore/internal/history"
	"paystore/internal/payment"
	"paystore/pkg/utils"

	"github.com/spf13/cobra"
)

func newHistoryCommand(configPath *string) *cobra.Command {
	var (
		condition history.QueryCondition
		entryType string
		since     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the payment journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.Load(*configPath)
			if err != nil {
				return err
			}

			journal, err := history.Open(journalConfig(cfg))
			if err != nil {
				return fmt.Errorf("open payment journal: %w", err)
			}
			defer journal.Close()

			condition.Type = payment.EntryType(entryType)
			if since > 0 {
				condition.StartTime = time.Now().Add(-since).Unix()
			}

			records, err := journal.QueryRecords(cmd.Context(), &condition)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), utils.PrettyJSON(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&condition.OrderID, "order", "", "only entries of this order id")
	cmd.Flags().StringVar(&condition.ProductID, "product", "", "only entries of this product id")
	cmd.Flags().StringVar(&entryType, "type", "", "only entries of this type, e.g. ORDER_COMPLETED")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this")
	cmd.Flags().IntVar(&condition.Limit, "limit", 100, "maximum number of entries")
	return cmd
}
