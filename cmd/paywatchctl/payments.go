package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwarvesf/paywatch/internal/model"
	"github.com/dwarvesf/paywatch/internal/store/paymentstatus"
)

func paymentsCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect and prune monitored payments",
	}

	cmd.AddCommand(paymentsListCmd(load))
	cmd.AddCommand(paymentsStatsCmd(load))
	cmd.AddCommand(paymentsDeleteCmd(load))
	cmd.AddCommand(paymentsEvictCmd(load))

	return cmd
}

func paymentsListCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monitored payments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			if status != "" && !model.PaymentStatus(status).IsValid() {
				return fmt.Errorf("unknown status %q", status)
			}

			list, err := a.controller.ListPayments(cmd.Context(), paymentstatus.ListFilter{
				Status: model.PaymentStatus(status),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), list)
			}

			rows := make([][]string, 0, len(list.Items))
			for _, e := range list.Items {
				rows = append(rows, []string{
					e.Address,
					string(e.Status),
					valueOrDash(e.TransactionID),
					int64OrDash(e.Confirmations),
					formatMillis(e.LastUpdated),
				})
			}
			if err := printTable(cmd.OutOrStdout(), []string{"ADDRESS", "STATUS", "TXID", "CONFS", "UPDATED"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d\n", len(list.Items), list.Total)
			return nil
		},
	}

	cmd.Flags().StringP("status", "s", "", "Filter by status")
	cmd.Flags().IntP("limit", "n", 50, "Maximum results")
	cmd.Flags().Int("offset", 0, "Skip this many results")

	return cmd
}

func paymentsStatsCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			stats, err := a.controller.PaymentStats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), stats)
			}

			rows := [][]string{}
			for _, s := range []model.PaymentStatus{
				model.PaymentStatusAwaitingPayment,
				model.PaymentStatusPaymentDetected,
				model.PaymentStatusConfirmed,
				model.PaymentStatusError,
			} {
				rows = append(rows, []string{string(s), strconv.FormatInt(stats.CountsByStatus[s], 10)})
			}
			rows = append(rows, []string{"total", strconv.FormatInt(stats.TotalEntries, 10)})
			if stats.OldestTimestamp != nil {
				rows = append(rows, []string{"oldest", formatMillis(*stats.OldestTimestamp)})
			}
			if stats.NewestTimestamp != nil {
				rows = append(rows, []string{"newest", formatMillis(*stats.NewestTimestamp)})
			}
			return printTable(cmd.OutOrStdout(), []string{"STATUS", "COUNT"}, rows)
		},
	}
}

func paymentsDeleteCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [address]",
		Short: "Stop monitoring an address and remove its subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			result, err := a.controller.DeletePayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", result.Address)
			if result.SubscriptionID != "" && !result.SubscriptionFreed {
				fmt.Fprintf(cmd.OutOrStdout(), "subscription %s could not be removed\n", result.SubscriptionID)
			}
			return nil
		},
	}
}

func paymentsEvictCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Remove payments older than max age",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			maxAge, _ := cmd.Flags().GetDuration("max-age")
			if maxAge == 0 {
				maxAge = a.config.Payment.MaxAge
			}

			evicted, err := a.controller.EvictExpired(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"max_age": maxAge.String(),
					"evicted": evicted,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "evicted %d payments older than %s\n", evicted, maxAge)
			return nil
		},
	}

	cmd.Flags().Duration("max-age", 0, "Age cutoff, defaults to PAYMENT_MAX_AGE")

	return cmd
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
