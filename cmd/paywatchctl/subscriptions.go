package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func subscriptionsCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"hooks"},
		Short:   "Manage BlockCypher webhook subscriptions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscriptions registered with the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			subs, err := a.controller.ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), subs)
			}

			rows := make([][]string, 0, len(subs))
			for _, s := range subs {
				rows = append(rows, []string{s.ID, s.Event, s.Address, strconv.Itoa(s.CallbackErrors)})
			}
			return printTable(cmd.OutOrStdout(), []string{"ID", "EVENT", "ADDRESS", "CALLBACK_ERRORS"}, rows)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [id]",
		Short: "Show one subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			sub, err := a.controller.GetSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), sub)
			}

			return printTable(cmd.OutOrStdout(), []string{"FIELD", "VALUE"}, [][]string{
				{"id", sub.ID},
				{"event", sub.Event},
				{"address", sub.Address},
				{"url", sub.URL},
				{"confirmations", strconv.Itoa(sub.Confirmations)},
				{"callback_errors", strconv.Itoa(sub.CallbackErrors)},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			result, err := a.controller.DeleteSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}

			if result.AlreadyRemoved {
				fmt.Fprintf(cmd.OutOrStdout(), "subscription %s was already removed\n", result.ID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted subscription %s\n", result.ID)
			return nil
		},
	})

	return cmd
}
