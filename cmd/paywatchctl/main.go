package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwarvesf/paywatch/internal/consts"
)

func main() {
	if err := newRootCmd(loadApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(load appLoader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "paywatchctl",
		Short:         "Operate paywatch payments and BlockCypher subscriptions",
		Version:       consts.ProductVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output as JSON")

	rootCmd.AddCommand(paymentsCmd(load))
	rootCmd.AddCommand(subscriptionsCmd(load))
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}
