package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shop",
	Short: "Shop ordering service",
	Long:  "An ordering backend with a Telegram bot, an HTTP API and Tinkoff, YooMoney and Telegram payments.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
