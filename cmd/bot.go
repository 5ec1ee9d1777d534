package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot with long polling",
	Run: func(_ *cobra.Command, _ []string) {
		cfg, svc, cleanup := mustCreateServices()
		defer cleanup()

		if cfg.Telegram.BotToken == "" {
			logrus.Fatal("TELEGRAM_BOT_TOKEN is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shopBot := mustCreateBot(cfg, svc)
		logrus.Info("Starting Telegram bot")
		if err := shopBot.Run(ctx); err != nil {
			logrus.WithError(err).Error("Bot stopped with error")
			return
		}
		logrus.Info("Bot stopped")
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
