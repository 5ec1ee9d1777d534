package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Run: func(_ *cobra.Command, _ []string) {
		cfg := mustLoadConfig()
		db := mustOpenDatabase(cfg)
		defer db.Close()

		applied, err := repository.Migrate(context.Background(), db, logrus.WithField("command", "migrate"))
		if err != nil {
			logrus.WithError(err).Fatal("Migration failed")
		}
		logrus.WithField("applied", applied).Info("Migrations complete")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
