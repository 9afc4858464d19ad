package main

import (
	"errors"
	"fmt"

	"github.com/M2labo/mm-lp-page/internal/config"
	"github.com/M2labo/mm-lp-page/internal/repository"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the purchase ledger migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return errors.New("database.host is not set")
			}

			creds := credentials(cfg.Database)
			repo, err := repository.NewRepository(creds)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer repo.Close()

			if err := repo.RunMigrations(creds); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrations completed")
			return nil
		},
	}
}

func credentials(db config.DatabaseConfig) *repository.Credentials {
	return &repository.Credentials{
		Host:              db.Host,
		Port:              db.Port,
		User:              db.User,
		Password:          db.Password,
		DBName:            db.Name,
		MigrationsDirPath: db.MigrationsDir,
	}
}
