/**
 * @description
 * This is the main entry point of the RPay gateway. It exposes a small CLI: `serve`
 * (the default) runs the HTTP server and the reconcile scheduler, `migrate` creates the
 * schema and exits, and `create-admin` seeds the configured admin account.
 *
 * @dependencies
 * - github.com/spf13/cobra: Command line parsing.
 * - github.com/joho/godotenv: Loads a local .env file for development.
 * - internal/config, internal/store: Configuration and persistence.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ReyGenteng/galaxy/internal/config"
	"github.com/ReyGenteng/galaxy/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env file", "component", "bootstrap", "err", err)
	}

	rootCmd := &cobra.Command{
		Use:   "rpay",
		Short: "RPay QRIS payment gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), logger)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing the .env file")

	rootCmd.AddCommand(serveCmd(logger))
	rootCmd.AddCommand(migrateCmd(logger))
	rootCmd.AddCommand(createAdminCmd(logger))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the reconcile scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), logger)
		},
	}
}

func migrateCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			repo, err := store.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema ready", "component", "bootstrap", "driver", repo.Driver())
			return nil
		},
	}
}

func createAdminCmd(logger *slog.Logger) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the admin account if it does not exist",
		Long: `Create the admin account if it does not exist.

Flags override ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if username != "" {
				cfg.AdminUsername = username
			}
			if email != "" {
				cfg.AdminEmail = email
			}
			if password != "" {
				cfg.AdminPassword = password
			}
			if !cfg.AdminConfigured() {
				return errors.New("admin username, email and password are required")
			}

			repo, err := store.Open(cmd.Context(), cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer repo.Close()
			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}

			service := newService(cfg, repo, nil, logger)
			created, err := service.EnsureAdmin(cmd.Context(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
			if err != nil {
				return err
			}
			if !created {
				logger.Info("admin account already exists", "component", "bootstrap", "email", cfg.AdminEmail)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

// loadConfig reads configuration. Commands that never issue sessions can run without a
// session secret.
func loadConfig(requireSession bool) (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !requireSession && errors.Is(err, config.ErrMissingSessionSecret) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}
