// Command passvaultctl runs operator tasks against the PassVault database:
// schema migrations and password resets.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"

	"github.com/passvault/passvault/internal/encryption"
	"github.com/passvault/passvault/internal/repository"
	"github.com/passvault/passvault/internal/session"
)

// ctlConfig is the subset of server settings the operator commands need.
type ctlConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	BcryptCost  int    `env:"BCRYPT_COST" envDefault:"12"`
}

func loadConfig() (*ctlConfig, error) {
	cfg := &ctlConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "passvaultctl",
		Short:        "PassVault operator tool",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "deadline for database work")

	withTimeout := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), timeout)
	}

	root.AddCommand(newMigrateCmd(withTimeout))
	root.AddCommand(newResetPasswordCmd(withTimeout))
	return root
}

type ctxFunc func(cmd *cobra.Command) (context.Context, context.CancelFunc)

func newMigrateCmd(withTimeout ctxFunc) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			version, err := repository.SchemaVersion(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			version, err := repository.SchemaVersion(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}

	var confirm bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and re-apply all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("refusing to erase all data without --yes")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			if err := repository.ResetSchema(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema reset")
			return nil
		},
	}
	resetCmd.Flags().BoolVar(&confirm, "yes", false, "confirm that all accounts and entries will be deleted")

	migrateCmd.AddCommand(upCmd, statusCmd, resetCmd)
	return migrateCmd
}

func newResetPasswordCmd(withTimeout ctxFunc) *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for an account",
		Long: "Set a new password for an account without knowing the current one.\n" +
			"Existing sessions stay valid until they expire or log out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var password string
			if passwordStdin {
				password, err = readPasswordLine(cmd.InOrStdin())
			} else {
				password, err = promptNewPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(cmd)
			defer cancel()

			repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{MaxConns: 2})
			if err != nil {
				return err
			}
			defer repo.Close()

			hasher, err := encryption.NewHasher(cfg.BcryptCost)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			mgr := session.NewManager(repo, session.NewMemoryStore(), hasher, session.Options{Logger: logger})

			return resetPassword(ctx, mgr, cmd.OutOrStdout(), username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the new password from stdin")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// passwordResetter is the part of the session manager reset-password uses.
type passwordResetter interface {
	ResetPassword(ctx context.Context, username, newPassword string) (*session.Result, error)
}

func resetPassword(ctx context.Context, r passwordResetter, out io.Writer, username, password string) error {
	res, err := r.ResetPassword(ctx, username, password)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Fprintf(out, "Password updated for %s\n", res.User.Username)
	return nil
}
