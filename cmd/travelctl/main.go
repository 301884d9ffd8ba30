package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"travelbook/internal/config"
	"travelbook/internal/logging"
	"travelbook/internal/store/postgres"
	"travelbook/internal/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("token rejected")

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "travelctl",
		Short:         "Operator tooling for the travelbook API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("secret", cfg.JWTSecret, "Token signing secret (defaults to JWT_SECRET)")
	rootCmd.PersistentFlags().String("issuer", cfg.JWTIssuer, "Token issuer")

	rootCmd.AddCommand(newTokenCmd(cfg), newMigrateCmd(cfg))
	return rootCmd
}

func newTokenCmd(cfg config.Config) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect session tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a session token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := tokenService(cmd, cfg)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetString("user-id")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			var opts []token.IssueOption
			if ttl > 0 {
				opts = append(opts, token.WithExpiresIn(ttl))
			}
			raw, err := svc.Issue(token.Claims{UserID: userID, Email: email, Role: role}, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	issueCmd.Flags().String("user-id", "", "User id to embed")
	issueCmd.Flags().String("email", "", "Email to embed")
	issueCmd.Flags().String("role", "guest", "Role to embed")
	issueCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_TTL_HOURS)")
	_ = issueCmd.MarkFlagRequired("user-id")

	verifyCmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := tokenService(cmd, cfg)
			if err != nil {
				return err
			}
			claims, ok := svc.Verify(cmd.Context(), args[0])
			if !ok {
				return errRejected
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}

	tokenCmd.AddCommand(issueCmd, verifyCmd)
	return tokenCmd
}

func newMigrateCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("DB_DSN is not set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()
			if err := postgres.NewStore(pool).Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func tokenService(cmd *cobra.Command, cfg config.Config) (*token.Service, error) {
	secret, _ := cmd.Flags().GetString("secret")
	issuer, _ := cmd.Flags().GetString("issuer")
	if secret == "" {
		return nil, errors.New("signing secret is required (--secret or JWT_SECRET)")
	}
	return token.NewService(token.Config{Secret: secret, Issuer: issuer, TTL: cfg.JWTTTL}, logging.Discard()), nil
}
