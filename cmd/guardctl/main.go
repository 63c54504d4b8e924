package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/guard"
	"pharmacy-guard-backend/pkg/auth"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guardctl",
		Short:         "Developer tooling for the route guard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTokenCmd(), newEvalCmd(), newRoutesCmd())
	return root
}

func newTokenCmd() *cobra.Command {
	var secret, email string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an HS256 access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			tok, err := auth.IssueHS256(secret, args[0], email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 secret (defaults to $JWT_SECRET)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newEvalCmd() *cobra.Command {
	var role string
	var loading bool

	cmd := &cobra.Command{
		Use:   "eval <path>",
		Short: "Show what the guard decides for a role at a path",
		Example: `  guardctl eval "/(tabs)/home" --role admin
  guardctl eval "/(pharmacy)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var user *domain.User
			if role != "" {
				user = &domain.User{ID: "cli", Email: "cli@localhost", Role: domain.Role(role)}
			}
			d := guard.New().Evaluate(guard.Inputs{
				User:          user,
				Segments:      strings.FieldsFunc(args[0], func(r rune) bool { return r == '/' }),
				IsLoading:     loading,
				NavigationKey: "cli",
			})
			return printJSON(cmd, d)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "signed-in role; empty means signed out")
	cmd.Flags().BoolVar(&loading, "loading", false, "pretend auth is still loading")
	return cmd
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, guard.Routes())
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
