package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudtutor/cloudtutor/internal/auth"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Long: "Signs an HS256 token with the configured secret. Intended for local\n" +
			"testing against a server started with CLOUDTUTOR_AUTH_SECRET set.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viperForCmd(cmd)

			secret := v.GetString("auth-secret")
			if secret == "" {
				return fmt.Errorf("an auth secret is required (--auth-secret or CLOUDTUTOR_AUTH_SECRET)")
			}
			token, err := auth.IssueToken(
				secret,
				v.GetString("subject"),
				v.GetString("tenant"),
				v.GetString("audience"),
				v.GetDuration("ttl"),
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("auth-secret", "", "HS256 signing secret")
	f.StringP("subject", "s", "default", "Subject claim")
	f.String("tenant", "", "Tenant claim")
	f.String("audience", "", "Audience claim")
	f.Duration("ttl", 8*time.Hour, "Token lifetime")
	return cmd
}
