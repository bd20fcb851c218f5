package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudtutor/cloudtutor/internal/state"
)

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state [user_id]",
		Short: "Print a user's persisted study state as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viperForCmd(cmd)
			logger := setupLogging(v)

			userID := "default"
			if len(args) == 1 {
				userID = args[0]
			}

			store, err := state.Open(cmd.Context(), state.ConfigFromEnv(), logger)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer store.Close()

			st, err := store.Load(cmd.Context(), userID)
			if err != nil {
				return err
			}
			enc, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(enc))
			return nil
		},
	}
}
