package main

import (
	"fmt"
	"time"

	"github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/store/postgres"

	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			st := postgres.NewStore(pool, postgres.Options{QueryTimeout: cfg.Database.QueryTimeout})
			purged, err := st.PurgeExpiredSessions(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired sessions\n", purged)
			return nil
		},
	})
	return cmd
}
