package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/labstock/pkg/dbx"
)

func newSweepCmd(opts *globalOptions) *cobra.Command {
	var idle time.Duration

	cmd := &cobra.Command{
		Use:   "sweep-tokens",
		Short: "Delete access tokens idle longer than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("idle") {
				idle = cfg.Auth.SessionIdleTimeout
			}
			if idle <= 0 {
				return fmt.Errorf("idle duration must be positive (set --idle or auth.session_idle_timeout)")
			}

			ctx := cmd.Context()
			db, store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			cutoff := time.Now().UTC().Add(-idle)
			var removed int64
			err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
				removed, err = store.SweepIdleTokens(ctx, tx, cutoff)
				return err
			})
			if err != nil {
				return fmt.Errorf("sweep tokens: %w", err)
			}
			return opts.emit(cmd.OutOrStdout(), fmt.Sprintf("removed %d idle tokens", removed), map[string]interface{}{
				"removed": removed,
				"cutoff":  cutoff.Format(time.RFC3339),
			})
		},
	}

	cmd.Flags().DurationVar(&idle, "idle", 0, "Idle duration (default auth.session_idle_timeout)")
	return cmd
}
