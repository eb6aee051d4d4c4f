package cli

import (
	"github.com/spf13/cobra"

	"github.com/platinummonkey/labstock/pkg/storage"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.RunMigrations(ctx, db, store.Builder().Dialect(), opts.logger(cmd, cfg)); err != nil {
				return err
			}
			return opts.emit(cmd.OutOrStdout(), "migrations applied", map[string]interface{}{
				"driver":  cfg.Database.Driver,
				"applied": true,
			})
		},
	}
}
