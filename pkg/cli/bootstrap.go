package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/labstock/pkg/auth"
	"github.com/platinummonkey/labstock/pkg/dbx"
	"github.com/platinummonkey/labstock/pkg/storage"
)

type bootstrapOptions struct {
	group      string
	user       string
	credential string
	passphrase string
	migrate    bool
}

func newBootstrapCmd(opts *globalOptions) *cobra.Command {
	b := &bootstrapOptions{}

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the administrator on an empty database",
		Long: "Creates a group holding every capability and a principal in it.\n" +
			"Nothing happens when the database already has groups.\n" +
			"Unset flags fall back to the auth.bootstrap configuration.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defaults := cfg.Auth.Bootstrap
			if !cmd.Flags().Changed("group") {
				b.group = defaults.Group
			}
			if !cmd.Flags().Changed("user") {
				b.user = defaults.User
			}
			if b.passphrase != "" {
				if b.credential != "" {
					return fmt.Errorf("--credential and --passphrase are mutually exclusive")
				}
				b.credential = auth.DigestPassphrase(b.passphrase)
			}
			if b.credential == "" {
				b.credential = defaults.Credential
			}

			if err := auth.ValidateName(b.group); err != nil {
				return fmt.Errorf("group: %w", err)
			}
			if err := auth.ValidateName(b.user); err != nil {
				return fmt.Errorf("user: %w", err)
			}
			if err := auth.ValidateCredential(b.credential); err != nil {
				return fmt.Errorf("credential: %w", err)
			}
			hash, err := auth.NewHasher(cfg.Auth.BcryptCost).Hash(b.credential)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if b.migrate {
				if err := storage.RunMigrations(ctx, db, store.Builder().Dialect(), opts.logger(cmd, cfg)); err != nil {
					return err
				}
			}

			var created bool
			err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
				created, err = store.BootstrapAdmin(ctx, tx, b.group, string(auth.Wildcard), b.user, hash)
				return err
			})
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}

			text := fmt.Sprintf("created group %q with user %q", b.group, b.user)
			if !created {
				text = "database already has groups, nothing created"
			}
			return opts.emit(cmd.OutOrStdout(), text, map[string]interface{}{
				"created": created,
				"group":   b.group,
				"user":    b.user,
			})
		},
	}

	cmd.Flags().StringVar(&b.group, "group", "", "Administrator group name")
	cmd.Flags().StringVar(&b.user, "user", "", "Administrator principal name")
	cmd.Flags().StringVar(&b.credential, "credential", "", "64 character uppercase hex credential")
	cmd.Flags().StringVar(&b.passphrase, "passphrase", "", "Passphrase to digest into the credential")
	cmd.Flags().BoolVar(&b.migrate, "migrate", false, "Apply migrations first")
	return cmd
}
