package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/labstock/pkg/config"
	"github.com/platinummonkey/labstock/pkg/observability"
	"github.com/platinummonkey/labstock/pkg/storage"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, map[string]interface{}{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// globalOptions carries the persistent flags to every subcommand.
type globalOptions struct {
	configPath string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "labstock-admin",
		Short:         "Labstock administration tool",
		Long:          "Operator commands for the labstock inventory database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case "text", "json":
				return nil
			default:
				return fmt.Errorf("invalid output format %q (must be text or json)", opts.output)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file (default $LABSTOCK_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")

	rootCmd.AddCommand(
		newDigestCmd(opts),
		newMigrateCmd(opts),
		newBootstrapCmd(opts),
		newSweepCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("LABSTOCK_CONFIG")
	}
	return config.Load(path)
}

// logger writes to stderr so stdout stays machine readable.
func (o *globalOptions) logger(cmd *cobra.Command, cfg *config.Config) *observability.Logger {
	return observability.NewLogger(cfg.Observability.Level(), cmd.ErrOrStderr()).
		WithField("service", "labstock-admin")
}

// openStore connects to the configured database. The caller closes db.
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, *storage.Store, error) {
	db, dialect, err := storage.Open(ctx, storage.ConnectionConfig{
		Driver:      cfg.Database.Driver,
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, storage.NewStore(dialect), nil
}

// emit prints v as indented JSON or text as a plain line.
func (o *globalOptions) emit(w io.Writer, text string, v interface{}) error {
	if o.output == "json" {
		return printJSON(w, v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
