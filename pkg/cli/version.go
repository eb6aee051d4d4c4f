package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"go":      runtime.Version(),
			}
			text := fmt.Sprintf("labstock-admin %s (commit %s, %s)", version, commit, runtime.Version())
			return opts.emit(cmd.OutOrStdout(), text, info)
		},
	}
}
