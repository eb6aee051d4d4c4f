package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/labstock/pkg/auth"
)

func newDigestCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest [passphrase]",
		Short: "Print the credential for a passphrase",
		Long: "Prints the uppercase SHA-256 hex digest clients send as the password field.\n" +
			"Without an argument the passphrase is read from the first line of stdin.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var passphrase string
			if len(args) == 1 {
				passphrase = args[0]
			} else {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if !scanner.Scan() {
					if err := scanner.Err(); err != nil {
						return fmt.Errorf("read passphrase: %w", err)
					}
					return fmt.Errorf("no passphrase given")
				}
				passphrase = strings.TrimRight(scanner.Text(), "\r")
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase must not be empty")
			}

			credential := auth.DigestPassphrase(passphrase)
			return opts.emit(cmd.OutOrStdout(), credential, map[string]string{"credential": credential})
		},
	}
}
