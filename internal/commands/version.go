package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/version"
)

// NewVersionCmd creates the version command. It prints plain text and
// works without config or credentials.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			if err == nil && !version.IsDev() {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "commit %s, built %s\n", version.Commit, version.Date)
			}
			return err
		},
	}
}
