package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireSourcePath validates that at most one source argument is given, and
// that one is given unless --config names a job file that may carry it.
func RequireSourcePath(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	if len(args) == 0 && !cmd.Flags().Changed("config") {
		return missingSourceError(cmd)
	}
	return nil
}

func missingSourceError(cmd *cobra.Command) error {
	return fmt.Errorf(`missing required argument: <source.csv>

Usage: %s

Example:
  %s ./sales.csv --table sales

The source may also come from source.path in a job file given with --config.`, cmd.UseLine(), cmd.CommandPath())
}
