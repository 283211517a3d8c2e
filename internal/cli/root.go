package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "csvetl",
	Short: "Load delimited files into relational tables",
	Long: `csvetl reads a CSV file, converts its columns, creates the destination
table when it is missing and writes every row inside one transaction.

A load either commits completely or leaves the destination table unchanged.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or internal invariant violated
  10 - Invalid configuration
  11 - Database connection failed
  12 - User denied replace approval
  13 - Write to the destination failed (rolled back)
  14 - Source file not found
  15 - Source file malformed
  16 - Schema conflict (duplicate or missing columns)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for csvetl")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
