package main

import (
	"github.com/spf13/cobra"

	"github.com/omr-go/jitcore/internal/obslog"
)

// loggerFromFlags builds the logger every subcommand shares, honoring the
// persistent --verbose flag.
func loggerFromFlags(cmd *cobra.Command) (*obslog.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return obslog.NewDevelopment()
	}
	return obslog.New()
}
