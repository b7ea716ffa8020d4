// Package main implements the omrjit CLI, a small driver over the
// optimizer orchestrator and signal dispatcher for demo and manual
// exercising purposes.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "omrjit",
	Short: "Optimizer orchestrator and signal dispatcher demo driver",
	Long:  "omrjit drives the optimization strategy engine and the signal dispatcher over a small reference IR, for manual exercising and demonstration.",
}

func main() {
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(protectDemoCmd)
	rootCmd.AddCommand(signalsCmd)

	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file (defaults baked in if omitted)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable development-mode logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
