package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "amireaper",
		Short: "Find AMIs no running resource references",
		Long: `Amireaper - AMI garbage collector

Amireaper lists the AMIs your account owns and subtracts every image
still referenced by running instances, scaled-to-zero groups, and
launch configurations or templates. What remains is safe to review
for deregistration.

Amireaper never deletes anything; it computes and records candidates.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Amireaper {{.Version}} - AMI garbage collector
`)
}
