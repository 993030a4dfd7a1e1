package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "iocctl",
	Short:         "Inspect and run the demo application context",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading IOC_* variables")

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(serveCmd)
}
