package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "offtube",
	Short: "Offline video catalog sync and download",
	Long: `offtube - offline video catalog sync and download

Mirrors a remote playlist into a local catalog and fetches the videos
through a remote download service. Run 'offtube serve' for the periodic
daemon mode, or use the subcommands for one-shot operations.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: discover)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("offtube {{.Version}}\n")
}
