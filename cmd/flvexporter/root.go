package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hamed0406/flvexporter/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flvexporter",
	Short: "Prometheus exporter for FLV stream availability",
	Long: "flvexporter periodically probes configured FLV stream URLs and exposes " +
		"their status and response time as Prometheus metrics.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: ./config/config.yaml or ./config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(validateCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
