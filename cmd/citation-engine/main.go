// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citation-engine CLI.
// The engine turns a scraped per-year citation corpus into denoised
// rate estimates with uncertainty, multi-year forecasts, and globally
// tuned smoothing hyperparameters. Scraping and chart rendering are
// external collaborators; the CLI covers the statistical stages:
// analyze, tune, and the run archive.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the citation-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "citation-engine",
	Short: "Kalman-smoothed citation rate analysis",
	Long: `citation-engine estimates per-year citation rates from a scraped
citation corpus. A scalar local-level Kalman filter and RTS smoother on
the log scale turn sparse, noisy yearly counts into denoised rates with
uncertainty bands; a driftless forecaster extends each paper several
years ahead; a marginal-likelihood grid search fits the shared
smoothing hyperparameters across the whole corpus.

Each stage is a subcommand: analyze smooths and forecasts, tune fits
hyperparameters, runs manages the local archive of past analyses.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citation-engine.yaml or ~/.config/citation-engine/config.yaml)")
	rootCmd.PersistentFlags().String("results-dir", "results", "directory for the run archive and default outputs")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citation-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citation-engine"))
		}
	}

	viper.SetEnvPrefix("CITATION_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
