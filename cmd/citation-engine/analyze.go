// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-engine/internal/rates"
	"github.com/pdiddy/citation-engine/internal/store"
	"github.com/pdiddy/citation-engine/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Smooth citation rates and forecast future years",
	Long: `Analyze reads a scraped citations document, runs the Kalman
filter/RTS smoother over every paper's yearly counts, optionally
forecasts future rates, and writes the rates document the chart layer
consumes.

Parameter precedence, lowest to highest: built-in defaults, the
model section of the config file, a --params file, --tuned archive
lookup, explicit flags.`,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")

	cfg, err := resolveModelConfig(cmd)
	if err != nil {
		return err
	}

	corpus, err := rates.LoadCorpus(input)
	if err != nil {
		return err
	}

	scrapedAt, err := corpus.ScrapeTime()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "analyzing %d papers scraped at %s (horizon %d)\n",
		len(corpus.Papers), scrapedAt.Format("2006-01-02"), cfg.Horizon)

	doc, err := rates.Analyze(corpus, cfg, os.Stderr)
	if err != nil {
		return err
	}

	if err := rates.WriteDocument(output, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", output)

	if save, _ := cmd.Flags().GetBool("save"); save {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.SaveRun(context.Background(), doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "archived as run %d\n", id)
	}
	return nil
}

// resolveModelConfig layers parameter sources onto the defaults.
func resolveModelConfig(cmd *cobra.Command) (types.ModelConfig, error) {
	cfg := types.DefaultModelConfig()

	applyViperModel(&cfg)

	if params, _ := cmd.Flags().GetString("params"); params != "" {
		loaded, err := rates.LoadModelConfig(params)
		if err != nil {
			return types.ModelConfig{}, err
		}
		cfg = loaded
	}

	if tuned, _ := cmd.Flags().GetBool("tuned"); tuned {
		s, err := openStore(cmd)
		if err != nil {
			return types.ModelConfig{}, err
		}
		defer s.Close()
		p, err := s.LatestTuned(context.Background())
		if err != nil {
			return types.ModelConfig{}, err
		}
		cfg.ProcessVar = p.ProcessVar
		cfg.Overdispersion = p.Overdispersion
		cfg.ObsVar = 0
		fmt.Fprintf(os.Stderr, "using archived tuned parameters: q=%.4f phi=%.4f\n",
			p.ProcessVar, p.Overdispersion)
	}

	applyChangedFloat(cmd, "process-var", &cfg.ProcessVar)
	applyChangedFloat(cmd, "obs-overdispersion", &cfg.Overdispersion)
	applyChangedFloat(cmd, "obs-var", &cfg.ObsVar)
	applyChangedFloat(cmd, "min-count", &cfg.MinCount)
	applyChangedFloat(cmd, "variance-floor", &cfg.VarianceFloor)
	applyChangedFloat(cmd, "initial-var", &cfg.InitialVar)
	if cmd.Flags().Changed("horizon") {
		cfg.Horizon, _ = cmd.Flags().GetInt("horizon")
	}

	return cfg, cfg.Validate()
}

// applyViperModel overlays any model.* keys from the config file.
func applyViperModel(cfg *types.ModelConfig) {
	keys := map[string]*float64{
		"model.process_var":    &cfg.ProcessVar,
		"model.overdispersion": &cfg.Overdispersion,
		"model.obs_var":        &cfg.ObsVar,
		"model.min_count":      &cfg.MinCount,
		"model.variance_floor": &cfg.VarianceFloor,
		"model.initial_var":    &cfg.InitialVar,
	}
	for key, dst := range keys {
		if viper.IsSet(key) {
			*dst = viper.GetFloat64(key)
		}
	}
	if viper.IsSet("model.horizon") {
		cfg.Horizon = viper.GetInt("model.horizon")
	}
}

func applyChangedFloat(cmd *cobra.Command, flag string, dst *float64) {
	if cmd.Flags().Changed(flag) {
		*dst, _ = cmd.Flags().GetFloat64(flag)
	}
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	dir, _ := cmd.Flags().GetString("results-dir")
	return store.Open(types.StoreConfig{ResultsDir: dir})
}

func init() {
	analyzeCmd.Flags().StringP("input", "i", "results/citations.json", "path to the scraped citations document")
	analyzeCmd.Flags().StringP("output", "o", "results/citation_rates.json", "path for the rates document (.yaml for YAML)")
	analyzeCmd.Flags().String("params", "", "model parameter file (YAML or JSON)")
	analyzeCmd.Flags().Bool("tuned", false, "use the latest archived tuned parameters")
	analyzeCmd.Flags().Bool("save", false, "archive the resulting document")

	analyzeCmd.Flags().Float64("process-var", 0.25, "process variance q on the log-rate random walk")
	analyzeCmd.Flags().Float64("obs-overdispersion", 0.56, "overdispersion factor phi for the time-varying observation variance")
	analyzeCmd.Flags().Float64("obs-var", 0, "constant observation variance (overrides overdispersion when > 0)")
	analyzeCmd.Flags().Float64("min-count", 0.5, "pseudocount added before the log transform")
	analyzeCmd.Flags().Float64("variance-floor", 0.01, "additive floor on the observation variance")
	analyzeCmd.Flags().Float64("initial-var", 1.0, "prior variance on the first state")
	analyzeCmd.Flags().Int("horizon", 0, "years to forecast past the last observed year")

	rootCmd.AddCommand(analyzeCmd)
}
