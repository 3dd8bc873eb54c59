// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-engine/internal/rates"
	"github.com/pdiddy/citation-engine/internal/tune"
	"github.com/pdiddy/citation-engine/pkg/types"
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Fit smoothing hyperparameters by marginal likelihood",
	Long: `Tune grid-searches the process variance q and overdispersion phi,
maximizing the summed forward-filter marginal log-likelihood over the
whole corpus. Papers with fewer than two observed years carry no
information about the dynamics and are excluded from the objective.

The result can be written to a parameter file (--output, YAML or JSON)
and archived for later "analyze --tuned" runs (--save).`,
	RunE: runTune,
}

func runTune(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	minCount, _ := cmd.Flags().GetFloat64("min-count")
	floor, _ := cmd.Flags().GetFloat64("variance-floor")
	initialVar, _ := cmd.Flags().GetFloat64("initial-var")

	cfg := resolveTuneConfig(cmd)

	corpus, err := rates.LoadCorpus(input)
	if err != nil {
		return err
	}
	papers, err := rates.PrepareCorpus(corpus, minCount)
	if err != nil {
		return err
	}

	res, err := tune.Search(papers, cfg, minCount, floor, initialVar, os.Stderr)
	if err != nil {
		return err
	}

	if output != "" {
		if err := rates.WriteDocument(output, res); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", output)
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		if _, err := s.SaveTuned(context.Background(), res); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "archived tuned parameters")
	}
	return nil
}

func resolveTuneConfig(cmd *cobra.Command) types.TuneConfig {
	cfg := types.DefaultTuneConfig()

	if viper.IsSet("tune.grid_size") {
		cfg.GridSize = viper.GetInt("tune.grid_size")
	}
	if viper.IsSet("tune.workers") {
		cfg.Workers = viper.GetInt("tune.workers")
	}

	if cmd.Flags().Changed("grid-size") {
		cfg.GridSize, _ = cmd.Flags().GetInt("grid-size")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	applyChangedFloat(cmd, "q-min", &cfg.QMin)
	applyChangedFloat(cmd, "q-max", &cfg.QMax)
	applyChangedFloat(cmd, "phi-min", &cfg.PhiMin)
	applyChangedFloat(cmd, "phi-max", &cfg.PhiMax)
	cfg.KeepSurface, _ = cmd.Flags().GetBool("surface")

	return cfg
}

func init() {
	tuneCmd.Flags().StringP("input", "i", "results/citations.json", "path to the scraped citations document")
	tuneCmd.Flags().StringP("output", "o", "results/tuned_hyperparams.yaml", "path for the tuning result (empty to skip)")
	tuneCmd.Flags().Bool("save", false, "archive the tuned parameters")
	tuneCmd.Flags().Bool("surface", false, "keep the full log-likelihood surface in the output")

	tuneCmd.Flags().Int("grid-size", 40, "grid points per axis")
	tuneCmd.Flags().Int("workers", 0, "concurrent grid rows (0 = one per CPU)")
	tuneCmd.Flags().Float64("q-min", 0, "lower bound of the process-variance axis")
	tuneCmd.Flags().Float64("q-max", 0, "upper bound of the process-variance axis")
	tuneCmd.Flags().Float64("phi-min", 0, "lower bound of the overdispersion axis")
	tuneCmd.Flags().Float64("phi-max", 0, "upper bound of the overdispersion axis")
	tuneCmd.Flags().Float64("min-count", 0.5, "pseudocount added before the log transform")
	tuneCmd.Flags().Float64("variance-floor", 0.01, "additive floor on the observation variance")
	tuneCmd.Flags().Float64("initial-var", 1.0, "prior variance on the first state")

	rootCmd.AddCommand(tuneCmd)
}
