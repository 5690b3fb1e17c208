package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boristopalov/irrigation/pkg/experiment"
)

func newEvaluateCmd(flags *rootFlags) *cobra.Command {
	var (
		agentKind string
		seeds     int
		firstSeed uint64
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score an agent over one episode per seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			if agentKind != "" {
				cfg.Agent.Kind = agentKind
			}
			if cmd.Flags().Changed("seeds") {
				cfg.Evaluation.Seeds = seeds
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			newAgent, err := agentFactory(ctx, cfg, log)
			if err != nil {
				return err
			}

			result, err := experiment.Evaluate(ctx, experiment.EvalParams{
				Seeds:       experiment.SeedRange(firstSeed, cfg.Evaluation.Seeds),
				Concurrency: cfg.Evaluation.Concurrency,
				Tables:      cfg.Environment.Tables,
				NewAgent:    newAgent,
				Logger:      log,
			})
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s %12s %6s %14s %12s\n", "episode", "reward", "steps", "mean moisture", "irrigations")
			for _, ep := range result.Episodes {
				fmt.Fprintf(out, "%-8d %12.2f %6d %14.1f %12d\n", ep.Episode, ep.TotalReward, ep.Steps, ep.MeanMoisture, ep.Irrigations)
			}
			fmt.Fprintf(out, "\n%s agent over %d seeds: mean %.2f, std %.2f, min %.2f, max %.2f\n",
				cfg.Agent.Kind, len(result.Episodes), result.MeanReward, result.StdReward, result.MinReward, result.MaxReward)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentKind, "agent", "", "agent kind: qlearning, random, threshold or llm")
	cmd.Flags().IntVar(&seeds, "seeds", 0, "number of seeds to evaluate (overrides config)")
	cmd.Flags().Uint64Var(&firstSeed, "first-seed", 1, "first environment seed")
	return cmd
}
