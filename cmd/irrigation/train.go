package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/boristopalov/irrigation/internal/logger"
	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/boristopalov/irrigation/pkg/experiment"
	"github.com/boristopalov/irrigation/pkg/metrics"
	"github.com/boristopalov/irrigation/pkg/render"
	"github.com/boristopalov/irrigation/pkg/store"
)

func newTrainCmd(flags *rootFlags) *cobra.Command {
	var episodes int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a Q-learning policy and save it to the policy store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("episodes") {
				cfg.Training.Episodes = episodes
			}
			if cmd.Flags().Changed("seed") {
				cfg.Training.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			runID := logger.NewRunID()
			ctx = logger.WithRunID(ctx, runID)
			log = logger.FromContext(ctx, log)

			policies, err := store.NewStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer policies.Close()

			collector := metrics.NewCollector()
			stopMetrics := serveMetrics(cfg.Metrics.Addr, collector, log)
			defer stopMetrics()

			statsPath := cfg.Output.StatsPath
			if statsPath == "" {
				statsPath = fmt.Sprintf("training_stats_%s.csv", time.Now().Format("2006-01-02_15-04-05"))
			}
			var stats io.Writer
			statsFile, err := os.Create(statsPath)
			if err != nil {
				log.Warn("failed to create stats file", "path", statsPath, "error", err)
			} else {
				defer statsFile.Close()
				stats = statsFile
			}

			tc := cfg.Training
			envSeed := cfg.Environment.Seed
			if envSeed == 0 {
				envSeed = tc.Seed
			}
			learner := agent.NewQLearningAgent(
				agent.WithAgentID(cfg.Agent.Policy),
				agent.WithSeed(tc.Seed),
				agent.WithLearningRate(tc.LearningRate),
				agent.WithDiscount(tc.Discount),
				agent.WithEpsilon(tc.Epsilon, tc.EpsilonMin, tc.EpsilonDecay),
				agent.WithMoistureBucket(cfg.Agent.MoistureBucket),
				agent.WithTables(cfg.Environment.Tables),
			)

			env := environment.NewIrrigationEnvironment(
				environment.WithSeed(envSeed),
				environment.WithTables(cfg.Environment.Tables),
			)

			exp, err := experiment.NewTrainingExperiment(experiment.TrainingParams{
				Name:     cfg.Name,
				RunID:    runID,
				Env:      env,
				Agent:    learner,
				Episodes: tc.Episodes,
				MaxSteps: tc.MaxSteps,
				LogEvery: tc.LogEvery,
				Stats:    stats,
				Metrics:  collector,
				Logger:   log,
			})
			if err != nil {
				return err
			}
			if err := exp.Run(ctx); err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			q := learner.QTable()
			result, err := experiment.Evaluate(ctx, experiment.EvalParams{
				Seeds:       experiment.SeedRange(envSeed+1_000_000, cfg.Evaluation.Seeds),
				Concurrency: cfg.Evaluation.Concurrency,
				Tables:      cfg.Environment.Tables,
				NewAgent: func(seed uint64) (agent.Agent, error) {
					a := agent.NewQLearningAgent(
						agent.WithSeed(seed),
						agent.WithMoistureBucket(cfg.Agent.MoistureBucket),
						agent.WithTables(cfg.Environment.Tables),
					)
					a.LoadQTable(q)
					a.Greedy()
					return a, nil
				},
				Logger: log,
			})
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			versionID, err := policies.SavePolicy(ctx, cfg.Agent.Policy, q, store.PolicyMeta{
				Episodes:   tc.Episodes,
				MeanReward: result.MeanReward,
				Params: map[string]float64{
					"learning_rate":   tc.LearningRate,
					"discount":        tc.Discount,
					"epsilon":         tc.Epsilon,
					"epsilon_min":     tc.EpsilonMin,
					"epsilon_decay":   tc.EpsilonDecay,
					"moisture_bucket": cfg.Agent.MoistureBucket,
				},
			})
			if err != nil {
				return fmt.Errorf("failed to save policy: %w", err)
			}
			log.Info("policy saved",
				"name", cfg.Agent.Policy,
				"version", versionID,
				"states", len(q),
				"eval_mean_reward", result.MeanReward,
				"eval_std_reward", result.StdReward)

			summaries := exp.Summaries()
			if path, err := writeHTML(cfg.Output.ChartsDir, "training_progress.html", func(f *os.File) error {
				return render.WriteTrainingProgress(f, summaries)
			}); err != nil {
				log.Warn("failed to write training chart", "error", err)
			} else {
				log.Info("training chart written", "path", path)
			}

			printTrainingSummary(cmd.OutOrStdout(), summaries, result, versionID)
			return nil
		},
	}

	cmd.Flags().IntVar(&episodes, "episodes", 0, "number of training episodes (overrides config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "training seed (overrides config)")
	return cmd
}

func printTrainingSummary(w io.Writer, summaries []core.EpisodeSummary, result experiment.EvalResult, versionID string) {
	fmt.Fprintf(w, "trained %d episodes, final mean reward %.2f\n",
		len(summaries), experiment.MeanReward(summaries[max(0, len(summaries)-100):]))
	fmt.Fprintf(w, "greedy evaluation over %d seeds: mean %.2f, std %.2f, min %.2f, max %.2f\n",
		len(result.Episodes), result.MeanReward, result.StdReward, result.MinReward, result.MaxReward)
	fmt.Fprintf(w, "saved policy version %s\n", versionID)
}
