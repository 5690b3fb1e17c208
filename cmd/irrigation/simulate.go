package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/boristopalov/irrigation/internal/logger"
	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/boristopalov/irrigation/pkg/experiment"
	"github.com/boristopalov/irrigation/pkg/messaging"
	"github.com/boristopalov/irrigation/pkg/metrics"
	"github.com/boristopalov/irrigation/pkg/render"
)

func newSimulateCmd(flags *rootFlags) *cobra.Command {
	var (
		agentKind string
		steps     int
		seed      uint64
		delay     time.Duration
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Watch an agent irrigate the field for one episode, then chart the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			if agentKind != "" {
				cfg.Agent.Kind = agentKind
			}
			if cmd.Flags().Changed("steps") {
				cfg.Simulation.Steps = steps
			}
			if cmd.Flags().Changed("seed") {
				cfg.Environment.Seed = seed
			}
			if cmd.Flags().Changed("delay") {
				cfg.Simulation.StepDelay = delay
			}
			if noColor {
				cfg.Simulation.Color = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			runID := logger.NewRunID()
			ctx = logger.WithRunID(ctx, runID)
			log = logger.FromContext(ctx, log)

			collector := metrics.NewCollector()
			stopMetrics := serveMetrics(cfg.Metrics.Addr, collector, log)
			defer stopMetrics()

			newAgent, err := agentFactory(ctx, cfg, log)
			if err != nil {
				return err
			}
			envSeed := cfg.Environment.Seed
			if envSeed == 0 {
				envSeed = uint64(time.Now().UnixNano())
			}
			a, err := newAgent(envSeed)
			if err != nil {
				return err
			}

			broker := messaging.NewBroker()
			defer broker.Reset()
			records := make(chan messaging.Message, 16)
			if err := broker.Subscribe("renderer", records); err != nil {
				return err
			}

			exp, err := experiment.NewSimulationExperiment(experiment.SimulationParams{
				Name:      cfg.Name,
				RunID:     runID,
				Env:       environment.NewIrrigationEnvironment(environment.WithSeed(envSeed), environment.WithTables(cfg.Environment.Tables)),
				Agent:     a,
				Broker:    broker,
				Episode:   1,
				Steps:     cfg.Simulation.Steps,
				StepDelay: cfg.Simulation.StepDelay,
				Metrics:   collector,
				Logger:    log,
			})
			if err != nil {
				return err
			}

			history := render.NewHistory()
			terminal := render.NewTerminalRenderer(cmd.OutOrStdout(), cfg.Simulation.Color)

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return render.Consume(gCtx, records, terminal, history)
			})
			g.Go(func() error {
				defer func() {
					_ = broker.Unsubscribe("renderer")
					close(records)
				}()
				return exp.Run(gCtx)
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d steps, total reward %.2f\n", history.Len(), history.TotalReward())

			if history.Len() > 0 {
				path, err := writeHTML(cfg.Output.ChartsDir, "simulation_overview.html", func(f *os.File) error {
					return render.WriteOverview(f, history)
				})
				if err != nil {
					return err
				}
				log.Info("simulation chart written", "path", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&agentKind, "agent", "", "agent kind: qlearning, random, threshold or llm")
	cmd.Flags().IntVar(&steps, "steps", 0, "maximum steps to simulate (overrides config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "environment seed, 0 for a random one")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between steps (overrides config)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	return cmd
}
