package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/knowledge"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/store"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/synth"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/bus"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/consensus"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/pipeline"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/swarm"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Pipeline operations",
}

var pipelinePayload string

var pipelineRunCmd = &cobra.Command{
	Use:   "run <case-id>",
	Short: "Run the analysis pipeline for a case",
	Long: `Run the full stage sequence for a case and print the run report.

This is a one-shot run in the foreground, independent of a running
serve instance. Results are written to the same store the service uses.

Examples:
  nexus pipeline run case-2209
  nexus pipeline run case-2209 --payload '{"batch": "intake-7"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runPipelineRun,
}

func init() {
	pipelineRunCmd.Flags().StringVar(&pipelinePayload, "payload", "",
		"JSON object merged into each stage's context")
	pipelineCmd.AddCommand(pipelineRunCmd)
	rootCmd.AddCommand(pipelineCmd)
}

func runPipelineRun(cmd *cobra.Command, args []string) error {
	caseID := args[0]

	var payload map[string]any
	if pipelinePayload != "" {
		if err := json.Unmarshal([]byte(pipelinePayload), &payload); err != nil {
			return fmt.Errorf("parsing --payload: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	resultStore, err := store.NewSQLiteStore(cfg.State.ResultsDB)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	provider := knowledge.NewClient(cfg.Knowledge.BaseURL, cfg.Knowledge.Timeout, logger)

	var synthesizer core.TextSynthesizer
	if cfg.Synthesizer.Command != "" {
		synthesizer, err = synth.NewCLISynthesizer(
			cfg.Synthesizer.Command, cfg.Synthesizer.Args, cfg.Synthesizer.Timeout, logger)
		if err != nil {
			return err
		}
	}

	orch := bus.New(logger,
		bus.WithPollInterval(cfg.Bus.PollInterval),
		bus.WithActivityCapacity(cfg.Bus.ActivityCapacity))
	router := swarm.NewRouter(logger,
		swarm.WithMessageLogCapacity(cfg.Router.MessageLogCapacity),
		swarm.WithActivityRecorder(orch))

	registry := swarm.NewRegistry()
	stages := stagesFromConfig(cfg)
	gateways := make(map[string]*swarm.Gateway, len(stages))
	for _, spec := range stages {
		invoker, err := invokerFor(cfg, spec.Swarm, logger)
		if err != nil {
			return err
		}
		if err := registry.Register(invoker); err != nil {
			return err
		}
		gateways[spec.Swarm] = swarm.NewGateway(spec.Swarm, router, provider, resultStore, logger)
	}

	self := swarm.NewGateway("pipeline", router, provider, resultStore, logger)
	mechanism := consensus.New(synthesizer, logger)
	pipe := pipeline.New(registry, gateways, self, mechanism, orch, logger,
		pipeline.WithStages(stages),
		pipeline.WithReportDir(cfg.Reports.Dir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := pipe.Run(ctx, caseID, uuid.New().String(), payload)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if completed := len(report.CompletedStages()); completed < len(stages) {
		return fmt.Errorf("%d of %d stages completed", completed, len(stages))
	}
	return nil
}
