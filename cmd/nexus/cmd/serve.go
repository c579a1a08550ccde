package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/knowledge"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/store"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/swarmexec"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/adapters/synth"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/api"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/bus"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/config"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/consensus"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/pipeline"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/swarm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordination service",
	Long: `Start the event bus, message router, pipeline, and HTTP API.

The service runs until interrupted. Swarm commands configured under
'swarms' in the config file are registered as pipeline workers; swarms
without a command are inert and their stages complete without output.

Examples:
  # Start with defaults
  nexus serve

  # Start with an explicit config file
  nexus serve --config ./case.nexus.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	resultStore, err := store.NewSQLiteStore(cfg.State.ResultsDB)
	if err != nil {
		return err
	}
	defer resultStore.Close()

	provider := knowledge.NewClient(cfg.Knowledge.BaseURL, cfg.Knowledge.Timeout, logger)

	var synthesizer core.TextSynthesizer
	if cfg.Synthesizer.Command != "" {
		cliSynth, err := synth.NewCLISynthesizer(
			cfg.Synthesizer.Command, cfg.Synthesizer.Args, cfg.Synthesizer.Timeout, logger)
		if err != nil {
			return err
		}
		if !cliSynth.Available() {
			logger.Warn("synthesizer command not found on PATH, debate methods will fall back to majority vote",
				"command", cfg.Synthesizer.Command)
		}
		synthesizer = cliSynth
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
	// Swarms configured beyond the pipeline stages still get registered
	// so they can exchange messages and be invoked by name.
	for name := range cfg.Swarms {
		if _, ok := gateways[name]; ok {
			continue
		}
		invoker, err := invokerFor(cfg, name, logger)
		if err != nil {
			return err
		}
		if err := registry.Register(invoker); err != nil {
			return err
		}
		gateways[name] = swarm.NewGateway(name, router, provider, resultStore, logger)
	}

	self := swarm.NewGateway("pipeline", router, provider, resultStore, logger)
	mechanism := consensus.New(synthesizer, logger)
	pipe := pipeline.New(registry, gateways, self, mechanism, orch, logger,
		pipeline.WithStages(stages),
		pipeline.WithReportDir(cfg.Reports.Dir))
	pipe.Bind(orch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch.Start(ctx)
	defer orch.Stop()
	orch.RecordActivity(core.NewActivityEntry("serve", core.ActivityLifecycle, "service started", ""))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.API.Enabled {
		server := api.NewServer(orch, router, registry, resultStore,
			api.WithLogger(logger),
			api.WithAllowedOrigins(cfg.API.AllowedOrigins))
		g.Go(func() error {
			return server.ListenAndServe(gctx, cfg.API.Addr)
		})
	}

	if path := viper.ConfigFileUsed(); path != "" {
		g.Go(func() error {
			err := config.Watch(gctx, path,
				func(next *config.Config) {
					logger.SetLevel(next.Log.Level)
					logger.Info("config reloaded", "log_level", next.Log.Level)
				},
				func(err error) {
					logger.Warn("config reload failed", "error", err)
				})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	logger.Info("nexus coordination service running",
		"api_enabled", cfg.API.Enabled,
		"api_addr", cfg.API.Addr,
		"swarms", registry.List())

	<-gctx.Done()
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stagesFromConfig applies configured consensus defaults over the
// built-in stage sequence, preserving each stage's method.
func stagesFromConfig(cfg *config.Config) []pipeline.StageSpec {
	stages := pipeline.DefaultStages()
	for i := range stages {
		stages[i].Consensus.MinAgreement = cfg.Consensus.MinAgreement
		stages[i].Consensus.MaxIterations = cfg.Consensus.MaxIterations
		stages[i].Consensus.SupervisorAgent = cfg.Consensus.SupervisorAgent
		stages[i].Consensus.AllowDissent = cfg.Consensus.AllowDissent
	}
	return stages
}

// invokerFor builds the invoker for a swarm: exec-backed when
// configured, inert otherwise.
func invokerFor(cfg *config.Config, name string, logger *logging.Logger) (core.SwarmInvoker, error) {
	sc, ok := cfg.Swarms[name]
	if !ok || sc.Command == "" {
		logger.Warn("swarm has no command configured, registering inert invoker", "swarm", name)
		return swarmexec.Inert(name), nil
	}
	inv, err := swarmexec.NewInvoker(name, sc.Command, sc.Args, sc.Timeout, logger)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
