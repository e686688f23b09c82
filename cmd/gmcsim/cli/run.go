package cli

import (
	"fmt"
	"log/slog"

	humanize "github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gmcsim/internal/config"
	"gmcsim/internal/dispatch"
	"gmcsim/internal/network"
	"gmcsim/internal/store"
	"gmcsim/internal/telemetry"
)

var runFlags struct {
	reactionDB           string
	initialStateDB       string
	numberOfSimulations  int
	baseSeed             uint64
	numberOfThreads      int
	stepCutoff           int
	dependencyThreshold  int
	dependencyMode       string
	logLevel             string
	logFormat            string
	checkStatePositivity bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of trajectories against a reaction network",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.reactionDB, "reaction-db", "", "path to the reaction-network SQLite database (required)")
	f.StringVar(&runFlags.initialStateDB, "initial-state-db", "", "path to the initial-state/trajectories SQLite database (required)")
	f.IntVar(&runFlags.numberOfSimulations, "num-simulations", 1, "number of independent trajectories to run")
	f.Uint64Var(&runFlags.baseSeed, "base-seed", 0, "first seed in the trajectory seed range")
	f.IntVar(&runFlags.numberOfThreads, "threads", 1, "number of worker goroutines")
	f.IntVar(&runFlags.stepCutoff, "step-cutoff", 1000, "maximum number of events per trajectory")
	f.IntVar(&runFlags.dependencyThreshold, "dependency-threshold", 0, "dependent-set size cap before falling back to recompute-all (0 = no cap)")
	f.StringVar(&runFlags.dependencyMode, "dependency-mode", string(config.DependencyModeEager), "eager or lazy-threshold")
	f.StringVar(&runFlags.logLevel, "log-level", "info", "debug, info, warn, or error")
	f.StringVar(&runFlags.logFormat, "log-format", "text", "text or json")
	f.BoolVar(&runFlags.checkStatePositivity, "check-state-positivity", false, "enable the debug-only negative-count assertion after every step")

	_ = runCmd.MarkFlagRequired("reaction-db")
	_ = runCmd.MarkFlagRequired("initial-state-db")
}

func runRun(cmd *cobra.Command, args []string) error {
	telemetry.Setup(telemetry.ParseLevel(runFlags.logLevel), telemetry.Format(runFlags.logFormat))

	runID := uuid.New().String()
	slog.Info("starting run", "run_id", runID, "num_simulations", runFlags.numberOfSimulations, "threads", runFlags.numberOfThreads)

	cfg := config.RunConfig{
		ReactionDBPath:       runFlags.reactionDB,
		InitialStateDBPath:   runFlags.initialStateDB,
		NumberOfSimulations:  runFlags.numberOfSimulations,
		BaseSeed:             runFlags.baseSeed,
		NumberOfThreads:      runFlags.numberOfThreads,
		StepCutoff:           runFlags.stepCutoff,
		DependencyThreshold:  runFlags.dependencyThreshold,
		DependencyMode:       config.DependencyMode(runFlags.dependencyMode),
		CheckStatePositivity: runFlags.checkStatePositivity,
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}

	result, err := runDispatcher(cfg)
	if err != nil {
		slog.Error("run failed", "error", err)
		return err
	}

	slog.Info("run complete",
		"run_id", runID,
		"trajectories_written", result.TrajectoriesWritten,
		"trajectory_failures", len(result.TrajectoryErrors))
	fmt.Printf("gmcsim: wrote %s trajectories (%s failed) for run %s\n",
		humanize.Comma(int64(result.TrajectoriesWritten)), humanize.Comma(int64(len(result.TrajectoryErrors))), runID)
	return nil
}

func runDispatcher(cfg config.RunConfig) (dispatch.Result, error) {
	reactionStore, err := store.OpenReactionStore(cfg.ReactionDBPath)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("open reaction database: %w", err)
	}
	defer reactionStore.Close()

	initialStateStore, err := store.OpenInitialStateStore(cfg.InitialStateDBPath)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("open initial-state database: %w", err)
	}
	defer initialStateStore.Close()

	net, err := buildNetwork(reactionStore, initialStateStore, cfg)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("build reaction network: %w", err)
	}

	d := &dispatch.Dispatcher{
		Network:              net,
		Writer:               initialStateStore,
		NumberOfSimulations:  cfg.NumberOfSimulations,
		BaseSeed:             cfg.BaseSeed,
		NumberOfThreads:      cfg.NumberOfThreads,
		StepCutoff:           cfg.StepCutoff,
		CheckStatePositivity: cfg.CheckStatePositivity,
	}
	return d.Run()
}

func buildNetwork(reactionStore *store.ReactionStore, initialStateStore *store.InitialStateStore, cfg config.RunConfig) (*network.ReactionNetwork, error) {
	meta, err := reactionStore.LoadMetadata()
	if err != nil {
		return nil, err
	}

	species, err := reactionStore.LoadSpecies()
	if err != nil {
		return nil, err
	}

	reactions, err := reactionStore.LoadReactions()
	if err != nil {
		return nil, err
	}
	if len(reactions) != meta.NumberOfReactions {
		return nil, fmt.Errorf("reaction loading failed: metadata says %d reactions, loaded %d", meta.NumberOfReactions, len(reactions))
	}

	factors, err := reactionStore.LoadFactors()
	if err != nil {
		return nil, err
	}

	initialState, err := initialStateStore.LoadInitialState(meta.NumberOfSpecies)
	if err != nil {
		return nil, err
	}

	fixedState, err := initialStateStore.LoadFixedState(meta.NumberOfSpecies)
	if err != nil {
		return nil, err
	}

	mode := network.Eager
	if cfg.DependencyMode == config.DependencyModeLazyThreshold {
		mode = network.LazyThreshold
	}

	return network.New(species, reactions, initialState, fixedState, factors, network.Config{
		DependencyThreshold: cfg.DependencyThreshold,
		DependencyMode:      mode,
	}), nil
}
