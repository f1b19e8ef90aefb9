package main

import (
	"fmt"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/scenario"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScenarioCommand() *cobra.Command {
	parent := &cobra.Command{
		Use:   "scenario",
		Short: "Replay a scenario CSV file against a freshly constructed memory",
	}
	parent.AddCommand(newScenarioRunCommand())
	return parent
}

func newScenarioRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Load and replay a scenario file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			return runScenario(cfg, args[0])
		},
	}
}

func runScenario(cfg *AppConfig, path string) error {
	log, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	mem, err := devicememory.New(cfg.Memory.toDeviceMemoryConfig(), log.Named("memory"))
	if err != nil {
		return err
	}
	if cfg.Snapshot.Path != "" {
		if err := mem.LoadSnapshot(cfg.Snapshot.Path); err != nil {
			log.Warn("snapshot load failed, starting from zeroed memory", zap.Error(err))
		}
	}

	scn, err := scenario.LoadScenarioFile(path)
	if err != nil {
		return err
	}
	scn.Settings = scenario.Settings{
		LoopEnabled: cfg.Scenario.LoopEnabled,
		LoopCount:   cfg.Scenario.LoopCount,
		LoopDelay:   time.Duration(cfg.Scenario.LoopDelayMs) * time.Millisecond,
	}

	exec := scenario.New(scn, mem, log.Named("scenario"))
	if err := exec.Start(); err != nil {
		return err
	}

	for exec.Status() != scenario.Completed {
		time.Sleep(10 * time.Millisecond)
	}

	if cfg.Snapshot.Path != "" {
		if err := mem.SaveSnapshot(cfg.Snapshot.Path); err != nil {
			log.Warn("snapshot save failed", zap.Error(err))
		}
	}

	fmt.Printf("scenario %s completed: %d events\n", path, len(scn.Events))
	return nil
}
