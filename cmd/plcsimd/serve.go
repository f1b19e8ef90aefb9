package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/rtuserver"
	"github.com/ladderforge/plcsim/scanengine"
	"github.com/ladderforge/plcsim/tcpserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Modbus TCP/RTU servers and scan cycle until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *AppConfig) error {
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
		} else {
			log.Info("loaded snapshot", zap.String("path", cfg.Snapshot.Path))
		}
	}

	tcp := tcpserver.New(cfg.TCP.toServerConfig(), mem, log.Named("tcp"))
	if err := tcp.Start(); err != nil {
		return err
	}

	var rtu *rtuserver.Server
	if cfg.RTU.Enabled {
		rtu = rtuserver.New(cfg.RTU.toServerConfig(), mem, log.Named("rtu"))
		if err := rtu.Start(); err != nil {
			log.Warn("rtu server failed to start, continuing TCP-only", zap.Error(err))
			rtu = nil
		}
	}

	scanner := scanengine.NewScanScheduler(scanengine.NoOp{}, mem, cfg.Scan.interval(), log.Named("scan"))
	scanner.Start()

	log.Info("plcsimd running, waiting for interrupt")
	waitForSignal()

	log.Info("shutting down")
	scanner.Stop()
	if rtu != nil {
		if err := rtu.Stop(); err != nil {
			log.Warn("rtu stop reported an issue", zap.Error(err))
		}
	}
	if err := tcp.Stop(); err != nil {
		log.Warn("tcp stop reported an issue", zap.Error(err))
	}

	if cfg.Snapshot.Path != "" {
		if err := mem.SaveSnapshot(cfg.Snapshot.Path); err != nil {
			log.Warn("snapshot save failed", zap.Error(err))
		} else {
			log.Info("saved snapshot", zap.String("path", cfg.Snapshot.Path))
		}
	}

	return nil
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
