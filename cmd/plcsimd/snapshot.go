package main

import (
	"fmt"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/spf13/cobra"
)

func newSnapshotCommand() *cobra.Command {
	parent := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or load a device memory snapshot CSV file",
	}
	parent.AddCommand(newSnapshotSaveCommand())
	parent.AddCommand(newSnapshotLoadCommand())
	return parent
}

func newSnapshotSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file>",
		Short: "Write a freshly constructed (zeroed) memory snapshot to file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			mem, err := devicememory.New(cfg.Memory.toDeviceMemoryConfig(), nil)
			if err != nil {
				return err
			}
			if err := mem.SaveSnapshot(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote snapshot to %s\n", args[0])
			return nil
		},
	}
}

func newSnapshotLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Validate a snapshot file by loading it into a fresh memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			mem, err := devicememory.New(cfg.Memory.toDeviceMemoryConfig(), nil)
			if err != nil {
				return err
			}
			if err := mem.LoadSnapshot(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded snapshot from %s\n", args[0])
			return nil
		},
	}
}
