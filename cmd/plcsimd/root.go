package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "plcsimd",
		Short: "Desktop PLC simulator: Modbus TCP/RTU servers, scan cycle, and scenario replay",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newScenarioCommand())
	root.AddCommand(newSnapshotCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// version is set via -ldflags "-X main.version=..." in release builds.
var version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the plcsimd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
