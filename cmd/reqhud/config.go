package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/reqhud/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect reqhudd configuration",
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the default configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.DefaultConfig().Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate a config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = config.ExpandPath(args[0])
		} else {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			path = p
		}

		if _, err := config.LoadFrom(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDefaultCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCheckCmd)
}
