package main

import (
	"github.com/spf13/cobra"

	"github.com/gopatchy/artnode/config"
)

func newConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Configuration file utilities",
	}
	root.AddCommand(newConfigValidateCmd())
	return root
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Parse and validate a config file without starting the node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			cmd.Println("ok")
			return nil
		},
	}
}
