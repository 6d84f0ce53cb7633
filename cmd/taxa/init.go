package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/taxa/pkg/config"
)

func newInitCmd(a *app) *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long: `init asks for the listing service URL, page size, default view and
store, then writes config.yaml. Without a terminal, or with --defaults,
the defaults are written as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			if path == "" {
				return inPhase("config", fmt.Errorf("no config directory; pass --config"))
			}

			cfg := a.cfg
			if !defaults && config.IsTerminal() {
				var err error
				cfg, err = config.RunWizard(cfg, cmd.OutOrStdout())
				if err != nil {
					return inPhase("wizard", err)
				}
			}
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Overwriting %s\n", path)
			}
			if err := config.SaveTo(cfg, path); err != nil {
				return inPhase("config", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the defaults without prompting")
	return cmd
}
