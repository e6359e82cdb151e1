package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect classifier profiles",
	}
	cmd.AddCommand(profileCheckCmd())
	return cmd
}

func profileCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Load and validate classifier profiles",
		Long: `Load the built-in profile and every YAML profile in dir (or the
configured profile directory), reporting files that fail to load.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Classify.ProfileDir = args[0]
			}

			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			ok := color.New(color.FgHiGreen)
			for _, p := range rt.registry.List() {
				ok.Fprint(out, "✓ ")
				fmt.Fprintf(out, "%-20s v%-6s %s\n", p.ID, p.Version, p.Name)
			}
			return nil
		},
	}
}
