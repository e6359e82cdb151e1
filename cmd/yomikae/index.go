package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coolbeans/yomikae/pkg/index"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the reference index",
	}
	cmd.AddCommand(indexBuildCmd())
	return cmd
}

func indexBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index the provisions of every listed law",
		Long: `Record every chapter, section, article, paragraph, item and subitem of the
listed laws so that extract can check that scopes point at real provisions.

Example:
  yomikae index build -w law_xml -i index.json --db index.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.Index.Path, _ = cmd.Flags().GetString("db")
			}
			if cfg.Index.Path == "" || cfg.Index.Path == index.MemoryPath {
				return fmt.Errorf("--db flag is required and must name a file")
			}

			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			laws, err := rt.laws()
			if err != nil {
				return err
			}
			stats, err := index.NewIndexer(rt.store, logger).IndexAll(cmd.Context(), laws, cfg.Input.WorkDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d of %d laws (%d provisions) into %s\n",
				stats.Indexed, stats.Attempted, stats.Provisions, cfg.Index.Path)
			if stats.Failed > 0 {
				c := color.New(color.FgHiRed)
				c.Fprintf(out, "✗ %d laws could not be read\n", stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringP("work", "w", "", "Directory holding the law XML files")
	cmd.Flags().StringP("index-file", "i", "", "Law list (index.json) naming the XML files")
	cmd.Flags().String("glob", "", "Glob selecting XML files when no law list is given")
	cmd.Flags().String("db", "", "Index database (SQLite file)")
	return cmd
}
