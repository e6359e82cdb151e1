package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coolbeans/yomikae/pkg/classify"
	"github.com/coolbeans/yomikae/pkg/index"
	"github.com/coolbeans/yomikae/pkg/pipeline"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run extraction whenever law XML files change",
		Long: `Watch the work directory and re-run extraction for XML files that are
created or rewritten. Each batch of changes overwrites the output files.
Classifier profiles are reloaded when the profile directory changes.

Example:
  yomikae watch -w law_xml -i index.json -o output.json -e err.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			debounce, _ := cmd.Flags().GetDuration("debounce")

			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			if cfg.Classify.ProfileDir != "" {
				rt.registry.SetOnChange(func(event string, p *classify.Profile) {
					logger.Info("classifier profiles changed", slog.String("event", event))
				})
				if err := rt.registry.Watch(); err != nil {
					return err
				}
			}

			known := make(map[string]index.LawEntry)
			if list := cfg.LawListPath(); list != "" {
				entries, err := index.LoadLawList(list)
				if err != nil {
					return err
				}
				for _, e := range entries {
					known[e.File] = e
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl-C to stop)\n", cfg.Input.WorkDir)
			watcher := pipeline.NewXMLWatcher(cfg.Input.WorkDir, debounce, logger)
			return watcher.Run(ctx, func(ctx context.Context, files []string) error {
				laws := make([]index.LawEntry, 0, len(files))
				for _, f := range files {
					if e, ok := known[f]; ok {
						laws = append(laws, e)
					} else {
						laws = append(laws, index.LawEntry{File: f})
					}
				}
				report, err := runOnce(cmd, rt, laws)
				if err != nil {
					return err
				}
				printSummary(cmd, report)
				rt.sweepCache()
				return nil
			})
		},
	}

	addRunFlags(cmd)
	cmd.Flags().Duration("debounce", pipeline.DefaultDebounce, "Quiet period before a changed file is processed")
	return cmd
}
