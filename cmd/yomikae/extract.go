package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/coolbeans/yomikae/pkg/config"
	"github.com/coolbeans/yomikae/pkg/index"
	"github.com/coolbeans/yomikae/pkg/pipeline"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract substitutions from a directory of law XML",
		Long: `Extract substitutions from every read-as clause of the listed laws.

Parsed clauses are written to the output file and clauses that could not be
parsed to the error file, each as a JSON array inside an envelope carrying
the run id.

Example:
  yomikae extract -o output.json -e err.json -w law_xml -i index.json
  yomikae extract -w law_xml --index-db index.db --build-index --metrics-file yomikae.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			laws, err := rt.laws()
			if err != nil {
				return err
			}
			report, err := runOnce(cmd, rt, laws)
			if err != nil {
				return err
			}

			showJSON, _ := cmd.Flags().GetBool("json")
			if showJSON {
				fmt.Fprintln(cmd.OutOrStdout(), pipeline.FormatReportJSON(report))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), pipeline.FormatReport(report))
			printSummary(cmd, report)
			return nil
		},
	}

	addRunFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the run report as JSON")
	return cmd
}

// addRunFlags registers the flags shared by extract and watch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "JSON file for parsed clauses")
	cmd.Flags().StringP("error-output", "e", "", "JSON file for clauses that failed to parse")
	cmd.Flags().StringP("work", "w", "", "Directory holding the law XML files")
	cmd.Flags().StringP("index-file", "i", "", "Law list (index.json) naming the XML files")
	cmd.Flags().String("glob", "", "Glob selecting XML files when no law list is given")
	cmd.Flags().String("index-db", "", "Reference index for scope validation (SQLite file or :memory:)")
	cmd.Flags().Bool("build-index", false, "Index each law before parsing it")
	cmd.Flags().Int("workers", 0, "Clauses parsed concurrently")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().String("profiles", "", "Directory of extra classifier profiles")
}

// applyRunFlags overlays explicitly set flags on cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	stringFlags := map[string]*string{
		"output":       &cfg.Output.Results,
		"error-output": &cfg.Output.Errors,
		"work":         &cfg.Input.WorkDir,
		"index-file":   &cfg.Input.LawList,
		"glob":         &cfg.Input.Glob,
		"index-db":     &cfg.Index.Path,
		"metrics-file": &cfg.Output.Metrics,
		"profiles":     &cfg.Classify.ProfileDir,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if flags.Changed("build-index") {
		cfg.Index.Build, _ = flags.GetBool("build-index")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	return nil
}

// runOnce runs laws through a fresh runner into the configured files.
func runOnce(cmd *cobra.Command, rt *runtime, laws []index.LawEntry) (*pipeline.Report, error) {
	runID := uuid.New().String()
	sink, err := pipeline.OpenJSONSink(rt.cfg.Output.Results, rt.cfg.Output.Errors, runID)
	if err != nil {
		return nil, err
	}
	report, err := rt.runner().RunWithID(cmd.Context(), runID, laws, sink)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	rt.logger.Info("wrote outputs",
		slog.String("results", rt.cfg.Output.Results),
		slog.String("errors", rt.cfg.Output.Errors))
	return report, rt.writeMetrics()
}

func printSummary(cmd *cobra.Command, report *pipeline.Report) {
	out := cmd.OutOrStdout()
	ok := color.New(color.FgHiGreen)
	bad := color.New(color.FgHiRed)
	warn := color.New(color.FgYellow)
	if color.NoColor {
		ok.DisableColor()
		bad.DisableColor()
		warn.DisableColor()
	}

	fmt.Fprintln(out)
	ok.Fprintf(out, "✓ %d clauses parsed (%d pairs)\n", report.ClausesParsed, report.Pairs)
	if report.ClausesFailed > 0 {
		bad.Fprintf(out, "✗ %d clauses failed\n", report.ClausesFailed)
	}
	flagged := 0
	for _, n := range report.Flags {
		flagged += n
	}
	if flagged > 0 {
		warn.Fprintf(out, "! %d warning flags\n", flagged)
	}
	if report.LawsFailed > 0 {
		bad.Fprintf(out, "✗ %d laws could not be read\n", report.LawsFailed)
	}
}
