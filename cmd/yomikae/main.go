package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coolbeans/yomikae/pkg/config"
)

var version = "0.1.0"

// Global flags shared by every subcommand.
var (
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yomikae",
		Short: "Extract read-as substitutions from Japanese statutes",
		Long: `Yomikae finds read-as clauses (読み替え規定) in e-Gov law XML and
extracts each substitution they prescribe: the original wording, its
replacement and the provision the substitution is confined to.

Example:
  yomikae extract -o output.json -e err.json -w law_xml -i index.json
  echo '第五条中「甲」とあるのは「乙」と読み替える。' | yomikae parse`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: yomikae.yaml in the current or a parent directory)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(extractCmd())
	cmd.AddCommand(parseCmd())
	cmd.AddCommand(indexCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(profileCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "yomikae version %s\n", version)
		},
	}
}

// loadConfig loads the layered config, applies the global flags and
// installs the default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.NewLoader(nil).Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
