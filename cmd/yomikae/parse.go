package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/yomikae/pkg/yomikae"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse a single read-as clause",
		Long: `Parse one clause given as an argument or on stdin and print the outcome
as JSON. With --table, stdin holds a replacement table with one row per
line and tab-separated cells.

Example:
  yomikae parse '第五条中「甲」とあるのは「乙」と読み替える。'
  printf '第一条\t試験\t検定\n' | yomikae parse --table --law-id 329AC0000000089`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lawID, _ := cmd.Flags().GetString("law-id")
			article, _ := cmd.Flags().GetString("article")
			paragraph, _ := cmd.Flags().GetString("paragraph")
			item, _ := cmd.Flags().GetString("item")
			table, _ := cmd.Flags().GetBool("table")
			indexDB, _ := cmd.Flags().GetString("index-db")

			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("index-db") {
				cfg.Index.Path = indexDB
			}
			rt, err := newRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			loc := yomikae.Location{LawID: lawID, Article: article, Paragraph: paragraph, Item: item}

			var input string
			if len(args) > 0 {
				input = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				input = string(data)
			}

			var outcome yomikae.Outcome
			if table {
				var rows [][]string
				rows, err = splitTable(input)
				if err != nil {
					return err
				}
				outcome, err = rt.parser().ParseTable(cmd.Context(), yomikae.TableCandidate{Location: loc, Rows: rows})
			} else {
				outcome, err = rt.parser().Parse(cmd.Context(), yomikae.ClauseCandidate{Location: loc, Text: strings.TrimSpace(input)})
			}
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			encoder.SetEscapeHTML(false)
			if outcome.OK() {
				return encoder.Encode(outcome.Result)
			}
			if err := encoder.Encode(outcome.Failure); err != nil {
				return err
			}
			return fmt.Errorf("clause not parsed: %s", outcome.Failure.Reason)
		},
	}

	cmd.Flags().String("law-id", "", "Law id the clause belongs to")
	cmd.Flags().String("article", "", "Article number of the clause (e.g. 5 or 113_38)")
	cmd.Flags().String("paragraph", "", "Paragraph number of the clause")
	cmd.Flags().String("item", "", "Item number of the clause")
	cmd.Flags().Bool("table", false, "Read a tab-separated replacement table from stdin")
	cmd.Flags().String("index-db", "", "Reference index for scope validation")
	return cmd
}

// maxTableLine bounds a single table row read from stdin.
const maxTableLine = 4 * 1024 * 1024

// splitTable reads tab-separated rows, one per line.
func splitTable(input string) ([][]string, error) {
	var rows [][]string
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), maxTableLine)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	return rows, nil
}
