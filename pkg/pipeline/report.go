package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// Report summarises a run.
type Report struct {
	RunID string `json:"run_id"`

	LawsAttempted int `json:"laws_attempted"`
	LawsSucceeded int `json:"laws_succeeded"`
	LawsFailed    int `json:"laws_failed"`

	Provisions     int `json:"provisions"`
	Candidates     int `json:"candidates"`
	ClausesParsed  int `json:"clauses_parsed"`
	ClausesFailed  int `json:"clauses_failed"`
	DuplicateFails int `json:"duplicate_failures"`
	Pairs          int `json:"pairs"`
	Indexed        int `json:"indexed_provisions,omitempty"`

	Reasons map[yomikae.Reason]int `json:"reasons,omitempty"`
	Flags   map[yomikae.Flag]int   `json:"flags,omitempty"`

	Duration time.Duration `json:"duration_ns"`
	Laws     []LawReport   `json:"laws"`
}

// LawReport records the outcome of one law.
type LawReport struct {
	LawID    string        `json:"law_id"`
	File     string        `json:"file"`
	Status   string        `json:"status"` // "ok", "failed"
	Error    string        `json:"error,omitempty"`
	Clauses  int           `json:"clauses,omitempty"`
	Failures int           `json:"failures,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

func newReport(runID string) *Report {
	return &Report{
		RunID:   runID,
		Reasons: make(map[yomikae.Reason]int),
		Flags:   make(map[yomikae.Flag]int),
	}
}

// FormatReport formats a Report for terminal output.
func FormatReport(report *Report) string {
	var builder strings.Builder

	builder.WriteString("\nYomikae Extraction Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Run: %s (%s)\n", report.RunID, report.Duration.Round(time.Millisecond)))
	builder.WriteString(fmt.Sprintf("Laws: %d attempted | %d succeeded | %d failed\n",
		report.LawsAttempted, report.LawsSucceeded, report.LawsFailed))
	builder.WriteString(fmt.Sprintf("Clauses: %d candidates of %d provisions | %d parsed | %d failed (%d duplicates dropped)\n",
		report.Candidates, report.Provisions, report.ClausesParsed, report.ClausesFailed, report.DuplicateFails))
	builder.WriteString(fmt.Sprintf("Pairs: %d\n", report.Pairs))
	if report.Indexed > 0 {
		builder.WriteString(fmt.Sprintf("Indexed provisions: %d\n", report.Indexed))
	}

	if len(report.Reasons) > 0 {
		builder.WriteString(strings.Repeat("─", 60) + "\n")
		builder.WriteString("Failures by reason:\n")
		for _, k := range sortedKeys(report.Reasons) {
			builder.WriteString(fmt.Sprintf("  %-28s %d\n", k, report.Reasons[k]))
		}
	}
	if len(report.Flags) > 0 {
		builder.WriteString(strings.Repeat("─", 60) + "\n")
		builder.WriteString("Flags:\n")
		for _, k := range sortedKeys(report.Flags) {
			builder.WriteString(fmt.Sprintf("  %-28s %d\n", k, report.Flags[k]))
		}
	}

	var failed []LawReport
	for _, law := range report.Laws {
		if law.Status == "failed" {
			failed = append(failed, law)
		}
	}
	if len(failed) > 0 {
		builder.WriteString(strings.Repeat("─", 60) + "\n")
		for _, law := range failed {
			builder.WriteString(fmt.Sprintf("  [FAIL] %-30s error: %s\n", law.File, law.Error))
		}
	}

	return builder.String()
}

// FormatReportJSON formats a Report as JSON.
func FormatReportJSON(report *Report) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
