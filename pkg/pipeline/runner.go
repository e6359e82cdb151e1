// Package pipeline runs clause extraction over a directory of law XML
// files and writes the outcomes as JSON.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/yomikae/pkg/classify"
	"github.com/coolbeans/yomikae/pkg/index"
	"github.com/coolbeans/yomikae/pkg/lawxml"
	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	// WorkDir holds the law XML files named by the law entries.
	WorkDir string
	// Workers bounds the number of clauses parsed concurrently.
	Workers int

	Parser     *yomikae.Parser
	Classifier *classify.Classifier

	// Indexer, when set, indexes each law before its clauses are parsed.
	Indexer *index.Indexer
	// Cache is invalidated for each law the Indexer writes.
	Cache *index.LookupCache

	Metrics *Metrics
	Logger  *slog.Logger
}

// Runner extracts substitution pairs from laws.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a Runner. A nil Parser parses without validation and a
// nil Classifier uses the built-in profile.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Parser == nil {
		cfg.Parser = yomikae.NewParser(nil)
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.New(classify.DefaultProfile())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run processes laws in order and streams their outcomes to sink. A law
// whose XML cannot be read is recorded in the report and skipped; sink,
// store and validator errors abort the run.
func (r *Runner) Run(ctx context.Context, laws []index.LawEntry, sink Sink) (*Report, error) {
	return r.RunWithID(ctx, uuid.New().String(), laws, sink)
}

// RunWithID is Run with a caller-chosen run id, for sinks that record it.
func (r *Runner) RunWithID(ctx context.Context, runID string, laws []index.LawEntry, sink Sink) (*Report, error) {
	start := time.Now()
	report := newReport(runID)
	seen := make(map[yomikae.ClauseFailure]bool)

	r.logger.Info("starting run", slog.String("run_id", report.RunID), slog.Int("laws", len(laws)))
	for _, law := range laws {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		lawReport, err := r.runLaw(ctx, law, sink, report, seen)
		report.Laws = append(report.Laws, lawReport)
		if err != nil {
			return report, err
		}
	}
	report.Duration = time.Since(start)

	r.logger.Info("run complete",
		slog.String("run_id", report.RunID),
		slog.Int("parsed", report.ClausesParsed),
		slog.Int("failed", report.ClausesFailed),
		slog.Duration("duration", report.Duration))
	return report, nil
}

func (r *Runner) runLaw(ctx context.Context, law index.LawEntry, sink Sink, report *Report, seen map[yomikae.ClauseFailure]bool) (LawReport, error) {
	start := time.Now()
	lawID := law.LawID()
	lr := LawReport{LawID: lawID, File: law.File}
	report.LawsAttempted++

	doc, err := lawxml.ParseFile(law.FilePath(r.cfg.WorkDir))
	if err != nil {
		r.logger.Warn("skipping law", slog.String("file", law.File), slog.String("error", err.Error()))
		report.LawsFailed++
		lr.Status = "failed"
		lr.Error = err.Error()
		lr.Duration = time.Since(start)
		return lr, nil
	}

	if r.cfg.Indexer != nil {
		n, err := r.cfg.Indexer.IndexOutline(ctx, lawID, lawxml.BuildOutline(doc))
		if err != nil {
			return lr, err
		}
		report.Indexed += n
		if r.cfg.Cache != nil {
			r.cfg.Cache.InvalidateLaw(lawID)
		}
	}

	provisions := lawxml.Provisions(doc, lawID)
	report.Provisions += len(provisions)
	var candidates []lawxml.Provision
	for _, p := range provisions {
		if r.cfg.Classifier.IsCandidate(p.Text) {
			candidates = append(candidates, p)
		}
	}
	report.Candidates += len(candidates)
	r.logger.Debug("classified law",
		slog.String("law_id", lawID),
		slog.Int("provisions", len(provisions)),
		slog.Int("candidates", len(candidates)))

	outcomes, err := r.parseAll(ctx, candidates)
	if err != nil {
		return lr, fmt.Errorf("%s: %w", law.File, err)
	}

	for _, o := range outcomes {
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.ObserveOutcome(o)
		}
		if o.OK() {
			report.ClausesParsed++
			report.Pairs += len(o.Result.Pairs)
			for _, f := range o.Result.Flags {
				report.Flags[f]++
			}
			lr.Clauses++
			if err := sink.WriteResult(o.Result); err != nil {
				return lr, err
			}
			continue
		}

		if seen[*o.Failure] {
			report.DuplicateFails++
			continue
		}
		seen[*o.Failure] = true
		report.ClausesFailed++
		report.Reasons[o.Failure.Reason]++
		lr.Failures++
		if err := sink.WriteFailure(o.Failure); err != nil {
			return lr, err
		}
	}

	report.LawsSucceeded++
	lr.Status = "ok"
	lr.Duration = time.Since(start)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.ObserveLaw(lr.Duration)
	}
	return lr, nil
}

// parseAll parses candidates on up to Workers goroutines and returns the
// outcomes ordered by location.
func (r *Runner) parseAll(ctx context.Context, candidates []lawxml.Provision) ([]yomikae.Outcome, error) {
	outcomes := make([]yomikae.Outcome, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, p := range candidates {
		i, p := i, p
		g.Go(func() error {
			o, err := r.parse(ctx, p)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Location().Compare(outcomes[j].Location()) < 0
	})
	return outcomes, nil
}

func (r *Runner) parse(ctx context.Context, p lawxml.Provision) (yomikae.Outcome, error) {
	if p.HasTable() {
		return r.cfg.Parser.ParseTable(ctx, yomikae.TableCandidate{Location: p.Location, Rows: p.Table})
	}
	return r.cfg.Parser.Parse(ctx, yomikae.ClauseCandidate{Location: p.Location, Text: p.Text})
}
