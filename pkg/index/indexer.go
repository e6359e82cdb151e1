package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coolbeans/yomikae/pkg/lawxml"
)

// Indexer loads law outlines into a Store.
type Indexer struct {
	store  Store
	logger *slog.Logger
}

// NewIndexer creates an Indexer writing to store.
func NewIndexer(store Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger}
}

// IndexOutline stores every entry of outline under lawID and returns the
// number of keys written.
func (ix *Indexer) IndexOutline(ctx context.Context, lawID string, outline lawxml.Outline) (int, error) {
	keys := make([]string, 0, len(outline.Entries))
	for _, ref := range outline.Entries {
		keys = append(keys, ref.Key())
	}
	if len(keys) == 0 {
		if err := ix.store.AddLaw(ctx, lawID); err != nil {
			return 0, fmt.Errorf("failed to register %s: %w", lawID, err)
		}
		return 0, nil
	}
	if err := ix.store.AddProvisions(ctx, lawID, keys); err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", lawID, err)
	}
	ix.logger.Debug("indexed law",
		slog.String("law_id", lawID),
		slog.String("title", outline.Title),
		slog.Int("provisions", len(keys)))
	return len(keys), nil
}

// IndexFile parses the XML of entry inside workDir and indexes it.
func (ix *Indexer) IndexFile(ctx context.Context, entry LawEntry, workDir string) (int, error) {
	law, err := lawxml.ParseFile(entry.FilePath(workDir))
	if err != nil {
		return 0, err
	}
	return ix.IndexOutline(ctx, entry.LawID(), lawxml.BuildOutline(law))
}

// IndexAll indexes every entry, logging and skipping files that fail to
// parse. It stops on store errors or context cancellation.
func (ix *Indexer) IndexAll(ctx context.Context, entries []LawEntry, workDir string) (IndexStats, error) {
	var stats IndexStats
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Attempted++
		law, err := lawxml.ParseFile(entry.FilePath(workDir))
		if err != nil {
			stats.Failed++
			ix.logger.Warn("skipping law", slog.String("file", entry.File), slog.String("error", err.Error()))
			continue
		}
		n, err := ix.IndexOutline(ctx, entry.LawID(), lawxml.BuildOutline(law))
		if err != nil {
			return stats, err
		}
		stats.Indexed++
		stats.Provisions += n
	}
	return stats, nil
}

// IndexStats summarises an IndexAll run.
type IndexStats struct {
	Attempted  int
	Indexed    int
	Failed     int
	Provisions int
}
