package pipeline

import (
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coolbeans/yomikae/pkg/index"
)

// Discover lists the laws of a run: the entries of lawList when given,
// otherwise every file under workDir matching glob.
func Discover(workDir, lawList, glob string) ([]index.LawEntry, error) {
	if lawList != "" {
		return index.LoadLawList(lawList)
	}

	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob %q", glob)
	}
	matches, err := doublestar.Glob(os.DirFS(workDir), glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}
	sort.Strings(matches)

	entries := make([]index.LawEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, index.LawEntry{File: m})
	}
	return entries, nil
}
