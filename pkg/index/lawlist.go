// Package index keeps the set of provisions that exist in each statute and
// answers scope existence queries for the clause parser.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LawEntry is one statute listed in index.json, the law list produced by
// the upstream listing tool. Unknown fields are ignored.
type LawEntry struct {
	Name string `json:"name"`
	Num  string `json:"num"`
	ID   string `json:"id"`
	File string `json:"file"`
}

// FilePath returns the path of the entry's XML file inside workDir.
func (e LawEntry) FilePath(workDir string) string {
	return filepath.Join(workDir, e.File)
}

// LawID identifies the statute. Entries without an id fall back to the file
// name without its extension, which e-Gov derives from the id.
func (e LawEntry) LawID() string {
	if e.ID != "" {
		return e.ID
	}
	base := filepath.Base(e.File)
	return base[:len(base)-len(filepath.Ext(base))]
}

// LoadLawList reads a law list file.
func LoadLawList(path string) ([]LawEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read law list: %w", err)
	}

	var entries []LawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse law list %s: %w", path, err)
	}
	return entries, nil
}

// SaveLawList writes entries as a law list file.
func SaveLawList(path string, entries []LawEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal law list: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create law list directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write law list: %w", err)
	}
	return nil
}
