// Package classify decides which provisions are read-as (yomikae) clauses
// worth handing to the clause parser.
package classify

import (
	_ "embed"
	"fmt"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

//go:embed profiles/default.yaml
var defaultProfileYAML []byte

// Profile describes how to recognise one kind of candidate provision.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	ID          string `yaml:"id" json:"id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Keywords gate the indicators: a provision containing none of them is
	// never evaluated. A profile without keywords is always evaluated.
	Keywords []string `yaml:"keywords" json:"keywords"`

	// MinConfidence is the threshold for a candidate (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`

	Detection Detection `yaml:"detection" json:"detection"`

	compiled bool
}

// Detection holds the weighted indicators of a profile.
type Detection struct {
	// RequiredIndicators must have at least one match.
	RequiredIndicators []Indicator `yaml:"required_indicators" json:"required_indicators"`

	// OptionalIndicators add to confidence but are not required.
	OptionalIndicators []Indicator `yaml:"optional_indicators" json:"optional_indicators"`

	// NegativeIndicators reduce confidence and carry negative weights.
	NegativeIndicators []Indicator `yaml:"negative_indicators" json:"negative_indicators"`
}

// Indicator is a weighted pattern.
type Indicator struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Weight  int    `yaml:"weight" json:"weight"`

	re *regexp2.Regexp
}

// count returns the number of non-overlapping matches in text.
func (ind *Indicator) count(text string) int {
	if ind.re == nil {
		return 0
	}
	n := 0
	m, err := ind.re.FindStringMatch(text)
	for m != nil && err == nil {
		n++
		m, err = ind.re.FindNextMatch(m)
	}
	return n
}

// Validate checks that the profile has all required fields.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	if p.Version == "" {
		return fmt.Errorf("profile version is required")
	}
	if len(p.Detection.RequiredIndicators) == 0 {
		return fmt.Errorf("at least one required indicator is needed")
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("min_confidence %.2f out of range [0, 1]", p.MinConfidence)
	}
	for i, ind := range p.Detection.RequiredIndicators {
		if ind.Weight <= 0 {
			return fmt.Errorf("required indicator %d must have a positive weight", i)
		}
	}
	for i, ind := range p.Detection.NegativeIndicators {
		if ind.Weight >= 0 {
			return fmt.Errorf("negative indicator %d must have a negative weight", i)
		}
	}
	return nil
}

// Compile compiles every indicator pattern.
func (p *Profile) Compile() error {
	groups := []struct {
		kind string
		list []Indicator
	}{
		{"required", p.Detection.RequiredIndicators},
		{"optional", p.Detection.OptionalIndicators},
		{"negative", p.Detection.NegativeIndicators},
	}
	for _, g := range groups {
		for i := range g.list {
			ind := &g.list[i]
			re, err := regexp2.Compile(ind.Pattern, regexp2.None)
			if err != nil {
				return fmt.Errorf("compiling %s indicator %d pattern %q: %w", g.kind, i, ind.Pattern, err)
			}
			ind.re = re
		}
	}
	p.compiled = true
	return nil
}

// IsCompiled reports whether Compile has succeeded.
func (p *Profile) IsCompiled() bool {
	return p.compiled
}

// ParseProfile decodes, validates and compiles a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := p.Compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

// DefaultProfile returns the built-in yomikae profile.
func DefaultProfile() *Profile {
	p, err := ParseProfile(defaultProfileYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in profile: %v", err))
	}
	return p
}
