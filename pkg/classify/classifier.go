package classify

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Match is the evaluation of one profile against a provision.
type Match struct {
	ProfileID  string
	Confidence float64
	Score      float64
	MaxScore   float64

	RequiredMatched int
	OptionalMatched int
	NegativeMatched int
}

// String returns a human-readable summary of the match.
func (m Match) String() string {
	return fmt.Sprintf("%s: %.1f%% confidence (score: %.1f/%.1f)",
		m.ProfileID, m.Confidence*100, m.Score, m.MaxScore)
}

// Classifier evaluates provisions against a fixed set of profiles. It is
// safe for concurrent use.
type Classifier struct {
	profiles []*Profile

	// mu guards matcher, whose Match mutates internal counters.
	mu                sync.Mutex
	matcher           *ahocorasick.Matcher
	keywords          []string
	keywordProfiles   map[string][]*Profile
	noKeywordProfiles []*Profile
}

// New creates a Classifier. Profiles must be compiled.
func New(profiles ...*Profile) *Classifier {
	c := &Classifier{
		profiles:        profiles,
		keywordProfiles: make(map[string][]*Profile),
	}

	seen := make(map[string]bool)
	for _, p := range profiles {
		if len(p.Keywords) == 0 {
			c.noKeywordProfiles = append(c.noKeywordProfiles, p)
			continue
		}
		for _, kw := range p.Keywords {
			if !seen[kw] {
				seen[kw] = true
				c.keywords = append(c.keywords, kw)
			}
			c.keywordProfiles[kw] = append(c.keywordProfiles[kw], p)
		}
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Profiles returns the profiles the classifier was built with.
func (c *Classifier) Profiles() []*Profile {
	return c.profiles
}

// filter returns the profiles whose keywords occur in text, plus those
// without keywords.
func (c *Classifier) filter(text string) []*Profile {
	result := append([]*Profile(nil), c.noKeywordProfiles...)
	if c.matcher == nil {
		return result
	}

	seen := make(map[*Profile]bool, len(result))
	for _, p := range result {
		seen[p] = true
	}
	c.mu.Lock()
	hits := c.matcher.Match([]byte(text))
	c.mu.Unlock()
	for _, hit := range hits {
		for _, p := range c.keywordProfiles[c.keywords[hit]] {
			if !seen[p] {
				seen[p] = true
				result = append(result, p)
			}
		}
	}
	return result
}

// Classify returns the matches of every profile passing its threshold,
// best first.
func (c *Classifier) Classify(text string) []Match {
	var matches []Match
	for _, p := range c.filter(text) {
		m := evaluate(text, p)
		if m.RequiredMatched > 0 && m.Confidence >= p.MinConfidence {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].ProfileID < matches[j].ProfileID
	})
	return matches
}

// IsCandidate reports whether any profile accepts text.
func (c *Classifier) IsCandidate(text string) bool {
	return len(c.Classify(text)) > 0
}

func evaluate(text string, p *Profile) Match {
	m := Match{ProfileID: p.ID}

	for i := range p.Detection.RequiredIndicators {
		ind := &p.Detection.RequiredIndicators[i]
		m.MaxScore += float64(ind.Weight)
		if ind.count(text) > 0 {
			m.Score += float64(ind.Weight)
			m.RequiredMatched++
		}
	}
	if m.RequiredMatched == 0 {
		return m
	}

	for i := range p.Detection.OptionalIndicators {
		ind := &p.Detection.OptionalIndicators[i]
		if ind.count(text) > 0 {
			m.Score += float64(ind.Weight)
			m.OptionalMatched++
		}
	}
	for i := range p.Detection.NegativeIndicators {
		ind := &p.Detection.NegativeIndicators[i]
		if ind.count(text) > 0 {
			m.Score += float64(ind.Weight)
			m.NegativeMatched++
		}
	}

	if m.MaxScore > 0 {
		m.Confidence = m.Score / m.MaxScore
		if m.Confidence < 0 {
			m.Confidence = 0
		}
		if m.Confidence > 1 {
			m.Confidence = 1
		}
	}
	return m
}
