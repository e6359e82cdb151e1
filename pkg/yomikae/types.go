// Package yomikae extracts deemed-replacement (読み替え) rules from Japanese
// statutory text.
//
// A yomikae clause declares that a phrase appearing in a referenced provision
// is to be read as a different phrase, for example
//
//	第八百五十一条第四号中「被後見人を代表する」とあるのは、「被保佐人を代表し」と読み替えるものとする。
//
// The Parser turns one such clause into a ClauseResult holding one
// SubstitutionPair per (original, replacement) phrase, or into a
// ClauseFailure carrying a reason code and the offending excerpt.
package yomikae

import (
	"strconv"
	"strings"
)

// Location identifies where a clause candidate sits inside a statute.
// Structural numbers use the e-Gov Num attribute format: 第百十三条の三十八
// is "113_38", 第二項 is "2".
type Location struct {
	LawID     string `json:"law_id"`
	LawNum    string `json:"law_num,omitempty"`
	Suppl     bool   `json:"suppl,omitempty"`
	SupplNum  string `json:"suppl_num,omitempty"` // AmendLawNum of the supplementary provision
	Chapter   string `json:"chapter,omitempty"`
	Section   string `json:"section,omitempty"`
	Article   string `json:"article,omitempty"`
	Paragraph string `json:"paragraph,omitempty"`
	Item      string `json:"item,omitempty"`

	// Index is the position of the provision in document order.
	Index int `json:"index"`
}

// String renders the location as a compact path for logs and reports.
func (loc Location) String() string {
	var parts []string
	parts = append(parts, loc.LawID)
	if loc.Suppl {
		if loc.SupplNum != "" {
			parts = append(parts, "附則("+loc.SupplNum+")")
		} else {
			parts = append(parts, "附則")
		}
	}
	if loc.Article != "" {
		parts = append(parts, "article:"+loc.Article)
	}
	if loc.Paragraph != "" {
		parts = append(parts, "paragraph:"+loc.Paragraph)
	}
	if loc.Item != "" {
		parts = append(parts, "item:"+loc.Item)
	}
	return strings.Join(parts, "/")
}

// Compare orders locations by law, then document order, then structure.
func (loc Location) Compare(other Location) int {
	if c := strings.Compare(loc.LawID, other.LawID); c != 0 {
		return c
	}
	if loc.Index != other.Index {
		if loc.Index < other.Index {
			return -1
		}
		return 1
	}
	if loc.Suppl != other.Suppl {
		if !loc.Suppl {
			return -1
		}
		return 1
	}
	if c := strings.Compare(loc.SupplNum, other.SupplNum); c != 0 {
		return c
	}
	if c := CompareNum(loc.Article, other.Article); c != 0 {
		return c
	}
	if c := CompareNum(loc.Paragraph, other.Paragraph); c != 0 {
		return c
	}
	return CompareNum(loc.Item, other.Item)
}

// CompareNum compares two Num values such as "10" and "10_2" numerically,
// component by component. Non-numeric components compare as strings.
func CompareNum(a, b string) int {
	if a == b {
		return 0
	}
	as := strings.Split(a, "_")
	bs := strings.Split(b, "_")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, aErr := strconv.Atoi(as[i])
		bi, bErr := strconv.Atoi(bs[i])
		if aErr == nil && bErr == nil {
			if ai != bi {
				if ai < bi {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// ClauseCandidate is one provision's text that an upstream classifier has
// identified as containing a yomikae clause.
type ClauseCandidate struct {
	Location Location `json:"location"`
	Text     string   `json:"text"`
}

// TableCandidate is a yomikae clause expressed as a replacement table
// (読み替え表). Each row is either (original, replacement) or
// (provision, original, replacement).
type TableCandidate struct {
	Location Location   `json:"location"`
	Rows     [][]string `json:"rows"`
}

// Span is a run of source text. Start and End are byte offsets into the
// clause text; table cells have zero offsets.
type Span struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ScopeOrigin records whether a pair's scope was written next to it or
// carried over from a preceding pair.
type ScopeOrigin string

const (
	ScopeExplicit  ScopeOrigin = "explicit"
	ScopeInherited ScopeOrigin = "inherited"
)

// ScopeStatus is the outcome of resolving a scope qualifier.
type ScopeStatus string

const (
	ScopeResolved   ScopeStatus = "resolved"
	ScopeUnchecked  ScopeStatus = "unchecked" // parsed, no validator configured
	ScopeUnparsed   ScopeStatus = "unparsed"
	ScopeDangling   ScopeStatus = "dangling"
	ScopeUnverified ScopeStatus = "unverified"
)

// ScopeRef is the provision a substitution pair applies to.
type ScopeRef struct {
	Text       string      `json:"text"`
	Origin     ScopeOrigin `json:"origin"`
	References []Reference `json:"references,omitempty"`
	Status     ScopeStatus `json:"status"`

	// Start is the byte offset of the scope text in the clause, or -1 for
	// table scopes.
	Start int `json:"start"`

	inheritFrom *ScopeRef
}

// SubstitutionPair is one extracted rule: Original is to be read as
// Replacement within Scope. A nil Scope means the pair is unscoped and
// applies to the whole provision being applied.
type SubstitutionPair struct {
	Original    Span      `json:"original"`
	Replacement Span      `json:"replacement"`
	Scope       *ScopeRef `json:"scope,omitempty"`

	// Ellipsis marks pairs that omit their own marker because they share it
	// with a preceding pair in the same coordinated group.
	Ellipsis bool `json:"ellipsis,omitempty"`

	// Group numbers the pair-groups of a clause from zero. Pairs sharing a
	// replacement or formed from one enumerated list share a group.
	Group int    `json:"group"`
	Flags []Flag `json:"flags,omitempty"`
}

// ClauseResult is the successful parse of one clause.
type ClauseResult struct {
	Location Location           `json:"location"`
	Pairs    []SubstitutionPair `json:"pairs"`
	Flags    []Flag             `json:"flags,omitempty"`
}

// ClauseFailure is a diagnosed parse failure of one clause.
type ClauseFailure struct {
	Location Location `json:"location"`
	Reason   Reason   `json:"reason"`
	Excerpt  string   `json:"excerpt"`
	Offset   int      `json:"offset"`
}

// Outcome holds exactly one of Result or Failure.
type Outcome struct {
	Result  *ClauseResult
	Failure *ClauseFailure
}

// OK reports whether the clause parsed successfully.
func (o Outcome) OK() bool {
	return o.Result != nil
}

// Location returns the location of whichever side is set.
func (o Outcome) Location() Location {
	if o.Result != nil {
		return o.Result.Location
	}
	if o.Failure != nil {
		return o.Failure.Location
	}
	return Location{}
}
